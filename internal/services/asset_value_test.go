package services

import (
	"testing"
	"time"

	"flashcount/internal/core"
)

func phoneAsset() core.PhysicalAsset {
	return core.PhysicalAsset{
		ID:              1,
		Name:            "Phone",
		Category:        core.AssetPhone,
		PurchasePrice:   core.Money{Cents: 100000}, // 1000.00
		PurchaseDate:    core.NewDate(2024, 1, 1),
		SalvageValue:    core.Money{Cents: 10000}, // 100.00
		TargetDailyCost: core.Money{Cents: 1000},  // 10.00/day
	}
}

func TestValueAsset_DailyCost(t *testing.T) {
	asset := phoneAsset()
	// 90 days held: 2024-01-01 -> 2024-03-31.
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	got := ValueAsset(asset, now)

	if got.DaysHeld != 90 {
		t.Fatalf("days held = %d, want 90", got.DaysHeld)
	}
	if got.DepreciableCost.Cents != 90000 {
		t.Errorf("depreciable cost = %d, want 90000", got.DepreciableCost.Cents)
	}
	if got.DailyCost.Cents != 1000 {
		t.Errorf("daily cost = %d, want 1000 (10.00/day)", got.DailyCost.Cents)
	}
}

func TestValueAsset_DaysHeldFloorsAtOne(t *testing.T) {
	asset := phoneAsset()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) // purchase day

	got := ValueAsset(asset, now)
	if got.DaysHeld != 1 {
		t.Errorf("days held = %d, want 1", got.DaysHeld)
	}
}

func TestValueAsset_CurrentValueBounds(t *testing.T) {
	asset := phoneAsset()

	early := ValueAsset(asset, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if early.CurrentValue.Cents > asset.PurchasePrice.Cents {
		t.Error("current value above purchase price")
	}
	if early.CurrentValue.Cents < asset.SalvageValue.Cents {
		t.Error("current value below salvage")
	}

	// Decades out the value floors at salvage.
	late := ValueAsset(asset, time.Date(2060, 1, 1, 0, 0, 0, 0, time.UTC))
	if late.CurrentValue.Cents != asset.SalvageValue.Cents {
		t.Errorf("current value = %d, want salvage floor %d", late.CurrentValue.Cents, asset.SalvageValue.Cents)
	}
}

func TestValueAsset_ProgressToTarget(t *testing.T) {
	asset := phoneAsset()
	// Target days = 90000 / 1000 = 90; 45 days held is halfway.
	halfway := ValueAsset(asset, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	if halfway.DaysHeld != 45 {
		t.Fatalf("days held = %d, want 45", halfway.DaysHeld)
	}
	if halfway.ProgressToTarget != 0.5 {
		t.Errorf("progress = %v, want 0.5", halfway.ProgressToTarget)
	}
	if halfway.DaysToTarget == nil || *halfway.DaysToTarget != 45 {
		t.Errorf("days to target = %v, want 45", halfway.DaysToTarget)
	}

	// Past the target the progress caps at 1.
	past := ValueAsset(asset, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	if past.ProgressToTarget != 1 {
		t.Errorf("progress = %v, want capped at 1", past.ProgressToTarget)
	}
	if past.DaysToTarget == nil || *past.DaysToTarget != 0 {
		t.Errorf("days to target = %v, want 0", past.DaysToTarget)
	}
}

func TestValueAsset_NoTargetDailyCost(t *testing.T) {
	asset := phoneAsset()
	asset.TargetDailyCost = core.Money{}

	got := ValueAsset(asset, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if got.ProgressToTarget != 0 {
		t.Errorf("progress = %v, want 0 without a target", got.ProgressToTarget)
	}
	if got.DaysToTarget != nil {
		t.Error("days to target should be nil without a target")
	}
}

func TestValueAsset_SoldAsset(t *testing.T) {
	asset := phoneAsset()
	soldDate := core.NewDate(2024, 4, 10) // 100 days after purchase
	soldPrice := core.Money{Cents: 60000}
	asset.SoldDate = &soldDate
	asset.SoldPrice = &soldPrice

	// now is well past the sale; valuation must stop at the sale date.
	got := ValueAsset(asset, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	if got.DaysHeld != 100 {
		t.Fatalf("days held = %d, want 100", got.DaysHeld)
	}
	if got.ActualProfit == nil || got.ActualProfit.Cents != -40000 {
		t.Errorf("actual profit = %v, want -40000", got.ActualProfit)
	}
	if got.ActualDailyCost == nil || got.ActualDailyCost.Cents != 400 {
		t.Errorf("actual daily cost = %v, want 400 (4.00/day)", got.ActualDailyCost)
	}
}
