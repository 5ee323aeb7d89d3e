package services

import (
	"time"

	"flashcount/internal/core"
)

// AssetValuation is the derived cost picture of a physical asset at a
// point in time.
type AssetValuation struct {
	DaysHeld         int
	DepreciableCost  core.Money
	DailyCost        core.Money
	CurrentValue     core.Money
	DaysToTarget     *int        // nil when no target daily cost is set
	ProgressToTarget float64     // 0..1, 0 when no target daily cost is set
	ActualProfit     *core.Money // sold price - purchase price, sold assets only
	ActualDailyCost  *core.Money // sold assets only
}

// ValueAsset computes straight-line depreciation and cost-per-day figures
// for an asset. Sold assets are valued at their sale date.
func ValueAsset(asset core.PhysicalAsset, now time.Time) AssetValuation {
	end := core.DateOf(now)
	if asset.SoldDate != nil {
		end = *asset.SoldDate
	}
	daysHeld := asset.PurchaseDate.DaysBetween(end)
	if daysHeld < 1 {
		daysHeld = 1
	}

	depreciable := asset.PurchasePrice.Sub(asset.SalvageValue)
	dailyCost := depreciable.DivInt(daysHeld)

	v := AssetValuation{
		DaysHeld:        daysHeld,
		DepreciableCost: depreciable,
		DailyCost:       dailyCost,
		CurrentValue:    straightLineValue(asset, depreciable, daysHeld),
	}

	if asset.TargetDailyCost.Cents > 0 {
		targetDays := float64(depreciable.Cents) / float64(asset.TargetDailyCost.Cents)
		progress := float64(daysHeld) / targetDays
		if progress > 1 {
			progress = 1
		}
		v.ProgressToTarget = progress

		remaining := int(targetDays) - daysHeld
		if remaining < 0 {
			remaining = 0
		}
		v.DaysToTarget = &remaining
	}

	if asset.SoldPrice != nil {
		profit := asset.SoldPrice.Sub(asset.PurchasePrice)
		v.ActualProfit = &profit
		actualDaily := asset.PurchasePrice.Sub(*asset.SoldPrice).DivInt(daysHeld)
		v.ActualDailyCost = &actualDaily
	}

	return v
}

// straightLineValue depreciates linearly at the category's annual rate and
// floors the result at the salvage value.
func straightLineValue(asset core.PhysicalAsset, depreciable core.Money, daysHeld int) core.Money {
	perDay := float64(depreciable.Cents) * asset.Category.AnnualDepreciationRate() / 365.0
	depreciated := asset.PurchasePrice.Cents - int64(perDay*float64(daysHeld))
	if depreciated < asset.SalvageValue.Cents {
		return asset.SalvageValue
	}
	return core.Money{Cents: depreciated}
}
