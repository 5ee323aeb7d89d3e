package core

import (
	"errors"
	"strings"
)

// Physical asset categories. Each carries an industry-typical first-year
// depreciation rate and a default salvage ratio used when the user does
// not supply their own estimate.
const (
	AssetPhone     AssetCategory = "phone"
	AssetLaptop    AssetCategory = "laptop"
	AssetDesktop   AssetCategory = "desktop"
	AssetTablet    AssetCategory = "tablet"
	AssetHeadphone AssetCategory = "headphone"
	AssetSpeaker   AssetCategory = "speaker"
	AssetWatch     AssetCategory = "watch"
	AssetCamera    AssetCategory = "camera"
	AssetConsole   AssetCategory = "console"
	AssetDrone     AssetCategory = "drone"
	AssetCar       AssetCategory = "car"
	AssetHouse     AssetCategory = "house"
	AssetOther     AssetCategory = "other"
)

// AssetCategory classifies a physical asset for depreciation defaults.
type AssetCategory string

type assetCategoryDefaults struct {
	annualRate   float64
	salvageRatio float64
}

var assetCategoryTable = map[AssetCategory]assetCategoryDefaults{
	AssetPhone:     {0.25, 0.15},
	AssetLaptop:    {0.25, 0.10},
	AssetDesktop:   {0.20, 0.10},
	AssetTablet:    {0.20, 0.15},
	AssetHeadphone: {0.20, 0.05},
	AssetSpeaker:   {0.15, 0.10},
	AssetWatch:     {0.20, 0.20},
	AssetCamera:    {0.15, 0.20},
	AssetConsole:   {0.20, 0.10},
	AssetDrone:     {0.25, 0.10},
	AssetCar:       {0.20, 0.30},
	AssetHouse:     {0.02, 0.80},
	AssetOther:     {0.20, 0.10},
}

var ErrUnknownAssetCategory = errors.New("unknown asset category")

// ParseAssetCategory validates and normalizes an asset category string.
func ParseAssetCategory(s string) (AssetCategory, error) {
	c := AssetCategory(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := assetCategoryTable[c]; !ok {
		return "", ErrUnknownAssetCategory
	}
	return c, nil
}

// AnnualDepreciationRate returns the category's first-year depreciation
// rate. Unknown categories fall back to the "other" defaults.
func (c AssetCategory) AnnualDepreciationRate() float64 {
	if d, ok := assetCategoryTable[c]; ok {
		return d.annualRate
	}
	return assetCategoryTable[AssetOther].annualRate
}

// DefaultSalvageRatio returns the category's default salvage-to-purchase
// ratio.
func (c AssetCategory) DefaultSalvageRatio() float64 {
	if d, ok := assetCategoryTable[c]; ok {
		return d.salvageRatio
	}
	return assetCategoryTable[AssetOther].salvageRatio
}

// PhysicalAsset is an owned item tracked for cost-per-day and resale value
// (a phone, a laptop, a car). SoldPrice/SoldDate are set once it is sold.
type PhysicalAsset struct {
	ID              int64
	Name            string
	Category        AssetCategory
	PurchasePrice   Money
	PurchaseDate    Date
	SalvageValue    Money
	TargetDailyCost Money
	SoldPrice       *Money
	SoldDate        *Date
	Note            string
	Archived        bool
}

func (a PhysicalAsset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("empty asset name")
	}
	if _, ok := assetCategoryTable[a.Category]; !ok {
		return ErrUnknownAssetCategory
	}
	if err := a.PurchasePrice.Validate(); err != nil {
		return err
	}
	if err := a.PurchaseDate.Validate(); err != nil {
		return err
	}
	if a.SalvageValue.Cents < 0 {
		return ErrInvalidAmount
	}
	if a.SalvageValue.Cents >= a.PurchasePrice.Cents {
		return errors.New("salvage value must be below purchase price")
	}
	return nil
}

// DefaultSalvageValue estimates the salvage value from the category ratio.
func (a PhysicalAsset) DefaultSalvageValue() Money {
	return Money{Cents: int64(float64(a.PurchasePrice.Cents) * a.Category.DefaultSalvageRatio())}
}
