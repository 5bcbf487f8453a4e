// Package comet describes the Comet, Configurator, CometProxyAdmin and CometRewards
// contracts: the tuples they take and the calls migrations make on them.
package comet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetConfig is the Configurator's collateral asset tuple.
type AssetConfig struct {
	Asset                     common.Address
	PriceFeed                 common.Address
	Decimals                  uint8
	BorrowCollateralFactor    uint64
	LiquidateCollateralFactor uint64
	LiquidationFactor         uint64
	SupplyCap                 *big.Int // uint128
}

// AssetInfo is what Comet reports for a collateral asset after deployment.
type AssetInfo struct {
	Offset                    uint8
	Asset                     common.Address
	PriceFeed                 common.Address
	Scale                     uint64
	BorrowCollateralFactor    uint64
	LiquidateCollateralFactor uint64
	LiquidationFactor         uint64
	SupplyCap                 *big.Int // uint128
}

// Configuration is the full market configuration the Configurator deploys Comet from.
type Configuration struct {
	Governor                           common.Address
	PauseGuardian                      common.Address
	BaseToken                          common.Address
	BaseTokenPriceFeed                 common.Address
	ExtensionDelegate                  common.Address
	SupplyKink                         uint64
	SupplyPerYearInterestRateSlopeLow  uint64
	SupplyPerYearInterestRateSlopeHigh uint64
	SupplyPerYearInterestRateBase      uint64
	BorrowKink                         uint64
	BorrowPerYearInterestRateSlopeLow  uint64
	BorrowPerYearInterestRateSlopeHigh uint64
	BorrowPerYearInterestRateBase      uint64
	StoreFrontPriceFactor              uint64
	TrackingIndexScale                 uint64
	BaseTrackingSupplySpeed            uint64
	BaseTrackingBorrowSpeed            uint64
	BaseMinForRewards                  *big.Int // uint104
	BaseBorrowMin                      *big.Int // uint104
	TargetReserves                     *big.Int // uint104
	AssetConfigs                       []AssetConfig
}

// Asset returns the config for asset, if present.
func (c *Configuration) Asset(asset common.Address) (AssetConfig, bool) {
	for _, a := range c.AssetConfigs {
		if a.Asset == asset {
			return a, true
		}
	}
	return AssetConfig{}, false
}

type RewardConfig struct {
	Token         common.Address
	RescaleFactor uint64
	ShouldUpscale bool
}

// Scale is the 10^decimals factor Comet stores for an asset.
func (a AssetConfig) Scale() uint64 {
	scale := uint64(1)
	for i := uint8(0); i < a.Decimals; i++ {
		scale *= 10
	}
	return scale
}

// Matches reports whether the deployed info reflects the config.
func (a AssetConfig) Matches(info AssetInfo) bool {
	return a.Asset == info.Asset &&
		a.PriceFeed == info.PriceFeed &&
		a.Scale() == info.Scale &&
		a.BorrowCollateralFactor == info.BorrowCollateralFactor &&
		a.LiquidateCollateralFactor == info.LiquidateCollateralFactor &&
		a.LiquidationFactor == info.LiquidationFactor &&
		a.SupplyCap != nil && info.SupplyCap != nil && a.SupplyCap.Cmp(info.SupplyCap) == 0
}
