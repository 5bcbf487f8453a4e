package comet

import "github.com/lmittmann/w3"

const (
	assetConfigTuple = "(address asset, address priceFeed, uint8 decimals, uint64 borrowCollateralFactor, uint64 liquidateCollateralFactor, uint64 liquidationFactor, uint128 supplyCap)"
	assetInfoTuple   = "(uint8 offset, address asset, address priceFeed, uint64 scale, uint64 borrowCollateralFactor, uint64 liquidateCollateralFactor, uint64 liquidationFactor, uint128 supplyCap)"

	configurationTuple = "(address governor, address pauseGuardian, address baseToken, address baseTokenPriceFeed, address extensionDelegate, " +
		"uint64 supplyKink, uint64 supplyPerYearInterestRateSlopeLow, uint64 supplyPerYearInterestRateSlopeHigh, uint64 supplyPerYearInterestRateBase, " +
		"uint64 borrowKink, uint64 borrowPerYearInterestRateSlopeLow, uint64 borrowPerYearInterestRateSlopeHigh, uint64 borrowPerYearInterestRateBase, " +
		"uint64 storeFrontPriceFactor, uint64 trackingIndexScale, uint64 baseTrackingSupplySpeed, uint64 baseTrackingBorrowSpeed, " +
		"uint104 baseMinForRewards, uint104 baseBorrowMin, uint104 targetReserves, " + assetConfigTuple + "[] assetConfigs)"
)

// Configurator
var (
	FuncAddAsset                             = w3.MustNewFunc("addAsset(address cometProxy, "+assetConfigTuple+" assetConfig)", "")
	FuncUpdateAsset                          = w3.MustNewFunc("updateAsset(address cometProxy, "+assetConfigTuple+" newAssetConfig)", "")
	FuncUpdateAssetPriceFeed                 = w3.MustNewFunc("updateAssetPriceFeed(address cometProxy, address asset, address newPriceFeed)", "")
	FuncUpdateAssetBorrowCollateralFactor    = w3.MustNewFunc("updateAssetBorrowCollateralFactor(address cometProxy, address asset, uint64 newBorrowCF)", "")
	FuncUpdateAssetLiquidateCollateralFactor = w3.MustNewFunc("updateAssetLiquidateCollateralFactor(address cometProxy, address asset, uint64 newLiquidateCF)", "")
	FuncUpdateAssetLiquidationFactor         = w3.MustNewFunc("updateAssetLiquidationFactor(address cometProxy, address asset, uint64 newLiquidationFactor)", "")
	FuncUpdateAssetSupplyCap                 = w3.MustNewFunc("updateAssetSupplyCap(address cometProxy, address asset, uint128 newSupplyCap)", "")
	FuncSetBaseTrackingSupplySpeed           = w3.MustNewFunc("setBaseTrackingSupplySpeed(address cometProxy, uint64 newBaseTrackingSupplySpeed)", "")
	FuncSetBaseTrackingBorrowSpeed           = w3.MustNewFunc("setBaseTrackingBorrowSpeed(address cometProxy, uint64 newBaseTrackingBorrowSpeed)", "")
	FuncSetBaseBorrowMin                     = w3.MustNewFunc("setBaseBorrowMin(address cometProxy, uint104 newBaseBorrowMin)", "")
	FuncSetTargetReserves                    = w3.MustNewFunc("setTargetReserves(address cometProxy, uint104 newTargetReserves)", "")
	FuncSetFactory                           = w3.MustNewFunc("setFactory(address cometProxy, address newFactory)", "")
	FuncSetConfiguration                     = w3.MustNewFunc("setConfiguration(address cometProxy, "+configurationTuple+" newConfiguration)", "")
	FuncSetGovernor                          = w3.MustNewFunc("setGovernor(address cometProxy, address newGovernor)", "")
	FuncSetPauseGuardian                     = w3.MustNewFunc("setPauseGuardian(address cometProxy, address newPauseGuardian)", "")

	FuncGetConfiguration = w3.MustNewFunc("getConfiguration(address cometProxy)", configurationTuple)
	FuncFactory          = w3.MustNewFunc("factory(address cometProxy)", "address")
)

// CometProxyAdmin
var FuncDeployAndUpgradeTo = w3.MustNewFunc("deployAndUpgradeTo(address configuratorProxy, address cometProxy)", "")

// CometRewards
var (
	FuncSetRewardConfig = w3.MustNewFunc("setRewardConfig(address comet, address token)", "")
	FuncRewardConfig    = w3.MustNewFunc("rewardConfig(address comet)", "address token, uint64 rescaleFactor, bool shouldUpscale")
)

// Comet
var (
	FuncGetAssetInfoByAddress   = w3.MustNewFunc("getAssetInfoByAddress(address asset)", assetInfoTuple)
	FuncNumAssets               = w3.MustNewFunc("numAssets()", "uint8")
	FuncBaseTrackingSupplySpeed = w3.MustNewFunc("baseTrackingSupplySpeed()", "uint64")
	FuncBaseTrackingBorrowSpeed = w3.MustNewFunc("baseTrackingBorrowSpeed()", "uint64")
	FuncBaseBorrowMin           = w3.MustNewFunc("baseBorrowMin()", "uint104")
	FuncTargetReserves          = w3.MustNewFunc("targetReserves()", "uint104")
	FuncGovernor                = w3.MustNewFunc("governor()", "address")
	FuncPauseGuardian           = w3.MustNewFunc("pauseGuardian()", "address")
	FuncBaseToken               = w3.MustNewFunc("baseToken()", "address")
)
