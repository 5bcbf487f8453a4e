package comet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

func AddAsset(m networks.Market, cfg AssetConfig) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncAddAsset, m.Comet, cfg)
}

func UpdateAsset(m networks.Market, cfg AssetConfig) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAsset, m.Comet, cfg)
}

func UpdateAssetPriceFeed(m networks.Market, asset, priceFeed common.Address) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAssetPriceFeed, m.Comet, asset, priceFeed)
}

func UpdateAssetBorrowCollateralFactor(m networks.Market, asset common.Address, factor uint64) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAssetBorrowCollateralFactor, m.Comet, asset, factor)
}

func UpdateAssetLiquidateCollateralFactor(m networks.Market, asset common.Address, factor uint64) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAssetLiquidateCollateralFactor, m.Comet, asset, factor)
}

func UpdateAssetLiquidationFactor(m networks.Market, asset common.Address, factor uint64) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAssetLiquidationFactor, m.Comet, asset, factor)
}

func UpdateAssetSupplyCap(m networks.Market, asset common.Address, supplyCap *big.Int) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncUpdateAssetSupplyCap, m.Comet, asset, supplyCap)
}

func SetBaseTrackingSupplySpeed(m networks.Market, speed uint64) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetBaseTrackingSupplySpeed, m.Comet, speed)
}

func SetBaseTrackingBorrowSpeed(m networks.Market, speed uint64) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetBaseTrackingBorrowSpeed, m.Comet, speed)
}

func SetBaseBorrowMin(m networks.Market, amount *big.Int) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetBaseBorrowMin, m.Comet, amount)
}

func SetTargetReserves(m networks.Market, amount *big.Int) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetTargetReserves, m.Comet, amount)
}

func SetFactory(m networks.Market, factory common.Address) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetFactory, m.Comet, factory)
}

func SetConfiguration(m networks.Market, cfg Configuration) (proposal.Action, error) {
	if cfg.AssetConfigs == nil {
		cfg.AssetConfigs = []AssetConfig{}
	}
	return proposal.NewAction(m.Configurator, FuncSetConfiguration, m.Comet, cfg)
}

func SetGovernor(m networks.Market, governor common.Address) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetGovernor, m.Comet, governor)
}

func SetPauseGuardian(m networks.Market, guardian common.Address) (proposal.Action, error) {
	return proposal.NewAction(m.Configurator, FuncSetPauseGuardian, m.Comet, guardian)
}

// DeployAndUpgradeTo makes the proxy admin deploy a new Comet implementation from the
// Configurator's current configuration. Every configuration change needs one.
func DeployAndUpgradeTo(m networks.Market) (proposal.Action, error) {
	return proposal.NewAction(m.CometAdmin, FuncDeployAndUpgradeTo, m.Configurator, m.Comet)
}

func SetRewardConfig(m networks.Market, token common.Address) (proposal.Action, error) {
	return proposal.NewAction(m.Rewards, FuncSetRewardConfig, m.Comet, token)
}
