package migrations

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/units"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

// Aliases the market deployment records in roots.json.
const (
	rootCometFactory = "cometFactory"
	rootCometExt     = "cometExt"
	rootCOMP         = "COMP"
)

var (
	scrollUSDC          = common.HexToAddress("0x06eFdBFf2a14a7c8E15944D1F4A48F9F95F663A4")
	scrollUSDCFeed      = common.HexToAddress("0x43d12Fb3AfCAd5347fA764EeAB105478337b7200")
	scrollWETH          = common.HexToAddress("0x5300000000000000000000000000000000000004")
	scrollETHFeed       = common.HexToAddress("0x6bF14CB0A831078629D993FDeBcB182b21A8774C")
	scrollPauseGuardian = common.HexToAddress("0x0747a435b8a60070A7a111D015046d765098e4cc")
)

var errNoENS = errors.New("no ENS client for the governance network")

type launchArtifact struct {
	Factory           common.Address `json:"factory"`
	ExtensionDelegate common.Address `json:"extensionDelegate"`
	RewardToken       common.Address `json:"rewardToken"`
}

func scrollUSDCConfiguration(m networks.Market, extensionDelegate common.Address) comet.Configuration {
	return comet.Configuration{
		Governor:                           m.LocalTimelock,
		PauseGuardian:                      scrollPauseGuardian,
		BaseToken:                          scrollUSDC,
		BaseTokenPriceFeed:                 scrollUSDCFeed,
		ExtensionDelegate:                  extensionDelegate,
		SupplyKink:                         units.Factor("0.9"),
		SupplyPerYearInterestRateSlopeLow:  units.Factor("0.059"),
		SupplyPerYearInterestRateSlopeHigh: units.Factor("2.9"),
		SupplyPerYearInterestRateBase:      0,
		BorrowKink:                         units.Factor("0.9"),
		BorrowPerYearInterestRateSlopeLow:  units.Factor("0.061"),
		BorrowPerYearInterestRateSlopeHigh: units.Factor("3.2"),
		BorrowPerYearInterestRateBase:      units.Factor("0.015"),
		StoreFrontPriceFactor:              units.Factor("0.6"),
		TrackingIndexScale:                 1e15,
		BaseTrackingSupplySpeed:            scrollSupplySpeed,
		BaseTrackingBorrowSpeed:            scrollBorrowSpeed,
		BaseMinForRewards:                  units.MustExp("1000", 6),
		BaseBorrowMin:                      units.MustExp("1", 6),
		TargetReserves:                     units.MustExp("5000000", 6),
		AssetConfigs: []comet.AssetConfig{{
			Asset:                     scrollWETH,
			PriceFeed:                 scrollETHFeed,
			Decimals:                  18,
			BorrowCollateralFactor:    units.Factor("0.775"),
			LiquidateCollateralFactor: units.Factor("0.825"),
			LiquidationFactor:         units.Factor("0.95"),
			SupplyCap:                 units.MustExp("200", 18),
		}},
	}
}

// COMP per day
var (
	scrollSupplySpeed = units.Speed("2")
	scrollBorrowSpeed = units.Speed("1")
)

func scrollDirectoryEntry(m networks.Market) ens.MarketEntry {
	return ens.MarketEntry{BaseSymbol: "USDC", CometAddress: m.Comet}
}

// ConfigurateAndENS launches the Scroll USDC market: it configures and deploys the
// Comet implementation, starts COMP rewards and lists the market in the ENS directory
// of official markets on mainnet.
var ConfigurateAndENS = migration.Define(migration.Spec[launchArtifact]{
	Name:    "1707394874_configurate_and_ens",
	Network: networks.Scroll,
	Market:  "usdc",
	Enacted: true,
	Prepare: func(ctx context.Context, env *migration.Env) (launchArtifact, error) {
		factory, err := env.Root(rootCometFactory)
		if err != nil {
			return launchArtifact{}, err
		}
		ext, err := env.Root(rootCometExt)
		if err != nil {
			return launchArtifact{}, err
		}
		comp, err := env.Root(rootCOMP)
		if err != nil {
			return launchArtifact{}, err
		}
		return launchArtifact{Factory: factory, ExtensionDelegate: ext, RewardToken: comp}, nil
	},
	Enact: func(ctx context.Context, env *migration.Env, a launchArtifact) (*proposal.Proposal, error) {
		if env.ENS == nil {
			return nil, errNoENS
		}
		var l2 proposal.Builder
		l2.Add(comet.SetFactory(env.Market, a.Factory))
		l2.Add(comet.SetConfiguration(env.Market, scrollUSDCConfiguration(env.Market, a.ExtensionDelegate)))
		l2.Add(comet.DeployAndUpgradeTo(env.Market))
		l2.Add(comet.SetRewardConfig(env.Market, a.RewardToken))
		if err := l2.Err(); err != nil {
			return nil, err
		}

		resolver, err := env.ENS.Resolver(ctx, ens.DefaultName)
		if err != nil {
			return nil, err
		}
		current, err := env.ENS.Directory(ctx, ens.DefaultName, ens.DefaultKey)
		if err != nil {
			return nil, err
		}
		updated := current.Clone()
		if !updated.Add(env.Network.ChainID, scrollDirectoryEntry(env.Market)) {
			env.Log.Warn("market already listed in ENS directory", "market", env.Market.ID())
		} else {
			env.Log.Info("updating ENS directory", "diff", ens.Diff(current, updated))
		}
		setText, err := ens.SetTextAction(resolver, ens.DefaultName, ens.DefaultKey, updated)
		if err != nil {
			return nil, err
		}

		return bridged(ctx, env, &l2, `# Initialize cUSDCv3 on Scroll

This proposal configures the new USDC market on Scroll with WETH as collateral, deploys
its Comet implementation and starts COMP rewards. The L2 actions are relayed by the
Scroll messenger. The proposal also adds the market to the list of official markets
stored in the ENS text record v3-official-markets.
`, setText)
	},
	Verify: func(ctx context.Context, env *migration.Env, a launchArtifact) error {
		if env.ENS == nil {
			return errNoENS
		}
		r := env.Comet()
		cfg := scrollUSDCConfiguration(env.Market, a.ExtensionDelegate)
		return check(ctx, env,
			verify.Factory(r, a.Factory),
			verify.ConfigurationMatches(r, cfg),
			verify.Governor(r, cfg.Governor),
			verify.PauseGuardian(r, cfg.PauseGuardian),
			verify.TrackingSpeeds(r, cfg.BaseTrackingSupplySpeed, cfg.BaseTrackingBorrowSpeed),
			verify.BaseBorrowMin(r, cfg.BaseBorrowMin),
			verify.TargetReserves(r, cfg.TargetReserves),
			verify.AssetMatches(r, cfg.AssetConfigs[0]),
			verify.RewardConfig(r, a.RewardToken),
			verify.ENSDirectoryContains(env.ENS, ens.DefaultName, ens.DefaultKey, env.Network.ChainID, scrollDirectoryEntry(env.Market)),
		)
	},
})
