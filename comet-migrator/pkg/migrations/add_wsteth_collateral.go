package migrations

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/units"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

var (
	mainnetWstETH     = common.HexToAddress("0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0")
	wstETHToStETHFeed = common.HexToAddress("0x4F67e4d9BD67eFa28236013288737D39AeF48e79")
	stETHToUSDFeed    = common.HexToAddress("0xCfE54B5cD566aB89272946F602D76Ea879CAb4a8")
)

const wstETHPriceFeedAlias = "wstETH:priceFeed"

type wstETHArtifact struct {
	PriceFeed common.Address `json:"priceFeed"`
}

func wstETHAssetConfig(feed common.Address) comet.AssetConfig {
	return comet.AssetConfig{
		Asset:                     mainnetWstETH,
		PriceFeed:                 feed,
		Decimals:                  18,
		BorrowCollateralFactor:    units.Factor("0.80"),
		LiquidateCollateralFactor: units.Factor("0.85"),
		LiquidationFactor:         units.Factor("0.95"),
		SupplyCap:                 units.MustExp("1500", 18),
	}
}

// AddWstETHCollateral lists wstETH in the mainnet USDC market, priced through the
// wstETH/stETH exchange rate and the stETH/USD feed.
var AddWstETHCollateral = migration.Define(migration.Spec[wstETHArtifact]{
	Name:    "1713012100_add_wsteth_collateral",
	Network: networks.Mainnet,
	Market:  "usdc",
	Enacted: true,
	Prepare: func(ctx context.Context, env *migration.Env) (wstETHArtifact, error) {
		d, err := env.RequireDeployer()
		if err != nil {
			return wstETHArtifact{}, err
		}
		feed, err := d.DeployMultiplicativePriceFeed(ctx, wstETHPriceFeedAlias, wstETHToStETHFeed, stETHToUSDFeed, 8, "wstETH / USD price feed")
		if err != nil {
			return wstETHArtifact{}, err
		}
		return wstETHArtifact{PriceFeed: feed}, nil
	},
	Enact: func(ctx context.Context, env *migration.Env, a wstETHArtifact) (*proposal.Proposal, error) {
		var b proposal.Builder
		b.Add(comet.AddAsset(env.Market, wstETHAssetConfig(a.PriceFeed)))
		b.Add(comet.DeployAndUpgradeTo(env.Market))
		return b.Proposal(`# Add wstETH as collateral into cUSDCv3 on Ethereum

This proposal adds wstETH as a collateral asset to the USDC market on Ethereum with a
borrow collateral factor of 80%, a liquidation collateral factor of 85%, a liquidation
factor of 95% and a supply cap of 1,500 wstETH. The price feed multiplies the
wstETH/stETH exchange rate by the stETH/USD Chainlink feed.
`)
	},
	Verify: func(ctx context.Context, env *migration.Env, a wstETHArtifact) error {
		return check(ctx, env, verify.AssetMatches(env.Comet(), wstETHAssetConfig(a.PriceFeed)))
	},
})
