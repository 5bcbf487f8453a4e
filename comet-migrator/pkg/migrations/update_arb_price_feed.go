package migrations

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

var (
	arbitrumARB  = common.HexToAddress("0x912CE59144191C1204E64559FE8253a0e49E6548")
	arbToUSDFeed = common.HexToAddress("0xb2A824043730FE05F3DA2efaFa1CBbe83fa548D6")
)

const (
	arbPriceFeedAlias = "ARB:priceFeed"
	arbFeedDecimals   = 8
)

type arbFeedArtifact struct {
	PriceFeed common.Address `json:"priceFeed"`
}

// UpdateARBPriceFeed points the ARB collateral of the Arbitrum USDC market at a scaling
// wrapper around the Chainlink ARB/USD feed.
var UpdateARBPriceFeed = migration.Define(migration.Spec[arbFeedArtifact]{
	Name:    "1716912328_update_arb_price_feed",
	Network: networks.Arbitrum,
	Market:  "usdc",
	Enacted: true,
	Prepare: func(ctx context.Context, env *migration.Env) (arbFeedArtifact, error) {
		d, err := env.RequireDeployer()
		if err != nil {
			return arbFeedArtifact{}, err
		}
		feed, err := d.DeployScalingPriceFeed(ctx, arbPriceFeedAlias, arbToUSDFeed, arbFeedDecimals)
		if err != nil {
			return arbFeedArtifact{}, err
		}
		return arbFeedArtifact{PriceFeed: feed}, nil
	},
	Enact: func(ctx context.Context, env *migration.Env, a arbFeedArtifact) (*proposal.Proposal, error) {
		var l2 proposal.Builder
		l2.Add(comet.UpdateAssetPriceFeed(env.Market, arbitrumARB, a.PriceFeed))
		l2.Add(comet.DeployAndUpgradeTo(env.Market))
		return bridged(ctx, env, &l2, `# Update ARB price feed in cUSDCv3 on Arbitrum

This proposal replaces the price feed of ARB in the USDC market on Arbitrum with a
ScalingPriceFeed wrapping the Chainlink ARB/USD feed. The L2 actions are sent through
the Arbitrum inbox as a retryable ticket.
`)
	},
	Verify: func(ctx context.Context, env *migration.Env, a arbFeedArtifact) error {
		return check(ctx, env, verify.AssetPriceFeed(env.Comet(), arbitrumARB, a.PriceFeed))
	},
})
