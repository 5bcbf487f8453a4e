package migrations

import (
	"context"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/units"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

// COMP per day
var (
	usdbcSupplySpeed = units.Speed("10")
	usdbcBorrowSpeed = units.Speed("5")
)

// UpdateRewardsSpeeds lowers COMP rewards in the Base USDbC market.
var UpdateRewardsSpeeds = migration.Define(migration.Spec[struct{}]{
	Name:    "1698000000_update_rewards_speeds",
	Network: networks.Base,
	Market:  "usdbc",
	Enacted: true,
	Enact: func(ctx context.Context, env *migration.Env, _ struct{}) (*proposal.Proposal, error) {
		var l2 proposal.Builder
		l2.Add(comet.SetBaseTrackingSupplySpeed(env.Market, usdbcSupplySpeed))
		l2.Add(comet.SetBaseTrackingBorrowSpeed(env.Market, usdbcBorrowSpeed))
		l2.Add(comet.DeployAndUpgradeTo(env.Market))
		return bridged(ctx, env, &l2, `# Update rewards speeds in cUSDbCv3 on Base

This proposal sets the COMP supply rewards of the USDbC market on Base to 10 COMP per
day and the borrow rewards to 5 COMP per day, relayed through the Base cross domain
messenger.
`)
	},
	Verify: func(ctx context.Context, env *migration.Env, _ struct{}) error {
		return check(ctx, env, verify.TrackingSpeeds(env.Comet(), usdbcSupplySpeed, usdbcBorrowSpeed))
	},
})
