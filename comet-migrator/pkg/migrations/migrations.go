// Package migrations holds the governance migrations of every market. Each file defines
// one migration; All lists them for the registry.
package migrations

import (
	"context"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

// All returns every migration, enacted or not.
func All() []migration.Migration {
	return []migration.Migration{
		AddWstETHCollateral,
		UpdateARBPriceFeed,
		UpdateRewardsSpeeds,
		UpdateCollateralFactors,
		ConfigurateAndENS,
		UpdateUSDeSupplyCap,
	}
}

func Registry() (*migration.Registry, error) {
	return migration.NewRegistry(All()...)
}

func check(ctx context.Context, env *migration.Env, checks ...verify.Check) error {
	return env.Check(ctx, checks...)
}

// bridged builds a proposal from actions meant for the market's own network, relaying
// them when the market is governed from another chain. Extra actions run on the
// governance network after the relay.
func bridged(ctx context.Context, env *migration.Env, b *proposal.Builder, description string, extra ...proposal.Action) (*proposal.Proposal, error) {
	actions, err := b.Actions()
	if err != nil {
		return nil, err
	}
	actions, err = env.Bridged(ctx, actions...)
	if err != nil {
		return nil, err
	}
	p := proposal.New(description, append(actions, extra...)...)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
