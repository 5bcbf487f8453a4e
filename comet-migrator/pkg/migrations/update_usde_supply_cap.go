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
	mantleMETH = common.HexToAddress("0xcDA86A272531e8640cD7F1a92c01839911B90bb0")
	mantleWETH = common.HexToAddress("0xdEAddEaDdeadDEadDEADDEAddEADDEAddead1111")

	mantleMETHSupplyCap = units.MustExp("3000", 18)
	mantleWETHSupplyCap = units.MustExp("1500", 18)
)

// UpdateUSDeSupplyCap raises the collateral supply caps of the Mantle USDe market.
var UpdateUSDeSupplyCap = migration.Define(migration.Spec[struct{}]{
	Name:    "1721299083_update_usde_supply_cap",
	Network: networks.Mantle,
	Market:  "usde",
	Enact: func(ctx context.Context, env *migration.Env, _ struct{}) (*proposal.Proposal, error) {
		var l2 proposal.Builder
		l2.Add(comet.UpdateAssetSupplyCap(env.Market, mantleMETH, mantleMETHSupplyCap))
		l2.Add(comet.UpdateAssetSupplyCap(env.Market, mantleWETH, mantleWETHSupplyCap))
		l2.Add(comet.DeployAndUpgradeTo(env.Market))
		return bridged(ctx, env, &l2, `# Update supply caps in cUSDEv3 on Mantle

This proposal raises the supply cap of mETH to 3,000 and of WETH to 1,500 in the USDe
market on Mantle. The actions are relayed by the Mantle cross domain messenger.
`)
	},
	Verify: func(ctx context.Context, env *migration.Env, _ struct{}) error {
		r := env.Comet()
		return check(ctx, env,
			verify.AssetSupplyCap(r, mantleMETH, mantleMETHSupplyCap),
			verify.AssetSupplyCap(r, mantleWETH, mantleWETHSupplyCap),
		)
	},
})
