package migrations

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/units"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

type factorUpdate struct {
	symbol      string
	asset       common.Address
	borrowCF    uint64
	liquidateCF uint64
	supplyCap   *big.Int
}

var polygonFactorUpdates = []factorUpdate{
	{
		symbol:      "WETH",
		asset:       common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"),
		borrowCF:    units.Factor("0.775"),
		liquidateCF: units.Factor("0.825"),
		supplyCap:   units.MustExp("2000", 18),
	},
	{
		symbol:      "WBTC",
		asset:       common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"),
		borrowCF:    units.Factor("0.70"),
		liquidateCF: units.Factor("0.75"),
		supplyCap:   units.MustExp("20", 8),
	},
	{
		symbol:      "WMATIC",
		asset:       common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		borrowCF:    units.Factor("0.60"),
		liquidateCF: units.Factor("0.65"),
		supplyCap:   units.MustExp("2500000", 18),
	},
}

// UpdateCollateralFactors retunes the collateral factors and supply caps of the Polygon
// USDC market.
var UpdateCollateralFactors = migration.Define(migration.Spec[struct{}]{
	Name:    "1701000000_update_collateral_factors",
	Network: networks.Polygon,
	Market:  "usdc",
	Enacted: true,
	Enact: func(ctx context.Context, env *migration.Env, _ struct{}) (*proposal.Proposal, error) {
		var l2 proposal.Builder
		for _, u := range polygonFactorUpdates {
			l2.Add(comet.UpdateAssetBorrowCollateralFactor(env.Market, u.asset, u.borrowCF))
			l2.Add(comet.UpdateAssetLiquidateCollateralFactor(env.Market, u.asset, u.liquidateCF))
			l2.Add(comet.UpdateAssetSupplyCap(env.Market, u.asset, u.supplyCap))
		}
		l2.Add(comet.DeployAndUpgradeTo(env.Market))
		return bridged(ctx, env, &l2, `# Update collateral factors in cUSDCv3 on Polygon

This proposal updates the borrow and liquidation collateral factors and the supply caps
of WETH, WBTC and WMATIC in the USDC market on Polygon. The changes are sent to the
Polygon bridge receiver through FxRoot.
`)
	},
	Verify: func(ctx context.Context, env *migration.Env, _ struct{}) error {
		r := env.Comet()
		checks := make([]verify.Check, 0, len(polygonFactorUpdates))
		for _, u := range polygonFactorUpdates {
			checks = append(checks, factorCheck(r, u))
		}
		return check(ctx, env, checks...)
	},
})

func factorCheck(r *comet.Reader, u factorUpdate) verify.Check {
	want := comet.AssetInfo{
		BorrowCollateralFactor:    u.borrowCF,
		LiquidateCollateralFactor: u.liquidateCF,
		SupplyCap:                 u.supplyCap,
	}
	name := fmt.Sprintf("%s factors of %s", r.Market().ID(), u.symbol)
	return verify.Equal(name, want, func(ctx context.Context) (comet.AssetInfo, error) {
		info, err := r.AssetInfoByAddress(ctx, u.asset)
		if err != nil {
			return comet.AssetInfo{}, err
		}
		return comet.AssetInfo{
			BorrowCollateralFactor:    info.BorrowCollateralFactor,
			LiquidateCollateralFactor: info.LiquidateCollateralFactor,
			SupplyCap:                 info.SupplyCap,
		}, nil
	})
}
