package verify

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
)

// Equal checks that read returns want.
func Equal[T any](name string, want T, read func(context.Context) (T, error)) Check {
	return Check{Name: name, Run: func(ctx context.Context) ([]string, error) {
		got, err := read(ctx)
		if err != nil {
			return nil, err
		}
		return Diff(want, got), nil
	}}
}

// AssetMatches checks Comet's view of an asset against the config the Configurator was given.
func AssetMatches(r *comet.Reader, want comet.AssetConfig) Check {
	expected := comet.AssetInfo{
		Asset:                     want.Asset,
		PriceFeed:                 want.PriceFeed,
		Scale:                     want.Scale(),
		BorrowCollateralFactor:    want.BorrowCollateralFactor,
		LiquidateCollateralFactor: want.LiquidateCollateralFactor,
		LiquidationFactor:         want.LiquidationFactor,
		SupplyCap:                 want.SupplyCap,
	}
	name := fmt.Sprintf("%s asset %s", r.Market().ID(), want.Asset)
	return Check{Name: name, Run: func(ctx context.Context) ([]string, error) {
		info, err := r.AssetInfoByAddress(ctx, want.Asset)
		if err != nil {
			return nil, err
		}
		// the offset is assigned by Comet
		expected.Offset = info.Offset
		return Diff(expected, info), nil
	}}
}

func AssetPriceFeed(r *comet.Reader, asset, feed common.Address) Check {
	return Equal(fmt.Sprintf("%s price feed of %s", r.Market().ID(), asset), feed, func(ctx context.Context) (common.Address, error) {
		info, err := r.AssetInfoByAddress(ctx, asset)
		return info.PriceFeed, err
	})
}

func AssetSupplyCap(r *comet.Reader, asset common.Address, supplyCap *big.Int) Check {
	return Equal(fmt.Sprintf("%s supply cap of %s", r.Market().ID(), asset), supplyCap, func(ctx context.Context) (*big.Int, error) {
		info, err := r.AssetInfoByAddress(ctx, asset)
		return info.SupplyCap, err
	})
}

func TrackingSpeeds(r *comet.Reader, supply, borrow uint64) Check {
	return Check{Name: r.Market().ID() + " tracking speeds", Run: func(ctx context.Context) ([]string, error) {
		gotSupply, gotBorrow, err := r.TrackingSpeeds(ctx)
		if err != nil {
			return nil, err
		}
		var diffs []string
		for _, d := range Diff(supply, gotSupply) {
			diffs = append(diffs, "supply: "+d)
		}
		for _, d := range Diff(borrow, gotBorrow) {
			diffs = append(diffs, "borrow: "+d)
		}
		return diffs, nil
	}}
}

// ConfigurationMatches checks the configuration the Configurator holds for the
// market, so the next deploy cannot undo the migration.
func ConfigurationMatches(r *comet.Reader, want comet.Configuration) Check {
	return Check{Name: r.Market().ID() + " configurator configuration", Run: func(ctx context.Context) ([]string, error) {
		got, err := r.Configuration(ctx)
		if err != nil {
			return nil, err
		}
		return Diff(want, *got), nil
	}}
}

func BaseBorrowMin(r *comet.Reader, want *big.Int) Check {
	return Equal(r.Market().ID()+" baseBorrowMin", want, r.BaseBorrowMin)
}

func TargetReserves(r *comet.Reader, want *big.Int) Check {
	return Equal(r.Market().ID()+" targetReserves", want, r.TargetReserves)
}

func Governor(r *comet.Reader, want common.Address) Check {
	return Equal(r.Market().ID()+" governor", want, r.Governor)
}

func PauseGuardian(r *comet.Reader, want common.Address) Check {
	return Equal(r.Market().ID()+" pauseGuardian", want, r.PauseGuardian)
}

func Factory(r *comet.Reader, want common.Address) Check {
	return Equal(r.Market().ID()+" configurator factory", want, r.Factory)
}

// RewardConfig checks that the rewards contract pays token for the market.
func RewardConfig(r *comet.Reader, token common.Address) Check {
	return Equal(r.Market().ID()+" reward token", token, func(ctx context.Context) (common.Address, error) {
		cfg, err := r.RewardConfig(ctx)
		return cfg.Token, err
	})
}

// ENSDirectoryContains checks that the market directory lists entry on chainID.
func ENSDirectoryContains(c *ens.Client, name, key string, chainID uint64, entry ens.MarketEntry) Check {
	checkName := fmt.Sprintf("ENS %s lists %s on chain %d", key, entry.BaseSymbol, chainID)
	return Check{Name: checkName, Run: func(ctx context.Context) ([]string, error) {
		dir, err := c.Directory(ctx, name, key)
		if err != nil {
			return nil, err
		}
		for _, e := range dir[chainID] {
			if e.CometAddress == entry.CometAddress {
				return Diff(entry, e), nil
			}
		}
		return []string{fmt.Sprintf("comet %s not listed", entry.CometAddress)}, nil
	}}
}
