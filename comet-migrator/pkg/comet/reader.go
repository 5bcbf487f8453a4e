package comet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

// Reader reads the deployed state of one market.
type Reader struct {
	caller chain.Caller
	market networks.Market
}

func NewReader(caller chain.Caller, market networks.Market) *Reader {
	return &Reader{caller: caller, market: market}
}

func (r *Reader) Market() networks.Market {
	return r.market
}

func (r *Reader) AssetInfoByAddress(ctx context.Context, asset common.Address) (AssetInfo, error) {
	var info AssetInfo
	if err := r.caller.Call(ctx, r.market.Comet, FuncGetAssetInfoByAddress, []any{asset}, &info); err != nil {
		return AssetInfo{}, fmt.Errorf("failed to read asset info for %s: %w", asset, err)
	}
	return info, nil
}

func (r *Reader) NumAssets(ctx context.Context) (uint8, error) {
	var n uint8
	if err := r.caller.Call(ctx, r.market.Comet, FuncNumAssets, nil, &n); err != nil {
		return 0, fmt.Errorf("failed to read numAssets: %w", err)
	}
	return n, nil
}

func (r *Reader) BaseTrackingSupplySpeed(ctx context.Context) (uint64, error) {
	return r.readUint64(ctx, FuncBaseTrackingSupplySpeed)
}

func (r *Reader) BaseTrackingBorrowSpeed(ctx context.Context) (uint64, error) {
	return r.readUint64(ctx, FuncBaseTrackingBorrowSpeed)
}

// TrackingSpeeds reads both reward speeds, in one batch when the caller supports it.
func (r *Reader) TrackingSpeeds(ctx context.Context) (supply, borrow uint64, err error) {
	b, ok := r.caller.(chain.Batcher)
	if !ok {
		if supply, err = r.BaseTrackingSupplySpeed(ctx); err != nil {
			return 0, 0, err
		}
		borrow, err = r.BaseTrackingBorrowSpeed(ctx)
		return supply, borrow, err
	}
	err = b.CallBatch(ctx,
		eth.CallFunc(r.market.Comet, FuncBaseTrackingSupplySpeed).Returns(&supply),
		eth.CallFunc(r.market.Comet, FuncBaseTrackingBorrowSpeed).Returns(&borrow),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read tracking speeds: %w", err)
	}
	return supply, borrow, nil
}

func (r *Reader) readUint64(ctx context.Context, fn *w3.Func) (uint64, error) {
	var v uint64
	if err := r.caller.Call(ctx, r.market.Comet, fn, nil, &v); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", fn.Signature, err)
	}
	return v, nil
}

func (r *Reader) BaseBorrowMin(ctx context.Context) (*big.Int, error) {
	var v *big.Int
	if err := r.caller.Call(ctx, r.market.Comet, FuncBaseBorrowMin, nil, &v); err != nil {
		return nil, fmt.Errorf("failed to read baseBorrowMin: %w", err)
	}
	return v, nil
}

func (r *Reader) TargetReserves(ctx context.Context) (*big.Int, error) {
	var v *big.Int
	if err := r.caller.Call(ctx, r.market.Comet, FuncTargetReserves, nil, &v); err != nil {
		return nil, fmt.Errorf("failed to read targetReserves: %w", err)
	}
	return v, nil
}

func (r *Reader) Governor(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := r.caller.Call(ctx, r.market.Comet, FuncGovernor, nil, &addr); err != nil {
		return common.Address{}, fmt.Errorf("failed to read governor: %w", err)
	}
	return addr, nil
}

func (r *Reader) PauseGuardian(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := r.caller.Call(ctx, r.market.Comet, FuncPauseGuardian, nil, &addr); err != nil {
		return common.Address{}, fmt.Errorf("failed to read pauseGuardian: %w", err)
	}
	return addr, nil
}

func (r *Reader) BaseToken(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := r.caller.Call(ctx, r.market.Comet, FuncBaseToken, nil, &addr); err != nil {
		return common.Address{}, fmt.Errorf("failed to read baseToken: %w", err)
	}
	return addr, nil
}

// Configuration reads the configuration the Configurator would deploy next.
func (r *Reader) Configuration(ctx context.Context) (*Configuration, error) {
	var cfg Configuration
	if err := r.caller.Call(ctx, r.market.Configurator, FuncGetConfiguration, []any{r.market.Comet}, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return &cfg, nil
}

func (r *Reader) Factory(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := r.caller.Call(ctx, r.market.Configurator, FuncFactory, []any{r.market.Comet}, &addr); err != nil {
		return common.Address{}, fmt.Errorf("failed to read factory: %w", err)
	}
	return addr, nil
}

func (r *Reader) RewardConfig(ctx context.Context) (RewardConfig, error) {
	var rc RewardConfig
	if err := r.caller.Call(ctx, r.market.Rewards, FuncRewardConfig, []any{r.market.Comet}, &rc.Token, &rc.RescaleFactor, &rc.ShouldUpscale); err != nil {
		return RewardConfig{}, fmt.Errorf("failed to read reward config: %w", err)
	}
	return rc, nil
}
