package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/compound-finance/comet-sub008/comet-service/txmgr"
)

const (
	ScalingPriceFeed               = "ScalingPriceFeed"
	MultiplicativePriceFeed        = "MultiplicativePriceFeed"
	ReverseMultiplicativePriceFeed = "ReverseMultiplicativePriceFeed"
)

type CodeReader interface {
	HasCode(ctx context.Context, addr common.Address) (bool, error)
}

type Deployer struct {
	lgr       log.Logger
	txMgr     txmgr.TxManager
	code      CodeReader
	artifacts *Artifacts
	book      *AddressBook
}

func NewDeployer(lgr log.Logger, txMgr txmgr.TxManager, code CodeReader, artifacts *Artifacts, book *AddressBook) *Deployer {
	return &Deployer{lgr: lgr, txMgr: txMgr, code: code, artifacts: artifacts, book: book}
}

func (d *Deployer) Book() *AddressBook {
	return d.book
}

// Deploy creates a new instance of the named artifact.
func (d *Deployer) Deploy(ctx context.Context, name string, args ...any) (common.Address, error) {
	artifact, err := d.artifacts.Get(name)
	if err != nil {
		return common.Address{}, err
	}
	data, err := artifact.DeployData(args...)
	if err != nil {
		return common.Address{}, err
	}
	d.lgr.Info("deploying contract", "name", name, "from", d.txMgr.From())
	receipt, err := d.txMgr.Send(ctx, txmgr.TxCandidate{TxData: data})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, fmt.Errorf("receipt of %s deployment has no contract address", name)
	}
	d.lgr.Info("deployed contract", "name", name, "address", receipt.ContractAddress, "tx", receipt.TxHash)
	return receipt.ContractAddress, nil
}

// DeployIfMissing returns the address recorded under alias when it still has code,
// otherwise deploys name and records the new address.
func (d *Deployer) DeployIfMissing(ctx context.Context, alias, name string, args ...any) (common.Address, error) {
	if addr, ok := d.book.Get(alias); ok {
		hasCode, err := d.code.HasCode(ctx, addr)
		if err != nil {
			return common.Address{}, err
		}
		if hasCode {
			d.lgr.Info("reusing deployment", "alias", alias, "address", addr)
			return addr, nil
		}
		d.lgr.Warn("recorded deployment has no code, redeploying", "alias", alias, "address", addr)
	}
	addr, err := d.Deploy(ctx, name, args...)
	if err != nil {
		return common.Address{}, err
	}
	d.book.Set(alias, addr)
	if err := d.book.Save(); err != nil {
		return common.Address{}, fmt.Errorf("deployed %s at %s but failed to record it: %w", alias, addr, err)
	}
	return addr, nil
}

// DeployScalingPriceFeed wraps underlying and rescales its answer to decimals.
func (d *Deployer) DeployScalingPriceFeed(ctx context.Context, alias string, underlying common.Address, decimals uint8) (common.Address, error) {
	return d.DeployIfMissing(ctx, alias, ScalingPriceFeed, underlying, decimals)
}

// DeployMultiplicativePriceFeed reports feedA * feedB, e.g. wstETH/stETH times stETH/USD.
func (d *Deployer) DeployMultiplicativePriceFeed(ctx context.Context, alias string, feedA, feedB common.Address, decimals uint8, description string) (common.Address, error) {
	return d.DeployIfMissing(ctx, alias, MultiplicativePriceFeed, feedA, feedB, decimals, description)
}

func (d *Deployer) DeployReverseMultiplicativePriceFeed(ctx context.Context, alias string, feedA, feedB common.Address, decimals uint8, description string) (common.Address, error) {
	return d.DeployIfMissing(ctx, alias, ReverseMultiplicativePriceFeed, feedA, feedB, decimals, description)
}
