// Package chain bundles the RPC clients used against one network.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-service/retry"
)

const (
	DefaultDialTimeout = 1 * time.Minute
	defaultRetryCount  = 30
	defaultRetryTime   = 2 * time.Second
)

var (
	ErrNoRPCURL        = errors.New("network has no RPC URL")
	ErrChainIDMismatch = errors.New("chain id mismatch")
)

// Caller performs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, to common.Address, fn w3types.Func, args []any, returns ...any) error
}

// Batcher sends several calls in one round trip.
type Batcher interface {
	CallBatch(ctx context.Context, calls ...w3types.RPCCaller) error
}

// Reader also reads logs and receipts, for following proposals after they execute.
type Reader interface {
	Caller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type Client struct {
	Network networks.Network
	RPC     *rpc.Client
	Eth     *ethclient.Client
	W3      *w3.Client
}

var (
	_ Reader  = (*Client)(nil)
	_ Batcher = (*Client)(nil)
)

// NewClient wraps an established RPC connection without checking it.
func NewClient(network networks.Network, rpcClient *rpc.Client) *Client {
	return &Client{
		Network: network,
		RPC:     rpcClient,
		Eth:     ethclient.NewClient(rpcClient),
		W3:      w3.NewClient(rpcClient),
	}
}

// Dial connects to the network's RPC URL, retrying with a fixed backoff, and checks
// that the endpoint serves the expected chain.
func Dial(ctx context.Context, lgr log.Logger, network networks.Network) (*Client, error) {
	if network.RPCURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRPCURL, network.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()

	policy := retry.Fixed(defaultRetryCount, defaultRetryTime)
	policy.OnRetry = func(n uint, err error) {
		lgr.Warn("failed to dial RPC, retrying", "network", network.Name, "attempt", n+1, "err", err)
	}
	rpcClient, err := retry.Do(ctx, policy, func() (*rpc.Client, error) {
		return rpc.DialContext(ctx, network.RPCURL)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", network.Name, err)
	}
	c := NewClient(network, rpcClient)
	if err := c.CheckChainID(ctx); err != nil {
		c.Close()
		return nil, err
	}
	lgr.Info("connected to network", "network", network.Name, "chainID", network.ChainID)
	return c, nil
}

func (c *Client) CheckChainID(ctx context.Context) error {
	var chainID uint64
	if err := c.W3.CallCtx(ctx, eth.ChainID().Returns(&chainID)); err != nil {
		return fmt.Errorf("failed to fetch chain id of %s: %w", c.Network.Name, err)
	}
	if c.Network.ChainID != 0 && chainID != c.Network.ChainID {
		return fmt.Errorf("%w: %s expects %d, endpoint serves %d", ErrChainIDMismatch, c.Network.Name, c.Network.ChainID, chainID)
	}
	return nil
}

// Call runs fn on to at the latest block and decodes its return values.
func (c *Client) Call(ctx context.Context, to common.Address, fn w3types.Func, args []any, returns ...any) error {
	if err := c.W3.CallCtx(ctx, eth.CallFunc(to, fn, args...).Returns(returns...)); err != nil {
		return fmt.Errorf("call to %s failed: %w", to, err)
	}
	return nil
}

// CallBatch sends all calls in a single JSON-RPC batch.
func (c *Client) CallBatch(ctx context.Context, calls ...w3types.RPCCaller) error {
	if len(calls) == 0 {
		return nil
	}
	return c.W3.CallCtx(ctx, calls...)
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	if err := c.W3.CallCtx(ctx, eth.Logs(q).Returns(&logs)); err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}
	return logs, nil
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := c.W3.CallCtx(ctx, eth.TxReceipt(hash).Returns(&receipt)); err != nil {
		return nil, fmt.Errorf("failed to fetch receipt of %s: %w", hash, err)
	}
	return receipt, nil
}

// HasCode reports whether addr holds contract code.
func (c *Client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	var code []byte
	if err := c.W3.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return false, fmt.Errorf("failed to fetch code at %s: %w", addr, err)
	}
	return len(code) > 0, nil
}

func (c *Client) Close() {
	c.RPC.Close()
}
