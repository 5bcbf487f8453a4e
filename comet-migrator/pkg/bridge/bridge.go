// Package bridge wraps L2 governance actions into the single L1 call that carries them
// to an L2 bridge receiver.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

var (
	ErrValueNotSupported = errors.New("bridge cannot forward call value")
	ErrMissingClient     = errors.New("bridge needs an RPC client for fee estimation")
)

// Bridge produces the L1 action that delivers actions to the L2 timelock.
type Bridge interface {
	Wrap(ctx context.Context, actions []proposal.Action) (proposal.Action, error)
}

// New picks the bridge implementation for an L2 market. l1Timelock is the governance
// timelock that will execute the wrapped action. The clients are only needed by bridges
// that quote fees and may be nil otherwise.
func New(network networks.Network, market networks.Market, l1Timelock common.Address, l1, l2 *chain.Client) (Bridge, error) {
	cfg := network.Bridge
	switch cfg.Kind {
	case networks.BridgeOpStack:
		return &OpStack{Messenger: cfg.L1Contract, Receiver: market.BridgeReceiver, GasLimit: cfg.GasLimit}, nil
	case networks.BridgeMantle:
		return &Mantle{Messenger: cfg.L1Contract, Receiver: market.BridgeReceiver, GasLimit: cfg.GasLimit}, nil
	case networks.BridgePolygon:
		return &Polygon{FxRoot: cfg.L1Contract, Receiver: market.BridgeReceiver}, nil
	case networks.BridgeScroll:
		if l1 == nil {
			return nil, fmt.Errorf("%w: scroll needs the governance network", ErrMissingClient)
		}
		return &Scroll{
			Messenger:    cfg.L1Contract,
			MessageQueue: cfg.L1MessageQueue,
			Receiver:     market.BridgeReceiver,
			GasLimit:     cfg.GasLimit,
			L1:           l1,
		}, nil
	case networks.BridgeArbitrum:
		if l1 == nil || l2 == nil {
			return nil, fmt.Errorf("%w: arbitrum needs both networks", ErrMissingClient)
		}
		return &Arbitrum{
			Inbox:         cfg.L1Contract,
			Receiver:      market.BridgeReceiver,
			L1Timelock:    l1Timelock,
			RefundAddress: market.LocalTimelock,
			L1:            l1.Eth,
			L2:            l2.Eth,
		}, nil
	default:
		return nil, fmt.Errorf("network %s has no bridge", network.Name)
	}
}

func l2Value(actions []proposal.Action) *big.Int {
	return proposal.New("", actions...).TotalValue()
}

func noValue(kind string, actions []proposal.Action) error {
	if v := l2Value(actions); v.Sign() != 0 {
		return fmt.Errorf("%w: %s actions carry %v wei", ErrValueNotSupported, kind, v)
	}
	return nil
}
