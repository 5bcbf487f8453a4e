package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

const DefaultOpStackGasLimit = 2_500_000

var (
	FuncOpStackSendMessage = w3.MustNewFunc("sendMessage(address target, bytes message, uint32 minGasLimit)", "")
	FuncMantleSendMessage  = w3.MustNewFunc("sendMessage(uint256 mntAmount, address target, bytes message, uint32 minGasLimit)", "")
	FuncSendMessageToChild = w3.MustNewFunc("sendMessageToChild(address receiver, bytes data)", "")
	FuncScrollSendMessage  = w3.MustNewFunc("sendMessage(address to, uint256 value, bytes message, uint256 gasLimit)", "")
	FuncEstimateMessageFee = w3.MustNewFunc("estimateCrossDomainMessageFee(uint256 gasLimit)", "uint256")
)

// OpStack sends through an L1CrossDomainMessenger. Call value is bridged along.
type OpStack struct {
	Messenger common.Address
	Receiver  common.Address
	GasLimit  uint32
}

func (b *OpStack) Wrap(_ context.Context, actions []proposal.Action) (proposal.Action, error) {
	payload, err := proposal.EncodeBridgePayload(actions)
	if err != nil {
		return proposal.Action{}, err
	}
	gasLimit := b.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultOpStackGasLimit
	}
	a, err := proposal.NewAction(b.Messenger, FuncOpStackSendMessage, b.Receiver, payload, gasLimit)
	if err != nil {
		return proposal.Action{}, err
	}
	return a.WithValue(l2Value(actions)), nil
}

// Mantle's messenger takes an explicit MNT amount ahead of the OP-stack arguments.
type Mantle struct {
	Messenger common.Address
	Receiver  common.Address
	GasLimit  uint32
}

func (b *Mantle) Wrap(_ context.Context, actions []proposal.Action) (proposal.Action, error) {
	if err := noValue("mantle", actions); err != nil {
		return proposal.Action{}, err
	}
	payload, err := proposal.EncodeBridgePayload(actions)
	if err != nil {
		return proposal.Action{}, err
	}
	gasLimit := b.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultOpStackGasLimit
	}
	return proposal.NewAction(b.Messenger, FuncMantleSendMessage, new(big.Int), b.Receiver, payload, gasLimit)
}

// Polygon sends through the FxRoot state sync tunnel.
type Polygon struct {
	FxRoot   common.Address
	Receiver common.Address
}

func (b *Polygon) Wrap(_ context.Context, actions []proposal.Action) (proposal.Action, error) {
	if err := noValue("polygon", actions); err != nil {
		return proposal.Action{}, err
	}
	payload, err := proposal.EncodeBridgePayload(actions)
	if err != nil {
		return proposal.Action{}, err
	}
	return proposal.NewAction(b.FxRoot, FuncSendMessageToChild, b.Receiver, payload)
}

// Scroll pays the relay fee quoted by the L1 message queue up front.
type Scroll struct {
	Messenger    common.Address
	MessageQueue common.Address
	Receiver     common.Address
	GasLimit     uint32
	L1           chain.Caller
}

func (b *Scroll) Fee(ctx context.Context) (*big.Int, error) {
	var fee *big.Int
	if err := b.L1.Call(ctx, b.MessageQueue, FuncEstimateMessageFee, []any{new(big.Int).SetUint64(uint64(b.GasLimit))}, &fee); err != nil {
		return nil, fmt.Errorf("failed to quote scroll message fee: %w", err)
	}
	return fee, nil
}

func (b *Scroll) Wrap(ctx context.Context, actions []proposal.Action) (proposal.Action, error) {
	payload, err := proposal.EncodeBridgePayload(actions)
	if err != nil {
		return proposal.Action{}, err
	}
	fee, err := b.Fee(ctx)
	if err != nil {
		return proposal.Action{}, err
	}
	value := l2Value(actions)
	a, err := proposal.NewAction(b.Messenger, FuncScrollSendMessage, b.Receiver, value, payload, new(big.Int).SetUint64(uint64(b.GasLimit)))
	if err != nil {
		return proposal.Action{}, err
	}
	return a.WithValue(new(big.Int).Add(fee, value)), nil
}
