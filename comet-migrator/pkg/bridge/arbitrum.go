package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-service/eth"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

const (
	// submission cost per retryable: (1400 + 6 * len(data)) * l1BaseFee
	submissionFeeBase    = 1400
	submissionFeePerByte = 6

	SubmissionFeeMultiplier = 3
	MaxFeePerGasMultiplier  = 2
	MinRetryableGasLimit    = 200_000
)

var FuncCreateRetryableTicket = w3.MustNewFunc(
	"createRetryableTicket(address to, uint256 l2CallValue, uint256 maxSubmissionCost, address excessFeeRefundAddress, address callValueRefundAddress, uint256 gasLimit, uint256 maxFeePerGas, bytes data)",
	"uint256",
)

var aliasOffset = uint256.MustFromHex("0x1111000000000000000000000000000000001111")

// ApplyL1ToL2Alias returns the address an L1 contract appears as on Arbitrum.
func ApplyL1ToL2Alias(addr common.Address) common.Address {
	v := new(uint256.Int).SetBytes20(addr.Bytes())
	v.Add(v, aliasOffset)
	b := v.Bytes32()
	return common.BytesToAddress(b[12:])
}

// SubmissionFee is the minimum retryable submission cost for dataLen bytes of calldata.
func SubmissionFee(dataLen int, l1BaseFee eth.ETH) eth.ETH {
	return l1BaseFee.Mul(submissionFeeBase + submissionFeePerByte*uint64(dataLen))
}

// HeaderSource reads the latest L1 header for its base fee.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// GasSource quotes L2 execution of the retryable.
type GasSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// RetryableParams are the buffered fee arguments of a retryable ticket.
type RetryableParams struct {
	MaxSubmissionCost eth.ETH
	GasLimit          uint64
	MaxFeePerGas      eth.ETH
	L2CallValue       eth.ETH
	// Deposit is the call value createRetryableTicket must receive.
	Deposit eth.ETH
}

// EstimateRetryable quotes a retryable ticket that calls to with data from sender on L2.
func EstimateRetryable(ctx context.Context, l1 HeaderSource, l2 GasSource, sender, to common.Address, data []byte, callValue eth.ETH) (RetryableParams, error) {
	head, err := l1.HeaderByNumber(ctx, nil)
	if err != nil {
		return RetryableParams{}, fmt.Errorf("failed to fetch L1 head: %w", err)
	}
	if head.BaseFee == nil {
		return RetryableParams{}, fmt.Errorf("L1 block %v has no base fee", head.Number)
	}
	l1BaseFee, err := eth.WeiBig(head.BaseFee)
	if err != nil {
		return RetryableParams{}, err
	}
	gasPrice, err := l2.SuggestGasPrice(ctx)
	if err != nil {
		return RetryableParams{}, fmt.Errorf("failed to fetch L2 gas price: %w", err)
	}
	maxFee, err := eth.WeiBig(gasPrice)
	if err != nil {
		return RetryableParams{}, err
	}
	gas, err := l2.EstimateGas(ctx, ethereum.CallMsg{
		From:  sender,
		To:    &to,
		Value: callValue.ToBig(),
		Data:  data,
	})
	if err != nil {
		return RetryableParams{}, fmt.Errorf("failed to estimate L2 gas: %w", err)
	}
	gasLimit := gas * 3 / 2
	if gasLimit < MinRetryableGasLimit {
		gasLimit = MinRetryableGasLimit
	}
	p := RetryableParams{
		MaxSubmissionCost: SubmissionFee(len(data), l1BaseFee).Mul(SubmissionFeeMultiplier),
		GasLimit:          gasLimit,
		MaxFeePerGas:      maxFee.Mul(MaxFeePerGasMultiplier),
		L2CallValue:       callValue,
	}
	p.Deposit = p.MaxSubmissionCost.Add(p.MaxFeePerGas.Mul(gasLimit)).Add(callValue)
	return p, nil
}

// Arbitrum creates a retryable ticket on the delayed inbox. Excess fees refund to the
// market's L2 timelock.
type Arbitrum struct {
	Inbox         common.Address
	Receiver      common.Address
	L1Timelock    common.Address
	RefundAddress common.Address
	L1            HeaderSource
	L2            GasSource
}

func (b *Arbitrum) Wrap(ctx context.Context, actions []proposal.Action) (proposal.Action, error) {
	payload, err := proposal.EncodeBridgePayload(actions)
	if err != nil {
		return proposal.Action{}, err
	}
	callValue, err := eth.WeiBig(l2Value(actions))
	if err != nil {
		return proposal.Action{}, err
	}
	p, err := EstimateRetryable(ctx, b.L1, b.L2, ApplyL1ToL2Alias(b.L1Timelock), b.Receiver, payload, callValue)
	if err != nil {
		return proposal.Action{}, err
	}
	a, err := proposal.NewAction(b.Inbox, FuncCreateRetryableTicket,
		b.Receiver,
		callValue.ToBig(),
		p.MaxSubmissionCost.ToBig(),
		b.RefundAddress,
		b.RefundAddress,
		new(big.Int).SetUint64(p.GasLimit),
		p.MaxFeePerGas.ToBig(),
		payload,
	)
	if err != nil {
		return proposal.Action{}, err
	}
	return a.WithValue(p.Deposit.ToBig()), nil
}
