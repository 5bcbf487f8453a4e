// Package governor submits proposals to a Governor Bravo style contract and reads
// their lifecycle.
package governor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-service/retry"
	"github.com/compound-finance/comet-sub008/comet-service/safe"
	"github.com/compound-finance/comet-sub008/comet-service/txmgr"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

var (
	ErrProposalCreatedNotFound = errors.New("no ProposalCreated event in receipt")
	ErrNoSubmitter             = errors.New("governor client has no submitter")
	ErrBelowThreshold          = errors.New("proposer votes do not exceed the proposal threshold")
	ErrNotExecuted             = errors.New("proposal has not been executed")
	ErrExecutionNotFound       = errors.New("no ProposalExecuted event for proposal")
)

const proposalReturns = "uint256 id, address proposer, uint256 eta, uint256 startBlock, uint256 endBlock, " +
	"uint256 forVotes, uint256 againstVotes, uint256 abstainVotes, bool canceled, bool executed"

var (
	FuncState             = w3.MustNewFunc("state(uint256 proposalId)", "uint8")
	FuncProposalThreshold = w3.MustNewFunc("proposalThreshold()", "uint256")
	FuncComp              = w3.MustNewFunc("comp()", "address")
	FuncIsWhitelisted     = w3.MustNewFunc("isWhitelisted(address account)", "bool")
	FuncProposals         = w3.MustNewFunc("proposals(uint256 proposalId)", proposalReturns)
	FuncGetCurrentVotes   = w3.MustNewFunc("getCurrentVotes(address account)", "uint96")

	EventProposalCreated  = w3.MustNewEvent("ProposalCreated(uint256 id, address proposer, address[] targets, uint256[] values, string[] signatures, bytes[] calldatas, uint256 startBlock, uint256 endBlock, string description)")
	EventProposalExecuted = w3.MustNewEvent("ProposalExecuted(uint256 id)")
)

// Submitter sends a call on behalf of the proposer. Both the transaction manager
// and a Safe multisig can play that role.
type Submitter interface {
	// From is the account the governor sees as the proposer.
	From() common.Address
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error)
}

// TxSubmitter proposes from the transaction manager's own key.
type TxSubmitter struct {
	TxMgr txmgr.TxManager
}

func (s TxSubmitter) From() common.Address {
	return s.TxMgr.From()
}

func (s TxSubmitter) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	return s.TxMgr.Send(ctx, txmgr.TxCandidate{To: &to, TxData: data, Value: value})
}

// SafeSubmitter proposes from a Safe, so the Safe's votes count.
type SafeSubmitter struct {
	Safe *safe.Client
}

func (s SafeSubmitter) From() common.Address {
	return s.Safe.Address()
}

func (s SafeSubmitter) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	return s.Safe.Send(ctx, to, value, data)
}

// SubmitterFunc builds the submitter on first use.
type SubmitterFunc func(ctx context.Context) (Submitter, error)

type Client struct {
	lgr     log.Logger
	address common.Address
	chain   chain.Reader
	policy  retry.Policy

	submitterOnce sync.Once
	newSubmitter  SubmitterFunc
	submitter     Submitter
	submitterErr  error
}

// NewClient binds the governor at address. submitter may be nil for read-only use.
func NewClient(lgr log.Logger, address common.Address, c chain.Reader, submitter Submitter) *Client {
	return &Client{
		lgr:     lgr.New("governor", address),
		address: address,
		chain:   c,
		policy:  retry.Default(),
		newSubmitter: func(context.Context) (Submitter, error) {
			if submitter == nil {
				return nil, ErrNoSubmitter
			}
			return submitter, nil
		},
	}
}

// WithSubmitterFunc defers building the submitter until a proposal is sent, so
// read-only commands never dial a signer or a Safe.
func (c *Client) WithSubmitterFunc(fn SubmitterFunc) *Client {
	c.newSubmitter = fn
	return c
}

func (c *Client) WithRetryPolicy(p retry.Policy) *Client {
	c.policy = p
	return c
}

func (c *Client) Address() common.Address {
	return c.address
}

func (c *Client) getSubmitter(ctx context.Context) (Submitter, error) {
	c.submitterOnce.Do(func() {
		c.submitter, c.submitterErr = c.newSubmitter(ctx)
		if c.submitterErr == nil && c.submitter == nil {
			c.submitterErr = ErrNoSubmitter
		}
	})
	return c.submitter, c.submitterErr
}

// ProposeCalldata is the input of the propose call, for handing to an external signer.
func (c *Client) ProposeCalldata(p *proposal.Proposal) ([]byte, error) {
	return p.ProposeCalldata()
}

// Propose submits p and returns the id assigned by the governor. Failures before the
// transaction is published are retried. Once it is published a retry would create a
// second proposal, so the error is returned with the transaction hash instead.
func (c *Client) Propose(ctx context.Context, p *proposal.Proposal) (*big.Int, error) {
	data, err := p.ProposeCalldata()
	if err != nil {
		return nil, err
	}
	submitter, err := c.getSubmitter(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.CheckProposer(ctx, submitter.From()); err != nil {
		return nil, err
	}
	c.lgr.Info("submitting proposal", "proposer", submitter.From(), "actions", len(p.Actions), "value", p.TotalValue())
	receipt, err := retry.Do(ctx, c.policy, func() (*types.Receipt, error) {
		receipt, err := submitter.Send(ctx, c.address, new(big.Int), data)
		var published *txmgr.PublishedError
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, txmgr.ErrTxReverted):
			return nil, retry.Permanent(err)
		case errors.As(err, &published):
			c.lgr.Error("proposal transaction published but not confirmed, check it before proposing again",
				"tx", published.TxHash, "err", published.Err)
			return nil, retry.Permanent(err)
		default:
			c.lgr.Warn("proposal submission failed", "err", err)
			return nil, err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit proposal: %w", err)
	}
	created, err := FindProposalCreated(receipt, c.address)
	if err != nil {
		return nil, err
	}
	c.lgr.Info("proposal created", "id", created.ID, "tx", receipt.TxHash,
		"start", created.StartBlock, "end", created.EndBlock)
	return created.ID, nil
}

// CheckProposer fails unless proposer may propose: its COMP votes must exceed the
// proposal threshold, or the governor must have whitelisted it.
func (c *Client) CheckProposer(ctx context.Context, proposer common.Address) error {
	var whitelisted bool
	if err := c.chain.Call(ctx, c.address, FuncIsWhitelisted, []any{proposer}, &whitelisted); err != nil {
		return fmt.Errorf("failed to check whitelist: %w", err)
	}
	if whitelisted {
		return nil
	}
	threshold, err := c.ProposalThreshold(ctx)
	if err != nil {
		return err
	}
	var comp common.Address
	if err := c.chain.Call(ctx, c.address, FuncComp, nil, &comp); err != nil {
		return fmt.Errorf("failed to read governance token: %w", err)
	}
	var votes *big.Int
	if err := c.chain.Call(ctx, comp, FuncGetCurrentVotes, []any{proposer}, &votes); err != nil {
		return fmt.Errorf("failed to read votes of %s: %w", proposer, err)
	}
	if votes.Cmp(threshold) <= 0 {
		return fmt.Errorf("%w: %s has %v, threshold is %v", ErrBelowThreshold, proposer, votes, threshold)
	}
	return nil
}

func (c *Client) State(ctx context.Context, id *big.Int) (State, error) {
	var s uint8
	if err := c.chain.Call(ctx, c.address, FuncState, []any{id}, &s); err != nil {
		return 0, fmt.Errorf("failed to read state of proposal %v: %w", id, err)
	}
	return State(s), nil
}

func (c *Client) ProposalThreshold(ctx context.Context) (*big.Int, error) {
	var v *big.Int
	if err := c.chain.Call(ctx, c.address, FuncProposalThreshold, nil, &v); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", FuncProposalThreshold.Signature, err)
	}
	return v, nil
}

// ExecutionReceipt returns the receipt of the transaction that executed proposal id.
// Execution can only happen after voting ends, so logs are searched from there.
func (c *Client) ExecutionReceipt(ctx context.Context, id *big.Int) (*types.Receipt, error) {
	var (
		endBlock *big.Int
		executed bool
	)
	err := c.chain.Call(ctx, c.address, FuncProposals, []any{id},
		nil, nil, nil, nil, &endBlock, nil, nil, nil, nil, &executed)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal %v: %w", id, err)
	}
	if !executed {
		return nil, fmt.Errorf("%w: %v", ErrNotExecuted, id)
	}
	logs, err := c.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: endBlock,
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{EventProposalExecuted.Topic0}},
	})
	if err != nil {
		return nil, err
	}
	for i := range logs {
		var executedID *big.Int
		if err := EventProposalExecuted.DecodeArgs(&logs[i], &executedID); err != nil {
			return nil, fmt.Errorf("failed to decode ProposalExecuted: %w", err)
		}
		if executedID.Cmp(id) != 0 {
			continue
		}
		c.lgr.Debug("found proposal execution", "id", id, "tx", logs[i].TxHash, "block", logs[i].BlockNumber)
		return c.chain.TransactionReceipt(ctx, logs[i].TxHash)
	}
	return nil, fmt.Errorf("%w: %v after block %v", ErrExecutionNotFound, id, endBlock)
}
