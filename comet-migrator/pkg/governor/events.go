package governor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

type ProposalCreated struct {
	ID          *big.Int
	Proposer    common.Address
	Targets     []common.Address
	Values      []*big.Int
	Signatures  []string
	Calldatas   [][]byte
	StartBlock  *big.Int
	EndBlock    *big.Int
	Description string
}

func ParseProposalCreated(l *types.Log) (*ProposalCreated, error) {
	if len(l.Topics) == 0 || l.Topics[0] != EventProposalCreated.Topic0 {
		return nil, fmt.Errorf("log %d is not ProposalCreated", l.Index)
	}
	e := new(ProposalCreated)
	err := EventProposalCreated.DecodeArgs(l, &e.ID, &e.Proposer, &e.Targets, &e.Values, &e.Signatures,
		&e.Calldatas, &e.StartBlock, &e.EndBlock, &e.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ProposalCreated: %w", err)
	}
	return e, nil
}

// FindProposalCreated returns the first ProposalCreated emitted by governor in receipt.
func FindProposalCreated(receipt *types.Receipt, governor common.Address) (*ProposalCreated, error) {
	for _, l := range receipt.Logs {
		if l.Address != governor || len(l.Topics) == 0 || l.Topics[0] != EventProposalCreated.Topic0 {
			continue
		}
		return ParseProposalCreated(l)
	}
	return nil, fmt.Errorf("%w: tx %s", ErrProposalCreatedNotFound, receipt.TxHash)
}

// Proposal rebuilds the submitted proposal from the event.
func (e *ProposalCreated) Proposal() (*proposal.Proposal, error) {
	n := len(e.Targets)
	if len(e.Values) != n || len(e.Signatures) != n || len(e.Calldatas) != n {
		return nil, proposal.ErrLengthMismatch
	}
	actions := make([]proposal.Action, n)
	for i := range actions {
		actions[i] = proposal.Action{Target: e.Targets[i], Value: e.Values[i], Signature: e.Signatures[i], Args: e.Calldatas[i]}
	}
	return proposal.New(e.Description, actions...), nil
}

// State mirrors GovernorBravo's ProposalState enum.
type State uint8

const (
	StatePending State = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExpired
	StateExecuted
)

var stateNames = [...]string{"pending", "active", "canceled", "defeated", "succeeded", "queued", "expired", "executed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Final reports whether the proposal can no longer change state.
func (s State) Final() bool {
	switch s {
	case StateCanceled, StateDefeated, StateExpired, StateExecuted:
		return true
	}
	return false
}
