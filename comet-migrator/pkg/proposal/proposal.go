// Package proposal builds governor proposals and the payloads that carry them across
// bridges to L2 timelocks.
package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lmittmann/w3"
)

var (
	ErrNoActions      = errors.New("proposal has no actions")
	ErrNoDescription  = errors.New("proposal has no description")
	ErrLengthMismatch = errors.New("proposal arrays have different lengths")
)

var proposeFunc = w3.MustNewFunc("propose(address[] targets, uint256[] values, string[] signatures, bytes[] calldatas, string description)", "uint256")

// bridgePayloadEncoder only exists to ABI-encode the receiver's tuple, its selector is discarded.
var bridgePayloadEncoder = w3.MustNewFunc("payload(address[] targets, uint256[] values, string[] signatures, bytes[] calldatas)", "")

type Proposal struct {
	Actions     []Action
	Description string
}

func New(description string, actions ...Action) *Proposal {
	return &Proposal{Actions: actions, Description: description}
}

func (p *Proposal) Validate() error {
	if len(p.Actions) == 0 {
		return ErrNoActions
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrNoDescription
	}
	for i, a := range p.Actions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

func (p *Proposal) Targets() []common.Address {
	out := make([]common.Address, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.Target
	}
	return out
}

func (p *Proposal) Values() []*big.Int {
	out := make([]*big.Int, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.value()
	}
	return out
}

func (p *Proposal) Signatures() []string {
	out := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.Signature
	}
	return out
}

func (p *Proposal) Calldatas() [][]byte {
	out := make([][]byte, len(p.Actions))
	for i, a := range p.Actions {
		out[i] = a.Args
		if out[i] == nil {
			out[i] = []byte{}
		}
	}
	return out
}

// TotalValue is the ETH the timelock needs to hold to execute every action.
func (p *Proposal) TotalValue() *big.Int {
	total := new(big.Int)
	for _, a := range p.Actions {
		total.Add(total, a.value())
	}
	return total
}

// ProposeCalldata is the governor propose(...) transaction input.
func (p *Proposal) ProposeCalldata() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return proposeFunc.EncodeArgs(p.Targets(), p.Values(), p.Signatures(), p.Calldatas(), p.Description)
}

// EncodeBridgePayload encodes actions as abi.encode(address[],uint256[],string[],bytes[]),
// the message format L2 bridge receivers queue into their local timelock.
func EncodeBridgePayload(actions []Action) ([]byte, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	p := &Proposal{Actions: actions}
	input, err := bridgePayloadEncoder.EncodeArgs(p.Targets(), p.Values(), p.Signatures(), p.Calldatas())
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge payload: %w", err)
	}
	return input[4:], nil
}

func DecodeBridgePayload(payload []byte) ([]Action, error) {
	var (
		targets    []common.Address
		values     []*big.Int
		signatures []string
		calldatas  [][]byte
	)
	input := append(append([]byte{}, bridgePayloadEncoder.Selector[:]...), payload...)
	if err := bridgePayloadEncoder.DecodeArgs(input, &targets, &values, &signatures, &calldatas); err != nil {
		return nil, fmt.Errorf("failed to decode bridge payload: %w", err)
	}
	return zipActions(targets, values, signatures, calldatas)
}

func zipActions(targets []common.Address, values []*big.Int, signatures []string, calldatas [][]byte) ([]Action, error) {
	n := len(targets)
	if len(values) != n || len(signatures) != n || len(calldatas) != n {
		return nil, fmt.Errorf("%w: targets=%d values=%d signatures=%d calldatas=%d",
			ErrLengthMismatch, n, len(values), len(signatures), len(calldatas))
	}
	actions := make([]Action, n)
	for i := range actions {
		actions[i] = Action{Target: targets[i], Value: values[i], Signature: signatures[i], Args: calldatas[i]}
	}
	return actions, nil
}

type jsonAction struct {
	Target    common.Address `json:"target"`
	Value     *hexutil.Big   `json:"value"`
	Signature string         `json:"signature"`
	Args      hexutil.Bytes  `json:"args"`
	Calldata  hexutil.Bytes  `json:"calldata"`
}

type jsonProposal struct {
	Description string       `json:"description"`
	Actions     []jsonAction `json:"actions"`
}

func (p *Proposal) MarshalJSON() ([]byte, error) {
	out := jsonProposal{Description: p.Description, Actions: make([]jsonAction, len(p.Actions))}
	for i, a := range p.Actions {
		out.Actions[i] = jsonAction{
			Target:    a.Target,
			Value:     (*hexutil.Big)(a.value()),
			Signature: a.Signature,
			Args:      a.Args,
			Calldata:  a.Calldata(),
		}
	}
	return json.Marshal(out)
}

func (p *Proposal) UnmarshalJSON(data []byte) error {
	var in jsonProposal
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Description = in.Description
	p.Actions = make([]Action, len(in.Actions))
	for i, a := range in.Actions {
		p.Actions[i] = Action{Target: a.Target, Value: (*big.Int)(a.Value), Signature: a.Signature, Args: a.Args}
	}
	return nil
}
