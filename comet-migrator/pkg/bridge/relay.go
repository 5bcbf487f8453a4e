package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

var (
	ErrMessageNotFound = errors.New("no cross domain message in receipt")
	ErrRelayNotTracked = errors.New("relay tracking is not supported for this bridge")
	ErrNoL2Messenger   = errors.New("network has no L2 messenger configured")
)

var (
	funcRelayMessageV1       = w3.MustNewFunc("relayMessage(uint256 nonce, address sender, address target, uint256 value, uint256 minGasLimit, bytes message)", "")
	funcMantleRelayMessageV1 = w3.MustNewFunc("relayMessage(uint256 nonce, address sender, address target, uint256 mntValue, uint256 ethValue, uint256 minGasLimit, bytes message)", "")

	FuncSuccessfulMessages = w3.MustNewFunc("successfulMessages(bytes32)", "bool")
	FuncFailedMessages     = w3.MustNewFunc("failedMessages(bytes32)", "bool")

	EventSentMessage                 = w3.MustNewEvent("SentMessage(address indexed target, address sender, bytes message, uint256 messageNonce, uint256 gasLimit)")
	EventSentMessageExtension1       = w3.MustNewEvent("SentMessageExtension1(address indexed sender, uint256 value)")
	EventMantleSentMessageExtension1 = w3.MustNewEvent("SentMessageExtension1(address indexed sender, uint256 mntValue, uint256 ethValue)")
)

var nonceMask = new(big.Int).Sub(new(big.Int).Lsh(common.Big1, 240), common.Big1)

// EncodeVersionedNonce packs the message version into the top two bytes of the nonce.
func EncodeVersionedNonce(nonce *big.Int, version uint16) *big.Int {
	v := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(version)), 240)
	return v.Or(v, nonce)
}

func DecodeVersionedNonce(versioned *big.Int) (*big.Int, uint16) {
	nonce := new(big.Int).And(versioned, nonceMask)
	version := new(big.Int).Rsh(versioned, 240)
	return nonce, uint16(version.Uint64())
}

// Message is a cross domain message as emitted by an L1 messenger.
type Message struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	// MNTValue is only set by Mantle messengers.
	MNTValue *big.Int
	GasLimit *big.Int
	Data     []byte
}

// Hash is the key the L2 messenger records the message under once relayed.
func (m *Message) Hash(mantle bool) (common.Hash, error) {
	if _, version := DecodeVersionedNonce(m.Nonce); version != 1 {
		return common.Hash{}, fmt.Errorf("unsupported message version %d", version)
	}
	var (
		encoded []byte
		err     error
	)
	if mantle {
		encoded, err = funcMantleRelayMessageV1.EncodeArgs(m.Nonce, m.Sender, m.Target, orZero(m.MNTValue), orZero(m.Value), m.GasLimit, m.Data)
	} else {
		encoded, err = funcRelayMessageV1.EncodeArgs(m.Nonce, m.Sender, m.Target, orZero(m.Value), m.GasLimit, m.Data)
	}
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// ParseSentMessages extracts messages the messenger at addr emitted in receipt. Each
// SentMessage is followed by its SentMessageExtension1.
func ParseSentMessages(receipt *types.Receipt, messenger common.Address, mantle bool) ([]*Message, error) {
	var msgs []*Message
	for _, l := range receipt.Logs {
		if l.Address != messenger || len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case EventSentMessage.Topic0:
			m := &Message{}
			if err := EventSentMessage.DecodeArgs(l, &m.Target, &m.Sender, &m.Data, &m.Nonce, &m.GasLimit); err != nil {
				return nil, fmt.Errorf("failed to decode SentMessage: %w", err)
			}
			msgs = append(msgs, m)
		case EventSentMessageExtension1.Topic0, EventMantleSentMessageExtension1.Topic0:
			if len(msgs) == 0 {
				return nil, errors.New("SentMessageExtension1 without SentMessage")
			}
			m := msgs[len(msgs)-1]
			var sender common.Address
			var err error
			if mantle {
				err = EventMantleSentMessageExtension1.DecodeArgs(l, &sender, &m.MNTValue, &m.Value)
			} else {
				err = EventSentMessageExtension1.DecodeArgs(l, &sender, &m.Value)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to decode SentMessageExtension1: %w", err)
			}
		}
	}
	if len(msgs) == 0 {
		return nil, ErrMessageNotFound
	}
	return msgs, nil
}

type RelayStatus int

const (
	RelayPending RelayStatus = iota
	RelayFailed
	RelaySucceeded
)

func (s RelayStatus) String() string {
	switch s {
	case RelayPending:
		return "pending"
	case RelayFailed:
		return "failed"
	case RelaySucceeded:
		return "relayed"
	default:
		return fmt.Sprintf("RelayStatus(%d)", int(s))
	}
}

// CheckRelay looks the message hash up on the L2 messenger.
func CheckRelay(ctx context.Context, l2 chain.Caller, l2Messenger common.Address, hash common.Hash) (RelayStatus, error) {
	var ok bool
	if err := l2.Call(ctx, l2Messenger, FuncSuccessfulMessages, []any{hash}, &ok); err != nil {
		return RelayPending, fmt.Errorf("failed to read successfulMessages: %w", err)
	}
	if ok {
		return RelaySucceeded, nil
	}
	if err := l2.Call(ctx, l2Messenger, FuncFailedMessages, []any{hash}, &ok); err != nil {
		return RelayPending, fmt.Errorf("failed to read failedMessages: %w", err)
	}
	if ok {
		return RelayFailed, nil
	}
	return RelayPending, nil
}

// Relay is one message an executed proposal sent to L2 and its delivery status.
type Relay struct {
	Hash   common.Hash
	Target common.Address
	Status RelayStatus
}

// Summary folds relays into one status: failed if any failed, pending if any is
// still pending, relayed otherwise.
func Summary(relays []Relay) RelayStatus {
	status := RelaySucceeded
	for _, r := range relays {
		switch r.Status {
		case RelayFailed:
			return RelayFailed
		case RelayPending:
			status = RelayPending
		}
	}
	return status
}

// TrackRelays finds the messages the L1 messenger of network emitted in the
// proposal's execution receipt and checks each on the L2 messenger. Only OP-stack
// style messengers are tracked.
func TrackRelays(ctx context.Context, network networks.Network, receipt *types.Receipt, l2 chain.Caller) ([]Relay, error) {
	cfg := network.Bridge
	var mantle bool
	switch cfg.Kind {
	case networks.BridgeOpStack:
	case networks.BridgeMantle:
		mantle = true
	default:
		return nil, fmt.Errorf("%w: %s", ErrRelayNotTracked, network.Name)
	}
	if cfg.L2Messenger == (common.Address{}) {
		return nil, fmt.Errorf("%w: %s", ErrNoL2Messenger, network.Name)
	}
	msgs, err := ParseSentMessages(receipt, cfg.L1Contract, mantle)
	if err != nil {
		return nil, fmt.Errorf("%w: tx %s", err, receipt.TxHash)
	}
	relays := make([]Relay, len(msgs))
	for i, m := range msgs {
		hash, err := m.Hash(mantle)
		if err != nil {
			return nil, err
		}
		status, err := CheckRelay(ctx, l2, cfg.L2Messenger, hash)
		if err != nil {
			return nil, err
		}
		relays[i] = Relay{Hash: hash, Target: m.Target, Status: status}
	}
	return relays, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
