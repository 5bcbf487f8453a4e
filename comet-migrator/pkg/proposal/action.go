package proposal

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
)

// Action is a single call executed by the timelock. Args holds the ABI-encoded
// arguments without the selector, which the timelock derives from Signature.
type Action struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Args      []byte
}

// NewAction encodes args for fn and records fn's canonical signature.
func NewAction(target common.Address, fn *w3.Func, args ...any) (Action, error) {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return Action{}, fmt.Errorf("failed to encode %s: %w", fn.Signature, err)
	}
	return Action{
		Target:    target,
		Value:     new(big.Int),
		Signature: CanonicalSignature(fn),
		Args:      input[4:],
	}, nil
}

// MustAction is NewAction for static argument lists.
func MustAction(target common.Address, fn *w3.Func, args ...any) Action {
	a, err := NewAction(target, fn, args...)
	if err != nil {
		panic(err)
	}
	return a
}

// WithValue returns a copy of a that sends value wei with the call.
func (a Action) WithValue(value *big.Int) Action {
	a.Value = new(big.Int).Set(value)
	return a
}

func (a Action) Selector() []byte {
	if a.Signature == "" {
		return nil
	}
	return crypto.Keccak256([]byte(a.Signature))[:4]
}

// Calldata is what the timelock ends up sending to Target.
func (a Action) Calldata() []byte {
	return append(a.Selector(), a.Args...)
}

func (a Action) value() *big.Int {
	if a.Value == nil {
		return new(big.Int)
	}
	return a.Value
}

func (a Action) String() string {
	return fmt.Sprintf("%s.%s value=%v args=%s", a.Target, a.Signature, a.value(), hexutil.Encode(a.Args))
}

// CanonicalSignature is fn's signature without argument names, e.g.
// "updateAssetSupplyCap(address,address,uint128)". Tuples are expanded to their
// component types, so the selector matches fn.Selector.
func CanonicalSignature(fn *w3.Func) string {
	return fn.Signature
}

var errZeroTarget = errors.New("action target is the zero address")

func (a Action) validate() error {
	if a.Target == (common.Address{}) {
		return errZeroTarget
	}
	if a.Value != nil && a.Value.Sign() < 0 {
		return fmt.Errorf("negative value %v", a.Value)
	}
	if a.Signature == "" && len(a.Args) > 0 {
		return errors.New("args without a signature")
	}
	return nil
}
