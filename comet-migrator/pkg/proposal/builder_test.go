package proposal

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	var b Builder
	b.Add(NewAction(comet, transferFunc, timelock, big.NewInt(1))).
		Add(NewAction(comet, transferFunc, timelock, big.NewInt(2)))
	p, err := b.Proposal("two transfers")
	require.NoError(t, err)
	require.Len(t, p.Actions, 2)
}

func TestBuilderKeepsFirstError(t *testing.T) {
	var b Builder
	first := errors.New("first")
	b.Add(Action{}, first).Add(Action{}, errors.New("second"))
	_, err := b.Actions()
	require.ErrorIs(t, err, first)
	require.ErrorContains(t, err, "action 0")
}

func TestBuilderEmpty(t *testing.T) {
	var b Builder
	_, err := b.Proposal("nothing")
	require.ErrorIs(t, err, ErrNoActions)
}

func TestBuilderEncodingError(t *testing.T) {
	var b Builder
	// a string where an address is expected
	b.Add(NewAction(comet, transferFunc, "not an address", big.NewInt(1)))
	require.Error(t, b.Err())
}
