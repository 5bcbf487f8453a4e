package eth

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGweiToWei(t *testing.T) {
	wei, err := GweiToWei(1.5)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_500_000_000), wei)

	_, err = GweiToWei(-1)
	require.Error(t, err)
}

func TestETHString(t *testing.T) {
	require.Equal(t, "0 wei", ZeroWei.String())
	require.Equal(t, "2 ether", Ether(2).String())
	require.Equal(t, "1,500 gwei", GWei(1500).String())
	require.Equal(t, "1,234 wei", WeiU64(1234).String())
}

func TestETHArithmetic(t *testing.T) {
	a := GWei(10)
	require.Equal(t, GWei(30), a.Mul(3))
	require.Equal(t, GWei(15), a.MulDiv(3, 2))
	require.Equal(t, GWei(11), a.Add(OneGWei))
	require.True(t, a.Lt(GWei(11)))
	require.False(t, a.IsZero())
}

func TestWeiBig(t *testing.T) {
	v, err := WeiBig(big.NewInt(42))
	require.NoError(t, err)
	require.Equal(t, WeiU64(42), v)

	_, err = WeiBig(big.NewInt(-1))
	require.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 257)
	_, err = WeiBig(tooBig)
	require.Error(t, err)
}

func TestTextRoundTrip(t *testing.T) {
	var e ETH
	require.NoError(t, e.UnmarshalText([]byte("1000000000")))
	require.Equal(t, OneGWei, e)
}
