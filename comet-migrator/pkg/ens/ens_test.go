package ens

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain/chaintest"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

var (
	mainnetUSDC = common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3")
	scrollUSDC  = common.HexToAddress("0xB2f97c1Bd3bf02f5e74d13f02E3e26F93D77CE44")
	resolver    = common.HexToAddress("0x19c2d5D0f035563344dBB7bE5fD09c8dad62b001")
)

func TestNamehash(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
		{"FOO.eth", "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, common.HexToHash(tt.want), Namehash(tt.name))
		})
	}
}

const record = `{"1":[{"baseSymbol":"USDC","cometAddress":"0xc3d688B66703497DAA19211EEdff47f25384cdc3"}],"137":[]}`

func TestDirectoryJSON(t *testing.T) {
	dir, err := ParseDirectory(record)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 137}, dir.ChainIDs())
	require.True(t, dir.Contains(1, mainnetUSDC))

	out, err := dir.JSON()
	require.NoError(t, err)
	require.Equal(t, record, string(out))

	require.True(t, dir.Add(534352, MarketEntry{BaseSymbol: "USDC", CometAddress: scrollUSDC}))
	require.False(t, dir.Add(534352, MarketEntry{BaseSymbol: "USDC.e", CometAddress: scrollUSDC}))
	dir.Add(10, MarketEntry{BaseSymbol: "USDC", CometAddress: common.HexToAddress("0x2e44e174f7D53F0212823acC11C01A11d58c5bCB")})

	out, err = dir.JSON()
	require.NoError(t, err)
	// numeric order, not lexical
	require.Equal(t, `{"1":[{"baseSymbol":"USDC","cometAddress":"0xc3d688B66703497DAA19211EEdff47f25384cdc3"}],`+
		`"10":[{"baseSymbol":"USDC","cometAddress":"0x2e44e174f7D53F0212823acC11C01A11d58c5bCB"}],"137":[],`+
		`"534352":[{"baseSymbol":"USDC","cometAddress":"0xB2f97c1Bd3bf02f5e74d13f02E3e26F93D77CE44"}]}`, string(out))
}

func TestParseDirectoryErrors(t *testing.T) {
	dir, err := ParseDirectory("  ")
	require.NoError(t, err)
	require.Empty(t, dir)

	for _, text := range []string{`[]`, `{"mainnet":[]}`, `{"1":[{"baseSymbol":"USDC","cometAddress":"0x12"}]}`} {
		_, err := ParseDirectory(text)
		require.Error(t, err, text)
	}
}

func TestCloneAndDiff(t *testing.T) {
	dir, err := ParseDirectory(record)
	require.NoError(t, err)
	next := dir.Clone()
	require.Empty(t, Diff(dir, next))
	next.Add(1, MarketEntry{BaseSymbol: "WETH", CometAddress: common.HexToAddress("0xA17581A9E3356d9A858b789D68B4d866e593aE94")})
	require.Len(t, dir[1], 1)
	require.NotEmpty(t, Diff(dir, next))
}

func TestSetTextAction(t *testing.T) {
	dir, err := ParseDirectory(record)
	require.NoError(t, err)
	a, err := SetTextAction(resolver, DefaultName, DefaultKey, dir)
	require.NoError(t, err)
	require.Equal(t, resolver, a.Target)
	require.Equal(t, "setText(bytes32,string,string)", a.Signature)

	var (
		node       common.Hash
		key, value string
	)
	require.NoError(t, FuncSetText.DecodeArgs(a.Calldata(), &node, &key, &value))
	require.Equal(t, Namehash(DefaultName), node)
	require.Equal(t, DefaultKey, key)
	require.Equal(t, record, value)
}

func TestClientDirectory(t *testing.T) {
	backend := chaintest.NewBackend(1)
	backend.Returns(DefaultRegistry, FuncResolver, resolver)
	backend.Returns(resolver, FuncText, record)
	client := NewClient(backend.Client(t, networks.Network{Name: networks.Mainnet}), DefaultRegistry)

	dir, err := client.Directory(context.Background(), DefaultName, DefaultKey)
	require.NoError(t, err)
	require.True(t, dir.Contains(1, mainnetUSDC))

	calls := backend.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, DefaultRegistry, calls[0].To)
	require.Equal(t, resolver, calls[1].To)
}

func TestClientNoResolver(t *testing.T) {
	backend := chaintest.NewBackend(1)
	backend.Returns(DefaultRegistry, FuncResolver, common.Address{})
	client := NewClient(backend.Client(t, networks.Network{Name: networks.Mainnet}), DefaultRegistry)
	_, err := client.Text(context.Background(), DefaultName, DefaultKey)
	require.ErrorIs(t, err, ErrNoResolver)
}
