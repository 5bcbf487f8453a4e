package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/compound-finance/comet-sub008/comet-service/testlog"
	"github.com/compound-finance/comet-sub008/comet-service/txmgr/txmgrtest"
)

const scalingABI = `[{"type":"constructor","inputs":[{"name":"underlyingPriceFeed_","type":"address"},{"name":"decimals_","type":"uint8"}]},
{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"}]`

const multiplicativeABI = `[{"type":"constructor","inputs":[{"name":"priceFeedA_","type":"address"},{"name":"priceFeedB_","type":"address"},{"name":"decimals_","type":"uint8"},{"name":"description_","type":"string"}]}]`

var (
	deployer = common.HexToAddress("0xd0")
	feed     = common.HexToAddress("0x50f5474724e0Ee42D9a4e711ccFB275809Fd6d4a")
)

func writeArtifacts(t *testing.T, fs afero.Fs) {
	// foundry layout with an object bytecode
	require.NoError(t, afero.WriteFile(fs, "out/ScalingPriceFeed.sol/ScalingPriceFeed.json",
		[]byte(`{"abi":`+scalingABI+`,"bytecode":{"object":"0x6080604052","linkReferences":{}}}`), 0o644))
	// hardhat layout with a string bytecode
	require.NoError(t, afero.WriteFile(fs, "out/MultiplicativePriceFeed.json",
		[]byte(`{"contractName":"MultiplicativePriceFeed","abi":`+multiplicativeABI+`,"bytecode":"0x60806040"}`), 0o644))
}

func TestArtifacts(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArtifacts(t, fs)
	store := OpenArtifacts(fs, "out")

	scaling, err := store.Get(ScalingPriceFeed)
	require.NoError(t, err)
	require.Equal(t, ScalingPriceFeed, scaling.Name)
	require.Equal(t, common.FromHex("0x6080604052"), scaling.Bytecode)
	require.Contains(t, scaling.ABI.Methods, "decimals")

	mult, err := store.Get(MultiplicativePriceFeed)
	require.NoError(t, err)
	require.Equal(t, common.FromHex("0x60806040"), mult.Bytecode)

	_, err = store.Get("Missing")
	require.ErrorIs(t, err, ErrArtifactMissing)
}

func TestParseArtifactErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"linked", `{"abi":[],"bytecode":"0x6080__$1234$__6080"}`, ErrLinkingUnsupported},
		{"bad bytecode", `{"abi":[],"bytecode":12}`, nil},
		{"bad abi", `{"abi":{"type":1},"bytecode":"0x00"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact("X", []byte(tt.json))
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestDeployData(t *testing.T) {
	a, err := ParseArtifact("ScalingPriceFeed", []byte(`{"abi":`+scalingABI+`,"bytecode":"0x6080"}`))
	require.NoError(t, err)
	data, err := a.DeployData(feed, uint8(8))
	require.NoError(t, err)
	want := common.FromHex("0x6080" +
		"00000000000000000000000050f5474724e0ee42d9a4e711ccfb275809fd6d4a" +
		"0000000000000000000000000000000000000000000000000000000000000008")
	require.Equal(t, want, data)

	_, err = a.DeployData(feed)
	require.Error(t, err)

	empty := &Artifact{Name: "IFace", ABI: a.ABI}
	_, err = empty.DeployData(feed, uint8(8))
	require.Error(t, err)
}

type fakeCode map[common.Address]bool

func (f fakeCode) HasCode(_ context.Context, addr common.Address) (bool, error) {
	return f[addr], nil
}

func newDeployer(t *testing.T, fs afero.Fs, code fakeCode) (*Deployer, *txmgrtest.TxManager) {
	writeArtifacts(t, fs)
	book, err := LoadAddressBook(fs, "deployments/mainnet/usdc/roots.json")
	require.NoError(t, err)
	tm := txmgrtest.New(deployer)
	return NewDeployer(testlog.Logger(t, log.LevelDebug), tm, code, OpenArtifacts(fs, "out"), book), tm
}

func TestDeployIfMissing(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	code := fakeCode{}
	d, tm := newDeployer(t, fs, code)

	addr, err := d.DeployScalingPriceFeed(ctx, "arb:priceFeed", feed, 8)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(deployer, 0), addr)
	sent := tm.Sent()
	require.Len(t, sent, 1)
	require.Nil(t, sent[0].To)

	// recorded and with code: reused without a transaction
	code[addr] = true
	again, err := d.DeployScalingPriceFeed(ctx, "arb:priceFeed", feed, 8)
	require.NoError(t, err)
	require.Equal(t, addr, again)
	require.Len(t, tm.Sent(), 1)

	// the book survives a reload
	book, err := LoadAddressBook(fs, "deployments/mainnet/usdc/roots.json")
	require.NoError(t, err)
	require.Equal(t, []string{"arb:priceFeed"}, book.Aliases())
	require.Equal(t, addr, book.MustGet("arb:priceFeed"))

	// recorded but without code: redeployed
	code[addr] = false
	redeployed, err := d.DeployScalingPriceFeed(ctx, "arb:priceFeed", feed, 8)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(deployer, 1), redeployed)
}

func TestDeployMultiplicative(t *testing.T) {
	d, tm := newDeployer(t, afero.NewMemMapFs(), fakeCode{})
	_, err := d.DeployMultiplicativePriceFeed(context.Background(), "wstETH:priceFeed", feed, feed, 8, "wstETH / USD price feed")
	require.NoError(t, err)
	sent := tm.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, common.FromHex("0x60806040"), sent[0].TxData[:4])

	_, err = d.DeployReverseMultiplicativePriceFeed(context.Background(), "x", feed, feed, 8, "x")
	require.ErrorIs(t, err, ErrArtifactMissing)
}

func TestDeployFailure(t *testing.T) {
	d, tm := newDeployer(t, afero.NewMemMapFs(), fakeCode{})
	tm.Close()
	_, err := d.Deploy(context.Background(), ScalingPriceFeed, feed, uint8(8))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrArtifactMissing))
	require.Empty(t, d.Book().Aliases())
}
