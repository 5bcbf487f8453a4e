package bridge_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/require"

	"github.com/compound-finance/comet-sub008/comet-service/eth"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain/chaintest"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

var (
	funcTransfer = w3.MustNewFunc("transfer(address,uint256)", "bool")
	token        = common.HexToAddress("0x5a")
	receiver     = common.HexToAddress("0x42")
)

func l2Actions(t *testing.T, value int64) []proposal.Action {
	a, err := proposal.NewAction(token, funcTransfer, common.HexToAddress("0x01"), big.NewInt(7))
	require.NoError(t, err)
	return []proposal.Action{a, a.WithValue(big.NewInt(value))}
}

func market(t *testing.T, network string) (networks.Network, networks.Market) {
	reg := networks.Default()
	n, err := reg.Lookup(network)
	require.NoError(t, err)
	for _, m := range reg.Markets() {
		if m.Network == network {
			return n, m
		}
	}
	t.Fatalf("no market on %s", network)
	return n, networks.Market{}
}

func requirePayload(t *testing.T, payload []byte, want []proposal.Action) {
	got, err := proposal.DecodeBridgePayload(payload)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Target, got[i].Target)
		require.Equal(t, want[i].Signature, got[i].Signature)
		require.Equal(t, want[i].Args, got[i].Args)
		require.Zero(t, want[i].Value.Cmp(got[i].Value))
	}
}

func TestOpStackWrap(t *testing.T) {
	network, m := market(t, networks.Optimism)
	b, err := bridge.New(network, m, networks.MainnetTimelock, nil, nil)
	require.NoError(t, err)

	actions := l2Actions(t, 5)
	a, err := b.Wrap(context.Background(), actions)
	require.NoError(t, err)
	require.Equal(t, network.Bridge.L1Contract, a.Target)
	require.Equal(t, "sendMessage(address,bytes,uint32)", a.Signature)
	require.Equal(t, big.NewInt(5), a.Value)

	var (
		to       common.Address
		payload  []byte
		gasLimit uint32
	)
	require.NoError(t, bridge.FuncOpStackSendMessage.DecodeArgs(a.Calldata(), &to, &payload, &gasLimit))
	require.Equal(t, m.BridgeReceiver, to)
	require.Equal(t, network.Bridge.GasLimit, gasLimit)
	requirePayload(t, payload, actions)
}

func TestMantleWrap(t *testing.T) {
	network, m := market(t, networks.Mantle)
	b, err := bridge.New(network, m, networks.MainnetTimelock, nil, nil)
	require.NoError(t, err)

	actions := l2Actions(t, 0)
	a, err := b.Wrap(context.Background(), actions)
	require.NoError(t, err)
	require.Equal(t, "sendMessage(uint256,address,bytes,uint32)", a.Signature)

	var (
		mnt      *big.Int
		to       common.Address
		payload  []byte
		gasLimit uint32
	)
	require.NoError(t, bridge.FuncMantleSendMessage.DecodeArgs(a.Calldata(), &mnt, &to, &payload, &gasLimit))
	require.Zero(t, mnt.Sign())
	require.Equal(t, m.BridgeReceiver, to)
	requirePayload(t, payload, actions)

	_, err = b.Wrap(context.Background(), l2Actions(t, 1))
	require.ErrorIs(t, err, bridge.ErrValueNotSupported)
}

func TestPolygonWrap(t *testing.T) {
	b := &bridge.Polygon{FxRoot: common.HexToAddress("0xf1"), Receiver: receiver}
	actions := l2Actions(t, 0)
	a, err := b.Wrap(context.Background(), actions)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xf1"), a.Target)
	require.Equal(t, "sendMessageToChild(address,bytes)", a.Signature)

	var (
		to      common.Address
		payload []byte
	)
	require.NoError(t, bridge.FuncSendMessageToChild.DecodeArgs(a.Calldata(), &to, &payload))
	require.Equal(t, receiver, to)
	requirePayload(t, payload, actions)

	_, err = b.Wrap(context.Background(), l2Actions(t, 1))
	require.ErrorIs(t, err, bridge.ErrValueNotSupported)
}

func TestScrollWrap(t *testing.T) {
	network, m := market(t, networks.Scroll)
	l1 := chaintest.NewBackend(1)
	fee := big.NewInt(params.GWei * 100_000)
	l1.Returns(network.Bridge.L1MessageQueue, bridge.FuncEstimateMessageFee, fee)

	_, err := bridge.New(network, m, networks.MainnetTimelock, nil, nil)
	require.ErrorIs(t, err, bridge.ErrMissingClient)

	b, err := bridge.New(network, m, networks.MainnetTimelock, l1.Client(t, networks.Network{Name: networks.Mainnet}), nil)
	require.NoError(t, err)

	actions := l2Actions(t, 3)
	a, err := b.Wrap(context.Background(), actions)
	require.NoError(t, err)
	require.Equal(t, "sendMessage(address,uint256,bytes,uint256)", a.Signature)
	require.Equal(t, new(big.Int).Add(fee, big.NewInt(3)), a.Value)

	var (
		to       common.Address
		value    *big.Int
		payload  []byte
		gasLimit *big.Int
	)
	require.NoError(t, bridge.FuncScrollSendMessage.DecodeArgs(a.Calldata(), &to, &value, &payload, &gasLimit))
	require.Equal(t, m.BridgeReceiver, to)
	require.Equal(t, big.NewInt(3), value)
	require.Equal(t, uint64(network.Bridge.GasLimit), gasLimit.Uint64())
	requirePayload(t, payload, actions)

	calls := l1.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, network.Bridge.L1MessageQueue, calls[0].To)
}

func TestAlias(t *testing.T) {
	timelock := common.HexToAddress("0x6d903f6003cca6255D85CcA4D3B5E5146dC33925")
	aliased := bridge.ApplyL1ToL2Alias(timelock)
	require.Equal(t, common.HexToAddress("0x7ea13f6003cca6255d85cca4d3b5e5146dc34a36"), aliased)

	top := common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
	require.Equal(t, common.HexToAddress("0x1111000000000000000000000000000000001110"), bridge.ApplyL1ToL2Alias(top))
}

func TestSubmissionFee(t *testing.T) {
	require.Equal(t, eth.GWei(1400*10), bridge.SubmissionFee(0, eth.GWei(10)))
	require.Equal(t, eth.GWei(2000*10), bridge.SubmissionFee(100, eth.GWei(10)))
}

type fakeL1 struct{ baseFee *big.Int }

func (f fakeL1) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: f.baseFee}, nil
}

type fakeL2 struct {
	gasPrice *big.Int
	gas      uint64
	msgs     []ethereum.CallMsg
}

func (f *fakeL2) SuggestGasPrice(context.Context) (*big.Int, error) { return f.gasPrice, nil }

func (f *fakeL2) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.msgs = append(f.msgs, msg)
	return f.gas, nil
}

func TestEstimateRetryable(t *testing.T) {
	sender := bridge.ApplyL1ToL2Alias(networks.MainnetTimelock)
	data := make([]byte, 100)

	tests := []struct {
		name     string
		estimate uint64
		gasLimit uint64
	}{
		{"floor", 100_000, bridge.MinRetryableGasLimit},
		{"buffered", 400_000, 600_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l2 := &fakeL2{gasPrice: big.NewInt(10_000_000), gas: tt.estimate}
			p, err := bridge.EstimateRetryable(context.Background(), fakeL1{big.NewInt(20 * params.GWei)}, l2, sender, receiver, data, eth.WeiU64(9))
			require.NoError(t, err)

			require.Equal(t, eth.GWei(2000*20*3), p.MaxSubmissionCost)
			require.Equal(t, tt.gasLimit, p.GasLimit)
			require.Equal(t, eth.WeiU64(20_000_000), p.MaxFeePerGas)
			require.Equal(t, eth.WeiU64(9), p.L2CallValue)
			want := p.MaxSubmissionCost.Add(eth.WeiU64(20_000_000).Mul(tt.gasLimit)).Add(eth.WeiU64(9))
			require.Equal(t, want, p.Deposit)

			require.Len(t, l2.msgs, 1)
			require.Equal(t, sender, l2.msgs[0].From)
			require.Equal(t, receiver, *l2.msgs[0].To)
			require.Equal(t, data, l2.msgs[0].Data)
		})
	}
}

func TestEstimateRetryableNoBaseFee(t *testing.T) {
	l2 := &fakeL2{gasPrice: big.NewInt(1), gas: 1}
	_, err := bridge.EstimateRetryable(context.Background(), fakeL1{}, l2, receiver, receiver, nil, eth.ZeroWei)
	require.ErrorContains(t, err, "no base fee")
}

func TestArbitrumWrap(t *testing.T) {
	network, m := market(t, networks.Arbitrum)
	l1 := chaintest.NewBackend(1)
	l1.SetHead(100, big.NewInt(30*params.GWei))
	l2 := chaintest.NewBackend(network.ChainID)
	l2.SetGasPrice(big.NewInt(100_000_000))
	l2.SetEstimate(250_000)

	_, err := bridge.New(network, m, networks.MainnetTimelock, nil, nil)
	require.ErrorIs(t, err, bridge.ErrMissingClient)

	b, err := bridge.New(network, m, networks.MainnetTimelock,
		l1.Client(t, networks.Network{Name: networks.Mainnet}),
		l2.Client(t, network))
	require.NoError(t, err)

	actions := l2Actions(t, 0)
	a, err := b.Wrap(context.Background(), actions)
	require.NoError(t, err)
	require.Equal(t, network.Bridge.L1Contract, a.Target)

	var (
		to, excessRefund, valueRefund                     common.Address
		callValue, submissionCost, gasLimit, maxFeePerGas *big.Int
		payload                                           []byte
	)
	require.NoError(t, bridge.FuncCreateRetryableTicket.DecodeArgs(a.Calldata(),
		&to, &callValue, &submissionCost, &excessRefund, &valueRefund, &gasLimit, &maxFeePerGas, &payload))
	require.Equal(t, m.BridgeReceiver, to)
	require.Zero(t, callValue.Sign())
	require.Equal(t, m.LocalTimelock, excessRefund)
	require.Equal(t, m.LocalTimelock, valueRefund)
	require.Equal(t, uint64(375_000), gasLimit.Uint64())
	require.Equal(t, big.NewInt(200_000_000), maxFeePerGas)
	requirePayload(t, payload, actions)

	wantSubmission := bridge.SubmissionFee(len(payload), eth.GWei(30)).Mul(bridge.SubmissionFeeMultiplier)
	require.Equal(t, wantSubmission.ToBig(), submissionCost)
	deposit := new(big.Int).Add(submissionCost, new(big.Int).Mul(gasLimit, maxFeePerGas))
	require.Equal(t, deposit, a.Value)

	estimates := l2.Estimates()
	require.Len(t, estimates, 1)
	require.Equal(t, bridge.ApplyL1ToL2Alias(networks.MainnetTimelock), estimates[0].From)
	require.Equal(t, m.BridgeReceiver, estimates[0].To)
}
