package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/lmittmann/w3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain/chaintest"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/governor"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migrations"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var proposeFunc = w3.MustNewFunc("propose(address[],uint256[],string[],bytes[],string)", "uint256")

func init() {
	color.NoColor = true
}

func runApp(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	app := newApp("test", fs)
	app.Writer = out
	app.ErrWriter = io.Discard
	err := app.RunContext(context.Background(), append([]string{"comet-migrator", "--log.level", "error"}, args...))
	return out.String(), err
}

func TestRPCFlags(t *testing.T) {
	names := make(map[string][]string)
	for _, f := range RPCFlags() {
		sf := f.(*cli.StringFlag)
		names[sf.Name] = sf.EnvVars
	}
	require.Len(t, names, len(networks.Default().Networks()))
	require.Equal(t, []string{"COMET_MIGRATOR_RPC_MAINNET"}, names["rpc.mainnet"])
	require.Equal(t, []string{"COMET_MIGRATOR_RPC_SCROLL"}, names["rpc.scroll"])
}

func TestList(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := migration.NewStore(fs, "deployments")
	require.NoError(t, store.Save(migrations.UpdateUSDeSupplyCap, &migration.Record{
		Artifact:   json.RawMessage("{}"),
		PreparedAt: time.Date(2024, 7, 18, 0, 0, 0, 0, time.UTC),
	}))

	out, err := runApp(t, fs, "list")
	require.NoError(t, err)
	require.Contains(t, out, "mantle/usde/1721299083_update_usde_supply_cap")
	require.Regexp(t, `mantle/usde/1721299083_update_usde_supply_cap\s+prepared`, out)
	require.Regexp(t, `scroll/usdc/1707394874_configurate_and_ens\s+enacted`, out)

	require.NoError(t, store.Save(migrations.UpdateUSDeSupplyCap, &migration.Record{
		Artifact:   json.RawMessage("{}"),
		ProposalID: big.NewInt(290),
	}))
	out, err = runApp(t, fs, "list")
	require.NoError(t, err)
	require.Regexp(t, `1721299083_update_usde_supply_cap\s+proposed #290`, out)
}

func TestUnknownMigration(t *testing.T) {
	_, err := runApp(t, afero.NewMemMapFs(), "verify", "1600000000_missing")
	require.ErrorIs(t, err, migration.ErrUnknownMigration)

	_, err = runApp(t, afero.NewMemMapFs(), "verify")
	require.ErrorContains(t, err, "expected one migration")
}

func TestMissingRPC(t *testing.T) {
	_, err := runApp(t, afero.NewMemMapFs(), "run", "--target", "calldata", "1721299083_update_usde_supply_cap")
	require.ErrorContains(t, err, "--rpc.mainnet")
}

func TestRunCalldata(t *testing.T) {
	fs := afero.NewMemMapFs()
	mainnet := chaintest.NewBackend(1)
	mantle := chaintest.NewBackend(5000)

	out, err := runApp(t, fs,
		"--rpc.mainnet", mainnet.URL(t),
		"--rpc.mantle", mantle.URL(t),
		"run", "--target", "calldata", "1721299083_update_usde_supply_cap")
	require.NoError(t, err)

	var printed struct {
		Migration string             `json:"migration"`
		Governor  common.Address     `json:"governor"`
		Calldata  string             `json:"calldata"`
		Proposal  *proposal.Proposal `json:"proposal"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	require.Equal(t, "mantle/usde/1721299083_update_usde_supply_cap", printed.Migration)
	require.Equal(t, networks.MainnetGovernor, printed.Governor)
	require.Len(t, printed.Proposal.Actions, 1)
	require.Equal(t, "sendMessage(uint256,address,bytes,uint32)", printed.Proposal.Actions[0].Signature)

	var (
		targets     []common.Address
		values      []*big.Int
		signatures  []string
		calldatas   [][]byte
		description string
	)
	require.NoError(t, proposeFunc.DecodeArgs(common.FromHex(printed.Calldata), &targets, &values, &signatures, &calldatas, &description))
	require.Equal(t, printed.Proposal.Description, description)
	require.Equal(t, printed.Proposal.Signatures(), signatures)

	rec, err := migration.NewStore(fs, "deployments").Load(migrations.UpdateUSDeSupplyCap)
	require.NoError(t, err)
	require.Nil(t, rec.ProposalID)
}

func TestRunChainIDMismatch(t *testing.T) {
	mainnet := chaintest.NewBackend(1)
	_, err := runApp(t, afero.NewMemMapFs(),
		"--rpc.mainnet", mainnet.URL(t),
		"--rpc.mantle", mainnet.URL(t),
		"run", "--target", "calldata", "1721299083_update_usde_supply_cap")
	require.ErrorContains(t, err, "chain id mismatch")
}

func TestStatusProposalID(t *testing.T) {
	mainnet := chaintest.NewBackend(1)
	mainnet.Returns(networks.MainnetGovernor, governor.FuncState, uint8(governor.StateExecuted))

	out, err := runApp(t, afero.NewMemMapFs(), "--rpc.mainnet", mainnet.URL(t), "status", "--proposal-id", "12")
	require.NoError(t, err)
	require.Equal(t, "proposal #12: executed\n", out)

	_, err = runApp(t, afero.NewMemMapFs(), "--rpc.mainnet", mainnet.URL(t), "status", "--proposal-id", "twelve")
	require.ErrorContains(t, err, "invalid proposal-id")
}

func TestMarkets(t *testing.T) {
	resolver := common.HexToAddress("0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63")
	mainnet := chaintest.NewBackend(1)
	mainnet.Returns(ens.DefaultRegistry, ens.FuncResolver, resolver)
	mainnet.Returns(resolver, ens.FuncText, `{"1":[{"baseSymbol":"USDC","cometAddress":"0xc3d688B66703497DAA19211EEdff47f25384cdc3"}],"5000":[{"baseSymbol":"USDe","cometAddress":"0x606174f62cd968d8e684c645080fa694c1D7786E"}]}`)

	out, err := runApp(t, afero.NewMemMapFs(), "--rpc.mainnet", mainnet.URL(t), "markets")
	require.NoError(t, err)
	require.Regexp(t, `1\s+\|\s+mainnet\s+\|\s+USDC\s+\|\s+0xc3d688B66703497DAA19211EEdff47f25384cdc3`, out)
	require.Regexp(t, `5000\s+\|\s+mantle\s+\|\s+USDe`, out)
}

func TestConfigOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	mainnet := chaintest.NewBackend(1)
	mainnet.Returns(networks.MainnetGovernor, governor.FuncState, uint8(governor.StateActive))
	require.NoError(t, afero.WriteFile(fs, "networks.yaml", []byte("networks:\n  mainnet:\n    rpc_url: "+mainnet.URL(t)+"\n"), 0o644))

	out, err := runApp(t, fs, "--config", "networks.yaml", "status", "--proposal-id", "3")
	require.NoError(t, err)
	require.Equal(t, "proposal #3: active\n", out)
}

func TestPrepareWithSafeDoesNotSetUpProposer(t *testing.T) {
	fs := afero.NewMemMapFs()
	safeAddr := common.HexToAddress("0x5afe")
	mainnet := chaintest.NewBackend(1)
	mantle := chaintest.NewBackend(5000)

	out, err := runApp(t, fs,
		"--rpc.mainnet", mainnet.URL(t),
		"--rpc.mantle", mantle.URL(t),
		"--private-key", testKey,
		"--safe-address", safeAddr.Hex(),
		"prepare", "1721299083_update_usde_supply_cap")
	require.NoError(t, err)
	require.Contains(t, out, "prepared mantle/usde/1721299083_update_usde_supply_cap")
	for _, call := range mainnet.Calls() {
		require.NotEqual(t, safeAddr, call.To)
	}
}

func TestEnactEnactedMigration(t *testing.T) {
	fs := afero.NewMemMapFs()
	mainnet := chaintest.NewBackend(1)
	base := chaintest.NewBackend(8453)
	rpcs := []string{"--rpc.mainnet", mainnet.URL(t), "--rpc.base", base.URL(t)}

	_, err := runApp(t, fs, append(rpcs, "prepare", "1698000000_update_rewards_speeds")...)
	require.NoError(t, err)

	_, err = runApp(t, fs, append(rpcs, "enact", "--target", "calldata", "1698000000_update_rewards_speeds")...)
	require.ErrorIs(t, err, migration.ErrAlreadyEnacted)

	out, err := runApp(t, fs, append(rpcs, "enact", "--force", "--target", "calldata", "1698000000_update_rewards_speeds")...)
	require.NoError(t, err)
	var printed migration.CalldataOutput
	require.NoError(t, json.Unmarshal([]byte(out), &printed))
	require.Equal(t, "base/usdbc/1698000000_update_rewards_speeds", printed.Migration)
	require.Len(t, printed.Proposal.Actions, 1)
	require.Equal(t, "sendMessage(address,bytes,uint32)", printed.Proposal.Actions[0].Signature)
}

func TestStatusListsPending(t *testing.T) {
	mainnet := chaintest.NewBackend(1)
	out, err := runApp(t, afero.NewMemMapFs(), "--rpc.mainnet", mainnet.URL(t), "status")
	require.NoError(t, err)
	require.Equal(t, []string{"mantle/usde/1721299083_update_usde_supply_cap"}, ids(out))
}

func ids(out string) []string {
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		ids = append(ids, strings.Fields(line)[0])
	}
	return ids
}

func TestStatusReportsRelays(t *testing.T) {
	mantleNet, err := networks.Default().Lookup(networks.Mantle)
	require.NoError(t, err)
	fs := afero.NewMemMapFs()
	require.NoError(t, migration.NewStore(fs, "deployments").Save(migrations.UpdateUSDeSupplyCap, &migration.Record{
		Artifact:   json.RawMessage("{}"),
		ProposalID: big.NewInt(290),
	}))

	msg := bridge.Message{
		Nonce:    bridge.EncodeVersionedNonce(big.NewInt(4), 1),
		Sender:   networks.MainnetTimelock,
		Target:   common.HexToAddress("0x1b8a2fb5ae29cf9de1e2a8ef60fd1f7a8fce22ee"),
		Value:    new(big.Int),
		MNTValue: new(big.Int),
		GasLimit: big.NewInt(2_500_000),
		Data:     []byte{0x01},
	}
	hash, err := msg.Hash(true)
	require.NoError(t, err)
	sent, err := bridge.EventSentMessage.Args[1:].Pack(msg.Sender, msg.Data, msg.Nonce, msg.GasLimit)
	require.NoError(t, err)

	zero := new(big.Int)
	mainnet := chaintest.NewBackend(1)
	mainnet.Returns(networks.MainnetGovernor, governor.FuncState, uint8(governor.StateExecuted))
	mainnet.Returns(networks.MainnetGovernor, governor.FuncProposals,
		big.NewInt(290), common.Address{}, zero, big.NewInt(10), big.NewInt(20), zero, zero, zero, false, true)
	mainnet.AddReceipt(&types.Receipt{
		TxHash:      common.HexToHash("0xe0"),
		BlockNumber: big.NewInt(30),
		Status:      types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			{
				Address: mantleNet.Bridge.L1Contract,
				Topics:  []common.Hash{bridge.EventSentMessage.Topic0, common.BytesToHash(msg.Target.Bytes())},
				Data:    sent,
			},
			{
				Address: mantleNet.Bridge.L1Contract,
				Topics:  []common.Hash{bridge.EventMantleSentMessageExtension1.Topic0, common.BytesToHash(msg.Sender.Bytes())},
				Data:    make([]byte, 64),
			},
			{
				Address: networks.MainnetGovernor,
				Topics:  []common.Hash{governor.EventProposalExecuted.Topic0},
				Data:    common.LeftPadBytes(big.NewInt(290).Bytes(), 32),
			},
		},
	})
	mantle := chaintest.NewBackend(5000)
	mantle.Returns(mantleNet.Bridge.L2Messenger, bridge.FuncSuccessfulMessages, true)

	out, err := runApp(t, fs, "--rpc.mainnet", mainnet.URL(t), "--rpc.mantle", mantle.URL(t), "status")
	require.NoError(t, err)
	require.Regexp(t, `mantle/usde/1721299083_update_usde_supply_cap\s+#290 executed`, out)
	require.Contains(t, out, "relay "+hash.Hex()+" to "+msg.Target.Hex()+" relayed")
}
