package cli

import (
	"strings"

	"github.com/urfave/cli/v2"

	cservice "github.com/compound-finance/comet-sub008/comet-service"
	clog "github.com/compound-finance/comet-sub008/comet-service/log"
	"github.com/compound-finance/comet-sub008/comet-service/txmgr"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

const EnvVarPrefix = "COMET_MIGRATOR"

func prefixEnvVars(name string) []string {
	return cservice.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML or YAML file overriding network RPC URLs and contract addresses",
		EnvVars: prefixEnvVars("CONFIG"),
	}
	DeploymentsDirFlag = &cli.StringFlag{
		Name:    "deployments-dir",
		Usage:   "Directory holding roots.json and migration artifacts per market",
		Value:   "deployments",
		EnvVars: prefixEnvVars("DEPLOYMENTS_DIR"),
	}
	ArtifactsDirFlag = &cli.StringFlag{
		Name:    "artifacts-dir",
		Usage:   "Directory of compiled contract artifacts used for deployments",
		Value:   "out",
		EnvVars: prefixEnvVars("ARTIFACTS_DIR"),
	}
	SafeAddressFlag = &cli.StringFlag{
		Name:    "safe-address",
		Usage:   "Submit proposals through this Safe, signed by the configured private key",
		EnvVars: prefixEnvVars("SAFE_ADDRESS"),
	}
	TargetFlag = &cli.StringFlag{
		Name:    "target",
		Usage:   "Where enact sends the proposal: 'live' submits it, 'calldata' prints it",
		Value:   string(migration.TargetLive),
		EnvVars: prefixEnvVars("TARGET"),
	}
	ForceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "Repeat steps that already ran, including enacting enacted migrations",
	}
	ProposalIDFlag = &cli.StringFlag{
		Name:  "proposal-id",
		Usage: "Report the state of this governor proposal instead of a migration's",
	}
)

func rpcFlagName(network string) string {
	return "rpc." + network
}

// RPCFlags has one RPC URL flag per built-in network.
func RPCFlags() []cli.Flag {
	var flags []cli.Flag
	for _, n := range networks.Default().Networks() {
		flags = append(flags, &cli.StringFlag{
			Name:    rpcFlagName(n.Name),
			Usage:   "RPC URL of " + n.Name,
			EnvVars: prefixEnvVars("RPC_" + strings.ReplaceAll(n.Name, "-", "_")),
		})
	}
	return flags
}

func GlobalFlags() []cli.Flag {
	flags := []cli.Flag{
		ConfigFlag,
		DeploymentsDirFlag,
		ArtifactsDirFlag,
		SafeAddressFlag,
	}
	flags = append(flags, RPCFlags()...)
	flags = append(flags, clog.CLIFlags(EnvVarPrefix)...)
	return append(flags, txmgr.CLIFlags(EnvVarPrefix)...)
}
