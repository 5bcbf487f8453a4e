package cli

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	clog "github.com/compound-finance/comet-sub008/comet-service/log"
	"github.com/compound-finance/comet-sub008/comet-service/safe"
	"github.com/compound-finance/comet-sub008/comet-service/txmgr"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/contracts"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/governor"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migrations"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

// session holds what one command invocation needs. Clients and transaction managers
// are dialed on first use and closed together.
type session struct {
	lgr        log.Logger
	fs         afero.Fs
	out        io.Writer
	networks   *networks.Registry
	migrations *migration.Registry
	store      *migration.Store
	artifacts  *contracts.Artifacts
	txCfg      txmgr.CLIConfig
	safe       common.Address

	clients map[string]*chain.Client
	txMgrs  map[string]txmgr.TxManager
}

func newSession(cliCtx *cli.Context, fs afero.Fs) (*session, error) {
	lgr := clog.NewLogger(clog.AppOut(cliCtx), clog.ReadCLIConfig(cliCtx))
	clog.SetGlobalLogHandler(lgr.Handler())

	reg := networks.Default()
	if path := cliCtx.String(ConfigFlag.Name); path != "" {
		if err := reg.ApplyFile(fs, path); err != nil {
			return nil, err
		}
	}
	rpcURLs := &networks.FileConfig{Networks: make(map[string]networks.NetworkOverride)}
	for _, n := range reg.Networks() {
		if url := cliCtx.String(rpcFlagName(n.Name)); url != "" {
			rpcURLs.Networks[n.Name] = networks.NetworkOverride{RPCURL: url}
		}
	}
	if err := reg.Apply(rpcURLs); err != nil {
		return nil, err
	}

	all, err := migrations.Registry()
	if err != nil {
		return nil, err
	}

	var safeAddr common.Address
	if s := cliCtx.String(SafeAddressFlag.Name); s != "" {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid %s: %q", SafeAddressFlag.Name, s)
		}
		safeAddr = common.HexToAddress(s)
	}

	return &session{
		lgr:        lgr,
		fs:         fs,
		out:        cliCtx.App.Writer,
		networks:   reg,
		migrations: all,
		store:      migration.NewStore(fs, cliCtx.String(DeploymentsDirFlag.Name)),
		artifacts:  contracts.OpenArtifacts(fs, cliCtx.String(ArtifactsDirFlag.Name)),
		txCfg:      txmgr.ReadCLIConfig(cliCtx),
		safe:       safeAddr,
		clients:    make(map[string]*chain.Client),
		txMgrs:     make(map[string]txmgr.TxManager),
	}, nil
}

func (s *session) close() {
	for _, m := range s.txMgrs {
		m.Close()
	}
	for _, c := range s.clients {
		c.Close()
	}
}

func (s *session) hasSigner() bool {
	return s.txCfg.PrivateKey != ""
}

func (s *session) dial(ctx context.Context, name string) (*chain.Client, error) {
	if c, ok := s.clients[name]; ok {
		return c, nil
	}
	n, err := s.networks.Lookup(name)
	if err != nil {
		return nil, err
	}
	c, err := chain.Dial(ctx, s.lgr, n)
	if err != nil {
		if errors.Is(err, chain.ErrNoRPCURL) {
			return nil, fmt.Errorf("%w (set --%s)", err, rpcFlagName(name))
		}
		return nil, err
	}
	s.clients[name] = c
	return c, nil
}

func (s *session) txConfig() (*txmgr.Config, error) {
	cfg, err := txmgr.NewConfig(s.txCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transaction manager: %w", err)
	}
	return cfg, nil
}

func (s *session) txMgr(ctx context.Context, name string) (txmgr.TxManager, error) {
	if m, ok := s.txMgrs[name]; ok {
		return m, nil
	}
	cfg, err := s.txConfig()
	if err != nil {
		return nil, err
	}
	c, err := s.dial(ctx, name)
	if err != nil {
		return nil, err
	}
	m, err := txmgr.NewSimpleTxManager(ctx, "comet-migrator-"+name, s.lgr, c.Eth, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager for %s: %w", name, err)
	}
	s.txMgrs[name] = m
	return m, nil
}

func (s *session) lookup(cliCtx *cli.Context) (migration.Migration, error) {
	if cliCtx.NArg() != 1 {
		return nil, fmt.Errorf("expected one migration, got %d arguments", cliCtx.NArg())
	}
	return s.migrations.Lookup(cliCtx.Args().First())
}

// env dials the market's network and, for bridged markets, its governance network.
// Deployments need a signer on the market's network.
func (s *session) env(ctx context.Context, m migration.Migration) (*migration.Env, error) {
	network, err := s.networks.Lookup(m.Network())
	if err != nil {
		return nil, err
	}
	market, err := s.networks.MarketFor(m.Network(), m.Market())
	if err != nil {
		return nil, err
	}
	govNetwork, err := s.networks.Governance(network.Name)
	if err != nil {
		return nil, err
	}
	target, err := s.dial(ctx, network.Name)
	if err != nil {
		return nil, err
	}
	gov, err := s.dial(ctx, govNetwork.Name)
	if err != nil {
		return nil, err
	}
	roots, err := contracts.LoadAddressBook(s.fs, s.store.RootsPath(network.Name, market.Base))
	if err != nil {
		return nil, err
	}

	env := &migration.Env{
		Log:        s.lgr.New("migration", migration.ID(m)),
		Network:    network,
		Market:     market,
		Target:     target,
		Governance: gov,
		Roots:      roots,
		ENS:        ens.NewClient(gov, ens.DefaultRegistry),
	}
	if s.hasSigner() {
		txMgr, err := s.txMgr(ctx, network.Name)
		if err != nil {
			return nil, err
		}
		env.Deployer = contracts.NewDeployer(env.Log, txMgr, target, s.artifacts, roots)
	}
	if !network.IsGovernance() {
		env.Bridge, err = bridge.New(network, market, govNetwork.Timelock, gov, target)
		if err != nil {
			return nil, err
		}
	}
	return env, nil
}

// governor returns the governor of the named governance network. Proposals are sent
// from the signer, or through the Safe when one is configured. The transaction
// manager and Safe are only set up once a proposal is sent.
func (s *session) governor(ctx context.Context, name string) (*governor.Client, error) {
	n, err := s.networks.Lookup(name)
	if err != nil {
		return nil, err
	}
	c, err := s.dial(ctx, name)
	if err != nil {
		return nil, err
	}
	gov := governor.NewClient(s.lgr, n.Governor, c, nil)
	if !s.hasSigner() {
		return gov, nil
	}
	return gov.WithSubmitterFunc(func(ctx context.Context) (governor.Submitter, error) {
		return s.submitter(ctx, name, c)
	}), nil
}

func (s *session) submitter(ctx context.Context, name string, c *chain.Client) (governor.Submitter, error) {
	txMgr, err := s.txMgr(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.safe == (common.Address{}) {
		return governor.TxSubmitter{TxMgr: txMgr}, nil
	}
	cfg, err := s.txConfig()
	if err != nil {
		return nil, err
	}
	sc, err := safe.NewClient(s.lgr, c.Eth, txMgr, s.safe, []*ecdsa.PrivateKey{cfg.PrivateKey})
	if err != nil {
		return nil, err
	}
	if err := sc.Check(ctx); err != nil {
		return nil, err
	}
	return governor.SafeSubmitter{Safe: sc}, nil
}

func (s *session) runner(ctx context.Context, m migration.Migration) (*migration.Runner, error) {
	govNetwork, err := s.networks.Governance(m.Network())
	if err != nil {
		return nil, err
	}
	gov, err := s.governor(ctx, govNetwork.Name)
	if err != nil {
		return nil, err
	}
	return migration.NewRunner(s.lgr, s.store, s.env, gov, s.out), nil
}
