package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/comet"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/contracts"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/verify"
)

// Env is what a migration step gets to work with. Roots is the market's address
// book. Deployer is nil when no signer was configured. Bridge is nil for markets on
// the governance network.
type Env struct {
	Log        log.Logger
	Network    networks.Network
	Market     networks.Market
	Target     *chain.Client
	Governance *chain.Client
	Roots      *contracts.AddressBook
	Deployer   *contracts.Deployer
	Bridge     bridge.Bridge
	ENS        *ens.Client

	mu      sync.Mutex
	reports []*verify.Report
}

// EnvFactory builds the Env for a migration, dialing whatever networks it needs.
type EnvFactory func(ctx context.Context, m Migration) (*Env, error)

func (e *Env) Comet() *comet.Reader {
	return comet.NewReader(e.Target, e.Market)
}

// Bridged returns actions unchanged for governance-network markets, otherwise the
// single L1 action that relays them to the market's timelock.
func (e *Env) Bridged(ctx context.Context, actions ...proposal.Action) ([]proposal.Action, error) {
	if e.Bridge == nil {
		return actions, nil
	}
	wrapped, err := e.Bridge.Wrap(ctx, actions)
	if err != nil {
		return nil, err
	}
	e.Log.Info("wrapped actions for bridge", "network", e.Network.Name, "actions", len(actions), "value", wrapped.Value)
	return []proposal.Action{wrapped}, nil
}

func (e *Env) RequireDeployer() (*contracts.Deployer, error) {
	if e.Deployer == nil {
		return nil, errNoDeployer
	}
	return e.Deployer, nil
}

// Root returns a recorded deployment of the market, such as its factory.
func (e *Env) Root(alias string) (common.Address, error) {
	if e.Roots != nil {
		if addr, ok := e.Roots.Get(alias); ok {
			return addr, nil
		}
	}
	return common.Address{}, fmt.Errorf("%s has no deployment recorded as %q", e.Market.ID(), alias)
}

// Check runs checks and keeps the report for the runner to print. It fails when any
// check fails.
func (e *Env) Check(ctx context.Context, checks ...verify.Check) error {
	report := verify.Run(ctx, e.Log, checks...)
	e.mu.Lock()
	e.reports = append(e.reports, report)
	e.mu.Unlock()
	return report.Err()
}

// Reports returns what Check recorded, oldest first.
func (e *Env) Reports() []*verify.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*verify.Report(nil), e.reports...)
}

// Relays reports the delivery of the L2 messages sent by the transaction that
// executed the proposal. Markets on the governance network have none.
func (e *Env) Relays(ctx context.Context, execution *types.Receipt) ([]bridge.Relay, error) {
	if e.Bridge == nil {
		return nil, nil
	}
	return bridge.TrackRelays(ctx, e.Network, execution, e.Target)
}
