// Package networks holds the registry of chains and Comet markets the migrations
// target, with optional overrides loaded from TOML or YAML files.
package networks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrUnknownMarket  = errors.New("unknown market")
)

type BridgeKind string

const (
	BridgeNone     BridgeKind = ""
	BridgeArbitrum BridgeKind = "arbitrum"
	BridgeOpStack  BridgeKind = "opstack"
	BridgeMantle   BridgeKind = "mantle"
	BridgePolygon  BridgeKind = "polygon"
	BridgeScroll   BridgeKind = "scroll"
)

// BridgeConfig describes how the governance timelock reaches an L2.
type BridgeConfig struct {
	Kind BridgeKind
	// L1Contract is the contract the governance timelock calls: the Arbitrum inbox,
	// an L1 cross domain messenger, or the Polygon FxRoot.
	L1Contract common.Address
	// L1MessageQueue quotes Scroll relay fees.
	L1MessageQueue common.Address
	// L2Messenger relays OP-stack and Scroll messages on the destination chain.
	L2Messenger common.Address
	GasLimit    uint32
}

type Network struct {
	Name    string
	ChainID uint64
	// GovernanceNetwork is the network proposals are submitted on. Empty when the
	// network governs itself.
	GovernanceNetwork string
	RPCURL            string
	Governor          common.Address
	Timelock          common.Address
	Bridge            BridgeConfig
}

func (n Network) IsGovernance() bool {
	return n.GovernanceNetwork == ""
}

type Market struct {
	Network        string
	Base           string
	Comet          common.Address
	Configurator   common.Address
	CometAdmin     common.Address
	Rewards        common.Address
	BridgeReceiver common.Address
	LocalTimelock  common.Address
}

func (m Market) ID() string {
	return MarketID(m.Network, m.Base)
}

func MarketID(network, base string) string {
	return network + "/" + base
}

type Registry struct {
	networks map[string]*Network
	markets  map[string]*Market
}

func NewRegistry() *Registry {
	return &Registry{networks: make(map[string]*Network), markets: make(map[string]*Market)}
}

func (r *Registry) AddNetwork(n Network) {
	r.networks[n.Name] = &n
}

func (r *Registry) AddMarket(m Market) {
	r.markets[m.ID()] = &m
}

func (r *Registry) Lookup(name string) (Network, error) {
	n, ok := r.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return *n, nil
}

// Governance returns the network proposals for name are submitted on.
func (r *Registry) Governance(name string) (Network, error) {
	n, err := r.Lookup(name)
	if err != nil {
		return Network{}, err
	}
	if n.IsGovernance() {
		return n, nil
	}
	return r.Lookup(n.GovernanceNetwork)
}

func (r *Registry) MarketFor(network, base string) (Market, error) {
	if _, err := r.Lookup(network); err != nil {
		return Market{}, err
	}
	m, ok := r.markets[MarketID(network, base)]
	if !ok {
		return Market{}, fmt.Errorf("%w: %s", ErrUnknownMarket, MarketID(network, base))
	}
	return *m, nil
}

func (r *Registry) Networks() []Network {
	out := make([]Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (r *Registry) Markets() []Market {
	out := make([]Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Validate checks that every market points to a known network and every L2 to a
// governance network with a bridge.
func (r *Registry) Validate() error {
	for _, n := range r.networks {
		if n.IsGovernance() {
			if n.Governor == (common.Address{}) {
				return fmt.Errorf("governance network %s has no governor", n.Name)
			}
			continue
		}
		if _, err := r.Lookup(n.GovernanceNetwork); err != nil {
			return fmt.Errorf("network %s: %w", n.Name, err)
		}
		if n.Bridge.Kind == BridgeNone {
			return fmt.Errorf("network %s is governed remotely but has no bridge", n.Name)
		}
	}
	for id, m := range r.markets {
		n, err := r.Lookup(m.Network)
		if err != nil {
			return fmt.Errorf("market %s: %w", id, err)
		}
		if !n.IsGovernance() && m.BridgeReceiver == (common.Address{}) {
			return fmt.Errorf("market %s has no bridge receiver", id)
		}
	}
	return nil
}
