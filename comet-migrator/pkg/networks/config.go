package networks

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileConfig is the override file layout. Network entries are keyed by network name,
// market entries by "<network>/<base>". Unset fields keep their built-in values.
//
//	[networks.mainnet]
//	rpc_url = "https://eth.example"
//
//	[markets."arbitrum/usdc"]
//	comet = "0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"
type FileConfig struct {
	Networks map[string]NetworkOverride `toml:"networks" yaml:"networks"`
	Markets  map[string]MarketOverride  `toml:"markets" yaml:"markets"`
}

type NetworkOverride struct {
	ChainID           uint64          `toml:"chain_id" yaml:"chain_id"`
	GovernanceNetwork string          `toml:"governance_network" yaml:"governance_network"`
	RPCURL            string          `toml:"rpc_url" yaml:"rpc_url"`
	Governor          string          `toml:"governor" yaml:"governor"`
	Timelock          string          `toml:"timelock" yaml:"timelock"`
	Bridge            *BridgeOverride `toml:"bridge" yaml:"bridge"`
}

type BridgeOverride struct {
	Kind           string `toml:"kind" yaml:"kind"`
	L1Contract     string `toml:"l1_contract" yaml:"l1_contract"`
	L1MessageQueue string `toml:"l1_message_queue" yaml:"l1_message_queue"`
	L2Messenger    string `toml:"l2_messenger" yaml:"l2_messenger"`
	GasLimit       uint32 `toml:"gas_limit" yaml:"gas_limit"`
}

type MarketOverride struct {
	Comet          string `toml:"comet" yaml:"comet"`
	Configurator   string `toml:"configurator" yaml:"configurator"`
	CometAdmin     string `toml:"comet_admin" yaml:"comet_admin"`
	Rewards        string `toml:"rewards" yaml:"rewards"`
	BridgeReceiver string `toml:"bridge_receiver" yaml:"bridge_receiver"`
	LocalTimelock  string `toml:"local_timelock" yaml:"local_timelock"`
}

// LoadFile decodes an override file, choosing the format from the extension.
func LoadFile(fs afero.Fs, path string) (*FileConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode YAML config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
	return &cfg, nil
}

// ApplyFile loads path and applies it on top of the registry.
func (r *Registry) ApplyFile(fs afero.Fs, path string) error {
	cfg, err := LoadFile(fs, path)
	if err != nil {
		return err
	}
	if err := r.Apply(cfg); err != nil {
		return fmt.Errorf("failed to apply %s: %w", path, err)
	}
	return nil
}

// Apply merges cfg into the registry. A network that does not exist yet is created
// when its chain id is given. Markets may only be added to known networks.
func (r *Registry) Apply(cfg *FileConfig) error {
	for name, o := range cfg.Networks {
		n, ok := r.networks[name]
		if !ok {
			if o.ChainID == 0 {
				return fmt.Errorf("%w: %q (set chain_id to add it)", ErrUnknownNetwork, name)
			}
			n = &Network{Name: name}
			r.networks[name] = n
		}
		if err := o.apply(n); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
	}
	for id, o := range cfg.Markets {
		network, base, ok := strings.Cut(id, "/")
		if !ok || network == "" || base == "" {
			return fmt.Errorf("invalid market id %q, expected <network>/<base>", id)
		}
		if _, known := r.networks[network]; !known {
			return fmt.Errorf("market %s: %w: %q", id, ErrUnknownNetwork, network)
		}
		m, ok := r.markets[id]
		if !ok {
			m = &Market{Network: network, Base: base}
			r.markets[id] = m
		}
		if err := o.apply(m); err != nil {
			return fmt.Errorf("market %s: %w", id, err)
		}
	}
	return r.Validate()
}

func (o NetworkOverride) apply(n *Network) error {
	if o.ChainID != 0 {
		n.ChainID = o.ChainID
	}
	if o.GovernanceNetwork != "" {
		n.GovernanceNetwork = o.GovernanceNetwork
	}
	if o.RPCURL != "" {
		n.RPCURL = o.RPCURL
	}
	if err := setAddress(&n.Governor, "governor", o.Governor); err != nil {
		return err
	}
	if err := setAddress(&n.Timelock, "timelock", o.Timelock); err != nil {
		return err
	}
	if o.Bridge == nil {
		return nil
	}
	b := o.Bridge
	if b.Kind != "" {
		kind, err := ParseBridgeKind(b.Kind)
		if err != nil {
			return err
		}
		n.Bridge.Kind = kind
	}
	if b.GasLimit != 0 {
		n.Bridge.GasLimit = b.GasLimit
	}
	if err := setAddress(&n.Bridge.L1Contract, "bridge.l1_contract", b.L1Contract); err != nil {
		return err
	}
	if err := setAddress(&n.Bridge.L1MessageQueue, "bridge.l1_message_queue", b.L1MessageQueue); err != nil {
		return err
	}
	return setAddress(&n.Bridge.L2Messenger, "bridge.l2_messenger", b.L2Messenger)
}

func (o MarketOverride) apply(m *Market) error {
	fields := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"comet", o.Comet, &m.Comet},
		{"configurator", o.Configurator, &m.Configurator},
		{"comet_admin", o.CometAdmin, &m.CometAdmin},
		{"rewards", o.Rewards, &m.Rewards},
		{"bridge_receiver", o.BridgeReceiver, &m.BridgeReceiver},
		{"local_timelock", o.LocalTimelock, &m.LocalTimelock},
	}
	for _, f := range fields {
		if err := setAddress(f.dst, f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func setAddress(dst *common.Address, name, value string) error {
	if value == "" {
		return nil
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("invalid %s address %q", name, value)
	}
	*dst = common.HexToAddress(value)
	return nil
}

func ParseBridgeKind(s string) (BridgeKind, error) {
	switch kind := BridgeKind(strings.ToLower(s)); kind {
	case BridgeArbitrum, BridgeOpStack, BridgeMantle, BridgePolygon, BridgeScroll:
		return kind, nil
	default:
		return BridgeNone, fmt.Errorf("unknown bridge kind %q", s)
	}
}
