package networks

import "github.com/ethereum/go-ethereum/common"

const (
	Mainnet  = "mainnet"
	Arbitrum = "arbitrum"
	Optimism = "optimism"
	Base     = "base"
	Polygon  = "polygon"
	Scroll   = "scroll"
	Mantle   = "mantle"
)

var (
	MainnetGovernor = common.HexToAddress("0xc0Da02939E1441F497fd74F78cE7Decb17B66529")
	MainnetTimelock = common.HexToAddress("0x6d903f6003cca6255D85CcA4D3B5E5146dC33925")

	opStackL2Messenger = common.HexToAddress("0x4200000000000000000000000000000000000007")
)

// Default returns the registry of production deployments.
func Default() *Registry {
	r := NewRegistry()
	r.AddNetwork(Network{
		Name:     Mainnet,
		ChainID:  1,
		Governor: MainnetGovernor,
		Timelock: MainnetTimelock,
	})
	r.AddNetwork(Network{
		Name:              Arbitrum,
		ChainID:           42161,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:       BridgeArbitrum,
			L1Contract: common.HexToAddress("0x4Dbd4fc535Ac27206064B68FfCf827b0A60BAB3f"),
		},
	})
	r.AddNetwork(Network{
		Name:              Optimism,
		ChainID:           10,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:        BridgeOpStack,
			L1Contract:  common.HexToAddress("0x25ace71c97B33Cc4729CF772ae268934F7ab5fA1"),
			L2Messenger: opStackL2Messenger,
			GasLimit:    2_500_000,
		},
	})
	r.AddNetwork(Network{
		Name:              Base,
		ChainID:           8453,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:        BridgeOpStack,
			L1Contract:  common.HexToAddress("0x866E82a600A1414e583f7F13623F1aC5d58b0Afa"),
			L2Messenger: opStackL2Messenger,
			GasLimit:    2_500_000,
		},
	})
	r.AddNetwork(Network{
		Name:              Polygon,
		ChainID:           137,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:       BridgePolygon,
			L1Contract: common.HexToAddress("0xfe5e5D361b2ad62c541bAb87C45a0B9B018389a2"),
		},
	})
	r.AddNetwork(Network{
		Name:              Scroll,
		ChainID:           534352,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:           BridgeScroll,
			L1Contract:     common.HexToAddress("0x6774Bcbd5ceCeF1336b5300fb5186a12DDD8b367"),
			L1MessageQueue: common.HexToAddress("0x0d7E906BD9cAFa154b048cFa766Cc1E54E39AF9B"),
			L2Messenger:    common.HexToAddress("0x781e90f1c8Fc4611c9b7497C3B47F99Ef6969CbC"),
			GasLimit:       1_000_000,
		},
	})
	r.AddNetwork(Network{
		Name:              Mantle,
		ChainID:           5000,
		GovernanceNetwork: Mainnet,
		Bridge: BridgeConfig{
			Kind:        BridgeMantle,
			L1Contract:  common.HexToAddress("0x676A795fe6E43C17c668de16730c3F690FEB7120"),
			L2Messenger: opStackL2Messenger,
			GasLimit:    2_500_000,
		},
	})

	r.AddMarket(Market{
		Network:      Mainnet,
		Base:         "usdc",
		Comet:        common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3"),
		Configurator: common.HexToAddress("0x316f9708bB98af7dA9c68C1C3b5e79039cD336E3"),
		CometAdmin:   common.HexToAddress("0x1EC63B5883C3481134FD50D5DAebc83Ecd2E8779"),
		Rewards:      common.HexToAddress("0x1B0e765F6224C21223AeA2af16c1C46E38885a40"),
	})
	r.AddMarket(Market{
		Network:      Mainnet,
		Base:         "weth",
		Comet:        common.HexToAddress("0xA17581A9E3356d9A858b789D68B4d866e593aE94"),
		Configurator: common.HexToAddress("0x316f9708bB98af7dA9c68C1C3b5e79039cD336E3"),
		CometAdmin:   common.HexToAddress("0x1EC63B5883C3481134FD50D5DAebc83Ecd2E8779"),
		Rewards:      common.HexToAddress("0x1B0e765F6224C21223AeA2af16c1C46E38885a40"),
	})
	r.AddMarket(Market{
		Network:        Arbitrum,
		Base:           "usdc",
		Comet:          common.HexToAddress("0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"),
		Configurator:   common.HexToAddress("0xb21b06D71c75973babdE35b49fFDAc3F82Ad3775"),
		CometAdmin:     common.HexToAddress("0xD10b40fF1D92e2267D099Da3509253D9Da4D715e"),
		Rewards:        common.HexToAddress("0x88730d254A2f7e6AC8388c3198aFd694bA9f7fae"),
		BridgeReceiver: common.HexToAddress("0x42480C37B249e33aABaf4c22B20235656bd38068"),
		LocalTimelock:  common.HexToAddress("0x3fB4d38ea7EC20D495D88F19c4eC3D59d3Cd1F26"),
	})
	r.AddMarket(Market{
		Network:        Optimism,
		Base:           "usdc",
		Comet:          common.HexToAddress("0x2e44e174f7D53F0212823acC11C01A11d58c5bCB"),
		Configurator:   common.HexToAddress("0x84E93EC6170ED630f5ebD89A1AAE72d4F63f2713"),
		CometAdmin:     common.HexToAddress("0x24D86Da09C4Dd64e50dB7501b0f695d030f397aF"),
		Rewards:        common.HexToAddress("0x443EA0340cb75a160F31A440722dec7b5bc3C2E9"),
		BridgeReceiver: common.HexToAddress("0xC3a73A70d1577CD5B02da0bA91C0Afc8fA434DAF"),
		LocalTimelock:  common.HexToAddress("0xd98Be00b5D27fc98112BdE293e487f8D4cA57d07"),
	})
	r.AddMarket(Market{
		Network:        Base,
		Base:           "usdbc",
		Comet:          common.HexToAddress("0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"),
		Configurator:   common.HexToAddress("0x45939657d1CA34A8FA39A924B71D28Fe8431e581"),
		CometAdmin:     common.HexToAddress("0xbdE8F31D2DdDA895264e27DD990faB3DC87b372d"),
		Rewards:        common.HexToAddress("0x123964802e6ABabBE1Bc9547D72Ef1B69B00A6b1"),
		BridgeReceiver: common.HexToAddress("0x18281dfC4d00905DA1aaA6731414EABa843c468A"),
		LocalTimelock:  common.HexToAddress("0xCC3E7c85Bb0EE4f09380e041fee95a0caeDD4a02"),
	})
	r.AddMarket(Market{
		Network:        Polygon,
		Base:           "usdc",
		Comet:          common.HexToAddress("0xF25212E676D1F7F89Cd72fFEe66158f541246445"),
		Configurator:   common.HexToAddress("0x83E0F742cAcBE66349E3701B171eE2487a26e738"),
		CometAdmin:     common.HexToAddress("0xd712ACe4ca490D4F3E92992Ecf3DE12251b975F9"),
		Rewards:        common.HexToAddress("0x45939657d1CA34A8FA39A924B71D28Fe8431e581"),
		BridgeReceiver: common.HexToAddress("0x18281dfC4d00905DA1aaA6731414EABa843c468A"),
		LocalTimelock:  common.HexToAddress("0xCC3E7c85Bb0EE4f09380e041fee95a0caeDD4a02"),
	})
	r.AddMarket(Market{
		Network:        Scroll,
		Base:           "usdc",
		Comet:          common.HexToAddress("0xB2f97c1Bd3bf02f5e74d13f02E3e26F93D77CE44"),
		Configurator:   common.HexToAddress("0xECAB0bEEa3e5DEa0c35d3E69468EAC20098032D7"),
		CometAdmin:     common.HexToAddress("0x87A27b91f4130a25E9634d23A5B8E05e342bac50"),
		Rewards:        common.HexToAddress("0x70167D30964cbFDc315ECAe02441Af747bE0c5Ee"),
		BridgeReceiver: common.HexToAddress("0xC6bf5A64896D679Cf89843DbeC6c0f5d3C9b610D"),
		LocalTimelock:  common.HexToAddress("0xF6013e80E9e6AC211Cc031ad1CE98B3Aa20b73E4"),
	})
	r.AddMarket(Market{
		Network:        Mantle,
		Base:           "usde",
		Comet:          common.HexToAddress("0x606174f62cd968d8e684c645080fa694c1D7786E"),
		Configurator:   common.HexToAddress("0xb77Cd4cD000957283D8BAf53cD782ECf029cF7DB"),
		CometAdmin:     common.HexToAddress("0xe268B436E75648aa0639e2088fa803feA517a0c7"),
		Rewards:        common.HexToAddress("0xCd83CbBFCE149d141A5171C3D6a0F0fCCeE225Ab"),
		BridgeReceiver: common.HexToAddress("0xc91EcA15747E73d6dd7f616C49dAFF37b9F1B604"),
		LocalTimelock:  common.HexToAddress("0x16C7B5C1b9873F0750D6D0d2e11f99e1b4f1c8d4"),
	})
	return r
}
