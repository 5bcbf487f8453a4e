package txmgr

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	cservice "github.com/compound-finance/comet-sub008/comet-service"
	"github.com/compound-finance/comet-sub008/comet-service/eth"
)

const (
	PrivateKeyFlagName           = "private-key"
	NumConfirmationsFlagName     = "num-confirmations"
	MinBaseFeeFlagName           = "txmgr.min-basefee"
	MaxBaseFeeFlagName           = "txmgr.max-basefee"
	MinTipCapFlagName            = "txmgr.min-tip-cap"
	GasLimitBufferFlagName       = "txmgr.gas-limit-buffer"
	NetworkTimeoutFlagName       = "network-timeout"
	RetryIntervalFlagName        = "txmgr.retry-interval"
	MaxRetriesFlagName           = "txmgr.max-retries"
	TxSendTimeoutFlagName        = "txmgr.send-timeout"
	ReceiptQueryIntervalFlagName = "txmgr.receipt-query-interval"
)

type DefaultFlagValues struct {
	NumConfirmations     uint64
	MinTipCapGwei        float64
	MinBaseFeeGwei       float64
	GasLimitBuffer       float64
	NetworkTimeout       time.Duration
	RetryInterval        time.Duration
	MaxRetries           uint64
	TxSendTimeout        time.Duration
	ReceiptQueryInterval time.Duration
}

// DefaultProposerFlagValues favours certainty over latency: a governance submission is
// sent once per migration and must not be dropped.
var DefaultProposerFlagValues = DefaultFlagValues{
	NumConfirmations:     uint64(2),
	MinTipCapGwei:        1.0,
	MinBaseFeeGwei:       1.0,
	GasLimitBuffer:       1.2,
	NetworkTimeout:       10 * time.Second,
	RetryInterval:        1 * time.Second,
	MaxRetries:           uint64(10),
	TxSendTimeout:        5 * time.Minute,
	ReceiptQueryInterval: 6 * time.Second,
}

func CLIFlags(envPrefix string) []cli.Flag {
	return CLIFlagsWithDefaults(envPrefix, DefaultProposerFlagValues)
}

func CLIFlagsWithDefaults(envPrefix string, defaults DefaultFlagValues) []cli.Flag {
	prefixEnvVars := func(name string) []string {
		return cservice.PrefixEnvVar(envPrefix, name)
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    PrivateKeyFlagName,
			Usage:   "The private key of the account that signs proposals and deployments",
			EnvVars: prefixEnvVars("PRIVATE_KEY"),
		},
		&cli.Uint64Flag{
			Name:    NumConfirmationsFlagName,
			Usage:   "Number of confirmations which we will wait after sending a transaction",
			Value:   defaults.NumConfirmations,
			EnvVars: prefixEnvVars("NUM_CONFIRMATIONS"),
		},
		&cli.Float64Flag{
			Name:    MinTipCapFlagName,
			Usage:   "Enforces a minimum tip cap (in GWei) to use when determining tx fees",
			Value:   defaults.MinTipCapGwei,
			EnvVars: prefixEnvVars("TXMGR_MIN_TIP_CAP"),
		},
		&cli.Float64Flag{
			Name:    MinBaseFeeFlagName,
			Usage:   "Enforces a minimum base fee (in GWei) to assume when determining tx fees",
			Value:   defaults.MinBaseFeeGwei,
			EnvVars: prefixEnvVars("TXMGR_MIN_BASEFEE"),
		},
		&cli.Float64Flag{
			Name:    MaxBaseFeeFlagName,
			Usage:   "Refuse to send when the base fee (in GWei) exceeds this value. Disabled when 0",
			EnvVars: prefixEnvVars("TXMGR_MAX_BASEFEE"),
		},
		&cli.Float64Flag{
			Name:    GasLimitBufferFlagName,
			Usage:   "Multiplier applied to the estimated gas limit",
			Value:   defaults.GasLimitBuffer,
			EnvVars: prefixEnvVars("TXMGR_GAS_LIMIT_BUFFER"),
		},
		&cli.DurationFlag{
			Name:    NetworkTimeoutFlagName,
			Usage:   "Timeout for all network operations",
			Value:   defaults.NetworkTimeout,
			EnvVars: prefixEnvVars("NETWORK_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    RetryIntervalFlagName,
			Usage:   "Duration we will wait before retrying to publish a transaction",
			Value:   defaults.RetryInterval,
			EnvVars: prefixEnvVars("TXMGR_RETRY_INTERVAL"),
		},
		&cli.Uint64Flag{
			Name:    MaxRetriesFlagName,
			Usage:   "Number of publish attempts before giving up",
			Value:   defaults.MaxRetries,
			EnvVars: prefixEnvVars("TXMGR_MAX_RETRIES"),
		},
		&cli.DurationFlag{
			Name:    TxSendTimeoutFlagName,
			Usage:   "Timeout for sending a transaction and waiting for its receipt. Disabled when 0",
			Value:   defaults.TxSendTimeout,
			EnvVars: prefixEnvVars("TXMGR_TX_SEND_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    ReceiptQueryIntervalFlagName,
			Usage:   "Frequency to poll for receipts",
			Value:   defaults.ReceiptQueryInterval,
			EnvVars: prefixEnvVars("TXMGR_RECEIPT_QUERY_INTERVAL"),
		},
	}
}

type CLIConfig struct {
	PrivateKey           string
	NumConfirmations     uint64
	MinTipCapGwei        float64
	MinBaseFeeGwei       float64
	MaxBaseFeeGwei       float64
	GasLimitBuffer       float64
	NetworkTimeout       time.Duration
	RetryInterval        time.Duration
	MaxRetries           uint64
	TxSendTimeout        time.Duration
	ReceiptQueryInterval time.Duration
}

func NewCLIConfig(defaults DefaultFlagValues) CLIConfig {
	return CLIConfig{
		NumConfirmations:     defaults.NumConfirmations,
		MinTipCapGwei:        defaults.MinTipCapGwei,
		MinBaseFeeGwei:       defaults.MinBaseFeeGwei,
		GasLimitBuffer:       defaults.GasLimitBuffer,
		NetworkTimeout:       defaults.NetworkTimeout,
		RetryInterval:        defaults.RetryInterval,
		MaxRetries:           defaults.MaxRetries,
		TxSendTimeout:        defaults.TxSendTimeout,
		ReceiptQueryInterval: defaults.ReceiptQueryInterval,
	}
}

func (m CLIConfig) Check() error {
	if m.PrivateKey == "" {
		return errors.New("a private key is required to send transactions")
	}
	if m.NumConfirmations == 0 {
		return errors.New("NumConfirmations must not be 0")
	}
	if m.NetworkTimeout == 0 {
		return errors.New("must provide NetworkTimeout")
	}
	if m.ReceiptQueryInterval == 0 {
		return errors.New("must provide ReceiptQueryInterval")
	}
	if m.MaxRetries == 0 {
		return errors.New("MaxRetries must not be 0")
	}
	if m.GasLimitBuffer < 1 {
		return fmt.Errorf("gas limit buffer must be at least 1, got %v", m.GasLimitBuffer)
	}
	if m.MaxBaseFeeGwei != 0 && m.MaxBaseFeeGwei < m.MinBaseFeeGwei {
		return fmt.Errorf("max base fee %v is below min base fee %v", m.MaxBaseFeeGwei, m.MinBaseFeeGwei)
	}
	return nil
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	return CLIConfig{
		PrivateKey:           ctx.String(PrivateKeyFlagName),
		NumConfirmations:     ctx.Uint64(NumConfirmationsFlagName),
		MinTipCapGwei:        ctx.Float64(MinTipCapFlagName),
		MinBaseFeeGwei:       ctx.Float64(MinBaseFeeFlagName),
		MaxBaseFeeGwei:       ctx.Float64(MaxBaseFeeFlagName),
		GasLimitBuffer:       ctx.Float64(GasLimitBufferFlagName),
		NetworkTimeout:       ctx.Duration(NetworkTimeoutFlagName),
		RetryInterval:        ctx.Duration(RetryIntervalFlagName),
		MaxRetries:           ctx.Uint64(MaxRetriesFlagName),
		TxSendTimeout:        ctx.Duration(TxSendTimeoutFlagName),
		ReceiptQueryInterval: ctx.Duration(ReceiptQueryIntervalFlagName),
	}
}

// Config is the parsed form of CLIConfig.
type Config struct {
	PrivateKey           *ecdsa.PrivateKey
	NumConfirmations     uint64
	MinTipCap            *big.Int
	MinBaseFee           *big.Int
	MaxBaseFee           *big.Int // nil when unbounded
	GasLimitBuffer       float64
	NetworkTimeout       time.Duration
	RetryInterval        time.Duration
	MaxRetries           uint64
	TxSendTimeout        time.Duration
	ReceiptQueryInterval time.Duration
}

func NewConfig(cfg CLIConfig) (*Config, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	minTipCap, err := eth.GweiToWei(cfg.MinTipCapGwei)
	if err != nil {
		return nil, fmt.Errorf("invalid min tip cap: %w", err)
	}
	minBaseFee, err := eth.GweiToWei(cfg.MinBaseFeeGwei)
	if err != nil {
		return nil, fmt.Errorf("invalid min base fee: %w", err)
	}
	var maxBaseFee *big.Int
	if cfg.MaxBaseFeeGwei != 0 {
		if maxBaseFee, err = eth.GweiToWei(cfg.MaxBaseFeeGwei); err != nil {
			return nil, fmt.Errorf("invalid max base fee: %w", err)
		}
	}
	return &Config{
		PrivateKey:           key,
		NumConfirmations:     cfg.NumConfirmations,
		MinTipCap:            minTipCap,
		MinBaseFee:           minBaseFee,
		MaxBaseFee:           maxBaseFee,
		GasLimitBuffer:       cfg.GasLimitBuffer,
		NetworkTimeout:       cfg.NetworkTimeout,
		RetryInterval:        cfg.RetryInterval,
		MaxRetries:           cfg.MaxRetries,
		TxSendTimeout:        cfg.TxSendTimeout,
		ReceiptQueryInterval: cfg.ReceiptQueryInterval,
	}, nil
}
