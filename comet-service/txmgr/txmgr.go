package txmgr

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/compound-finance/comet-sub008/comet-service/retry"
)

var (
	ErrClosed     = errors.New("transaction manager is closed")
	ErrTxReverted = errors.New("transaction reverted")
	ErrBaseFeeCap = errors.New("base fee above configured maximum")
)

// PublishedError is returned when a transaction reached the network but its outcome
// is unknown, e.g. the wait for the receipt timed out. The transaction may still be
// mined, so sending the same candidate again can execute it twice.
type PublishedError struct {
	TxHash common.Hash
	Err    error
}

func (e *PublishedError) Error() string {
	return fmt.Sprintf("transaction %s published but not confirmed: %v", e.TxHash, e.Err)
}

func (e *PublishedError) Unwrap() error {
	return e.Err
}

// IsPublished reports whether err came from a transaction that was already published.
func IsPublished(err error) bool {
	var published *PublishedError
	return errors.As(err, &published)
}

// TxManager signs, publishes and confirms transactions on a single chain.
type TxManager interface {
	// Send blocks until the transaction has NumConfirmations confirmations or the
	// context is cancelled. A mined but reverted transaction returns its receipt
	// together with ErrTxReverted. Failures after publishing are *PublishedError.
	Send(ctx context.Context, candidate TxCandidate) (*types.Receipt, error)
	From() common.Address
	ChainID() *big.Int
	Close()
}

// ETHBackend is the subset of the ethclient API used by the SimpleTxManager.
type ETHBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// TxCandidate is a transaction the caller wants sent. Nonce and fees are filled in
// by the manager, the gas limit too when left at zero.
type TxCandidate struct {
	TxData   []byte
	To       *common.Address
	GasLimit uint64
	Value    *big.Int
}

type SimpleTxManager struct {
	cfg     *Config
	name    string
	chainID *big.Int
	from    common.Address

	backend     ETHBackend
	l           log.Logger
	gasPriceEst GasPriceEstimatorFn

	// nonceLock serialises crafting and publishing so nonces are handed out in order.
	nonceLock sync.Mutex
	closed    atomic.Bool
}

var _ TxManager = (*SimpleTxManager)(nil)

func NewSimpleTxManager(ctx context.Context, name string, l log.Logger, backend ETHBackend, cfg *Config) (*SimpleTxManager, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.NetworkTimeout)
	defer cancel()
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch chain ID: %w", err)
	}
	from := crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey)
	return &SimpleTxManager{
		cfg:         cfg,
		name:        name,
		chainID:     chainID,
		from:        from,
		backend:     backend,
		l:           l.New("service", name, "chainID", chainID),
		gasPriceEst: DefaultGasPriceEstimatorFn,
	}, nil
}

func (m *SimpleTxManager) From() common.Address {
	return m.from
}

func (m *SimpleTxManager) ChainID() *big.Int {
	return new(big.Int).Set(m.chainID)
}

// Close stops new sends. The backend is owned by the caller.
func (m *SimpleTxManager) Close() {
	m.closed.Store(true)
}

func (m *SimpleTxManager) Send(ctx context.Context, candidate TxCandidate) (*types.Receipt, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if m.cfg.TxSendTimeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.TxSendTimeout)
		defer cancel()
	}

	m.nonceLock.Lock()
	tx, err := m.craftTx(ctx, candidate)
	if err != nil {
		m.nonceLock.Unlock()
		return nil, fmt.Errorf("failed to create the tx: %w", err)
	}
	err = m.publishTx(ctx, tx)
	m.nonceLock.Unlock()
	if err != nil {
		return nil, err
	}

	receipt, err := m.waitMined(ctx, tx)
	if err != nil {
		return nil, &PublishedError{TxHash: tx.Hash(), Err: err}
	}
	if receipt.Status == types.ReceiptStatusFailed {
		m.l.Error("Transaction reverted", "tx", tx.Hash(), "block", receipt.BlockNumber)
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash())
	}
	m.l.Info("Transaction confirmed", "tx", tx.Hash(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

func (m *SimpleTxManager) craftTx(ctx context.Context, candidate TxCandidate) (*types.Transaction, error) {
	gasTipCap, baseFee, err := m.suggestGasPriceCaps(ctx)
	if err != nil {
		return nil, err
	}
	gasFeeCap := calcGasFeeCap(baseFee, gasTipCap)

	cCtx, cancel := context.WithTimeout(ctx, m.cfg.NetworkTimeout)
	defer cancel()
	nonce, err := m.backend.PendingNonceAt(cCtx, m.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasLimit := candidate.GasLimit
	if gasLimit == 0 {
		estimate, err := m.backend.EstimateGas(cCtx, ethereum.CallMsg{
			From:      m.from,
			To:        candidate.To,
			GasTipCap: gasTipCap,
			GasFeeCap: gasFeeCap,
			Data:      candidate.TxData,
			Value:     candidate.Value,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = uint64(float64(estimate) * m.cfg.GasLimitBuffer)
	}

	value := candidate.Value
	if value == nil {
		value = new(big.Int)
	}
	txMessage := &types.DynamicFeeTx{
		ChainID:   m.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        candidate.To,
		Value:     value,
		Data:      candidate.TxData,
	}
	m.l.Info("Creating tx", "to", candidate.To, "from", m.from, "nonce", nonce, "gasLimit", gasLimit)
	return types.SignNewTx(m.cfg.PrivateKey, types.LatestSignerForChainID(m.chainID), txMessage)
}

func (m *SimpleTxManager) suggestGasPriceCaps(ctx context.Context) (*big.Int, *big.Int, error) {
	cCtx, cancel := context.WithTimeout(ctx, m.cfg.NetworkTimeout)
	defer cancel()
	tip, baseFee, err := m.gasPriceEst(cCtx, m.backend)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get gas price estimates: %w", err)
	}
	if m.cfg.MinTipCap != nil && tip.Cmp(m.cfg.MinTipCap) < 0 {
		m.l.Debug("Enforcing min tip cap", "minTipCap", m.cfg.MinTipCap, "origTipCap", tip)
		tip = new(big.Int).Set(m.cfg.MinTipCap)
	}
	if m.cfg.MinBaseFee != nil && baseFee.Cmp(m.cfg.MinBaseFee) < 0 {
		m.l.Debug("Enforcing min base fee", "minBaseFee", m.cfg.MinBaseFee, "origBaseFee", baseFee)
		baseFee = new(big.Int).Set(m.cfg.MinBaseFee)
	}
	if m.cfg.MaxBaseFee != nil && baseFee.Cmp(m.cfg.MaxBaseFee) > 0 {
		return nil, nil, fmt.Errorf("%w: %v > %v", ErrBaseFeeCap, baseFee, m.cfg.MaxBaseFee)
	}
	return tip, baseFee, nil
}

func (m *SimpleTxManager) publishTx(ctx context.Context, tx *types.Transaction) error {
	l := m.l.New("tx", tx.Hash(), "nonce", tx.Nonce(), "gasTipCap", tx.GasTipCap(), "gasFeeCap", tx.GasFeeCap())
	l.Info("Publishing transaction")
	policy := retry.Fixed(uint(m.cfg.MaxRetries), m.cfg.RetryInterval)
	policy.OnRetry = func(n uint, err error) {
		l.Warn("Failed to publish transaction, retrying", "attempt", n+1, "err", err)
	}
	return retry.Do0(ctx, policy, func() error {
		cCtx, cancel := context.WithTimeout(ctx, m.cfg.NetworkTimeout)
		defer cancel()
		err := m.backend.SendTransaction(cCtx, tx)
		switch {
		case err == nil:
			return nil
		case strings.Contains(err.Error(), "already known"):
			l.Debug("Transaction already in mempool")
			return nil
		case strings.Contains(err.Error(), "nonce too low"),
			strings.Contains(err.Error(), "insufficient funds"):
			return retry.Permanent(err)
		default:
			return err
		}
	})
}

func (m *SimpleTxManager) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	queryTicker := time.NewTicker(m.cfg.ReceiptQueryInterval)
	defer queryTicker.Stop()
	txHash := tx.Hash()
	for {
		if receipt := m.queryReceipt(ctx, txHash); receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", txHash, ctx.Err())
		case <-queryTicker.C:
		}
	}
}

// queryReceipt returns nil until the receipt exists and has enough confirmations.
func (m *SimpleTxManager) queryReceipt(ctx context.Context, txHash common.Hash) *types.Receipt {
	cCtx, cancel := context.WithTimeout(ctx, m.cfg.NetworkTimeout)
	defer cancel()
	receipt, err := m.backend.TransactionReceipt(cCtx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		m.l.Trace("Transaction not yet mined", "tx", txHash)
		return nil
	} else if err != nil {
		m.l.Info("Receipt retrieval failed", "tx", txHash, "err", err)
		return nil
	} else if receipt == nil {
		return nil
	}

	tip, err := m.backend.BlockNumber(cCtx)
	if err != nil {
		m.l.Warn("Unable to fetch block number", "err", err)
		return nil
	}
	txHeight := receipt.BlockNumber.Uint64()
	if txHeight+m.cfg.NumConfirmations <= tip+1 {
		return receipt
	}
	m.l.Debug("Transaction not yet confirmed", "tx", txHash, "txHeight", txHeight, "tip", tip, "numConfirmations", m.cfg.NumConfirmations)
	return nil
}
