package txmgr

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/compound-finance/comet-sub008/comet-service/testlog"
)

type fakeBackend struct {
	mu       sync.Mutex
	head     uint64
	baseFee  *big.Int
	tip      *big.Int
	estimate uint64
	status   uint64
	sendErrs []error
	sent     []*types.Transaction
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.head), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			return &types.Receipt{TxHash: hash, Status: b.status, BlockNumber: big.NewInt(10)}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sendErrs) > 0 {
		err := b.sendErrs[0]
		b.sendErrs = b.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tip, nil }

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.estimate, nil
}

func testConfig(t *testing.T) *Config {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &Config{
		PrivateKey:           key,
		NumConfirmations:     1,
		MinTipCap:            big.NewInt(params.GWei),
		MinBaseFee:           big.NewInt(params.GWei),
		GasLimitBuffer:       1.5,
		NetworkTimeout:       time.Second,
		RetryInterval:        time.Millisecond,
		MaxRetries:           3,
		TxSendTimeout:        10 * time.Second,
		ReceiptQueryInterval: 5 * time.Millisecond,
	}
}

func newFakeManager(t *testing.T, b *fakeBackend) *SimpleTxManager {
	m, err := NewSimpleTxManager(context.Background(), "test", testlog.Logger(t, slog.LevelDebug), b, testConfig(t))
	require.NoError(t, err)
	return m
}

func TestCalcGasFeeCap(t *testing.T) {
	require.Equal(t, big.NewInt(25), calcGasFeeCap(big.NewInt(10), big.NewInt(5)))
}

func TestSendFillsFeesAndGas(t *testing.T) {
	b := &fakeBackend{head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 100_000, status: types.ReceiptStatusSuccessful}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")

	receipt, err := m.Send(context.Background(), TxCandidate{To: &to, TxData: []byte{0x01}})
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, b.sent, 1)

	tx := b.sent[0]
	require.Equal(t, uint64(150_000), tx.Gas())
	// both estimates are below the configured floors
	require.Equal(t, big.NewInt(params.GWei), tx.GasTipCap())
	require.Equal(t, big.NewInt(3*params.GWei), tx.GasFeeCap())
	require.Equal(t, &to, tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	require.Equal(t, m.From(), sender)
}

func TestSendKeepsExplicitGasLimit(t *testing.T) {
	b := &fakeBackend{head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 100_000, status: types.ReceiptStatusSuccessful}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")
	_, err := m.Send(context.Background(), TxCandidate{To: &to, GasLimit: 21_000})
	require.NoError(t, err)
	require.Equal(t, uint64(21_000), b.sent[0].Gas())
}

func TestSendReverted(t *testing.T) {
	b := &fakeBackend{head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000, status: types.ReceiptStatusFailed}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")
	receipt, err := m.Send(context.Background(), TxCandidate{To: &to})
	require.ErrorIs(t, err, ErrTxReverted)
	require.NotNil(t, receipt)
}

func TestSendRetriesTransientPublishErrors(t *testing.T) {
	b := &fakeBackend{
		head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000,
		status:   types.ReceiptStatusSuccessful,
		sendErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")
	_, err := m.Send(context.Background(), TxCandidate{To: &to})
	require.NoError(t, err)
	require.Len(t, b.sent, 1)
}

func TestSendReportsPublishedTxOnTimeout(t *testing.T) {
	// mined far below the required confirmations, so the receipt never qualifies
	b := &fakeBackend{head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000, status: types.ReceiptStatusSuccessful}
	cfg := testConfig(t)
	cfg.NumConfirmations = 100
	cfg.TxSendTimeout = 50 * time.Millisecond
	m, err := NewSimpleTxManager(context.Background(), "test", testlog.Logger(t, slog.LevelDebug), b, cfg)
	require.NoError(t, err)

	to := common.HexToAddress("0x1234")
	_, err = m.Send(context.Background(), TxCandidate{To: &to})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, IsPublished(err))

	var published *PublishedError
	require.ErrorAs(t, err, &published)
	require.Len(t, b.sent, 1)
	require.Equal(t, b.sent[0].Hash(), published.TxHash)
}

func TestSendErrorsBeforePublishing(t *testing.T) {
	b := &fakeBackend{
		head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000,
		sendErrs: []error{errors.New("insufficient funds for gas")},
	}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")
	_, err := m.Send(context.Background(), TxCandidate{To: &to})
	require.Error(t, err)
	require.False(t, IsPublished(err))
}

func TestSendStopsOnNonceTooLow(t *testing.T) {
	b := &fakeBackend{
		head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000,
		sendErrs: []error{errors.New("nonce too low")},
	}
	m := newFakeManager(t, b)
	to := common.HexToAddress("0x1234")
	_, err := m.Send(context.Background(), TxCandidate{To: &to})
	require.ErrorContains(t, err, "nonce too low")
	require.Empty(t, b.sent)
}

func TestSendWaitsForConfirmations(t *testing.T) {
	b := &fakeBackend{head: 10, baseFee: big.NewInt(5), tip: big.NewInt(1), estimate: 21_000, status: types.ReceiptStatusSuccessful}
	cfg := testConfig(t)
	cfg.NumConfirmations = 3
	m, err := NewSimpleTxManager(context.Background(), "test", testlog.Logger(t, slog.LevelDebug), b, cfg)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		b.mu.Lock()
		b.head = 12
		b.mu.Unlock()
	}()
	to := common.HexToAddress("0x1234")
	start := time.Now()
	_, err = m.Send(context.Background(), TxCandidate{To: &to})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMaxBaseFee(t *testing.T) {
	b := &fakeBackend{head: 10, baseFee: big.NewInt(100 * params.GWei), tip: big.NewInt(1), estimate: 21_000}
	cfg := testConfig(t)
	cfg.MaxBaseFee = big.NewInt(50 * params.GWei)
	m, err := NewSimpleTxManager(context.Background(), "test", testlog.Logger(t, slog.LevelDebug), b, cfg)
	require.NoError(t, err)
	to := common.HexToAddress("0x1234")
	_, err = m.Send(context.Background(), TxCandidate{To: &to})
	require.ErrorIs(t, err, ErrBaseFeeCap)
}

func TestClosed(t *testing.T) {
	m := newFakeManager(t, &fakeBackend{})
	m.Close()
	_, err := m.Send(context.Background(), TxCandidate{})
	require.ErrorIs(t, err, ErrClosed)
}

func TestSendSimulated(t *testing.T) {
	cfg := testConfig(t)
	from := crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey)
	backend := simulated.NewBackend(types.GenesisAlloc{
		from: {Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))},
	})
	t.Cleanup(func() { _ = backend.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	m, err := NewSimpleTxManager(ctx, "sim", testlog.Logger(t, slog.LevelDebug), backend.Client(), cfg)
	require.NoError(t, err)
	to := common.HexToAddress("0xc0Da02939E1441F497fd74F78cE7Decb17B66529")
	receipt, err := m.Send(ctx, TxCandidate{To: &to, Value: big.NewInt(params.GWei)})
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	bal, err := backend.Client().BalanceAt(ctx, to, nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(params.GWei), bal)
}
