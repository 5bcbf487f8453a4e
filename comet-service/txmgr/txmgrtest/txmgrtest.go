// Package txmgrtest provides an in-memory TxManager that records what it is asked to send.
package txmgrtest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/compound-finance/comet-sub008/comet-service/txmgr"
)

type TxManager struct {
	mu     sync.Mutex
	from   common.Address
	sent   []txmgr.TxCandidate
	closed bool

	// Respond overrides the default successful receipt.
	Respond func(nonce uint64, candidate txmgr.TxCandidate) (*types.Receipt, error)
}

var _ txmgr.TxManager = (*TxManager)(nil)

func New(from common.Address) *TxManager {
	return &TxManager{from: from}
}

// Send records candidate. Contract creations get the address the sender's nonce would
// produce, and every receipt carries a distinct hash.
func (m *TxManager) Send(_ context.Context, candidate txmgr.TxCandidate) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, txmgr.ErrClosed
	}
	nonce := uint64(len(m.sent))
	m.sent = append(m.sent, candidate)
	if m.Respond != nil {
		return m.Respond(nonce, candidate)
	}
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      crypto.Keccak256Hash(m.from.Bytes(), new(big.Int).SetUint64(nonce).Bytes()),
		BlockNumber: new(big.Int).SetUint64(nonce + 1),
	}
	if candidate.To == nil {
		receipt.ContractAddress = crypto.CreateAddress(m.from, nonce)
	}
	return receipt, nil
}

func (m *TxManager) Sent() []txmgr.TxCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]txmgr.TxCandidate(nil), m.sent...)
}

func (m *TxManager) From() common.Address { return m.from }
func (m *TxManager) ChainID() *big.Int    { return big.NewInt(1) }

func (m *TxManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
