// Package chaintest serves a scripted JSON-RPC endpoint in-process so packages that
// read contract state can be tested without a node.
package chaintest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

type CallHandler func(input []byte) ([]byte, error)

// Call is an eth_call or eth_estimateGas request seen by the backend.
type Call struct {
	From  common.Address
	To    common.Address
	Input []byte
	Value *big.Int
}

type Backend struct {
	mu        sync.Mutex
	chainID   uint64
	head      *types.Header
	gasPrice  *big.Int
	tipCap    *big.Int
	estimate  uint64
	code      map[common.Address][]byte
	handlers  map[common.Address]map[[4]byte]CallHandler
	calls     []Call
	estimates []Call
	logs      []types.Log
	receipts  map[common.Hash]*types.Receipt
}

func NewBackend(chainID uint64) *Backend {
	return &Backend{
		chainID: chainID,
		head: &types.Header{
			Number:     big.NewInt(1),
			Difficulty: new(big.Int),
			BaseFee:    big.NewInt(1_000_000_000),
		},
		gasPrice: big.NewInt(1_000_000_000),
		tipCap:   big.NewInt(1_000_000_000),
		estimate: 100_000,
		code:     make(map[common.Address][]byte),
		handlers: make(map[common.Address]map[[4]byte]CallHandler),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (b *Backend) server(t testing.TB) *rpc.Server {
	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethService{b: b}); err != nil {
		t.Fatalf("failed to register eth service: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

// Client starts an in-process RPC server for t and returns a chain client bound to it.
func (b *Backend) Client(t testing.TB, network networks.Network) *chain.Client {
	rpcClient := rpc.DialInProc(b.server(t))
	t.Cleanup(rpcClient.Close)
	if network.ChainID == 0 {
		network.ChainID = b.chainID
	}
	return chain.NewClient(network, rpcClient)
}

// URL serves the backend over HTTP, for code that dials a network by its RPC URL.
func (b *Backend) URL(t testing.TB) string {
	srv := httptest.NewServer(b.server(t))
	t.Cleanup(srv.Close)
	return srv.URL
}

func (b *Backend) SetHead(number uint64, baseFee *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = &types.Header{Number: new(big.Int).SetUint64(number), Difficulty: new(big.Int), BaseFee: baseFee}
}

func (b *Backend) SetGasPrice(price *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gasPrice = price
}

func (b *Backend) SetEstimate(gas uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.estimate = gas
}

func (b *Backend) SetCode(addr common.Address, code []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.code[addr] = code
}

// HandleFunc routes eth_call requests to addr with the given selector.
func (b *Backend) HandleFunc(addr common.Address, selector [4]byte, h CallHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[addr] == nil {
		b.handlers[addr] = make(map[[4]byte]CallHandler)
	}
	b.handlers[addr][selector] = h
	if _, ok := b.code[addr]; !ok {
		b.code[addr] = []byte{0xfe}
	}
}

// EncodeReturns ABI-encodes returns as the output of fn.
func EncodeReturns(fn *w3.Func, returns ...any) ([]byte, error) {
	output, err := fn.Returns.Pack(returns...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode returns of %s: %w", fn.Signature, err)
	}
	return output, nil
}

// Returns answers every call of fn on addr with the given return values.
func (b *Backend) Returns(addr common.Address, fn *w3.Func, returns ...any) {
	output, err := EncodeReturns(fn, returns...)
	if err != nil {
		panic(err)
	}
	b.HandleFunc(addr, fn.Selector, func([]byte) ([]byte, error) { return output, nil })
}

// Reverts makes every call of fn on addr fail.
func (b *Backend) Reverts(addr common.Address, fn *w3.Func) {
	b.HandleFunc(addr, fn.Selector, func([]byte) ([]byte, error) {
		return nil, fmt.Errorf("execution reverted")
	})
}

// AddReceipt records a mined transaction. Its logs are served by eth_getLogs with
// the receipt's transaction hash and block number filled in.
func (b *Backend) AddReceipt(receipt *types.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := *receipt
	r.Logs = make([]*types.Log, len(receipt.Logs))
	if r.BlockNumber == nil {
		r.BlockNumber = new(big.Int).Set(b.head.Number)
	} else if r.BlockNumber.Cmp(b.head.Number) > 0 {
		head := types.CopyHeader(b.head)
		head.Number = new(big.Int).Set(r.BlockNumber)
		b.head = head
	}
	for i, l := range receipt.Logs {
		cp := *l
		cp.TxHash = r.TxHash
		cp.BlockNumber = r.BlockNumber.Uint64()
		cp.Index = uint(len(b.logs))
		if cp.Topics == nil {
			cp.Topics = []common.Hash{}
		}
		r.Logs[i] = &cp
		b.logs = append(b.logs, cp)
	}
	b.receipts[r.TxHash] = &r
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

func (b *Backend) Estimates() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.estimates...)
}

func (b *Backend) call(args callArgs) ([]byte, error) {
	c := args.toCall()
	b.mu.Lock()
	b.calls = append(b.calls, c)
	var h CallHandler
	if len(c.Input) >= 4 {
		h = b.handlers[c.To][[4]byte(c.Input[:4])]
	}
	b.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("no handler for call to %s with input %x", c.To, c.Input)
	}
	return h(c.Input)
}

type filterArgs struct {
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
}

func (f filterArgs) matches(l types.Log, from, to uint64) bool {
	if l.BlockNumber < from || l.BlockNumber > to {
		return false
	}
	if len(f.Address) > 0 && !slices.Contains(f.Address, l.Address) {
		return false
	}
	for i, set := range f.Topics {
		if len(set) == 0 {
			continue
		}
		if i >= len(l.Topics) || !slices.Contains(set, l.Topics[i]) {
			return false
		}
	}
	return true
}

func blockArg(s string, latest uint64) uint64 {
	switch s {
	case "", "latest", "pending", "safe", "finalized":
		return latest
	case "earliest":
		return 0
	}
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return latest
	}
	return n
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Input *hexutil.Bytes  `json:"input"`
	Data  *hexutil.Bytes  `json:"data"`
}

func (a callArgs) toCall() Call {
	var c Call
	if a.From != nil {
		c.From = *a.From
	}
	if a.To != nil {
		c.To = *a.To
	}
	if a.Value != nil {
		c.Value = a.Value.ToInt()
	}
	if a.Input != nil {
		c.Input = *a.Input
	} else if a.Data != nil {
		c.Input = *a.Data
	}
	return c
}

type ethService struct {
	b *Backend
}

func (s *ethService) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(s.b.chainID)
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return hexutil.Uint64(s.b.head.Number.Uint64())
}

func (s *ethService) GetBlockByNumber(_ json.RawMessage, _ bool) *types.Header {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return types.CopyHeader(s.b.head)
}

func (s *ethService) GasPrice() *hexutil.Big {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return (*hexutil.Big)(s.b.gasPrice)
}

func (s *ethService) MaxPriorityFeePerGas() *hexutil.Big {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return (*hexutil.Big)(s.b.tipCap)
}

func (s *ethService) GetCode(addr common.Address, _ json.RawMessage) hexutil.Bytes {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.code[addr]
}

func (s *ethService) Call(_ context.Context, args callArgs, _ *json.RawMessage, _ *json.RawMessage) (hexutil.Bytes, error) {
	return s.b.call(args)
}

func (s *ethService) EstimateGas(_ context.Context, args callArgs, _ *json.RawMessage) (hexutil.Uint64, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.estimates = append(s.b.estimates, args.toCall())
	return hexutil.Uint64(s.b.estimate), nil
}

func (s *ethService) GetLogs(filter filterArgs) []types.Log {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	head := s.b.head.Number.Uint64()
	from, to := blockArg(filter.FromBlock, head), blockArg(filter.ToBlock, head)
	out := []types.Log{}
	for _, l := range s.b.logs {
		if filter.matches(l, from, to) {
			out = append(out, l)
		}
	}
	return out
}

func (s *ethService) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.receipts[hash]
}
