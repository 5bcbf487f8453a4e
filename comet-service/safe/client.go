// Package safe executes transactions through a Safe multisig whose signing owners are
// held locally. The governance proposer can be a Safe instead of an EOA.
package safe

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/compound-finance/comet-sub008/comet-service/txmgr"
)

const (
	OperationCall         = 0 // Execute as regular external call
	OperationDelegateCall = 1 // Execute as delegatecall
)

var ErrNotEnoughSignatures = errors.New("not enough signatures")

type Transaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      uint8
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

type Client struct {
	lgr      log.Logger
	chainID  *big.Int
	owners   []*ecdsa.PrivateKey
	address  common.Address
	safeABI  abi.ABI
	contract *bind.BoundContract
	txMgr    txmgr.TxManager
}

// NewClient binds to the Safe at address. The txmgr pays for gas and must run on the
// chain the Safe lives on.
func NewClient(lgr log.Logger, caller bind.ContractCaller, txMgr txmgr.TxManager, address common.Address, owners []*ecdsa.PrivateKey) (*Client, error) {
	if len(owners) == 0 {
		return nil, errors.New("no owner keys provided")
	}
	safeABI, err := abi.JSON(strings.NewReader(safeABIString))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Safe ABI: %w", err)
	}
	return &Client{
		lgr:      lgr.New("safe", address),
		chainID:  txMgr.ChainID(),
		owners:   owners,
		address:  address,
		safeABI:  safeABI,
		contract: bind.NewBoundContract(address, safeABI, caller, nil, nil),
		txMgr:    txMgr,
	}, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

// Check verifies that every configured key is a Safe owner.
func (c *Client) Check(ctx context.Context) error {
	owners, err := c.GetOwners(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Safe owners: %w", err)
	}
	ownerSet := make(map[common.Address]bool, len(owners))
	for _, owner := range owners {
		ownerSet[owner] = true
	}
	for i, key := range c.owners {
		address := crypto.PubkeyToAddress(key.PublicKey)
		if !ownerSet[address] {
			return fmt.Errorf("private key at index %d is not a Safe owner: %v", i, address)
		}
	}
	c.lgr.Info("all private keys verified as Safe owners", "numKeys", len(c.owners))
	return nil
}

func (c *Client) CreateTransaction(ctx context.Context, to common.Address, value *big.Int, calldata []byte, operation uint8) (*Transaction, error) {
	nonce, err := c.GetNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return &Transaction{
		To:        to,
		Value:     value,
		Data:      calldata,
		Operation: operation,
		SafeTxGas: new(big.Int),
		BaseGas:   new(big.Int),
		GasPrice:  new(big.Int),
		Nonce:     nonce,
	}, nil
}

// SignTransaction signs with every owner key. The Safe contract requires signatures
// ordered by ascending signer address.
func (c *Client) SignTransaction(safeTx *Transaction) ([]byte, error) {
	txHash, err := c.TransactionHash(safeTx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction hash: %w", err)
	}
	keys := append([]*ecdsa.PrivateKey(nil), c.owners...)
	sort.Slice(keys, func(i, j int) bool {
		a, b := crypto.PubkeyToAddress(keys[i].PublicKey), crypto.PubkeyToAddress(keys[j].PublicKey)
		return bytes.Compare(a[:], b[:]) < 0
	})
	var signatures []byte
	for i, key := range keys {
		signature, err := crypto.Sign(txHash, key)
		if err != nil {
			return nil, fmt.Errorf("failed to sign with key %d: %w", i, err)
		}
		// Safe expects v in {27, 28} for plain ECDSA signatures
		signature[64] += 27
		signatures = append(signatures, signature...)
	}
	return signatures, nil
}

func (c *Client) ExecuteTransaction(ctx context.Context, safeTx *Transaction, signatures []byte) (*types.Receipt, error) {
	threshold, err := c.GetThreshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}
	numSignatures := len(signatures) / crypto.SignatureLength
	if threshold.Cmp(big.NewInt(int64(numSignatures))) > 0 {
		return nil, fmt.Errorf("%w: have %d, need %v", ErrNotEnoughSignatures, numSignatures, threshold)
	}

	calldata, err := c.safeABI.Pack("execTransaction",
		safeTx.To,
		safeTx.Value,
		safeTx.Data,
		safeTx.Operation,
		safeTx.SafeTxGas,
		safeTx.BaseGas,
		safeTx.GasPrice,
		safeTx.GasToken,
		safeTx.RefundReceiver,
		signatures,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transaction data: %w", err)
	}

	c.lgr.Info("executing Safe transaction", "to", safeTx.To, "value", safeTx.Value, "operation", safeTx.Operation, "numSignatures", numSignatures)
	receipt, err := c.txMgr.Send(ctx, txmgr.TxCandidate{
		TxData: calldata,
		To:     &c.address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute Safe transaction: %w", err)
	}
	c.lgr.Info("Safe transaction executed", "txHash", receipt.TxHash, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

// Send creates, signs and executes a call from the Safe.
func (c *Client) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	tx, err := c.CreateTransaction(ctx, to, value, data, OperationCall)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	signatures, err := c.SignTransaction(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return c.ExecuteTransaction(ctx, tx, signatures)
}

func (c *Client) GetOwners(ctx context.Context) ([]common.Address, error) {
	var result []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &result, "getOwners"); err != nil {
		return nil, fmt.Errorf("failed to get owners: %w", err)
	}
	return result[0].([]common.Address), nil
}

func (c *Client) GetNonce(ctx context.Context) (*big.Int, error) {
	var result []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &result, "nonce"); err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	return result[0].(*big.Int), nil
}

func (c *Client) GetThreshold(ctx context.Context) (*big.Int, error) {
	var result []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &result, "getThreshold"); err != nil {
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}
	return result[0].(*big.Int), nil
}

// TransactionHash is the EIP-712 SafeTx digest that owners sign.
func (c *Client) TransactionHash(safeTx *Transaction) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"SafeTx": []apitypes.Type{
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "data", Type: "bytes"},
				{Name: "operation", Type: "uint8"},
				{Name: "safeTxGas", Type: "uint256"},
				{Name: "baseGas", Type: "uint256"},
				{Name: "gasPrice", Type: "uint256"},
				{Name: "gasToken", Type: "address"},
				{Name: "refundReceiver", Type: "address"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "SafeTx",
		Domain: apitypes.TypedDataDomain{
			ChainId:           (*math.HexOrDecimal256)(c.chainID),
			VerifyingContract: c.address.Hex(),
		},
		Message: map[string]interface{}{
			"to":             safeTx.To.Hex(),
			"value":          safeTx.Value.String(),
			"data":           "0x" + hex.EncodeToString(safeTx.Data),
			"operation":      fmt.Sprintf("%d", safeTx.Operation),
			"safeTxGas":      safeTx.SafeTxGas.String(),
			"baseGas":        safeTx.BaseGas.String(),
			"gasPrice":       safeTx.GasPrice.String(),
			"gasToken":       safeTx.GasToken.Hex(),
			"refundReceiver": safeTx.RefundReceiver.Hex(),
			"nonce":          safeTx.Nonce.String(),
		},
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EIP-712 hash: %w", err)
	}
	return hash, nil
}
