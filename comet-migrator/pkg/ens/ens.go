// Package ens reads and rewrites the ENS text record that lists official markets.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/chain"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

const (
	DefaultName = "v3-additional-grants.compound-community-licenses.eth"
	DefaultKey  = "v3-official-markets"
)

var DefaultRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var ErrNoResolver = errors.New("name has no resolver")

var (
	FuncResolver = w3.MustNewFunc("resolver(bytes32 node)", "address")
	FuncText     = w3.MustNewFunc("text(bytes32 node, string key)", "string")
	FuncSetText  = w3.MustNewFunc("setText(bytes32 node, string key, string value)", "")
)

// Namehash implements the EIP-137 name hash. Labels are lowercased but not otherwise
// normalized.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node[:], label[:])
	}
	return node
}

type Client struct {
	caller   chain.Caller
	registry common.Address
}

func NewClient(caller chain.Caller, registry common.Address) *Client {
	return &Client{caller: caller, registry: registry}
}

func (c *Client) Resolver(ctx context.Context, name string) (common.Address, error) {
	var resolver common.Address
	if err := c.caller.Call(ctx, c.registry, FuncResolver, []any{Namehash(name)}, &resolver); err != nil {
		return common.Address{}, fmt.Errorf("failed to look up resolver of %s: %w", name, err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNoResolver, name)
	}
	return resolver, nil
}

func (c *Client) Text(ctx context.Context, name, key string) (string, error) {
	resolver, err := c.Resolver(ctx, name)
	if err != nil {
		return "", err
	}
	var text string
	if err := c.caller.Call(ctx, resolver, FuncText, []any{Namehash(name), key}, &text); err != nil {
		return "", fmt.Errorf("failed to read text %q of %s: %w", key, name, err)
	}
	return text, nil
}

// Directory reads and parses the market directory stored under key.
func (c *Client) Directory(ctx context.Context, name, key string) (Directory, error) {
	text, err := c.Text(ctx, name, key)
	if err != nil {
		return nil, err
	}
	return ParseDirectory(text)
}

// SetTextAction is the governance action that stores dir under key on resolver.
func SetTextAction(resolver common.Address, name, key string, dir Directory) (proposal.Action, error) {
	text, err := dir.JSON()
	if err != nil {
		return proposal.Action{}, err
	}
	return proposal.NewAction(resolver, FuncSetText, Namehash(name), key, string(text))
}
