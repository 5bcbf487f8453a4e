package ens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// MarketEntry is one market in the directory. Addresses are written checksummed.
type MarketEntry struct {
	BaseSymbol   string
	CometAddress common.Address
}

type marketEntryJSON struct {
	BaseSymbol   string `json:"baseSymbol"`
	CometAddress string `json:"cometAddress"`
}

func (e MarketEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(marketEntryJSON{BaseSymbol: e.BaseSymbol, CometAddress: e.CometAddress.Hex()})
}

func (e *MarketEntry) UnmarshalJSON(data []byte) error {
	var raw marketEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !common.IsHexAddress(raw.CometAddress) {
		return fmt.Errorf("invalid comet address %q", raw.CometAddress)
	}
	e.BaseSymbol = raw.BaseSymbol
	e.CometAddress = common.HexToAddress(raw.CometAddress)
	return nil
}

// Directory lists official markets per chain id.
type Directory map[uint64][]MarketEntry

func ParseDirectory(text string) (Directory, error) {
	dir := make(Directory)
	if strings.TrimSpace(text) == "" {
		return dir, nil
	}
	var raw map[string][]MarketEntry
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse market directory: %w", err)
	}
	for k, entries := range raw {
		chainID, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in market directory", k)
		}
		dir[chainID] = entries
	}
	return dir, nil
}

// Add appends entry to chainID unless a market with the same comet is already listed.
// It reports whether the directory changed.
func (d Directory) Add(chainID uint64, entry MarketEntry) bool {
	if d.Contains(chainID, entry.CometAddress) {
		return false
	}
	d[chainID] = append(d[chainID], entry)
	return true
}

func (d Directory) Contains(chainID uint64, comet common.Address) bool {
	for _, e := range d[chainID] {
		if e.CometAddress == comet {
			return true
		}
	}
	return false
}

func (d Directory) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone copies d deeply enough that Add on the copy leaves d untouched.
func (d Directory) Clone() Directory {
	out := make(Directory, len(d))
	for id, entries := range d {
		out[id] = append([]MarketEntry(nil), entries...)
	}
	return out
}

// JSON is the compact encoding with chain ids in numeric order, which is how the
// record has always been written.
func (d Directory) JSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range d.ChainIDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		entries := d[id]
		if entries == nil {
			entries = []MarketEntry{}
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", strconv.FormatUint(id, 10))
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Diff describes how b differs from a, empty when they match. Nil and empty
// market lists compare equal.
func Diff(a, b Directory) string {
	return cmp.Diff(a, b, cmpopts.EquateEmpty())
}
