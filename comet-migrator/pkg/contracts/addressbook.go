package contracts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"

	"github.com/compound-finance/comet-sub008/comet-service/jsonutil"
)

// AddressBook maps deployment aliases to addresses and persists them as a JSON object.
type AddressBook struct {
	mu      sync.Mutex
	fs      afero.Fs
	path    string
	entries map[string]common.Address
}

// LoadAddressBook reads the book at path. A missing file yields an empty book.
func LoadAddressBook(fs afero.Fs, path string) (*AddressBook, error) {
	b := &AddressBook{fs: fs, path: path, entries: make(map[string]common.Address)}
	entries, err := jsonutil.LoadJSON[map[string]common.Address](fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	for alias, addr := range *entries {
		b.entries[alias] = addr
	}
	return b, nil
}

func (b *AddressBook) Get(alias string) (common.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr, ok := b.entries[alias]
	return addr, ok
}

func (b *AddressBook) MustGet(alias string) common.Address {
	addr, ok := b.Get(alias)
	if !ok {
		panic(fmt.Sprintf("no address for %q", alias))
	}
	return addr
}

func (b *AddressBook) Set(alias string, addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[alias] = addr
}

func (b *AddressBook) Aliases() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.entries))
	for alias := range b.entries {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

func (b *AddressBook) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return jsonutil.WriteJSON(b.fs, b.entries, b.path)
}
