package migration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/compound-finance/comet-sub008/comet-service/jsonutil"
)

var ErrArtifactNotFound = errors.New("migration has not been prepared")

// Record is what the store keeps per migration between steps.
type Record struct {
	Artifact   json.RawMessage `json:"artifact"`
	PreparedAt time.Time       `json:"preparedAt"`
	ProposalID *big.Int        `json:"proposalId,omitempty"`
	EnactedAt  *time.Time      `json:"enactedAt,omitempty"`
}

// Store keeps records under <root>/<network>/<market>/migrations/<name>.json, next
// to the market's roots.json address book.
type Store struct {
	fs   afero.Fs
	root string
}

func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

func (s *Store) Path(m Migration) string {
	return path.Join(s.root, m.Network(), m.Market(), "migrations", m.Name()+".json")
}

// RootsPath is the address book of deployments made for a market.
func (s *Store) RootsPath(network, market string) string {
	return path.Join(s.root, network, market, "roots.json")
}

func (s *Store) Load(m Migration) (*Record, error) {
	rec, err := jsonutil.LoadJSON[Record](s.fs, s.Path(m))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, ID(m))
	}
	return rec, err
}

func (s *Store) Save(m Migration, rec *Record) error {
	return jsonutil.WriteJSON(s.fs, rec, s.Path(m))
}
