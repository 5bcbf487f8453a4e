// Package migration defines governance migrations and runs their prepare, enact and
// verify steps against live networks.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

var (
	ErrUnknownMigration = errors.New("unknown migration")
	ErrDuplicate        = errors.New("duplicate migration")
)

// Migration is one governance change to a market. Prepare deploys whatever the
// proposal needs and returns it as the artifact, which Enact and Verify receive back.
type Migration interface {
	Name() string
	Network() string
	Market() string
	// Enacted reports whether the proposal has already executed on chain.
	Enacted() bool
	Prepare(ctx context.Context, env *Env) (json.RawMessage, error)
	Enact(ctx context.Context, env *Env, artifact json.RawMessage) (*proposal.Proposal, error)
	Verify(ctx context.Context, env *Env, artifact json.RawMessage) error
}

// ID is network/market/name, unique within a registry.
func ID(m Migration) string {
	return m.Network() + "/" + m.Market() + "/" + m.Name()
}

// Spec describes a migration whose artifact has type A.
type Spec[A any] struct {
	Name    string
	Network string
	Market  string
	Enacted bool
	Prepare func(ctx context.Context, env *Env) (A, error)
	Enact   func(ctx context.Context, env *Env, artifact A) (*proposal.Proposal, error)
	Verify  func(ctx context.Context, env *Env, artifact A) error
}

type typed[A any] struct {
	spec Spec[A]
}

// Define turns a Spec into a Migration. A nil Prepare yields an empty artifact and a
// nil Verify always passes.
func Define[A any](spec Spec[A]) Migration {
	if spec.Enact == nil {
		panic(fmt.Sprintf("migration %s has no enact step", spec.Name))
	}
	return &typed[A]{spec: spec}
}

func (t *typed[A]) Name() string    { return t.spec.Name }
func (t *typed[A]) Network() string { return t.spec.Network }
func (t *typed[A]) Market() string  { return t.spec.Market }
func (t *typed[A]) Enacted() bool   { return t.spec.Enacted }

func (t *typed[A]) Prepare(ctx context.Context, env *Env) (json.RawMessage, error) {
	if t.spec.Prepare == nil {
		return json.RawMessage("{}"), nil
	}
	artifact, err := t.spec.Prepare(ctx, env)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifact)
}

func (t *typed[A]) Enact(ctx context.Context, env *Env, raw json.RawMessage) (*proposal.Proposal, error) {
	artifact, err := t.decode(raw)
	if err != nil {
		return nil, err
	}
	return t.spec.Enact(ctx, env, artifact)
}

func (t *typed[A]) Verify(ctx context.Context, env *Env, raw json.RawMessage) error {
	if t.spec.Verify == nil {
		return nil
	}
	artifact, err := t.decode(raw)
	if err != nil {
		return err
	}
	return t.spec.Verify(ctx, env, artifact)
}

func (t *typed[A]) decode(raw json.RawMessage) (A, error) {
	var artifact A
	if len(raw) == 0 {
		return artifact, nil
	}
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return artifact, fmt.Errorf("failed to decode artifact of %s: %w", t.spec.Name, err)
	}
	return artifact, nil
}

type Registry struct {
	byID map[string]Migration
}

func NewRegistry(migrations ...Migration) (*Registry, error) {
	r := &Registry{byID: make(map[string]Migration)}
	for _, m := range migrations {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(m Migration) error {
	id := ID(m)
	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	r.byID[id] = m
	return nil
}

// Lookup accepts a full id or a bare migration name when only one market has it.
func (r *Registry) Lookup(key string) (Migration, error) {
	if m, ok := r.byID[key]; ok {
		return m, nil
	}
	var found []Migration
	for _, m := range r.All() {
		if m.Name() == key || strings.HasSuffix(ID(m), "/"+key) {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, key)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s is ambiguous, use network/market/name", ErrUnknownMigration, key)
	}
}

// All returns the migrations ordered by id.
func (r *Registry) All() []Migration {
	out := make([]Migration, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return ID(out[i]) < ID(out[j]) })
	return out
}

func (r *Registry) Pending() []Migration {
	var out []Migration
	for _, m := range r.All() {
		if !m.Enacted() {
			out = append(out, m)
		}
	}
	return out
}
