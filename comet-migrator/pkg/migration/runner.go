package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/governor"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/proposal"
)

var (
	ErrAlreadyEnacted = errors.New("migration already enacted")
	ErrUnknownTarget  = errors.New("unknown enact target")
	ErrProposalFailed = errors.New("proposal ended without executing")
	ErrRelayFailed    = errors.New("bridge message failed on L2")

	errNoDeployer = errors.New("step deploys contracts but no signer is configured")
)

type Target string

const (
	// TargetLive submits the proposal to the governor.
	TargetLive Target = "live"
	// TargetCalldata prints the propose call instead of sending it.
	TargetCalldata Target = "calldata"
)

func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetLive, TargetCalldata:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// Proposer is the governance side of the runner.
type Proposer interface {
	Address() common.Address
	Propose(ctx context.Context, p *proposal.Proposal) (*big.Int, error)
	ProposeCalldata(p *proposal.Proposal) ([]byte, error)
	State(ctx context.Context, id *big.Int) (governor.State, error)
	ExecutionReceipt(ctx context.Context, id *big.Int) (*types.Receipt, error)
}

type Runner struct {
	lgr   log.Logger
	store *Store
	envs  EnvFactory
	gov   Proposer
	out   io.Writer
	now   func() time.Time

	// Force reruns steps that already happened.
	Force bool
}

func NewRunner(lgr log.Logger, store *Store, envs EnvFactory, gov Proposer, out io.Writer) *Runner {
	return &Runner{lgr: lgr, store: store, envs: envs, gov: gov, out: out, now: time.Now}
}

// Prepare runs the prepare step and records its artifact. An existing artifact is
// kept unless Force is set. A forced prepare keeps the proposal already submitted.
func (r *Runner) Prepare(ctx context.Context, m Migration) (*Record, error) {
	lgr := r.lgr.New("migration", ID(m))
	prev, err := r.store.Load(m)
	if err != nil && !errors.Is(err, ErrArtifactNotFound) {
		return nil, err
	}
	if prev != nil && !r.Force {
		lgr.Info("already prepared", "at", prev.PreparedAt)
		return prev, nil
	}
	env, err := r.envs(ctx, m)
	if err != nil {
		return nil, err
	}
	lgr.Info("preparing")
	artifact, err := m.Prepare(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", ID(m), err)
	}
	rec := &Record{Artifact: artifact, PreparedAt: r.now().UTC()}
	if prev != nil && prev.ProposalID != nil {
		lgr.Warn("re-prepared after proposing, keeping proposal", "id", prev.ProposalID)
		rec.ProposalID, rec.EnactedAt = prev.ProposalID, prev.EnactedAt
	}
	if err := r.store.Save(m, rec); err != nil {
		return nil, err
	}
	lgr.Info("prepared", "artifact", string(artifact))
	return rec, nil
}

// CalldataOutput is what the calldata target prints for an external signer.
type CalldataOutput struct {
	Migration string             `json:"migration"`
	Governor  common.Address     `json:"governor"`
	Calldata  hexutil.Bytes      `json:"calldata"`
	Value     *hexutil.Big       `json:"value"`
	Proposal  *proposal.Proposal `json:"proposal"`
}

// Enact builds the proposal from the prepared artifact and either submits it or
// prints it, depending on target.
func (r *Runner) Enact(ctx context.Context, m Migration, target Target) (*Record, error) {
	lgr := r.lgr.New("migration", ID(m))
	if m.Enacted() && !r.Force {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEnacted, ID(m))
	}
	rec, err := r.store.Load(m)
	if err != nil {
		return nil, err
	}
	if rec.ProposalID != nil && target == TargetLive && !r.Force {
		return nil, fmt.Errorf("%w: %s was proposed as %v", ErrAlreadyEnacted, ID(m), rec.ProposalID)
	}
	env, err := r.envs(ctx, m)
	if err != nil {
		return nil, err
	}
	p, err := m.Enact(ctx, env, rec.Artifact)
	if err != nil {
		return nil, fmt.Errorf("enact %s: %w", ID(m), err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("enact %s: %w", ID(m), err)
	}
	for i, a := range p.Actions {
		lgr.Debug("proposal action", "index", i, "action", a)
	}

	switch target {
	case TargetCalldata:
		data, err := r.gov.ProposeCalldata(p)
		if err != nil {
			return nil, err
		}
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return rec, enc.Encode(CalldataOutput{
			Migration: ID(m),
			Governor:  r.gov.Address(),
			Calldata:  data,
			Value:     (*hexutil.Big)(p.TotalValue()),
			Proposal:  p,
		})
	case TargetLive:
		id, err := r.gov.Propose(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("enact %s: %w", ID(m), err)
		}
		enactedAt := r.now().UTC()
		rec.ProposalID = id
		rec.EnactedAt = &enactedAt
		if err := r.store.Save(m, rec); err != nil {
			return nil, err
		}
		lgr.Info("proposal submitted", "id", id)
		return rec, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
}

func (r *Runner) Verify(ctx context.Context, m Migration) error {
	rec, err := r.store.Load(m)
	if err != nil {
		return err
	}
	env, err := r.envs(ctx, m)
	if err != nil {
		return err
	}
	r.lgr.Info("verifying", "migration", ID(m))
	err = m.Verify(ctx, env, rec.Artifact)
	for _, report := range env.Reports() {
		if _, werr := io.WriteString(r.out, report.AsMarkdown()); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("verify %s: %w", ID(m), err)
	}
	r.lgr.Info("verified", "migration", ID(m))
	return nil
}

// Status reports the governor state of the migration's proposal. ok is false when
// no proposal was submitted yet.
func (r *Runner) Status(ctx context.Context, m Migration) (state governor.State, rec *Record, ok bool, err error) {
	rec, err = r.store.Load(m)
	if errors.Is(err, ErrArtifactNotFound) {
		return 0, nil, false, nil
	}
	if err != nil || rec.ProposalID == nil {
		return 0, rec, false, err
	}
	state, err = r.gov.State(ctx, rec.ProposalID)
	if err != nil {
		return 0, rec, false, err
	}
	return state, rec, true, nil
}

// Relays reports the L2 delivery of the bridge messages sent when proposal id
// executed. Markets on the governance network, and bridges without relay tracking,
// report none.
func (r *Runner) Relays(ctx context.Context, m Migration, id *big.Int) ([]bridge.Relay, error) {
	env, err := r.envs(ctx, m)
	if err != nil {
		return nil, err
	}
	if env.Bridge == nil {
		return nil, nil
	}
	receipt, err := r.gov.ExecutionReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	relays, err := env.Relays(ctx, receipt)
	if errors.Is(err, bridge.ErrRelayNotTracked) {
		r.lgr.Info("bridge relays are not tracked", "migration", ID(m), "network", env.Network.Name)
		return nil, nil
	}
	return relays, err
}

// Run prepares, enacts and verifies m. A migration marked enacted is only verified.
// A freshly submitted proposal still has to pass a vote, so verification is skipped
// until the governor reports it executed and every bridge message it sent was relayed.
func (r *Runner) Run(ctx context.Context, m Migration, target Target) error {
	if !m.Enacted() || r.Force {
		if _, err := r.Prepare(ctx, m); err != nil {
			return err
		}
		rec, err := r.Enact(ctx, m, target)
		if err != nil {
			return err
		}
		if target == TargetCalldata || rec.ProposalID == nil {
			return nil
		}
		state, err := r.gov.State(ctx, rec.ProposalID)
		if err != nil {
			return err
		}
		switch {
		case state == governor.StateExecuted:
		case state.Final():
			return fmt.Errorf("%w: %s proposal %v is %s", ErrProposalFailed, ID(m), rec.ProposalID, state)
		default:
			r.lgr.Info("proposal not executed yet, skipping verification", "migration", ID(m), "id", rec.ProposalID, "state", state)
			return nil
		}
		relays, err := r.Relays(ctx, m, rec.ProposalID)
		if err != nil {
			return err
		}
		switch bridge.Summary(relays) {
		case bridge.RelayFailed:
			return fmt.Errorf("%w: %s", ErrRelayFailed, ID(m))
		case bridge.RelayPending:
			r.lgr.Info("bridge messages not relayed yet, skipping verification", "migration", ID(m), "id", rec.ProposalID)
			return nil
		}
	}
	return r.Verify(ctx, m)
}
