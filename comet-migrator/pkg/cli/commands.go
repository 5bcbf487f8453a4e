package cli

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/bridge"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/ens"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/governor"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/migration"
	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/networks"
)

var (
	enactedColor  = color.New(color.FgGreen)
	proposedColor = color.New(color.FgCyan)
	preparedColor = color.New(color.FgYellow)
	failedColor   = color.New(color.FgRed)
)

type commands struct {
	fs afero.Fs
}

// with opens a session for the duration of action.
func (c *commands) with(cliCtx *cli.Context, action func(s *session) error) error {
	s, err := newSession(cliCtx, c.fs)
	if err != nil {
		return err
	}
	defer s.close()
	return action(s)
}

func (c *commands) list(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		for _, m := range s.migrations.All() {
			progress, err := s.progress(m)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%-60s %s\n", migration.ID(m), progress)
		}
		return nil
	})
}

// progress describes how far m got from the local record alone.
func (s *session) progress(m migration.Migration) (string, error) {
	if m.Enacted() {
		return enactedColor.Sprint("enacted"), nil
	}
	rec, err := s.store.Load(m)
	if errors.Is(err, migration.ErrArtifactNotFound) {
		return "pending", nil
	}
	if err != nil {
		return "", err
	}
	if rec.ProposalID != nil {
		return proposedColor.Sprintf("proposed #%v", rec.ProposalID), nil
	}
	return preparedColor.Sprint("prepared"), nil
}

func (c *commands) prepare(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		m, err := s.lookup(cliCtx)
		if err != nil {
			return err
		}
		r, err := s.runner(cliCtx.Context, m)
		if err != nil {
			return err
		}
		r.Force = cliCtx.Bool(ForceFlag.Name)
		if _, err := r.Prepare(cliCtx.Context, m); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "prepared %s: %s\n", migration.ID(m), s.store.Path(m))
		return nil
	})
}

func (c *commands) enact(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		m, err := s.lookup(cliCtx)
		if err != nil {
			return err
		}
		target, err := migration.ParseTarget(cliCtx.String(TargetFlag.Name))
		if err != nil {
			return err
		}
		r, err := s.runner(cliCtx.Context, m)
		if err != nil {
			return err
		}
		r.Force = cliCtx.Bool(ForceFlag.Name)
		rec, err := r.Enact(cliCtx.Context, m, target)
		if err != nil {
			return err
		}
		if target == migration.TargetLive {
			fmt.Fprintf(s.out, "proposed %s as %s\n", migration.ID(m), proposedColor.Sprintf("#%v", rec.ProposalID))
		}
		return nil
	})
}

func (c *commands) verify(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		m, err := s.lookup(cliCtx)
		if err != nil {
			return err
		}
		r, err := s.runner(cliCtx.Context, m)
		if err != nil {
			return err
		}
		if err := r.Verify(cliCtx.Context, m); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s %s\n", migration.ID(m), enactedColor.Sprint("verified"))
		return nil
	})
}

func (c *commands) run(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		m, err := s.lookup(cliCtx)
		if err != nil {
			return err
		}
		target, err := migration.ParseTarget(cliCtx.String(TargetFlag.Name))
		if err != nil {
			return err
		}
		r, err := s.runner(cliCtx.Context, m)
		if err != nil {
			return err
		}
		r.Force = cliCtx.Bool(ForceFlag.Name)
		return r.Run(cliCtx.Context, m, target)
	})
}

func (c *commands) status(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		if raw := cliCtx.String(ProposalIDFlag.Name); raw != "" {
			id, ok := new(big.Int).SetString(raw, 10)
			if !ok {
				return fmt.Errorf("invalid %s: %q", ProposalIDFlag.Name, raw)
			}
			gov, err := s.governor(cliCtx.Context, networks.Mainnet)
			if err != nil {
				return err
			}
			state, err := gov.State(cliCtx.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "proposal #%v: %s\n", id, colorState(state))
			return nil
		}

		candidates := s.migrations.Pending()
		if cliCtx.NArg() > 0 {
			m, err := s.lookup(cliCtx)
			if err != nil {
				return err
			}
			candidates = []migration.Migration{m}
		}
		for _, m := range candidates {
			r, err := s.runner(cliCtx.Context, m)
			if err != nil {
				return err
			}
			state, rec, ok, err := r.Status(cliCtx.Context, m)
			if err != nil {
				return err
			}
			if !ok {
				progress, err := s.progress(m)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%-60s %s\n", migration.ID(m), progress)
				continue
			}
			fmt.Fprintf(s.out, "%-60s #%v %s\n", migration.ID(m), rec.ProposalID, colorState(state))
			if state != governor.StateExecuted {
				continue
			}
			relays, err := r.Relays(cliCtx.Context, m, rec.ProposalID)
			if err != nil {
				return err
			}
			for _, relay := range relays {
				fmt.Fprintf(s.out, "  relay %s to %s %s\n", relay.Hash, relay.Target, colorRelay(relay.Status))
			}
		}
		return nil
	})
}

func colorState(state governor.State) string {
	switch state {
	case governor.StateExecuted:
		return enactedColor.Sprint(state)
	case governor.StateCanceled, governor.StateDefeated, governor.StateExpired:
		return failedColor.Sprint(state)
	default:
		return proposedColor.Sprint(state)
	}
}

func colorRelay(status bridge.RelayStatus) string {
	switch status {
	case bridge.RelaySucceeded:
		return enactedColor.Sprint(status)
	case bridge.RelayFailed:
		return failedColor.Sprint(status)
	default:
		return proposedColor.Sprint(status)
	}
}

func (c *commands) markets(cliCtx *cli.Context) error {
	return c.with(cliCtx, func(s *session) error {
		gov, err := s.dial(cliCtx.Context, networks.Mainnet)
		if err != nil {
			return err
		}
		dir, err := ens.NewClient(gov, ens.DefaultRegistry).Directory(cliCtx.Context, ens.DefaultName, ens.DefaultKey)
		if err != nil {
			return err
		}
		writeDirectory(s.out, s.networks, dir)
		return nil
	})
}

func writeDirectory(w io.Writer, reg *networks.Registry, dir ens.Directory) {
	names := make(map[uint64]string)
	for _, n := range reg.Networks() {
		names[n.ChainID] = n.Name
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Chain", "Network", "Base", "Comet"})
	table.SetAutoWrapText(false)
	for _, chainID := range dir.ChainIDs() {
		name, ok := names[chainID]
		if !ok {
			name = "?"
		}
		for _, e := range dir[chainID] {
			table.Append([]string{strconv.FormatUint(chainID, 10), name, e.BaseSymbol, e.CometAddress.Hex()})
		}
	}
	table.Render()
}
