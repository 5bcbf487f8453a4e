// Package verify compares enacted on-chain state with what a migration expects.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
)

// Check is a named expectation. Run returns the mismatches it found, or an error
// when the state could not be read.
type Check struct {
	Name string
	Run  func(ctx context.Context) ([]string, error)
}

type Result struct {
	Name       string
	Mismatches []string
	Err        error
}

func (r Result) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

type Report struct {
	Results []Result
}

// maxConcurrentChecks bounds the RPC reads in flight during Run.
const maxConcurrentChecks = 8

// Run executes every check, including those after a failure. Checks run
// concurrently; results keep the order the checks were given in.
func Run(ctx context.Context, lgr log.Logger, checks ...Check) *Report {
	results := make([]Result, len(checks))
	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for i, c := range checks {
		g.Go(func() error {
			mismatches, err := c.Run(ctx)
			switch {
			case err != nil:
				lgr.Error("check errored", "check", c.Name, "err", err)
			case len(mismatches) > 0:
				lgr.Error("check failed", "check", c.Name, "mismatches", strings.Join(mismatches, "; "))
			default:
				lgr.Info("check passed", "check", c.Name)
			}
			results[i] = Result{Name: c.Name, Mismatches: mismatches, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return &Report{Results: results}
}

func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Err folds every error and mismatch into one error, nil when all checks passed.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Results {
		if res.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
		for _, m := range res.Mismatches {
			result = multierror.Append(result, fmt.Errorf("%s: %s", res.Name, m))
		}
	}
	return result.ErrorOrNil()
}

func (r *Report) AsMarkdown() string {
	buf := new(bytes.Buffer)
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Check", "Result", "Detail"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")

	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			table.Append([]string{res.Name, "error", res.Err.Error()})
		case len(res.Mismatches) > 0:
			for _, m := range res.Mismatches {
				table.Append([]string{res.Name, "mismatch", m})
			}
		default:
			table.Append([]string{res.Name, "ok", ""})
		}
	}
	table.Render()
	return buf.String()
}
