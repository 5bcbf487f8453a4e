// Package cli is the comet-migrator command line: it lists, prepares, enacts and
// verifies governance migrations.
package cli

import (
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/compound-finance/comet-sub008/comet-service/ctxinterrupt"
)

func NewApp(versionWithMeta string) *cli.App {
	return newApp(versionWithMeta, afero.NewOsFs())
}

func newApp(versionWithMeta string, fs afero.Fs) *cli.App {
	c := &commands{fs: fs}
	app := cli.NewApp()
	app.Version = versionWithMeta
	app.Name = "comet-migrator"
	app.Usage = "Prepares, proposes and verifies Compound III governance migrations."
	app.Flags = GlobalFlags()
	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "lists migrations and how far each has progressed",
			Action: c.list,
		},
		{
			Name:      "prepare",
			Usage:     "runs the prepare step of a migration and records its artifact",
			ArgsUsage: "<migration>",
			Flags:     []cli.Flag{ForceFlag},
			Action:    interruptible(c.prepare),
		},
		{
			Name:      "enact",
			Usage:     "builds the proposal of a prepared migration and submits or prints it",
			ArgsUsage: "<migration>",
			Flags:     []cli.Flag{TargetFlag, ForceFlag},
			Action:    interruptible(c.enact),
		},
		{
			Name:      "verify",
			Usage:     "checks on chain that a migration took effect",
			ArgsUsage: "<migration>",
			Action:    interruptible(c.verify),
		},
		{
			Name:      "run",
			Usage:     "prepares, enacts and, once executed, verifies a migration",
			ArgsUsage: "<migration>",
			Flags:     []cli.Flag{TargetFlag, ForceFlag},
			Action:    interruptible(c.run),
		},
		{
			Name:      "status",
			Usage:     "reports the governor state of proposed migrations",
			ArgsUsage: "[migration]",
			Flags:     []cli.Flag{ProposalIDFlag},
			Action:    interruptible(c.status),
		},
		{
			Name:   "markets",
			Usage:  "prints the ENS directory of official markets",
			Action: interruptible(c.markets),
		},
	}
	return app
}

func interruptible(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		ctx.Context = ctxinterrupt.WithCancelOnInterrupt(ctx.Context)
		return action(ctx)
	}
}
