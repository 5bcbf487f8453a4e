package main

import (
	"fmt"
	"os"

	cservice "github.com/compound-finance/comet-sub008/comet-service"

	"github.com/compound-finance/comet-sub008/comet-migrator/pkg/cli"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

// VersionWithMeta holds the textual version string including the metadata.
var VersionWithMeta = cservice.FormatVersion(Version, GitCommit, GitDate, cservice.Meta)

func main() {
	app := cli.NewApp(VersionWithMeta)
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}
