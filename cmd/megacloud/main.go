// MegaCloud - command-line client for the MegaCloud file storage dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/megacloud/megacloud-cli/internal/cli"
	"github.com/megacloud/megacloud-cli/internal/version"
)

// Version information, overridden by ldflags in release builds.
var (
	Version   = "v0.4.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
