// Cloud Drive - terminal client for a Cloud Drive account.
package main

import (
	"os"

	"github.com/clouddrive/drive/internal/cli"
	"github.com/clouddrive/drive/internal/version"
)

// Version information, overridden with -ldflags at build time.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
