// SPDX-License-Identifier: MIT
package main

import (
	"hearsim/cmd"
	applog "hearsim/internal/log"
	"hearsim/pkg/build"
)

// main loads build metadata and hands off to the command line. Every
// subcommand owns its resources (PortAudio, listeners, signal handling) and
// releases them before returning.
func main() {
	build.Initialize()

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
