// Command finwatchctl runs engine maintenance from the shell: sweeps, ledger
// and budget recomputation, alert inspection and summaries.
package main

import (
	"os"

	"finwatch/internal/cli"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	if err := execute(newRootCmd(openFromEnv)); err != nil {
		os.Exit(1)
	}
}
