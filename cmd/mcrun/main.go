// Command mcrun runs Metropolis Monte Carlo simulations of the Ising model and
// manages their checkpoints.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
