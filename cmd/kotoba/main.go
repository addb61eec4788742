// Command kotoba runs the LINE webhook relay.
//
//	kotoba serve --config kotoba.yaml
//	kotoba validate --config kotoba.yaml
//	kotoba version
//
// Without --config the configuration is read from environment variables,
// optionally loaded from a .env file first.
package main

import (
	"os"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
