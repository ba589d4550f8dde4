// Package main provides the vaultsync CLI.
package main

import (
	"os"

	"github.com/inkwell-labs/vaultsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
