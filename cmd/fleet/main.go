// Command fleet is the client for fleetd: it sends one IPC request per
// subcommand to the running daemon and renders the response.
package main

import (
	"os"

	"github.com/re-cinq/fleetd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
