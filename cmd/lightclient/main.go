// Command lightclient tracks a ledger from a trusted waypoint and verifies
// inclusion proofs against the trusted roots.
//
// Usage:
//
//	lightclient [command] [flags]
//
// Commands:
//
//	init <waypoint.json>            Trust a waypoint and persist it
//	update <update>...              Verify and apply signed updates
//	status                          Print the trusted state
//	verify-tx <leaf> <proof.json>   Check an accumulator inclusion proof
//	verify-state <key> <proof.json> Check a sparse Merkle proof
//	run                             Apply updates from stdin and serve metrics
//	version                         Print version and exit
//
// Global flags:
//
//	--datadir        Data directory path (default: lightclient-data)
//	--db-backend     Store backend: leveldb, memory (default: leveldb)
//	--curve-backend  BLS12-381 backend: gnark, blst with -tags blst (default: gnark)
//	--log-level      Log level: debug, info, warn, error (default: info)
//	--log-format     Log format: text, json (default: text)
//	--max-update-age Reject updates older than this (default: 0, off)
//
// Every setting can also come from $DATADIR/config.toml or a LIGHTCLIENT_*
// environment variable.
package main

import (
	"fmt"
	"io"
	"os"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	return execute(args, os.Stdin, os.Stdout, os.Stderr)
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
