// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

// root builds the servo-vr command tree.
func root() *Command {
	return &Command{
		Name:    "servo-vr",
		Summary: "Control and inspect the Servo VR daemon",
		Description: `Servo-vr talks to the servo-vr-service daemon over its Unix control
socket: display snapshots, daemon status, and frame trace counters.
Trace files can also be inspected offline without a running daemon.`,
		Subcommands: []*Command{
			displaysCommand(),
			statusCommand(),
			traceCommand(),
			versionCommand(),
		},
	}
}
