// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/WhiteSymmetry/servo/lib/version"
)

// versionCommand returns the "version" command.
func versionCommand() *Command {
	return &Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "servo-vr version",
		Run: func(args []string) error {
			fmt.Printf("servo-vr %s\n", version.Full())
			return nil
		},
	}
}
