// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
)

// statusParams holds the flags for the status command.
type statusParams struct {
	Socket     string
	OutputJSON bool
}

// statusCommand returns the "status" command.
func statusCommand() *Command {
	var params statusParams

	return &Command{
		Name:    "status",
		Summary: "Daemon uptime, clients, and presenting sessions",
		Description: `Report the daemon's uptime, how many displays and VR clients it
serves, whether a trace recorder is attached, and the presenting
compositor sessions with their frame counts.`,
		Usage: "servo-vr status [flags]",
		Examples: []Example{
			{
				Description: "Daemon status",
				Command:     "servo-vr status",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flags.StringVar(&params.Socket, "socket", "", "daemon control socket path")
			flags.BoolVar(&params.OutputJSON, "json", false, "output as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("status takes no positional arguments")
			}

			client, err := connect(params.Socket)
			if err != nil {
				return err
			}

			var response struct {
				UptimeSeconds float64 `cbor:"uptime_seconds"`
				Displays      int     `cbor:"displays"`
				Clients       int64   `cbor:"clients"`
				Presenting    []struct {
					Session uint32 `cbor:"session"`
					Frames  uint64 `cbor:"frames"`
				} `cbor:"presenting"`
				Tracing bool `cbor:"tracing"`
			}
			if err := client.Call(context.Background(), "status", nil, &response); err != nil {
				return err
			}

			if params.OutputJSON {
				type sessionEntry struct {
					Session uint32 `json:"session"`
					Frames  uint64 `json:"frames"`
				}
				sessions := make([]sessionEntry, 0, len(response.Presenting))
				for _, session := range response.Presenting {
					sessions = append(sessions, sessionEntry{
						Session: session.Session,
						Frames:  session.Frames,
					})
				}
				out := map[string]any{
					"uptime_seconds": response.UptimeSeconds,
					"displays":       response.Displays,
					"clients":        response.Clients,
					"presenting":     sessions,
					"tracing":        response.Tracing,
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			uptime := time.Duration(response.UptimeSeconds * float64(time.Second)).Round(time.Second)
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "uptime\t%s\n", uptime)
			fmt.Fprintf(writer, "displays\t%d\n", response.Displays)
			fmt.Fprintf(writer, "clients\t%d\n", response.Clients)
			fmt.Fprintf(writer, "tracing\t%t\n", response.Tracing)
			if len(response.Presenting) == 0 {
				fmt.Fprintf(writer, "presenting\tnone\n")
			}
			for _, session := range response.Presenting {
				fmt.Fprintf(writer, "session %d\t%d frames\n", session.Session, session.Frames)
			}
			return writer.Flush()
		},
	}
}
