// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/WhiteSymmetry/servo/trace"
)

// traceCommand returns the "trace" command group.
func traceCommand() *Command {
	return &Command{
		Name:    "trace",
		Summary: "Inspect frame traces",
		Description: `Inspect frame traces: the daemon's live recorder counters, or a
recorded trace file offline.`,
		Subcommands: []*Command{
			traceStatusCommand(),
			traceInfoCommand(),
		},
	}
}

// traceStatusParams holds the flags for the trace status command.
type traceStatusParams struct {
	Socket     string
	OutputJSON bool
}

// traceStatusCommand returns the "trace status" subcommand.
func traceStatusCommand() *Command {
	var params traceStatusParams

	return &Command{
		Name:    "status",
		Summary: "Recorder counters from the daemon",
		Description: `Report the daemon's frame recorder: whether one is attached, the
output file, and the captured sample, chunk, and byte counters.`,
		Usage: "servo-vr trace status [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flags.StringVar(&params.Socket, "socket", "", "daemon control socket path")
			flags.BoolVar(&params.OutputJSON, "json", false, "output as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trace status takes no positional arguments")
			}

			client, err := connect(params.Socket)
			if err != nil {
				return err
			}

			var response struct {
				Enabled bool   `cbor:"enabled"`
				Output  string `cbor:"output"`
				Samples uint64 `cbor:"samples"`
				Chunks  uint64 `cbor:"chunks"`
				Bytes   uint64 `cbor:"bytes"`
			}
			if err := client.Call(context.Background(), "trace-status", nil, &response); err != nil {
				return err
			}

			if params.OutputJSON {
				out := map[string]any{
					"enabled": response.Enabled,
					"output":  response.Output,
					"samples": response.Samples,
					"chunks":  response.Chunks,
					"bytes":   response.Bytes,
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			if !response.Enabled {
				fmt.Fprintln(os.Stdout, "tracing disabled")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "output\t%s\n", response.Output)
			fmt.Fprintf(writer, "samples\t%d\n", response.Samples)
			fmt.Fprintf(writer, "chunks\t%d\n", response.Chunks)
			fmt.Fprintf(writer, "bytes\t%d\n", response.Bytes)
			return writer.Flush()
		},
	}
}

// traceInfoParams holds the flags for the trace info command.
type traceInfoParams struct {
	OutputJSON bool
}

// traceInfoCommand returns the "trace info" subcommand.
func traceInfoCommand() *Command {
	var params traceInfoParams

	return &Command{
		Name:    "info",
		Summary: "Summarize a recorded trace file",
		Description: `Read a trace file and summarize it: the recorded displays, the
sample counts per display, and the capture time span. Chunk digests
are verified while reading, so a corrupted file fails here.`,
		Usage: "servo-vr trace info [flags] <file>",
		Examples: []Example{
			{
				Description: "Summarize a capture",
				Command:     "servo-vr trace info captures/session.svt",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flags.BoolVar(&params.OutputJSON, "json", false, "output as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 positional argument, got %d\n\nusage: servo-vr trace info [flags] <file>", len(args))
			}

			recording, err := trace.ReadFile(args[0])
			if err != nil {
				return err
			}

			perDisplay := make(map[uint32]int)
			var firstMillis, lastMillis int64
			for i, sample := range recording.Samples {
				perDisplay[sample.Display]++
				if i == 0 || sample.CapturedAt < firstMillis {
					firstMillis = sample.CapturedAt
				}
				if sample.CapturedAt > lastMillis {
					lastMillis = sample.CapturedAt
				}
			}
			span := time.Duration(lastMillis-firstMillis) * time.Millisecond

			if params.OutputJSON {
				type displaySamples struct {
					Display uint32 `json:"display"`
					Name    string `json:"name,omitempty"`
					Samples int    `json:"samples"`
				}
				counts := make([]displaySamples, 0, len(perDisplay))
				for display, count := range perDisplay {
					counts = append(counts, displaySamples{
						Display: display,
						Name:    displayName(recording, display),
						Samples: count,
					})
				}
				sort.Slice(counts, func(i, j int) bool { return counts[i].Display < counts[j].Display })

				out := map[string]any{
					"file":         args[0],
					"displays":     len(recording.Descriptors),
					"samples":      len(recording.Samples),
					"span_seconds": span.Seconds(),
					"per_display":  counts,
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "file\t%s\n", args[0])
			fmt.Fprintf(writer, "displays\t%d\n", len(recording.Descriptors))
			fmt.Fprintf(writer, "samples\t%d\n", len(recording.Samples))
			fmt.Fprintf(writer, "span\t%s\n", span.Round(time.Millisecond))
			displays := make([]uint32, 0, len(perDisplay))
			for display := range perDisplay {
				displays = append(displays, display)
			}
			sort.Slice(displays, func(i, j int) bool { return displays[i] < displays[j] })
			for _, display := range displays {
				name := displayName(recording, display)
				if name == "" {
					name = "(unknown display)"
				}
				fmt.Fprintf(writer, "display %d\t%s\t%d samples\n", display, name, perDisplay[display])
			}
			return writer.Flush()
		},
	}
}

// displayName resolves a display ID against the recording's
// descriptors. Empty when the trace has no descriptor for it.
func displayName(recording *trace.Recording, display uint32) string {
	for _, descriptor := range recording.Descriptors {
		if descriptor.DisplayID == display {
			return descriptor.DisplayName
		}
	}
	return ""
}
