// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/WhiteSymmetry/servo/vr"
)

// displaysParams holds the flags for the displays command.
type displaysParams struct {
	Socket     string
	OutputJSON bool
}

// displaysCommand returns the "displays" command.
func displaysCommand() *Command {
	var params displaysParams

	return &Command{
		Name:    "displays",
		Summary: "List the daemon's display snapshots",
		Description: `List every display the device service knows: ID, name, connection
state, presentation capability, and per-eye render target size.`,
		Usage: "servo-vr displays [flags]",
		Examples: []Example{
			{
				Description: "List displays",
				Command:     "servo-vr displays",
			},
			{
				Description: "List displays as JSON",
				Command:     "servo-vr displays --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("displays", pflag.ContinueOnError)
			flags.StringVar(&params.Socket, "socket", "", "daemon control socket path")
			flags.BoolVar(&params.OutputJSON, "json", false, "output as JSON instead of a table")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("displays takes no positional arguments")
			}

			client, err := connect(params.Socket)
			if err != nil {
				return err
			}

			var response struct {
				Displays []vr.DisplayData `cbor:"displays"`
			}
			if err := client.Call(context.Background(), "list-displays", nil, &response); err != nil {
				return err
			}

			type displayEntry struct {
				ID           uint32 `json:"id"`
				Name         string `json:"name"`
				Connected    bool   `json:"connected"`
				CanPresent   bool   `json:"can_present"`
				RenderWidth  uint32 `json:"render_width"`
				RenderHeight uint32 `json:"render_height"`
			}

			entries := make([]displayEntry, 0, len(response.Displays))
			for _, data := range response.Displays {
				entries = append(entries, displayEntry{
					ID:           data.DisplayID,
					Name:         data.DisplayName,
					Connected:    data.Connected,
					CanPresent:   data.Capabilities.CanPresent,
					RenderWidth:  data.LeftEyeParameters.RenderWidth,
					RenderHeight: data.LeftEyeParameters.RenderHeight,
				})
			}

			if params.OutputJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			if len(entries) == 0 {
				fmt.Fprintln(os.Stderr, "no displays")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "ID\tNAME\tCONNECTED\tPRESENTS\tEYE RENDER\n")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%d\t%s\t%t\t%t\t%dx%d\n",
					entry.ID, entry.Name, entry.Connected, entry.CanPresent,
					entry.RenderWidth, entry.RenderHeight)
			}
			return writer.Flush()
		},
	}
}
