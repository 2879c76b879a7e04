package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"picker/internal/ipc"
)

func newDebugCommand(ctx *commandContext) *cobra.Command {
	debugCmd := &cobra.Command{
		Use:    "debug",
		Short:  "Daemon diagnostics",
		Hidden: true,
	}

	debugCmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Dump daemon status, pending operations and effective config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DebugState()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(resp.Dump, "\n"))
				return nil
			})
		},
	})
	return debugCmd
}
