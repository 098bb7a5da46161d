package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context())
			if err != nil {
				return wrapDaemonError(err)
			}

			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:    running (pid %d, version %s)\n", status.PID, status.Version)
			fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			if status.StartedAt != "" {
				fmt.Fprintf(out, "Started:   %s\n", shortTime(status.StartedAt))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Sessions:  %d total\n", status.Sessions.Total)
			fmt.Fprintf(out, "  active:             %d\n", status.Sessions.Active)
			fmt.Fprintf(out, "  awaiting approval:  %d\n", status.Sessions.AwaitingApproval)
			fmt.Fprintf(out, "  completed:          %d\n", status.Sessions.Completed)
			fmt.Fprintf(out, "  error:              %d\n", status.Sessions.Error)
			fmt.Fprintf(out, "  cancelled:          %d\n", status.Sessions.Cancelled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
