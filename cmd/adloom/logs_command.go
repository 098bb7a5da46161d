package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "logs <session-id>",
		Short: "Show the execution log for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			entries, err := client.Logs(cmd.Context(), args[0])
			if err != nil {
				return wrapDaemonError(err)
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No log entries yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.ErrorMessage
				if detail == "" {
					detail = entry.ToolName
				}
				rows = append(rows, []string{
					shortTime(entry.CreatedAt),
					entry.StepName,
					entry.Status,
					strconv.FormatInt(entry.DurationMS, 10) + "ms",
					detail,
				})
			}
			headers := []string{"TIME", "STEP", "STATUS", "DURATION", "DETAIL"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
