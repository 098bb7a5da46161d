package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "start <brand context>",
		Short: "Start an agent run for a brand",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brandContext := strings.TrimSpace(strings.Join(args, " "))
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			resp, err := client.Start(cmd.Context(), userID, brandContext)
			if err != nil {
				return wrapDaemonError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Started session %s\n", resp.SessionID)
			fmt.Fprintf(out, "Follow progress with `adloom watch %s`\n", resp.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "default", "User the session belongs to")
	return cmd
}
