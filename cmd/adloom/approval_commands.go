package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adloom/internal/api"
)

func newApproveCommand(ctx *commandContext) *cobra.Command {
	var scriptIDs []string

	cmd := &cobra.Command{
		Use:   "approve <session-id>",
		Short: "Approve generated scripts and resume the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			selected := make([]string, 0, len(scriptIDs))
			for _, id := range scriptIDs {
				if trimmed := strings.TrimSpace(id); trimmed != "" {
					selected = append(selected, trimmed)
				}
			}

			req := api.ApprovalRequest{
				SessionID:         args[0],
				Approved:          true,
				SelectedScriptIDs: selected,
			}
			if err := client.Approve(cmd.Context(), req); err != nil {
				return wrapDaemonError(err)
			}

			out := cmd.OutOrStdout()
			if len(selected) > 0 {
				fmt.Fprintf(out, "Approved %d script(s) for session %s\n", len(selected), args[0])
			} else {
				fmt.Fprintf(out, "Approved all scripts for session %s\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&scriptIDs, "scripts", nil, "Script ids to approve (default: all)")
	return cmd
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <session-id>",
		Short: "Reject generated scripts and request regeneration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			req := api.ApprovalRequest{SessionID: args[0], Approved: false}
			if err := client.Approve(cmd.Context(), req); err != nil {
				return wrapDaemonError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rejected scripts for session %s\n", args[0])
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			if err := client.Cancel(cmd.Context(), args[0]); err != nil {
				return wrapDaemonError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled session %s\n", args[0])
			return nil
		},
	}
}
