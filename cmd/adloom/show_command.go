package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"adloom/internal/api"
	"adloom/internal/session"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show details for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			sess, err := client.Session(cmd.Context(), args[0])
			if err != nil {
				return wrapDaemonError(err)
			}

			if asJSON {
				return writeJSON(cmd, sess)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:  %s\n", sess.ID)
			fmt.Fprintf(out, "User:     %s\n", sess.UserID)
			fmt.Fprintf(out, "State:    %s\n", sess.State)
			fmt.Fprintf(out, "Step:     %s\n", sess.CurrentStep)
			fmt.Fprintf(out, "Progress: %d%%\n", sess.Progress)
			fmt.Fprintf(out, "Brand:    %s\n", sess.BrandContext)
			fmt.Fprintf(out, "Created:  %s\n", shortTime(sess.CreatedAt))
			fmt.Fprintf(out, "Updated:  %s\n", shortTime(sess.UpdatedAt))
			if sess.CompletedAt != "" {
				fmt.Fprintf(out, "Finished: %s\n", shortTime(sess.CompletedAt))
			}

			renderScripts(out, sess)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type scriptSummary struct {
	ID           string `json:"id"`
	Hook         string `json:"hook"`
	CallToAction string `json:"call_to_action"`
}

// renderScripts lists generated scripts when the session is parked at the
// approval gate, so the user can pick ids for `adloom approve --scripts`.
func renderScripts(out io.Writer, sess *api.SessionView) {
	if sess.State != string(session.StateAwaitingApproval) || len(sess.Metadata) == 0 {
		return
	}
	var meta struct {
		Scripts []scriptSummary `json:"scripts"`
	}
	if err := json.Unmarshal(sess.Metadata, &meta); err != nil || len(meta.Scripts) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Scripts awaiting approval:")
	for _, script := range meta.Scripts {
		hook := strings.TrimSpace(script.Hook)
		if len(hook) > 70 {
			hook = hook[:67] + "..."
		}
		fmt.Fprintf(out, "  %-14s %s\n", script.ID, hook)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Approve with `adloom approve %s` or reject with `adloom reject %s`\n", sess.ID, sess.ID)
}
