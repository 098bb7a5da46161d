package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adloom/internal/logging"
)

func newAskCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the agent a one-off question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			prompt := strings.TrimSpace(strings.Join(args, " "))

			err = client.StreamAgent(cmd.Context(), prompt, func(evt logging.Event) error {
				switch evt.Type {
				case logging.EventToken:
					fmt.Fprint(out, evt.Message)
				case logging.EventStepFailed:
					return fmt.Errorf("agent error: %s", evt.Message)
				case logging.EventDone:
					fmt.Fprintln(out)
				}
				return nil
			})
			if err != nil {
				return wrapDaemonError(err)
			}
			return nil
		},
	}
}
