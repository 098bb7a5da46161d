package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"adloom/internal/logging"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream live progress for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			err = client.FollowEvents(cmd.Context(), args[0], func(evt logging.Event) error {
				fmt.Fprintln(out, renderEventLine(evt, colorize))
				return nil
			})
			if err != nil {
				return wrapDaemonError(err)
			}
			return nil
		},
	}
}

func renderEventLine(evt logging.Event, colorize bool) string {
	label := evt.Step
	if label == "" {
		label = "session"
	}
	line := fmt.Sprintf("%s  %-20s %s", evt.Timestamp.Local().Format("15:04:05"), label, evt.Message)
	if !colorize {
		return line
	}
	switch evt.Type {
	case logging.EventStepCompleted, logging.EventDone:
		return ansiGreen + line + ansiReset
	case logging.EventStepFailed:
		return ansiRed + line + ansiReset
	case logging.EventSessionUpdated:
		return ansiYellow + line + ansiReset
	default:
		return ansiBlue + line + ansiReset
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
