package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"picker/internal/api"
	"picker/internal/ipc"
	"picker/internal/logs"
	"picker/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
		opts   logstream.Filters
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				bind := ctx.configValue().Paths.APIBind
				if status, err := client.Status(); err == nil && strings.TrimSpace(status.APIBind) != "" {
					bind = status.APIBind
				}
				apiClient, err := logs.NewStreamClient(bind)
				if err != nil {
					return fmt.Errorf("build log client: %w", err)
				}

				out := cmd.OutOrStdout()
				printed, err := logstream.Stream(
					cmd.Context(),
					apiClient,
					client,
					logstream.Options{Lines: lines, Follow: follow, Filters: opts},
					func(evt api.LogEvent) { fmt.Fprintln(out, formatLogEvent(evt)) },
					func(line string) { fmt.Fprintln(out, line) },
				)
				if errors.Is(err, logstream.ErrFiltersRequireAPI) {
					return fmt.Errorf("%w; --lane, --batch and --component need the daemon HTTP API", err)
				}
				if err != nil {
					return err
				}
				if !printed && !follow {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&opts.Lane, "lane", "", "Only show entries for this lane")
	cmd.Flags().StringVar(&opts.BatchID, "batch", "", "Only show entries for this batch id")
	cmd.Flags().StringVar(&opts.Component, "component", "", "Only show entries from this component")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Local().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := composeSubject(evt); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " - " + message
	}
	var builder strings.Builder
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeSubject(evt api.LogEvent) string {
	var parts []string
	if lane := strings.TrimSpace(evt.Lane); lane != "" {
		parts = append(parts, laneLabel(lane)+" lane")
	}
	if batch := strings.TrimSpace(evt.BatchID); batch != "" {
		parts = append(parts, "batch "+batch)
	}
	if evt.ItemID > 0 {
		parts = append(parts, fmt.Sprintf("item #%d", evt.ItemID))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
