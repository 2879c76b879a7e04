package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"picker/internal/api"
	"picker/internal/daemonctl"
)

const (
	stopGracePeriod  = 5 * time.Second
	startWaitTimeout = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the picker daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.configValue(), exe, daemonLaunchOptions(ctx), startWaitTimeout)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the picker daemon; pending operations are discarded",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the picker daemon with a fresh universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(ctx.configValue(), exe, daemonLaunchOptions(ctx), stopGracePeriod, startWaitTimeout)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, item and lane status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := daemonctl.BuildStatusSnapshot(ctx.configValue())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func renderStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Picker", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		fmt.Fprintln(out, renderStatusLine("HTTP API", apiKind(status.APIBind), dash(status.APIBind), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Picker", statusWarn, "Not running (run `picker start`)", colorize))
	}
	journal := "Disabled"
	journalKind := statusInfo
	if status.JournalEnabled {
		journal = status.JournalPath
		journalKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Journal", journalKind, journal, colorize))
	if status.LogPath != "" {
		fmt.Fprintln(out, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	for _, dir := range status.Directories {
		kind := statusOK
		if !dir.Ready {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(dir.Name, kind, dir.Detail, colorize))
	}
	fmt.Fprintln(out)

	if !status.Running {
		return
	}

	for _, line := range renderSectionHeader("Items", colorize) {
		fmt.Fprintln(out, line)
	}
	items := status.Workflow.Items
	fmt.Fprint(out, renderTable(
		[]string{"Universe", "Selected", "Available"},
		[][]string{{formatCount(items.Universe), formatCount(items.Selected), formatCount(items.Available)}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Lanes", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := make([][]string, 0, len(status.Workflow.Lanes))
	for _, lane := range status.Workflow.Lanes {
		last := "-"
		if lane.LastBatch != nil {
			last = fmt.Sprintf("%d ops, %d skipped at %s", lane.LastBatch.Size, lane.LastBatch.Skipped, formatTimestamp(lane.LastBatch.FlushedAt))
		}
		rows = append(rows, []string{laneLabel(lane.Name), lane.Interval, formatCount(lane.Pending), last})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Lane", "Window", "Pending", "Last Batch"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
}

func apiKind(bind string) statusKind {
	if bind == "" {
		return statusInfo
	}
	return statusOK
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		SocketPath: ctx.socketOverride(),
		ConfigPath: ctx.configPath(),
	}
}
