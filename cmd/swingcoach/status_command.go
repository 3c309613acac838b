package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"swingcoach/internal/api"
	"swingcoach/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if apiclient.IsAPIUnavailable(err) {
				if jsonOut {
					return writeJSON(cmd, api.DaemonStatus{})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon: not running (%s)\n", ctx.apiAddress())
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(cmd.OutOrStdout(), status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func renderStatus(out io.Writer, status api.DaemonStatus) string {
	var b strings.Builder
	colorize := shouldColorize(out)

	writeSection(&b, colorize, "Daemon")
	fmt.Fprintf(&b, "  Running:  %s (pid %d)\n", yesNo(status.Running), status.PID)
	fmt.Fprintf(&b, "  Mode:     %s\n", status.AnalysisMode)
	fmt.Fprintf(&b, "  Model:    %s\n", status.Model)
	fmt.Fprintf(&b, "  Database: %s\n", status.DatabasePath)
	fmt.Fprintf(&b, "  Metrics:  %s\n", yesNo(status.MetricsActive))

	b.WriteString("\n")
	writeSection(&b, colorize, "Pipeline")
	fmt.Fprintf(&b, "  Runs in flight: %d of %d\n", len(status.Runner.InFlight), status.Runner.Capacity)
	if status.Runner.LastError != "" {
		fmt.Fprintf(&b, "  Last error:     %s\n", status.Runner.LastError)
	}
	statuses := make([]string, 0, len(status.StatusCounts))
	for name := range status.StatusCounts {
		statuses = append(statuses, name)
	}
	sort.Strings(statuses)
	for _, name := range statuses {
		fmt.Fprintf(&b, "  %-14s  %d\n", name+":", status.StatusCounts[name])
	}

	if len(status.Dependencies) > 0 {
		b.WriteString("\n")
		rows := make([][]string, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			state := "ok"
			switch {
			case !dep.Available && dep.Optional:
				state = "missing (optional)"
			case !dep.Available:
				state = "missing"
			}
			rows = append(rows, []string{dep.Name, dep.Command, state, dep.Detail})
		}
		b.WriteString(renderTable(out, []column{
			{header: "Dependency"},
			{header: "Command"},
			{header: "State"},
			{header: "Detail"},
		}, rows))
		b.WriteString("\n")
	}
	return b.String()
}
