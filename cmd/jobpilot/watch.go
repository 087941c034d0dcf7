package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/automation"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the backend's automation run",
	Long:  "Polls the backend for automation status and logs, printing each snapshot and every new log line until the run completes.",
	RunE:  runWatch,
}

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (overrides JOBPILOT_POLL_INTERVAL)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	interval := cfg.Backend.PollInterval
	if watchInterval > 0 {
		interval = watchInterval
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := automation.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	out := cmd.OutOrStdout()

	sub := automation.Poll(ctx, client, automation.PollConfig{
		Interval: interval,
		OnStatus: func(s models.AutomationStatus) { fmt.Fprintln(out, formatStatus(s)) },
		OnLogs:   func(logs []models.AutomationLog) { printLogs(out, logs) },
		Logger:   slog.Default(),
	})
	defer sub.Stop()

	<-sub.Done()
	return nil
}

func formatStatus(s models.AutomationStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status=%s completed=%d/%d failed=%d", s.Status, s.JobsCompleted, s.JobsTotal, s.JobsFailed)
	if s.CurrentJobTitle != nil {
		fmt.Fprintf(&b, " current=%q", *s.CurrentJobTitle)
	}
	return b.String()
}

func formatLog(l models.AutomationLog) string {
	return fmt.Sprintf("%s %-7s %s", l.Timestamp.Local().Format(time.TimeOnly), l.Type, l.Message)
}

func printLogs(w io.Writer, logs []models.AutomationLog) {
	for _, l := range logs {
		fmt.Fprintln(w, formatLog(l))
	}
}
