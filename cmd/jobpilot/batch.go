package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/kiranshivaraju/jobpilot/internal/automation"
	"github.com/kiranshivaraju/jobpilot/internal/batch"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply to every job matching a title, one at a time",
	Long:  "Searches the backend's job catalog for a title and applies to each result sequentially, printing progress lines and a final result table. Ctrl-C cancels the batch.",
	RunE:  runBatch,
}

var (
	batchTitle   string
	batchLimit   int
	batchApplier string
)

func init() {
	batchCmd.Flags().StringVarP(&batchTitle, "title", "t", "", "Job title to search for (required)")
	batchCmd.Flags().IntVarP(&batchLimit, "limit", "n", 10, "Maximum number of jobs to apply to")
	batchCmd.Flags().StringVar(&batchApplier, "applier", "", "Application strategy: remote, random or probe (overrides AUTOMATION_APPLIER)")

	if err := batchCmd.MarkFlagRequired("title"); err != nil {
		panic(fmt.Sprintf("failed to mark title flag as required: %v", err))
	}

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if batchApplier != "" {
		cfg.Automation.Applier = batchApplier
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := automation.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	jobs, err := client.SearchJobs(ctx, models.SearchJobsRequest{JobTitle: batchTitle, Limit: batchLimit})
	if err != nil {
		return fmt.Errorf("search jobs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintf(out, "No jobs found for %q\n", batchTitle)
		return nil
	}

	applier, err := batch.NewApplier(cfg.Automation, client)
	if err != nil {
		return fmt.Errorf("create applier: %w", err)
	}

	results, err := applyAll(ctx, jobs, applier, out)
	if err != nil {
		return err
	}
	printResults(out, jobs, results)
	return nil
}

// applyAll runs one orchestrator over jobs, streaming its log lines to out.
// Cancelling ctx cancels the batch; results recorded so far are returned.
func applyAll(ctx context.Context, jobs []models.JobSearchResult, applier batch.Applier, out io.Writer, opts ...batch.Option) (map[int64]models.ApplicationStatus, error) {
	// Cancel logs from the caller's goroutine while the loop may still be emitting.
	var mu sync.Mutex
	opts = append([]batch.Option{
		batch.WithLogger(slog.Default()),
		batch.OnLog(func(line string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(out, line)
		}),
	}, opts...)
	o := batch.New(jobs, applier, opts...)

	if err := o.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("start batch: %w", err)
	}

	select {
	case <-o.Done():
	case <-ctx.Done():
		o.Cancel()
		<-o.Done()
	}
	return o.Results(), nil
}

func printResults(w io.Writer, jobs []models.JobSearchResult, results map[int64]models.ApplicationStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tTITLE\tCOMPANY\tSTATUS")
	for _, job := range jobs {
		status := "-"
		if res, ok := results[job.ID]; ok {
			status = string(res.Status)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", job.ID, job.Title, job.Company, status)
	}
	tw.Flush()
}
