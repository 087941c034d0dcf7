package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/kiranshivaraju/jobpilot/internal/automation"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <cv-file>",
	Short: "Score the job catalog against a CV",
	Long:  "Sends a .pdf or .docx CV to the backend, which finds the skills it mentions and ranks catalog jobs against them. The CV is not stored.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// cvAnalyzer is the client call the analyze command makes.
type cvAnalyzer interface {
	AnalyzeCV(ctx context.Context, filename string, content io.Reader) (*models.AnalyzeCVResponse, error)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := automation.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	return analyzeFile(ctx, client, args[0], cmd.OutOrStdout())
}

func analyzeFile(ctx context.Context, a cvAnalyzer, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cv: %w", err)
	}
	defer f.Close()

	res, err := a.AnalyzeCV(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("analyze cv: %w", err)
	}
	printMatches(out, res)
	return nil
}

func printMatches(w io.Writer, res *models.AnalyzeCVResponse) {
	if len(res.Skills) == 0 {
		fmt.Fprintln(w, "No known skills found in the CV")
		return
	}
	fmt.Fprintf(w, "Skills: %v\n", res.Skills)
	if len(res.JobMatches) == 0 {
		fmt.Fprintln(w, "No matching jobs")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tSCORE")
	for _, m := range res.JobMatches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d%%\n", m.ID, m.Title, m.Company, m.MatchScore)
	}
	tw.Flush()
}
