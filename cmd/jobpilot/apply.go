package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/jobpilot/internal/autoapply"
	"github.com/kiranshivaraju/jobpilot/internal/automation"
	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Auto-apply to a single job",
	Long:  "Submits one application through the backend, printing staged progress lines while the request is outstanding.",
	RunE:  runApply,
}

var (
	applyJobID  int64
	applyTitle  string
	applyName   string
	applyEmail  string
	applyPhone  string
	applyResume string
)

func init() {
	applyCmd.Flags().Int64VarP(&applyJobID, "job", "j", 0, "Job ID to apply to (required)")
	applyCmd.Flags().StringVar(&applyTitle, "title", "", "Job title shown in progress output")
	applyCmd.Flags().StringVar(&applyName, "name", "", "Candidate full name")
	applyCmd.Flags().StringVar(&applyEmail, "email", "", "Candidate email")
	applyCmd.Flags().StringVar(&applyPhone, "phone", "", "Candidate phone number")
	applyCmd.Flags().StringVar(&applyResume, "resume", "", "Path of a resume already uploaded to the backend")

	if err := applyCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	if applyJobID <= 0 {
		return fmt.Errorf("--job must be a positive job ID, got %d", applyJobID)
	}
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := automation.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	out := cmd.OutOrStdout()

	flow := autoapply.New(client, autoapply.Config{
		Candidate: candidateFromFlags(),
		OnLog:     func(line string) { fmt.Fprintln(out, line) },
		OnSuccess: func(_ int64, status models.ApplicationStatus) {
			printApplication(out, status)
		},
		Logger: slog.Default(),
	})

	job := models.JobSearchResult{ID: applyJobID, Title: applyTitle}
	if job.Title == "" {
		job.Title = fmt.Sprintf("job %d", applyJobID)
	}
	if _, err := flow.Apply(ctx, job); err != nil {
		return err
	}
	return nil
}

// candidateFromFlags returns nil when no candidate flag was given.
func candidateFromFlags() *models.CandidateData {
	c := models.CandidateData{
		FullName:   applyName,
		Email:      applyEmail,
		Phone:      applyPhone,
		ResumePath: applyResume,
	}
	if c == (models.CandidateData{}) {
		return nil
	}
	return &c
}

func printApplication(w io.Writer, s models.ApplicationStatus) {
	fmt.Fprintf(w, "application %d for job %d: %s\n", s.ID, s.JobID, s.Status)
}
