package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background ingest jobs",
	Long: `List all background ingest jobs of a running server or inspect a specific job by ID.

Examples:
  videorag jobs           # List all jobs
  videorag jobs abc123    # Show details for job abc123`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: remoteCommand,
	RunE:        runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// If job ID provided, show that specific job
	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	// List all jobs
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-14s %-12s %-10s %s\n", "ID", "VIDEO", "STATUS", "PROGRESS", "STARTED")
	fmt.Println("------------------------------------------------------------------------")

	for _, job := range jobs {
		progress := ""
		if job.Total > 0 {
			progress = fmt.Sprintf("%d/%d", job.Progress, job.Total)
		}
		started := job.StartedAt.Format("15:04:05")
		fmt.Printf("%-10s %-14s %-12s %-10s %s\n", truncate(job.ID, 10), job.VideoID, job.Status, progress, started)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Video: %s\n", job.VideoID)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Stage != "" {
		fmt.Printf("  Stage: %s\n", job.Stage)
	}
	if job.Total > 0 {
		fmt.Printf("  Progress: %d/%d\n", job.Progress, job.Total)
	}
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}

	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	if job.Result != nil {
		fmt.Println()
		fmt.Print(formatIngestResult(defaultTheme, job.Result))
	}

	return nil
}
