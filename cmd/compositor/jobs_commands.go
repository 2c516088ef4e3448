package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and feed the job queue",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	return jobsCmd
}

func (c *commandContext) withJobs(fn func(*database.JobRepository) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Paths.DBPath)
	if err != nil {
		return fmt.Errorf("open job database: %w", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)
	return fn(database.NewJobRepository(db))
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(repo *database.JobRepository) error {
				jobs, err := repo.GetAll()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Step", "Progress", "Title", "Size", "Queued"},
					jobRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func jobRows(jobs []models.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		size := "-"
		if job.OutputSize > 0 {
			size = humanize.Bytes(uint64(job.OutputSize))
		}
		rows = append(rows, []string{
			strconv.Itoa(job.ID),
			job.Status,
			dash(job.CurrentStep),
			fmt.Sprintf("%d%%", job.Progress),
			manifestTitle(job.Manifest),
			size,
			humanize.Time(job.QueuedAt),
		})
	}
	return rows
}

func manifestTitle(raw string) string {
	var m models.Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "-"
	}
	if m.Title != "" {
		return m.Title
	}
	return dash(m.MediaDir)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var flags manifestFlags
	var priority int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a compose job for the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := flags.manifest()
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(manifest)
			if err != nil {
				return err
			}
			return ctx.withJobs(func(repo *database.JobRepository) error {
				job := &models.Job{
					RunID:    uuid.NewString(),
					Manifest: string(encoded),
					Priority: priority,
				}
				if err := repo.Create(job); err != nil {
					return fmt.Errorf("queue job: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (run %s)\n", job.ID, job.RunID)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&priority, "priority", 0, "Higher runs first")
	return cmd
}
