package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/language"
	"scribe/internal/queue"
	"scribe/internal/storage"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show one job, or queue totals when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					if jsonOut {
						health, err := store.Health(cmd.Context())
						if err != nil {
							return err
						}
						return writeJSON(out, health)
					}
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderStatsTable(stats))
					return nil
				}
				job, err := resolveJob(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(out, newJobView(job))
				}
				printJob(out, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func printJob(out io.Writer, job *queue.Job) {
	fmt.Fprintf(out, "Job:         %s\n", job.ID)
	fmt.Fprintf(out, "Owner:       %s\n", job.OwnerID)
	fmt.Fprintf(out, "Source:      %s (%s)\n", job.SourceName, job.MediaType)
	fmt.Fprintf(out, "Status:      %s\n", job.Status)
	fmt.Fprintf(out, "Progress:    %.1f%% %s\n", job.ProgressPercent, job.ProgressStage)
	if job.ProgressMessage != "" {
		fmt.Fprintf(out, "Message:     %s\n", job.ProgressMessage)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
	}
	fmt.Fprintf(out, "Language:    %s (%s)\n", job.Language, language.DisplayName(job.Language))
	fmt.Fprintf(out, "Granularity: %s\n", job.Granularity)
	if job.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration:    %.1fs\n", job.DurationSeconds)
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]queue.Status, 0, len(statuses))
			for _, raw := range statuses {
				status, err := queue.ParseStatus(raw)
				if err != nil {
					return err
				}
				filter = append(filter, status)
			}
			return ctx.withStore(func(store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					views := make([]jobView, 0, len(jobs))
					for _, job := range jobs {
						views = append(views, newJobView(job))
					}
					return writeJSON(out, views)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				fmt.Fprintln(out, renderJobTable(jobs))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Re-queue failed jobs from the beginning",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("pass job ids or --all")
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if all {
					count, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Re-queued %d failed jobs\n", count)
					return nil
				}
				for _, ref := range args {
					job, err := resolveJob(cmd.Context(), store, ref)
					if err != nil {
						return err
					}
					if job.Status != queue.StatusFailed {
						fmt.Fprintf(out, "Job %s is %s; only failed jobs can be retried\n", shortID(job.ID), job.Status)
						continue
					}
					if _, err := store.RetryFailed(cmd.Context(), job.ID); err != nil {
						return err
					}
					fmt.Fprintf(out, "Job %s re-queued\n", shortID(job.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Retry every failed job")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id...>",
		Short: "Delete jobs with their uploads, audio and transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := storage.NewFSStore(cfg.Paths.StorageDir)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				ts, err := ctx.openTranscripts(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer ts.Close()

				out := cmd.OutOrStdout()
				for _, ref := range args {
					job, err := resolveJob(cmd.Context(), store, ref)
					if err != nil {
						return err
					}
					removed, err := store.Remove(cmd.Context(), job.ID)
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(out, "Job %s is processing; stop the worker or wait before removing it\n", shortID(job.ID))
						continue
					}
					if err := ts.Delete(cmd.Context(), job.ID); err != nil {
						return fmt.Errorf("delete transcript for %s: %w", job.ID, err)
					}
					if err := files.DeletePrefix(cmd.Context(), storage.JobKey(job.OwnerID, job.ID)); err != nil {
						return err
					}
					fmt.Fprintf(out, "Job %s removed (%s)\n", shortID(job.ID), strings.TrimSpace(job.SourceName))
				}
				return nil
			})
		},
	}
}
