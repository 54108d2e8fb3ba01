package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/storage"
)

const submitPollInterval = time.Second

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var lang string
	var granularity string
	var mediaType string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a recording and queue it for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("inspect %q: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}

			params, err := buildSubmitParams(path, owner, lang, granularity, mediaType)
			if err != nil {
				return err
			}
			files, err := storage.NewFSStore(cfg.Paths.StorageDir)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				job, err := submitFile(cmd.Context(), store, files, path, params)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s (%s, %s)\n", job.ID, job.SourceName, job.MediaType)
				if !wait {
					return nil
				}
				return waitForJob(cmd.Context(), out, store, job.ID, submitPollInterval)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", defaultOwner(), "Owner namespace for the upload")
	cmd.Flags().StringVarP(&lang, "language", "l", "auto", "Spoken language: auto or an ISO 639-1 code")
	cmd.Flags().StringVarP(&granularity, "granularity", "g", string(queue.GranularitySegment), "Timestamp granularity: segment or word")
	cmd.Flags().StringVarP(&mediaType, "type", "t", "", "Media type: audio or video (default: from extension)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and print progress")
	return cmd
}

func buildSubmitParams(path, owner, lang, granularity, mediaType string) (queue.NewJobParams, error) {
	name := filepath.Base(path)
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return queue.NewJobParams{}, fmt.Errorf("--owner is required")
	}

	mt, err := resolveMediaType(name, mediaType)
	if err != nil {
		return queue.NewJobParams{}, err
	}
	if err := pipeline.CheckExtension(name, mt); err != nil {
		return queue.NewJobParams{}, err
	}
	gran, err := queue.ParseGranularity(granularity)
	if err != nil {
		return queue.NewJobParams{}, err
	}
	code, err := language.Normalize(lang)
	if err != nil {
		return queue.NewJobParams{}, err
	}
	return queue.NewJobParams{
		OwnerID:     owner,
		SourceName:  name,
		MediaType:   mt,
		Language:    code,
		Granularity: gran,
	}, nil
}

// resolveMediaType honours an explicit type, otherwise picks the first media
// type whose extension list contains the file's extension.
func resolveMediaType(name, explicit string) (queue.MediaType, error) {
	if strings.TrimSpace(explicit) != "" {
		return queue.ParseMediaType(explicit)
	}
	for _, mt := range []queue.MediaType{queue.MediaAudio, queue.MediaVideo} {
		if pipeline.CheckExtension(name, mt) == nil {
			return mt, nil
		}
	}
	return "", fmt.Errorf("cannot infer media type of %q; pass --type audio or --type video", name)
}

// submitFile copies path into the job's upload namespace and inserts the job.
// The upload is removed again when the insert fails.
func submitFile(ctx context.Context, store *queue.Store, files *storage.FSStore, path string, params queue.NewJobParams) (*queue.Job, error) {
	params.ID = uuid.NewString()
	params.SourceKey = storage.UploadKey(params.OwnerID, params.ID, params.SourceName)
	if err := files.ImportFile(ctx, params.SourceKey, path); err != nil {
		return nil, fmt.Errorf("upload %s: %w", params.SourceName, err)
	}
	job, err := store.NewJob(ctx, params)
	if err != nil {
		_ = files.DeletePrefix(ctx, storage.JobKey(params.OwnerID, params.ID))
		return nil, err
	}
	return job, nil
}

// waitForJob polls until the job is terminal, printing progress whenever the
// label changes or the percentage crosses a 5% bucket.
func waitForJob(ctx context.Context, out io.Writer, store *queue.Store, id string, interval time.Duration) error {
	sampler := logging.NewProgressSampler(5)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s disappeared while waiting", id)
		}
		if sampler.ShouldLog(job.ProgressPercent, job.ProgressStage) {
			fmt.Fprintf(out, "%5.1f%%  %s  %s\n", job.ProgressPercent, job.ProgressStage, job.ProgressMessage)
		}
		switch job.Status {
		case queue.StatusCompleted:
			fmt.Fprintf(out, "Transcript ready; view it with: scribe show %s\n", shortID(job.ID))
			return nil
		case queue.StatusFailed:
			return fmt.Errorf("%w: %s", errJobFailed, job.ErrorMessage)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func defaultOwner() string {
	if u, err := user.Current(); err == nil && strings.TrimSpace(u.Username) != "" {
		return u.Username
	}
	return "local"
}
