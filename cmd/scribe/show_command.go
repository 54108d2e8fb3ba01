package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/fileutil"
	"scribe/internal/queue"
	"scribe/internal/transcript"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string
	var output string
	var copyOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Print a finished transcript",
		Long: "Print a finished transcript in one of: " + formatList() + ".\n" +
			"The words format is only available for jobs submitted with --granularity word.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transcript.ParseFormat(format)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := resolveJob(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if job.Status != queue.StatusCompleted {
					return fmt.Errorf("job %s is %s; transcripts exist only for completed jobs", shortID(job.ID), job.Status)
				}

				ts, err := ctx.openTranscripts(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer ts.Close()
				record, err := ts.Get(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("transcript for job %s is missing; retry the job", shortID(job.ID))
				}
				body, ok := record.Rendered().Get(f)
				if !ok {
					return fmt.Errorf("job %s has no %s transcript", shortID(job.ID), f)
				}

				out := cmd.OutOrStdout()
				switch {
				case strings.TrimSpace(output) != "":
					target, err := config.ExpandPath(output)
					if err != nil {
						return err
					}
					if err := fileutil.WriteFileAtomic(target, []byte(body), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", target, err)
					}
					fmt.Fprintf(out, "Wrote %s transcript to %s\n", f, target)
				case !copyOut:
					fmt.Fprint(out, body)
					if !strings.HasSuffix(body, "\n") {
						fmt.Fprintln(out)
					}
				}
				if copyOut {
					if err := copyToClipboard(body); err != nil {
						return fmt.Errorf("copy to clipboard: %w", err)
					}
					fmt.Fprintf(out, "Copied %s transcript to clipboard\n", f)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(transcript.FormatText), "Output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the transcript to the clipboard")
	return cmd
}

func formatList() string {
	names := make([]string, 0, len(transcript.Formats))
	for _, f := range transcript.Formats {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
