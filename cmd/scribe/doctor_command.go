package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scribe/internal/preflight"
	"scribe/internal/queue"
	"scribe/internal/scratch"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, the queue database and the STT provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
			for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind, detail := statusOK, dep.Path
				if dep.Version != "" {
					detail += " (" + dep.Version + ")"
				}
				if !dep.Available {
					kind, detail = statusError, dep.Detail
					if dep.Optional {
						kind = statusWarn
					} else {
						failed = true
					}
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
			}

			fmt.Fprintln(out, renderSectionHeader("Checks", colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out, renderSectionHeader("Storage", colorize))
			err = ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				kind := statusOK
				detail := fmt.Sprintf("%s (%d jobs)", health.DBPath, health.TotalJobs)
				if !health.IntegrityCheck {
					kind, detail = statusError, health.Error
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine("Queue database", kind, detail, colorize))
				return nil
			})
			if err != nil {
				return err
			}
			files, size, err := scratch.Usage(cfg.Paths.ScratchDir)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Scratch usage", statusWarn, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Scratch usage", statusInfo,
					fmt.Sprintf("%d files, %s", files, humanize.IBytes(uint64(size))), colorize))
			}

			if failed {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
}
