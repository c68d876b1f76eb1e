package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slidesift/internal/logs"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		runID  string
		stage  string
		level  string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show records from the run log",
		Long: "Show the last records of <log_dir>/slidesift.log. Filter by run id (the\n" +
			"correlation_id printed by `slidesift run`), stage, or minimum level.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := logs.Filter{RunID: strings.TrimSpace(runID), Stage: strings.TrimSpace(stage)}
			if strings.TrimSpace(level) != "" {
				filter.MinLevel = logs.ParseLevel(level)
			} else {
				filter.MinLevel = slog.LevelDebug
			}

			path := logs.DefaultPath(cfg.Paths.LogDir)
			out := cmd.OutOrStdout()
			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			printRecords(out, result.Records, raw)
			if !follow {
				if len(result.Records) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No matching records in %s\n", path)
				}
				return nil
			}

			offset := result.Offset
			for {
				next, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Follow: true, Wait: followWait, Filter: filter})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				printRecords(out, next.Records, raw)
				offset = next.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().StringVar(&runID, "run", "", "Only records for this run id")
	cmd.Flags().StringVar(&stage, "stage", "", "Only records for this stage")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON lines")
	return cmd
}

func printRecords(w io.Writer, records []logs.Record, raw bool) {
	for _, r := range records {
		if raw {
			fmt.Fprintln(w, r.Raw)
			continue
		}
		fmt.Fprintln(w, logs.Format(r))
	}
}
