package main

import (
	"time"

	"github.com/spf13/cobra"

	"linetally/internal/history"
	"linetally/internal/output"
)

type historyFlags struct {
	since  string
	until  string
	last   int
	weekly bool
	author string
	limit  int
}

func newHistoryCmd(a *app) *cobra.Command {
	var f historyFlags
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "Summarize code added and removed per day from git history",
		Long: `Walks the git log of the repository containing dir (default ".") and
classifies every added and removed line of recognised source files.

Dates are YYYY-MM-DD (UTC) or RFC3339; --until includes the whole day.`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runHistory(cmd, dir, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.since, "since", "", "only commits on or after this date")
	fl.StringVar(&f.until, "until", "", "only commits on or before this date")
	fl.IntVar(&f.last, "last", 0, "only commits from the last N days")
	fl.BoolVarP(&f.weekly, "by-week", "w", false, "group by ISO week instead of day")
	fl.StringVar(&f.author, "author", "", "only commits whose author matches")
	fl.IntVarP(&f.limit, "limit", "n", 0, "rows shown in the table (default from config)")
	return cmd
}

// maxArgs is cobra.MaximumNArgs reported as a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.MaximumNArgs(n)(cmd, args))
	}
}

func (a *app) runHistory(cmd *cobra.Command, dir string, f historyFlags) error {
	since, until, err := history.Range(f.since, f.until, f.last, time.Now().UTC())
	if err != nil {
		return usageError(err)
	}

	h, err := history.Analyze(cmd.Context(), dir, history.Options{
		Since:    since,
		Until:    until,
		Author:   f.author,
		Detector: a.detector,
	})
	if err != nil {
		return err
	}

	limit := f.limit
	if !cmd.Flags().Changed("limit") {
		limit = a.cfg.History.DayLimit
		if f.weekly {
			limit = a.cfg.History.WeekLimit
		}
	}
	return a.printer().History(a.outputFormat(), h, output.HistoryOptions{Weekly: f.weekly, Limit: limit})
}
