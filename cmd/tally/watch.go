package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linetally/cmd/tally/ui"
	"linetally/internal/discovery"
	"linetally/internal/logging"
	"linetally/internal/processor"
	"linetally/internal/stats"
	"linetally/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Rescan whenever files change",
		Long: `Watches every directory a scan would enter and rescans after changes have
been quiet for watch.debounce. Without --plain a live view is shown; press q
to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print a fresh table on every update instead of the live view")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, roots []string, plain bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := a.discoveryOptions(roots)
	proc := a.processor()
	scan := func(ctx context.Context) (*stats.Project, processor.Summary, error) {
		files, err := discovery.Walk(ctx, opts)
		if err != nil {
			return nil, processor.Summary{}, err
		}
		return proc.Scan(ctx, files)
	}

	w, err := watch.New(watch.Options{Discovery: opts, Debounce: a.cfg.Watch.GetDebounce()}, scan)
	if err != nil {
		return err
	}
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	if plain {
		a.printUpdates(w.Updates())
	} else if err := a.runLiveView(ctx, roots, w.Updates()); err != nil {
		cancel()
		<-runErr
		return err
	}

	cancel()
	return <-runErr
}

func (a *app) printUpdates(updates <-chan watch.Update) {
	log := logging.Get(logging.CategoryWatch)
	p := a.printer()
	for u := range updates {
		if u.Scanning {
			continue
		}
		if u.Err != nil {
			log.Warn("rescan failed", zap.Error(u.Err))
			fmt.Fprintf(a.stderr, "scan failed: %v\n", u.Err)
			continue
		}
		fmt.Fprintf(a.stdout, "# %s\n", u.At.Format("2006-01-02 15:04:05"))
		if err := p.Project(a.outputFormat(), u.Project); err != nil {
			log.Warn("failed to print update", zap.Error(err))
		}
	}
}

func (a *app) runLiveView(ctx context.Context, roots []string, updates <-chan watch.Update) error {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	p := a.printer()
	model := ui.New(roots, updates, p.ProjectTable, ui.NewStyles(ui.DetectTheme()))

	prog := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(a.stdin),
		tea.WithOutput(a.stdout),
	)
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("live view failed: %w", err)
	}
	return nil
}
