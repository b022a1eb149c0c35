package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linetally/internal/config"
	"linetally/internal/discovery"
	"linetally/internal/language"
	"linetally/internal/logging"
	"linetally/internal/output"
	"linetally/internal/processor"
	"linetally/internal/stats"
	"linetally/internal/store"
)

// app holds flag values and the resolved configuration for one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath   string
	verbose      bool
	jobs         int
	hidden       bool
	noGitignore  bool
	exclude      []string
	maxFileBytes int64
	format       string
	color        string
	dbPath       string

	record bool
	label  string

	cfg      *config.Config
	detector *language.Detector
	log      *zap.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "tally [paths...]",
		Short: "Count blank, comment and code lines",
		Long: `tally classifies every line of C-family source files as blank, comment
or code and prints per-language totals.

Comments follow C rules: "//" line comments and "/* */" block comments that
do not nest. Directories are walked recursively, honoring .gitignore.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: a.runCount,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.IntVarP(&a.jobs, "jobs", "j", 0, "parallel workers (0 = one per CPU)")
	pf.BoolVarP(&a.hidden, "hidden", "H", false, "include hidden files and directories")
	pf.BoolVar(&a.noGitignore, "no-gitignore", false, "do not honor .gitignore files")
	pf.StringSliceVarP(&a.exclude, "exclude", "e", nil, "exclude paths matching a doublestar pattern (repeatable)")
	pf.Int64Var(&a.maxFileBytes, "max-file-bytes", 0, "skip files larger than this (0 = unlimited)")
	pf.StringVarP(&a.format, "format", "f", "", "output format: table, json, csv, markdown")
	pf.StringVar(&a.color, "color", "", "color output: auto, always, never")
	pf.StringVar(&a.dbPath, "db", "", "snapshot database path")

	root.Flags().BoolVar(&a.record, "record", false, "record the result as a snapshot")
	root.Flags().StringVar(&a.label, "label", "", "label for the recorded snapshot")

	root.AddCommand(
		newClassifyCmd(a),
		newHistoryCmd(a),
		newAuditCmd(a),
		newWatchCmd(a),
		newSnapshotsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, applies explicit flags on top of it and
// installs the logger. Precedence: defaults < file < env < flags.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return usageError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Jobs = a.jobs
	}
	if flags.Changed("hidden") {
		cfg.Hidden = a.hidden
	}
	if flags.Changed("no-gitignore") {
		cfg.Gitignore = !a.noGitignore
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, a.exclude...)
	}
	if flags.Changed("max-file-bytes") {
		cfg.MaxFileBytes = a.maxFileBytes
	}
	if flags.Changed("format") {
		f, err := output.ParseFormat(a.format)
		if err != nil {
			return usageError(err)
		}
		cfg.Format = string(f)
	}
	if flags.Changed("color") {
		cfg.Color = a.color
	}
	if flags.Changed("db") {
		cfg.Store.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}
	a.cfg = cfg

	logger, err := logging.Build(cfg.Logging, a.verbose)
	if err != nil {
		return usageError(err)
	}
	logging.Init(logger)
	a.log = logging.Get(logging.CategoryConfig)
	a.log.Debug("configuration loaded",
		zap.String("path", a.configPath),
		zap.Int("jobs", cfg.GetJobs()),
		zap.String("format", cfg.Format))

	a.detector = language.NewDetector()
	if err := a.detector.Configure(cfg.Languages.Extensions, cfg.Languages.Overrides); err != nil {
		return usageError(err)
	}
	return nil
}

func (a *app) printer() *output.Printer {
	return output.NewPrinter(a.stdout, output.ColorMode(a.cfg.Color))
}

func (a *app) outputFormat() output.Format {
	return output.Format(a.cfg.Format)
}

func (a *app) discoveryOptions(roots []string) discovery.Options {
	return discovery.Options{
		Roots:        roots,
		Hidden:       a.cfg.Hidden,
		UseGitignore: a.cfg.Gitignore,
		SkipDirs:     a.cfg.SkipDirs,
		Exclude:      a.cfg.Exclude,
	}
}

func (a *app) processor() *processor.Processor {
	return processor.New(a.detector, processor.Options{
		Jobs:         a.cfg.GetJobs(),
		MaxFileBytes: a.cfg.MaxFileBytes,
	})
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Store.Path)
}

// recordRoot names the tree a snapshot belongs to: the absolute path of a
// single root, or of the working directory otherwise.
func recordRoot(roots []string) string {
	root := "."
	if len(roots) == 1 {
		root = roots[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}

func (a *app) runCount(cmd *cobra.Command, args []string) error {
	if !a.record && cmd.Flags().Changed("label") {
		return usageError(fmt.Errorf("--label requires --record"))
	}
	ctx := cmd.Context()

	files, err := discovery.Walk(ctx, a.discoveryOptions(args))
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryScan).Debug("files discovered", zap.Int("count", len(files)))

	project, summary, err := a.processor().Scan(ctx, files)
	if err != nil {
		return err
	}
	if summary.Skipped > 0 {
		logging.Get(logging.CategoryScan).Info("files skipped",
			zap.Int("skipped", summary.Skipped), zap.Int("processed", summary.Processed))
	}

	if err := a.printer().Project(a.outputFormat(), project); err != nil {
		return err
	}

	if a.record {
		return a.recordSnapshot(cmd, recordRoot(args), project)
	}
	return nil
}

func (a *app) recordSnapshot(cmd *cobra.Command, root string, project *stats.Project) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	snap, err := s.RecordLabeled(cmd.Context(), root, a.label, project)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "recorded snapshot %s\n", snap.ID)
	return nil
}
