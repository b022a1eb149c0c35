package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"linetally/internal/audit"
	"linetally/internal/logging"
	"linetally/internal/output"
)

func newAuditCmd(a *app) *cobra.Command {
	var strictExit bool
	cmd := &cobra.Command{
		Use:   "audit FILE...",
		Short: "Compare line kinds against a tree-sitter parse",
		Long: `Parses each file with the tree-sitter C grammar and lists the lines where
the parse disagrees with the line classifier. A line that begins inside a
block comment is always a comment line for tally, even when code follows the
closing "*/" on it; the parse calls such a line code.`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAudit(cmd, args, strictExit)
		},
	}
	cmd.Flags().BoolVar(&strictExit, "fail", false, "exit with status 1 when any file disagrees")
	return cmd
}

func (a *app) runAudit(cmd *cobra.Command, paths []string, fail bool) error {
	log := logging.Get(logging.CategoryAudit)

	reports := make([]audit.Report, 0, len(paths))
	for _, path := range paths {
		rep, err := audit.CompareFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		log.Debug("audited", zap.String("path", path), zap.Int("disagreements", len(rep.Disagreements)))
		reports = append(reports, rep)
	}

	if a.outputFormat() == output.FormatJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, rep := range reports {
			printAudit(a, rep)
		}
	}

	if fail {
		for _, rep := range reports {
			if !rep.Agrees() {
				return fmt.Errorf("%s: %d lines disagree", rep.Path, len(rep.Disagreements))
			}
		}
	}
	return nil
}

func printAudit(a *app, rep audit.Report) {
	fmt.Fprintf(a.stdout, "%s: %d lines, %d disagreements\n", rep.Path, rep.Lines, len(rep.Disagreements))
	fmt.Fprintf(a.stdout, "  classifier  blank %d  comment %d  code %d\n",
		rep.Classifier.Blank, rep.Classifier.Comment, rep.Classifier.Code)
	fmt.Fprintf(a.stdout, "  strict      blank %d  comment %d  code %d\n",
		rep.Strict.Blank, rep.Strict.Comment, rep.Strict.Code)
	for _, d := range rep.Disagreements {
		fmt.Fprintf(a.stdout, "  %5d  %-7s -> %-7s  %s\n", d.Line, d.Classifier, d.Strict, d.Text)
	}
}
