package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"linetally/internal/classifier"
	"linetally/internal/output"
	"linetally/internal/stats"
)

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify FILE|-",
		Short: "Print the kind of every line of one file",
		Long: `Prints each line of FILE (or standard input for "-") with its number and
kind, followed by the blank, comment and code counts.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClassify(cmd, args[0])
		},
	}
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.ExactArgs(n)(cmd, args))
	}
}

// minArgs is cobra.MinimumNArgs reported as a usage error.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.MinimumNArgs(n)(cmd, args))
	}
}

type classifiedLine struct {
	Line int                 `json:"line"`
	Kind classifier.LineKind `json:"kind"`
	Text string              `json:"text"`
}

func (a *app) runClassify(cmd *cobra.Command, path string) error {
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	lines, err := classifyLines(cmd, r)
	if err != nil {
		return err
	}

	var counts stats.FileStats
	for _, l := range lines {
		counts.Record(l.Kind)
	}

	switch a.outputFormat() {
	case output.FormatJSON:
		doc := struct {
			Path  string           `json:"path"`
			Lines []classifiedLine `json:"lines"`
			stats.FileStats
		}{Path: path, Lines: lines, FileStats: counts}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)

	case output.FormatCSV:
		w := csv.NewWriter(a.stdout)
		_ = w.Write([]string{"Line", "Kind", "Text"})
		for _, l := range lines {
			_ = w.Write([]string{strconv.Itoa(l.Line), l.Kind.String(), l.Text})
		}
		w.Flush()
		return w.Error()

	default:
		for _, l := range lines {
			fmt.Fprintf(a.stdout, "%5d  %-7s  %s\n", l.Line, l.Kind, l.Text)
		}
		fmt.Fprintf(a.stdout, "\nblank: %d  comment: %d  code: %d  total: %d\n",
			counts.Blank, counts.Comment, counts.Code, counts.Total())
		return nil
	}
}

// classifyLines streams r through one Classifier, keeping the text of every
// line for display.
func classifyLines(cmd *cobra.Command, r io.Reader) ([]classifiedLine, error) {
	ctx := cmd.Context()
	c := classifier.New()
	reader := bufio.NewReaderSize(r, 256*1024)

	lines := []classifiedLine{}
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
			lines = append(lines, classifiedLine{Line: n, Kind: c.Line(text), Text: text})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}
}
