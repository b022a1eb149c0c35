// Package processor classifies files and aggregates the results per language.
package processor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linetally/internal/classifier"
	"linetally/internal/language"
	"linetally/internal/logging"
	"linetally/internal/stats"
)

// sniffLen is how much of a file is checked for NUL bytes.
const sniffLen = 8 * 1024

// progressEvery is the number of files between progress log entries.
const progressEvery = 100

var (
	// ErrBinary is returned for files that look binary.
	ErrBinary = errors.New("binary file")
	// ErrUnknownLanguage is returned for files no language is detected for.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("file too large")
)

// FileResult is the classification of one file.
type FileResult struct {
	Path     string          `json:"path"`
	Language string          `json:"language"`
	Stats    stats.FileStats `json:"stats"`
}

// Summary counts what happened to the files handed to Scan.
type Summary struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Options configures a Processor.
type Options struct {
	Jobs         int   // worker count, at least one
	MaxFileBytes int64 // 0 = unlimited
}

// Processor classifies files in parallel.
type Processor struct {
	detector *language.Detector
	opts     Options
}

// New creates a Processor. A nil detector uses the builtin languages.
func New(detector *language.Detector, opts Options) *Processor {
	if detector == nil {
		detector = language.NewDetector()
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Processor{detector: detector, opts: opts}
}

// IsBinary reports whether the first 8 KiB of the file contain a NUL byte.
// An empty file is text.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

// ProcessFile detects the language of path, rejects oversized and binary
// files, and classifies the rest.
func (p *Processor) ProcessFile(ctx context.Context, path string) (FileResult, error) {
	lang, ok := p.detector.Detect(path)
	if !ok {
		return FileResult{}, fmt.Errorf("%s: %w", path, ErrUnknownLanguage)
	}

	f, err := os.Open(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if p.opts.MaxFileBytes > 0 {
		st, err := f.Stat()
		if err != nil {
			return FileResult{}, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if st.Size() > p.opts.MaxFileBytes {
			return FileResult{}, fmt.Errorf("%s (%d bytes): %w", path, st.Size(), ErrTooLarge)
		}
	}

	reader := bufio.NewReaderSize(f, 256*1024)
	head, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return FileResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return FileResult{}, fmt.Errorf("%s: %w", path, ErrBinary)
	}

	res, err := classifier.ClassifyReader(ctx, reader)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return FileResult{Path: path, Language: lang, Stats: stats.FromResult(res)}, nil
}

// Scan classifies files with up to Jobs workers. Files that cannot be
// classified are counted as skipped; only cancellation aborts the scan.
func (p *Processor) Scan(ctx context.Context, files []string) (*stats.Project, Summary, error) {
	log := logging.Get(logging.CategoryScan)
	timer := logging.StartTimer(logging.CategoryScan, "scan")

	project := stats.NewProject()
	var processed, skipped, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Jobs)

	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			res, err := p.ProcessFile(gctx, path)
			if n := done.Add(1); n%progressEvery == 0 {
				log.Debug("scan progress", zap.Int64("done", n), zap.Int("total", len(files)))
			}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				skipped.Add(1)
				switch {
				case errors.Is(err, ErrUnknownLanguage), errors.Is(err, ErrBinary), errors.Is(err, ErrTooLarge):
					log.Debug("skipping file", zap.String("path", path), zap.Error(err))
				default:
					log.Warn("failed to process file", zap.String("path", path), zap.Error(err))
				}
				return nil
			}
			processed.Add(1)
			project.AddFile(res.Language, res.Stats)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Summary{}, err
	}

	summary := Summary{
		Scanned:   len(files),
		Processed: int(processed.Load()),
		Skipped:   int(skipped.Load()),
	}
	timer.Stop(zap.Int("processed", summary.Processed), zap.Int("skipped", summary.Skipped))
	return project, summary, nil
}
