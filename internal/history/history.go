// Package history measures how blank, comment and code lines changed over a
// repository's git history.
package history

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"linetally/internal/classifier"
	"linetally/internal/diff"
	"linetally/internal/language"
	"linetally/internal/logging"
	"linetally/internal/stats"
)

// commitMarker prefixes the header line git prints for every commit.
const commitMarker = "COMMIT:"

// Period is the change in one day or one week.
type Period struct {
	Date      time.Time       `json:"date"`
	Additions stats.FileStats `json:"additions"`
	Deletions stats.FileStats `json:"deletions"`
	NetCode   int             `json:"net_code"`
}

// Author is the set of lines one author added.
type Author struct {
	Name  string          `json:"author"`
	Stats stats.FileStats `json:"stats"`
}

// Stats is the result of a history analysis.
type Stats struct {
	// Daily holds one entry per day with commits, newest first.
	Daily []Period `json:"daily"`
	// ByAuthor holds the lines each author added.
	ByAuthor map[string]stats.FileStats `json:"by_author"`
	// TotalCommits counts every commit visited, including ones that touched
	// no recognised source file.
	TotalCommits int `json:"total_commits"`
}

// Options restricts the analysed commits.
type Options struct {
	Since    time.Time // zero = no lower bound
	Until    time.Time // zero = no upper bound
	Author   string    // git --author pattern, case-insensitive
	Detector *language.Detector
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Analyze walks the history reachable from HEAD in dir and classifies every
// added and removed line of recognised source files.
func Analyze(ctx context.Context, dir string, opts Options) (*Stats, error) {
	log := logging.Get(logging.CategoryHistory)
	timer := logging.StartTimer(logging.CategoryHistory, "history analysis")

	if !IsRepo(ctx, dir) {
		return nil, fmt.Errorf("%s is not in a git repository", dir)
	}

	args := []string{
		"log", "-p",
		"--no-color", "--no-ext-diff", "--no-renames",
		"--pretty=format:" + commitMarker + "%H|%ct|%an",
	}
	if !opts.Since.IsZero() {
		args = append(args, "--since="+opts.Since.Format(time.RFC3339))
	}
	if !opts.Until.IsZero() {
		args = append(args, "--until="+opts.Until.Format(time.RFC3339))
	}
	if opts.Author != "" {
		args = append(args, "--regexp-ignore-case", "--author="+opts.Author)
	}
	log.Debug("running git", zap.Strings("args", args), zap.String("dir", dir))

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open git output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start git: %w", err)
	}

	result, parseErr := parseLog(ctx, stdout, opts.Detector)
	if parseErr != nil {
		// Drain so git can exit before Wait.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		// A repository without commits has no HEAD to log.
		if strings.Contains(msg, "does not have any commits") {
			return &Stats{ByAuthor: map[string]stats.FileStats{}}, nil
		}
		return nil, fmt.Errorf("git log failed: %w: %s", waitErr, msg)
	}

	timer.Stop(zap.Int("commits", result.TotalCommits))
	return result, nil
}

type commit struct {
	hash   string
	date   time.Time
	author string
	patch  []string
}

// parseLog reads "git log -p" output in the commitMarker format.
func parseLog(ctx context.Context, r io.Reader, detector *language.Detector) (*Stats, error) {
	if detector == nil {
		detector = language.NewDetector()
	}

	agg := newAggregator(detector)
	reader := bufio.NewReaderSize(r, 256*1024)
	var cur *commit

	flush := func() error {
		if cur == nil {
			return nil
		}
		err := agg.add(cur)
		cur = nil
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			if strings.HasPrefix(line, commitMarker) {
				if ferr := flush(); ferr != nil {
					return nil, ferr
				}
				c, herr := parseHeader(line)
				if herr != nil {
					return nil, herr
				}
				cur = c
			} else if cur != nil {
				cur.patch = append(cur.patch, line)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read git output: %w", err)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return agg.result(), nil
}

func parseHeader(line string) (*commit, error) {
	parts := strings.SplitN(strings.TrimPrefix(line, commitMarker), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed commit header %q", line)
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed commit time in %q: %w", line, err)
	}
	return &commit{
		hash:   parts[0],
		date:   time.Unix(ts, 0).UTC(),
		author: parts[2],
	}, nil
}

type aggregator struct {
	detector *language.Detector
	daily    map[time.Time]*Period
	authors  map[string]stats.FileStats
	commits  int
}

func newAggregator(d *language.Detector) *aggregator {
	return &aggregator{
		detector: d,
		daily:    make(map[time.Time]*Period),
		authors:  make(map[string]stats.FileStats),
	}
}

func (a *aggregator) add(c *commit) error {
	a.commits++

	files, err := diff.ParseLines(c.patch)
	if err != nil {
		return fmt.Errorf("commit %s: %w", c.hash, err)
	}

	var added, removed stats.FileStats
	for i := range files {
		f := &files[i]
		if f.IsBinary {
			continue
		}
		if _, ok := a.detector.Detect(f.Path()); !ok {
			continue
		}
		add, del := classifyFile(f)
		added = added.Add(add)
		removed = removed.Add(del)
	}

	day := truncateDay(c.date)
	p, ok := a.daily[day]
	if !ok {
		p = &Period{Date: day}
		a.daily[day] = p
	}
	p.Additions = p.Additions.Add(added)
	p.Deletions = p.Deletions.Add(removed)
	p.NetCode += added.Code - removed.Code

	if c.author != "" {
		a.authors[c.author] = a.authors[c.author].Add(added)
	}
	return nil
}

// classifyFile classifies the changed lines of one file. Each hunk starts
// with fresh classifiers for the old and new side since the block-comment
// state before the hunk is unknown; context lines advance both sides.
func classifyFile(f *diff.FileDiff) (added, removed stats.FileStats) {
	for _, h := range f.Hunks {
		oldSide, newSide := classifier.New(), classifier.New()
		for _, l := range h.Lines {
			switch l.Type {
			case diff.LineContext:
				oldSide.Line(l.Content)
				newSide.Line(l.Content)
			case diff.LineAdded:
				added.Record(newSide.Line(l.Content))
			case diff.LineRemoved:
				removed.Record(oldSide.Line(l.Content))
			}
		}
	}
	return added, removed
}

func (a *aggregator) result() *Stats {
	daily := make([]Period, 0, len(a.daily))
	for _, p := range a.daily {
		daily = append(daily, *p)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date.After(daily[j].Date) })

	return &Stats{
		Daily:        daily,
		ByAuthor:     a.authors,
		TotalCommits: a.commits,
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ByWeek folds the daily periods into ISO weeks keyed by their Monday,
// newest first.
func (s *Stats) ByWeek() []Period {
	weeks := make(map[time.Time]*Period)
	for _, d := range s.Daily {
		monday := weekStart(d.Date)
		w, ok := weeks[monday]
		if !ok {
			w = &Period{Date: monday}
			weeks[monday] = w
		}
		w.Additions = w.Additions.Add(d.Additions)
		w.Deletions = w.Deletions.Add(d.Deletions)
		w.NetCode += d.NetCode
	}

	out := make([]Period, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func weekStart(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// Authors returns every author sorted by lines added, most first. Ties are
// broken by name.
func (s *Stats) Authors() []Author {
	return s.FilterAuthor("")
}

// FilterAuthor is Authors restricted to names containing substr,
// case-insensitively.
func (s *Stats) FilterAuthor(substr string) []Author {
	needle := strings.ToLower(substr)
	out := make([]Author, 0, len(s.ByAuthor))
	for name, st := range s.ByAuthor {
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		out = append(out, Author{Name: name, Stats: st})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Stats.Total(), out[j].Stats.Total()
		if ti != tj {
			return ti > tj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
