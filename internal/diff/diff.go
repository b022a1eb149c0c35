// Package diff parses unified diffs in the form git prints them.
package diff

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

func (t LineType) String() string {
	switch t {
	case LineContext:
		return "context"
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return fmt.Sprintf("LineType(%d)", int(t))
	}
}

// Line represents a single line in a hunk, without its prefix character.
type Line struct {
	Type    LineType
	Content string
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FileDiff represents changes to a single file
type FileDiff struct {
	OldPath  string
	NewPath  string
	Hunks    []Hunk
	IsNew    bool
	IsDelete bool
	IsBinary bool
}

// Path returns the path the file has after the change, or before it for a
// deletion.
func (f *FileDiff) Path() string {
	if f.IsDelete || f.NewPath == "" {
		return f.OldPath
	}
	return f.NewPath
}

const devNull = "/dev/null"

// Parse reads a unified diff from r.
func Parse(r io.Reader) ([]FileDiff, error) {
	var lines []string
	reader := bufio.NewReaderSize(r, 256*1024)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read diff: %w", err)
		}
	}
	return ParseLines(lines)
}

// ParseLines parses a unified diff already split into lines. Text outside
// file sections (commit headers, blank separators) is ignored.
func ParseLines(lines []string) ([]FileDiff, error) {
	var (
		files []FileDiff
		cur   *FileDiff
	)

	flush := func() {
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			cur = &FileDiff{}
			cur.OldPath, cur.NewPath = splitGitPaths(strings.TrimPrefix(line, "diff --git "))
			continue
		case cur == nil:
			if strings.HasPrefix(line, "--- ") {
				// Plain unified diff without a git header.
				cur = &FileDiff{}
			} else {
				continue
			}
		}

		switch {
		case strings.HasPrefix(line, "new file mode"):
			cur.IsNew = true
		case strings.HasPrefix(line, "deleted file mode"):
			cur.IsDelete = true
		case strings.HasPrefix(line, "Binary files ") || line == "GIT binary patch":
			cur.IsBinary = true
		case strings.HasPrefix(line, "--- "):
			p := trimPathPrefix(strings.TrimPrefix(line, "--- "), "a/")
			if p == devNull {
				cur.IsNew = true
			} else {
				cur.OldPath = p
			}
		case strings.HasPrefix(line, "+++ "):
			p := trimPathPrefix(strings.TrimPrefix(line, "+++ "), "b/")
			if p == devNull {
				cur.IsDelete = true
			} else {
				cur.NewPath = p
			}
		case strings.HasPrefix(line, "@@ "):
			h, err := ParseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			i = readHunkBody(lines, i+1, &h) - 1
			cur.Hunks = append(cur.Hunks, h)
		}
	}
	flush()
	return files, nil
}

// readHunkBody consumes body lines starting at i until the counts from the
// header are exhausted and returns the index of the first unconsumed line.
func readHunkBody(lines []string, i int, h *Hunk) int {
	oldLeft, newLeft := h.OldCount, h.NewCount
	for ; i < len(lines) && (oldLeft > 0 || newLeft > 0); i++ {
		line := lines[i]
		if line == "" {
			// Some tools strip the space of empty context lines.
			h.Lines = append(h.Lines, Line{Type: LineContext})
			oldLeft--
			newLeft--
			continue
		}
		switch line[0] {
		case ' ':
			h.Lines = append(h.Lines, Line{Type: LineContext, Content: line[1:]})
			oldLeft--
			newLeft--
		case '-':
			h.Lines = append(h.Lines, Line{Type: LineRemoved, Content: line[1:]})
			oldLeft--
		case '+':
			h.Lines = append(h.Lines, Line{Type: LineAdded, Content: line[1:]})
			newLeft--
		case '\\':
			// "\ No newline at end of file"
		default:
			return i
		}
	}
	// A trailing no-newline marker belongs to this hunk.
	if i < len(lines) && strings.HasPrefix(lines[i], `\`) {
		i++
	}
	return i
}

// ParseHunkHeader parses "@@ -l[,s] +l[,s] @@ ...". An omitted count is 1.
func ParseHunkHeader(line string) (Hunk, error) {
	rest, ok := strings.CutPrefix(line, "@@ ")
	if !ok {
		return Hunk{}, fmt.Errorf("invalid hunk header %q", line)
	}
	end := strings.Index(rest, " @@")
	if end < 0 {
		return Hunk{}, fmt.Errorf("invalid hunk header %q", line)
	}
	ranges := strings.Fields(rest[:end])
	if len(ranges) != 2 || !strings.HasPrefix(ranges[0], "-") || !strings.HasPrefix(ranges[1], "+") {
		return Hunk{}, fmt.Errorf("invalid hunk header %q", line)
	}

	var h Hunk
	var err error
	if h.OldStart, h.OldCount, err = parseRange(ranges[0][1:]); err != nil {
		return Hunk{}, fmt.Errorf("invalid hunk header %q: %w", line, err)
	}
	if h.NewStart, h.NewCount, err = parseRange(ranges[1][1:]); err != nil {
		return Hunk{}, fmt.Errorf("invalid hunk header %q: %w", line, err)
	}
	return h, nil
}

func parseRange(s string) (start, count int, err error) {
	startStr, countStr, hasCount := strings.Cut(s, ",")
	if start, err = strconv.Atoi(startStr); err != nil {
		return 0, 0, err
	}
	count = 1
	if hasCount {
		if count, err = strconv.Atoi(countStr); err != nil {
			return 0, 0, err
		}
	}
	return start, count, nil
}

// splitGitPaths splits "a/x b/y" from a diff --git line. Paths containing
// " b/" are ambiguous here; the ---/+++ lines refine them later.
func splitGitPaths(s string) (string, string) {
	if idx := strings.LastIndex(s, " b/"); idx >= 0 {
		return strings.TrimPrefix(s[:idx], "a/"), s[idx+3:]
	}
	return s, s
}

// trimPathPrefix strips the a/ or b/ prefix and any trailing tab git adds
// to paths with spaces.
func trimPathPrefix(p, prefix string) string {
	if idx := strings.IndexByte(p, '\t'); idx >= 0 {
		p = p[:idx]
	}
	p = strings.Trim(p, `"`)
	return strings.TrimPrefix(p, prefix)
}
