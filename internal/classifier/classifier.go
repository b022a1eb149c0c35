// Package classifier sorts physical source lines into blank, comment and code
// lines using C comment syntax: "//" line comments and non-nesting "/* */"
// block comments.
package classifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classifier classifies a stream of lines. The only state it keeps between
// lines is whether a block comment is open. The zero value is ready to use.
type Classifier struct {
	state State
}

// New returns a Classifier in the Normal state.
func New() *Classifier {
	return &Classifier{}
}

// State reports the block-comment state after the last line.
func (c *Classifier) State() State {
	return c.state
}

// Reset returns the classifier to the Normal state.
func (c *Classifier) Reset() {
	c.state = Normal
}

// Line classifies the next physical line and advances the state.
// A trailing "\r" is ignored.
//
// A line that starts inside a block comment is Comment whatever it holds.
// Otherwise code outside comment regions makes it Code, comment text alone
// makes it Comment, and whitespace alone makes it Blank. Text after a block
// comment that closed on this line, when it runs into a stray "*/" before any
// new "/*", counts as part of the comment:
//
//	/* outer /* inner */ still comment */
//
// is a Comment line because the second "/*" did not nest.
func (c *Classifier) Line(line string) LineKind {
	line = strings.TrimSuffix(line, "\r")
	carried := c.state == InBlock

	var (
		comment bool // comment text seen
		code    bool // code seen outside comment regions
		closed  bool // a block comment closed earlier on this line
		tail    bool // code seen since that close, pending a stray closer
	)

	for i := 0; i < len(line); {
		rest := line[i:]

		if c.state == InBlock {
			if strings.HasPrefix(rest, BlockClose) {
				c.state = c.state.Transition(TokenClose)
				closed, tail = true, false
				i += markerWidth
				continue
			}
			// Delimiters are ASCII and never appear inside a multi-byte rune.
			i++
			continue
		}

		switch {
		case strings.HasPrefix(rest, LineMarker):
			comment = true
			i = len(line)
		case strings.HasPrefix(rest, BlockOpen):
			c.state = c.state.Transition(TokenOpen)
			comment = true
			code = code || tail
			tail = false
			i += markerWidth
		case closed && strings.HasPrefix(rest, BlockClose):
			tail = false
			i += markerWidth
		default:
			r, size := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(r) {
				if closed {
					tail = true
				} else {
					code = true
				}
			}
			i += size
		}
	}

	switch {
	case carried:
		return Comment
	case code || tail:
		return Code
	case comment:
		return Comment
	default:
		return Blank
	}
}

// Result is the classification of a whole source text.
// Blank+Comment+Code always equals len(Kinds).
type Result struct {
	Kinds   []LineKind `json:"kinds"`
	Blank   int        `json:"blank"`
	Comment int        `json:"comment"`
	Code    int        `json:"code"`
}

// Total returns the number of physical lines.
func (r Result) Total() int {
	return len(r.Kinds)
}

// Kind returns the kind of the 1-indexed line n.
func (r Result) Kind(n int) (LineKind, bool) {
	if n < 1 || n > len(r.Kinds) {
		return Blank, false
	}
	return r.Kinds[n-1], true
}

func (r *Result) add(k LineKind) {
	r.Kinds = append(r.Kinds, k)
	switch k {
	case Blank:
		r.Blank++
	case Comment:
		r.Comment++
	case Code:
		r.Code++
	}
}

// Classify classifies every physical line of src. Lines are separated by
// "\n"; a final newline does not start another line and empty input has no
// lines.
func Classify(src string) Result {
	var (
		res Result
		c   Classifier
	)
	for len(src) > 0 {
		line := src
		if idx := strings.IndexByte(src, '\n'); idx >= 0 {
			line, src = src[:idx], src[idx+1:]
		} else {
			src = ""
		}
		res.add(c.Line(line))
	}
	return res
}

// ClassifyBytes is Classify for a byte slice.
func ClassifyBytes(src []byte) Result {
	return Classify(string(src))
}

// ctxCheckInterval is how many lines ClassifyReader reads between context checks.
const ctxCheckInterval = 1024

// ClassifyReader classifies lines read from r until EOF. It has no limit on
// line length.
func ClassifyReader(ctx context.Context, r io.Reader) (Result, error) {
	var (
		res Result
		c   Classifier
	)
	reader := bufio.NewReaderSize(r, 256*1024)

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			res.add(c.Line(strings.TrimSuffix(line, "\n")))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return Result{}, fmt.Errorf("failed to read source: %w", err)
		}
	}
}
