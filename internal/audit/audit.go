// Package audit cross-checks the line classifier against a tree-sitter parse
// of the same source.
//
// The classifier reports a line that starts inside a block comment as Comment
// even when the comment closes and code follows, and it does not know about
// string literals. The strict kind computed here comes from the C grammar's
// comment nodes: any non-whitespace byte outside a comment makes the line
// Code. Lines where the two differ are reported, not fixed.
package audit

import (
	"context"
	"fmt"
	"os"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"go.uber.org/zap"

	"linetally/internal/classifier"
	"linetally/internal/logging"
	"linetally/internal/stats"
)

// Disagreement is one line the two classifications disagree on.
type Disagreement struct {
	Line       int                 `json:"line"`
	Classifier classifier.LineKind `json:"classifier"`
	Strict     classifier.LineKind `json:"strict"`
	Text       string              `json:"text"`
}

// Report is the outcome of auditing one source text.
type Report struct {
	Path          string          `json:"path,omitempty"`
	Lines         int             `json:"lines"`
	Classifier    stats.FileStats `json:"classifier"`
	Strict        stats.FileStats `json:"strict"`
	Disagreements []Disagreement  `json:"disagreements"`
}

// Agrees reports whether every line got the same kind from both sides.
func (r Report) Agrees() bool {
	return len(r.Disagreements) == 0
}

// CompareFile reads path and compares it.
func CompareFile(ctx context.Context, path string) (Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	rep, err := Compare(ctx, src)
	if err != nil {
		return Report{}, fmt.Errorf("failed to audit %s: %w", path, err)
	}
	rep.Path = path
	return rep, nil
}

// Compare classifies src both ways and lists the lines that differ.
func Compare(ctx context.Context, src []byte) (Report, error) {
	timer := logging.StartTimer(logging.CategoryAudit, "compare")

	mask, err := commentMask(ctx, src)
	if err != nil {
		return Report{}, err
	}

	res := classifier.ClassifyBytes(src)
	rep := Report{
		Lines:         res.Total(),
		Classifier:    stats.FromResult(res),
		Disagreements: []Disagreement{},
	}

	start := 0
	for i, kind := range res.Kinds {
		end := start
		for end < len(src) && src[end] != '\n' {
			end++
		}
		strict := strictKind(src, mask, start, end)
		rep.Strict.Record(strict)
		if strict != kind {
			rep.Disagreements = append(rep.Disagreements, Disagreement{
				Line:       i + 1,
				Classifier: kind,
				Strict:     strict,
				Text:       string(src[start:end]),
			})
		}
		start = end + 1
	}

	timer.Stop(zap.Int("lines", rep.Lines), zap.Int("disagreements", len(rep.Disagreements)))
	return rep, nil
}

// commentMask marks every byte of src covered by a comment node.
func commentMask(ctx context.Context, src []byte) ([]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	mask := make([]bool, len(src))
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "comment" {
			for i := n.StartByte(); i < n.EndByte() && int(i) < len(mask); i++ {
				mask[i] = true
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return mask, nil
}

// strictKind classifies src[start:end]. The terminating newline counts
// towards comment coverage so blank lines inside a block comment are Comment.
func strictKind(src []byte, mask []bool, start, end int) classifier.LineKind {
	comment := end < len(mask) && mask[end]
	for i := start; i < end; i++ {
		if mask[i] {
			comment = true
			continue
		}
		if src[i] == '\r' && i == end-1 {
			continue
		}
		if !unicode.IsSpace(rune(src[i])) {
			return classifier.Code
		}
	}
	if comment {
		return classifier.Comment
	}
	return classifier.Blank
}
