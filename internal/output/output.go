// Package output renders scan and history results as terminal tables, JSON,
// CSV or Markdown.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

// Format selects a rendering.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat resolves a format name, case-insensitively. "md" is accepted
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: table, json, csv, markdown)", s)
	}
}

// ColorMode controls ANSI styling.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Printer writes results to one writer.
type Printer struct {
	w      io.Writer
	color  bool
	styles styles
}

type styles struct {
	header   lipgloss.Style
	total    lipgloss.Style
	added    lipgloss.Style
	removed  lipgloss.Style
	cell     lipgloss.Style
	border   lipgloss.Style
	title    lipgloss.Style
	muted    lipgloss.Style
	renderer *lipgloss.Renderer
}

// NewPrinter creates a Printer. In auto mode color is used only when w is
// a color-capable terminal.
func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	r := lipgloss.NewRenderer(w)

	var color bool
	switch mode {
	case ColorAlways:
		color = true
		if r.ColorProfile() == termenv.Ascii {
			r.SetColorProfile(termenv.ANSI256)
		}
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	default:
		color = r.ColorProfile() != termenv.Ascii
	}

	return &Printer{w: w, color: color, styles: newStyles(r)}
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header:   r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).Padding(0, 1),
		total:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true).Padding(0, 1),
		added:    r.NewStyle().Foreground(lipgloss.Color("2")).Padding(0, 1),
		removed:  r.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		border:   r.NewStyle().Foreground(lipgloss.Color("8")),
		title:    r.NewStyle().Bold(true),
		muted:    r.NewStyle().Faint(true),
		renderer: r,
	}
}

// Color reports whether the printer emits ANSI styling.
func (p *Printer) Color() bool {
	return p.color
}

// Number formats n with thousands separators.
func Number(n int) string {
	return humanize.Comma(int64(n))
}

// SignedNumber formats n with thousands separators and an explicit sign for
// non-negative values.
func SignedNumber(n int) string {
	if n >= 0 {
		return "+" + humanize.Comma(int64(n))
	}
	return humanize.Comma(int64(n))
}
