package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"linetally/internal/stats"
)

var projectHeaders = []string{"Language", "Files", "Blank", "Comment", "Code", "Total"}

// languageRow is the flat form of one language used by every format.
type languageRow struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
	Blank    int    `json:"blank"`
	Comment  int    `json:"comment"`
	Code     int    `json:"code"`
	Total    int    `json:"total"`
}

func newLanguageRow(name string, files int, s stats.FileStats) languageRow {
	return languageRow{
		Language: name,
		Files:    files,
		Blank:    s.Blank,
		Comment:  s.Comment,
		Code:     s.Code,
		Total:    s.Total(),
	}
}

func (r languageRow) numbers() []int {
	return []int{r.Files, r.Blank, r.Comment, r.Code, r.Total}
}

func projectRows(p *stats.Project) ([]languageRow, languageRow) {
	langs := p.Languages()
	rows := make([]languageRow, 0, len(langs))
	for _, l := range langs {
		rows = append(rows, newLanguageRow(l.Name, l.Files, l.Stats))
	}
	files, total := p.Total()
	return rows, newLanguageRow("Total", files, total)
}

// Project renders per-language statistics in the given format.
func (p *Printer) Project(format Format, project *stats.Project) error {
	switch format {
	case FormatTable:
		_, err := fmt.Fprintln(p.w, p.ProjectTable(project))
		return err
	case FormatJSON:
		return p.projectJSON(project)
	case FormatCSV:
		return p.projectCSV(project)
	case FormatMarkdown:
		return p.Markdown(ProjectMarkdown(project))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// ProjectTable returns the bordered table with a Total row when any
// language was counted.
func (p *Printer) ProjectTable(project *stats.Project) string {
	rows, total := projectRows(project)
	totalIdx := -2 // no total row
	if len(rows) > 0 {
		rows = append(rows, total)
		totalIdx = len(rows) - 1
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.styles.border).
		Headers(projectHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			var s lipgloss.Style
			switch {
			case row == table.HeaderRow:
				s = p.styles.header
			case row == totalIdx:
				s = p.styles.total
			default:
				s = p.styles.cell
			}
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	for _, r := range rows {
		cells := []string{r.Language}
		for _, n := range r.numbers() {
			cells = append(cells, Number(n))
		}
		t.Row(cells...)
	}
	return t.Render()
}

func (p *Printer) projectJSON(project *stats.Project) error {
	rows, total := projectRows(project)
	doc := struct {
		Languages []languageRow `json:"languages"`
		Total     languageRow   `json:"total"`
	}{Languages: rows, Total: total}

	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func (p *Printer) projectCSV(project *stats.Project) error {
	rows, total := projectRows(project)

	w := csv.NewWriter(p.w)
	_ = w.Write(projectHeaders)
	for _, r := range append(rows, total) {
		record := []string{r.Language}
		for _, n := range r.numbers() {
			record = append(record, strconv.Itoa(n))
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ProjectMarkdown returns a GitHub-flavored Markdown table.
func ProjectMarkdown(project *stats.Project) string {
	rows, total := projectRows(project)

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(projectHeaders, " | ") + " |\n")
	sb.WriteString("|:---|---:|---:|---:|---:|---:|\n")
	for _, r := range rows {
		writeMarkdownRow(&sb, r.Language, r.numbers())
	}
	writeMarkdownRow(&sb, "**Total**", total.numbers())
	return sb.String()
}

func writeMarkdownRow(sb *strings.Builder, label string, numbers []int) {
	sb.WriteString("| " + escapeMarkdown(label))
	for _, n := range numbers {
		sb.WriteString(" | " + Number(n))
	}
	sb.WriteString(" |\n")
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
