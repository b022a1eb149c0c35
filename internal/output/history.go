package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"linetally/internal/history"
	"linetally/internal/stats"
)

// topContributors is how many authors the history table lists.
const topContributors = 10

// HistoryOptions selects the period and how many rows the table shows.
type HistoryOptions struct {
	Weekly bool
	Limit  int // 0 = all rows
}

func (o HistoryOptions) label() (title, unit string) {
	if o.Weekly {
		return "Weekly", "weeks"
	}
	return "Daily", "days"
}

func periodsOf(h *history.Stats, opts HistoryOptions) []history.Period {
	if opts.Weekly {
		return h.ByWeek()
	}
	return h.Daily
}

// History renders a history analysis in the given format.
func (p *Printer) History(format Format, h *history.Stats, opts HistoryOptions) error {
	switch format {
	case FormatTable:
		_, err := fmt.Fprint(p.w, p.historyTable(h, opts))
		return err
	case FormatJSON:
		return p.historyJSON(h, opts)
	case FormatCSV:
		return p.historyCSV(h, opts)
	case FormatMarkdown:
		return p.Markdown(historyMarkdown(h, opts))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func (p *Printer) historyTable(h *history.Stats, opts HistoryOptions) string {
	periods := periodsOf(h, opts)
	title, unit := opts.label()

	var sb strings.Builder
	sb.WriteString(p.styles.title.Render("Git History Analysis") + "\n")
	sb.WriteString("Total Commits: " + Number(h.TotalCommits) + "\n")
	from, to := "N/A", "N/A"
	if len(periods) > 0 {
		from = history.FormatDate(periods[len(periods)-1].Date)
		to = history.FormatDate(periods[0].Date)
	}
	sb.WriteString("Date Range: " + from + " to " + to + "\n\n")

	if len(periods) > 0 {
		shown := len(periods)
		if opts.Limit > 0 && opts.Limit < shown {
			shown = opts.Limit
		}

		sb.WriteString(title + " Statistics:\n")
		t := p.newTable("Date", "Added", "Deleted", "Net Change")
		nets := make([]int, 0, shown)
		for _, per := range periods[:shown] {
			nets = append(nets, per.NetCode)
			t.Row(
				history.FormatDate(per.Date),
				Number(per.Additions.Code),
				Number(per.Deletions.Code),
				SignedNumber(per.NetCode),
			)
		}
		t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			switch {
			case col == 1:
				return p.styles.added.Align(lipgloss.Right)
			case col == 2:
				return p.styles.removed.Align(lipgloss.Right)
			case col == 3 && nets[row] > 0:
				return p.styles.added.Align(lipgloss.Right)
			case col == 3 && nets[row] < 0:
				return p.styles.removed.Align(lipgloss.Right)
			case col == 3:
				return p.styles.cell.Align(lipgloss.Right)
			}
			return p.styles.cell
		})
		sb.WriteString(t.Render() + "\n")

		if more := len(periods) - shown; more > 0 {
			sb.WriteString(p.styles.muted.Render(fmt.Sprintf("... and %d more %s", more, unit)) + "\n")
		}
		sb.WriteString("\n")
	}

	authors := h.Authors()
	if len(authors) > 0 {
		if len(authors) > topContributors {
			authors = authors[:topContributors]
		}
		sb.WriteString("Top Contributors:\n")
		t := p.newTable("Author", "Code Lines", "Comments", "Total")
		for _, a := range authors {
			t.Row(a.Name, Number(a.Stats.Code), Number(a.Stats.Comment), Number(a.Stats.Total()))
		}
		sb.WriteString(t.Render() + "\n")
	}

	return sb.String()
}

// newTable returns a bordered table with styled headers and right-aligned
// numeric columns.
func (p *Printer) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.styles.border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			if col > 0 {
				return p.styles.cell.Align(lipgloss.Right)
			}
			return p.styles.cell
		})
}

type periodDoc struct {
	Date      string          `json:"date"`
	Additions stats.FileStats `json:"additions"`
	Deletions stats.FileStats `json:"deletions"`
	NetCode   int             `json:"net_code"`
}

type authorDoc struct {
	Author  string `json:"author"`
	Blank   int    `json:"blank"`
	Comment int    `json:"comment"`
	Code    int    `json:"code"`
	Total   int    `json:"total"`
}

func (p *Printer) historyJSON(h *history.Stats, opts HistoryOptions) error {
	title, _ := opts.label()
	doc := struct {
		Period       string      `json:"period"`
		TotalCommits int         `json:"total_commits"`
		Periods      []periodDoc `json:"periods"`
		Authors      []authorDoc `json:"authors"`
	}{
		Period:       strings.ToLower(title),
		TotalCommits: h.TotalCommits,
		Periods:      []periodDoc{},
		Authors:      []authorDoc{},
	}
	for _, per := range periodsOf(h, opts) {
		doc.Periods = append(doc.Periods, periodDoc{
			Date:      history.FormatDate(per.Date),
			Additions: per.Additions,
			Deletions: per.Deletions,
			NetCode:   per.NetCode,
		})
	}
	for _, a := range h.Authors() {
		doc.Authors = append(doc.Authors, authorDoc{
			Author:  a.Name,
			Blank:   a.Stats.Blank,
			Comment: a.Stats.Comment,
			Code:    a.Stats.Code,
			Total:   a.Stats.Total(),
		})
	}

	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func (p *Printer) historyCSV(h *history.Stats, opts HistoryOptions) error {
	w := csv.NewWriter(p.w)
	_ = w.Write([]string{"Date", "Added", "Deleted", "Net Change"})
	for _, per := range periodsOf(h, opts) {
		_ = w.Write([]string{
			history.FormatDate(per.Date),
			strconv.Itoa(per.Additions.Code),
			strconv.Itoa(per.Deletions.Code),
			strconv.Itoa(per.NetCode),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func historyMarkdown(h *history.Stats, opts HistoryOptions) string {
	title, unit := opts.label()
	periods := periodsOf(h, opts)

	var sb strings.Builder
	sb.WriteString("# Git History Analysis\n\n")
	sb.WriteString("Total commits: " + Number(h.TotalCommits) + "\n\n")

	if len(periods) > 0 {
		shown := len(periods)
		if opts.Limit > 0 && opts.Limit < shown {
			shown = opts.Limit
		}
		sb.WriteString("## " + title + " Statistics\n\n")
		sb.WriteString("| Date | Added | Deleted | Net Change |\n|:---|---:|---:|---:|\n")
		for _, per := range periods[:shown] {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				history.FormatDate(per.Date), Number(per.Additions.Code),
				Number(per.Deletions.Code), SignedNumber(per.NetCode))
		}
		if more := len(periods) - shown; more > 0 {
			fmt.Fprintf(&sb, "\n_... and %d more %s_\n", more, unit)
		}
		sb.WriteString("\n")
	}

	authors := h.Authors()
	if len(authors) > 0 {
		if len(authors) > topContributors {
			authors = authors[:topContributors]
		}
		sb.WriteString("## Top Contributors\n\n")
		sb.WriteString("| Author | Code Lines | Comments | Total |\n|:---|---:|---:|---:|\n")
		for _, a := range authors {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", escapeMarkdown(a.Name),
				Number(a.Stats.Code), Number(a.Stats.Comment), Number(a.Stats.Total()))
		}
	}
	return sb.String()
}
