package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"linetally/internal/store"
)

var snapshotHeaders = []string{"ID", "Recorded", "Label", "Files", "Comment", "Code", "Δ Code"}

// snapshotRow pairs a snapshot with its code delta from the next older one
// in the list. The oldest snapshot has no delta.
type snapshotRow struct {
	store.Snapshot
	Delta *int `json:"code_delta"`
}

func snapshotRows(snaps []store.Snapshot) []snapshotRow {
	rows := make([]snapshotRow, len(snaps))
	for i, s := range snaps {
		rows[i] = snapshotRow{Snapshot: s}
		if i+1 < len(snaps) {
			d := s.Totals.Code - snaps[i+1].Totals.Code
			rows[i].Delta = &d
		}
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Snapshots renders a newest-first snapshot list. now anchors the relative
// times in the table.
func (p *Printer) Snapshots(format Format, snaps []store.Snapshot, now time.Time) error {
	rows := snapshotRows(snaps)
	switch format {
	case FormatTable:
		_, err := fmt.Fprintln(p.w, p.snapshotTable(rows, now))
		return err
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []snapshotRow{}
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatCSV:
		return p.snapshotCSV(rows)
	case FormatMarkdown:
		return p.Markdown(snapshotMarkdown(rows))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func deltaCell(r snapshotRow) string {
	if r.Delta == nil {
		return "-"
	}
	return SignedNumber(*r.Delta)
}

func (p *Printer) snapshotTable(rows []snapshotRow, now time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.styles.border).
		Headers(snapshotHeaders...)

	for _, r := range rows {
		recorded := r.CreatedAt.Local().Format("2006-01-02 15:04") + " (" + humanize.RelTime(r.CreatedAt, now, "ago", "from now") + ")"
		t.Row(shortID(r.ID), recorded, r.Label, Number(r.Files), Number(r.Totals.Comment), Number(r.Totals.Code), deltaCell(r))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return p.styles.header
		}
		if col < 3 {
			return p.styles.cell
		}
		if d := rows[row].Delta; col == 6 && d != nil {
			switch {
			case *d > 0:
				return p.styles.added.Align(lipgloss.Right)
			case *d < 0:
				return p.styles.removed.Align(lipgloss.Right)
			}
		}
		return p.styles.cell.Align(lipgloss.Right)
	})
	return t.Render()
}

func (p *Printer) snapshotCSV(rows []snapshotRow) error {
	w := csv.NewWriter(p.w)
	_ = w.Write([]string{"ID", "Root", "Recorded", "Label", "Files", "Blank", "Comment", "Code", "Code Delta"})
	for _, r := range rows {
		delta := ""
		if r.Delta != nil {
			delta = strconv.Itoa(*r.Delta)
		}
		_ = w.Write([]string{
			r.ID, r.Root, r.CreatedAt.Format(time.RFC3339), r.Label,
			strconv.Itoa(r.Files), strconv.Itoa(r.Totals.Blank),
			strconv.Itoa(r.Totals.Comment), strconv.Itoa(r.Totals.Code), delta,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func snapshotMarkdown(rows []snapshotRow) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(snapshotHeaders, " | ") + " |\n")
	sb.WriteString("|:---|:---|:---|---:|---:|---:|---:|\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			shortID(r.ID), r.CreatedAt.Format(time.RFC3339), escapeMarkdown(r.Label),
			Number(r.Files), Number(r.Totals.Comment), Number(r.Totals.Code), deltaCell(r))
	}
	return sb.String()
}
