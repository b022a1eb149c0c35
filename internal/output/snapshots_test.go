package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linetally/internal/stats"
	"linetally/internal/store"
)

func sampleSnapshots() []store.Snapshot {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return []store.Snapshot{
		{ID: "3f1c2d4e-aaaa-bbbb-cccc-000000000003", Root: "/repo", Label: "v2", CreatedAt: at, Files: 12, Totals: stats.FileStats{Comment: 40, Code: 1500}},
		{ID: "2b", Root: "/repo", CreatedAt: at.Add(-24 * time.Hour), Files: 11, Totals: stats.FileStats{Comment: 38, Code: 1600}},
		{ID: "1a", Root: "/repo", CreatedAt: at.Add(-48 * time.Hour), Files: 10, Totals: stats.FileStats{Comment: 30, Code: 1000}},
	}
}

func TestSnapshotsTable(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, NewPrinter(&buf, ColorNever).Snapshots(FormatTable, sampleSnapshots(), now))

	out := buf.String()
	assert.Contains(t, out, "3f1c2d4e")
	assert.NotContains(t, out, "3f1c2d4e-aaaa")
	assert.Contains(t, out, "v2")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "-100")
	assert.Contains(t, out, "+600")
	assert.Contains(t, out, "2 hours ago")
}

func TestSnapshotsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, ColorNever).Snapshots(FormatJSON, sampleSnapshots(), time.Now()))

	var doc []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 3)
	assert.Equal(t, "/repo", doc[0]["root"])
	assert.EqualValues(t, -100, doc[0]["code_delta"])
	assert.EqualValues(t, 600, doc[1]["code_delta"])
	assert.Nil(t, doc[2]["code_delta"])

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, ColorNever).Snapshots(FormatJSON, nil, time.Now()))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestSnapshotsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, ColorNever).Snapshots(FormatCSV, sampleSnapshots(), time.Now()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"2b", "/repo", "2024-03-04T10:00:00Z", "", "11", "0", "38", "1600", "600"}, records[2])
	assert.Equal(t, "", records[3][8])
}

func TestSnapshotsMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, ColorNever).Snapshots(FormatMarkdown, sampleSnapshots(), time.Now()))
	assert.Contains(t, buf.String(), "| 1a | 2024-03-03T10:00:00Z |  | 10 | 30 | 1,000 | - |")
}
