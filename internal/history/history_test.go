package history

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linetally/internal/stats"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// 2024-03-04 is a Monday.
const sampleLog = `COMMIT:c3|1709640000|Grace Hopper
diff --git a/main.c b/main.c
--- a/main.c
+++ b/main.c
@@ -1,3 +1,3 @@
 /* banner
-   old text */
+   new text */
-int x;
+int y;
COMMIT:c2|1709553600|Ada Lovelace
diff --git a/README.md b/README.md
--- a/README.md
+++ b/README.md
@@ -1 +1,2 @@
 # title
+more prose
diff --git a/util.go b/util.go
new file mode 100644
--- /dev/null
+++ b/util.go
@@ -0,0 +1,4 @@
+package util
+
+// Helper does nothing.
+func Helper() {}
COMMIT:c1|1709294400|Ada Lovelace

`

func TestParseLog(t *testing.T) {
	s, err := parseLog(context.Background(), strings.NewReader(sampleLog), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalCommits)

	want := []Period{
		{
			// c3: the changed lines continue a block opened in context.
			Date:      day("2024-03-05"),
			Additions: stats.FileStats{Comment: 1, Code: 1},
			Deletions: stats.FileStats{Comment: 1, Code: 1},
			NetCode:   0,
		},
		{
			Date:      day("2024-03-04"),
			Additions: stats.FileStats{Blank: 1, Comment: 1, Code: 2},
			NetCode:   2,
		},
		{
			Date: day("2024-03-01"),
		},
	}
	if diff := cmp.Diff(want, s.Daily); diff != "" {
		t.Errorf("daily mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[string]stats.FileStats{
		"Ada Lovelace": {Blank: 1, Comment: 1, Code: 2},
		"Grace Hopper": {Comment: 1, Code: 1},
	}, s.ByAuthor)
}

func TestParseLog_MalformedHeader(t *testing.T) {
	_, err := parseLog(context.Background(), strings.NewReader("COMMIT:abc|notatime|x\n"), nil)
	assert.Error(t, err)

	_, err = parseLog(context.Background(), strings.NewReader("COMMIT:abc\n"), nil)
	assert.Error(t, err)
}

func TestParseLog_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := parseLog(ctx, strings.NewReader(sampleLog), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByWeek(t *testing.T) {
	s := &Stats{Daily: []Period{
		{Date: day("2024-03-11"), Additions: stats.FileStats{Code: 1}, NetCode: 1},
		{Date: day("2024-03-10"), Additions: stats.FileStats{Code: 2}, NetCode: 2},
		{Date: day("2024-03-04"), Deletions: stats.FileStats{Code: 5}, NetCode: -5},
		{Date: day("2023-12-31"), Additions: stats.FileStats{Comment: 1}},
	}}

	weeks := s.ByWeek()
	require.Len(t, weeks, 3)
	assert.Equal(t, day("2024-03-11"), weeks[0].Date)
	assert.Equal(t, 1, weeks[0].NetCode)
	assert.Equal(t, day("2024-03-04"), weeks[1].Date)
	assert.Equal(t, -3, weeks[1].NetCode)
	assert.Equal(t, stats.FileStats{Code: 2}, weeks[1].Additions)
	assert.Equal(t, day("2023-12-25"), weeks[2].Date)
}

func TestAuthors(t *testing.T) {
	s := &Stats{ByAuthor: map[string]stats.FileStats{
		"bob":   {Code: 5},
		"alice": {Code: 5},
		"Carol": {Code: 9},
	}}

	var names []string
	for _, a := range s.Authors() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Carol", "alice", "bob"}, names)

	filtered := s.FilterAuthor("CAR")
	require.Len(t, filtered, 1)
	assert.Equal(t, "Carol", filtered[0].Name)
}

func TestRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)

	from, to, err := Range("", "", 7, now)
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-08"), from)
	assert.True(t, to.IsZero())

	from, to, err = Range("2024-01-01", "2024-01-31", 0, now)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), from)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), to)

	from, _, err = Range("2024-01-01T10:00:00+02:00", "", 0, now)
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))

	_, _, err = Range("2024-01-01", "", 7, now)
	assert.Error(t, err)
	_, _, err = Range("", "", -1, now)
	assert.Error(t, err)
	_, _, err = Range("yesterday", "", 0, now)
	assert.Error(t, err)
	_, _, err = Range("2024-02-01", "2024-01-01", 0, now)
	assert.Error(t, err)
}

// gitRepo creates a repository with deterministic authors and dates.
type gitRepo struct {
	t   *testing.T
	dir string
}

func newGitRepo(t *testing.T) *gitRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	r := &gitRepo{t: t, dir: t.TempDir()}
	r.git("", "", "init", "-q")
	return r
}

func (r *gitRepo) git(author, date string, args ...string) {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME="+author, "GIT_AUTHOR_EMAIL=a@example.com",
		"GIT_COMMITTER_NAME="+author, "GIT_COMMITTER_EMAIL=a@example.com",
		"GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, string(out))
}

func (r *gitRepo) commit(author, date string, files map[string]string) {
	r.t.Helper()
	for name, content := range files {
		p := filepath.Join(r.dir, name)
		require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(r.t, os.WriteFile(p, []byte(content), 0644))
	}
	r.git(author, date, "add", "-A")
	r.git(author, date, "commit", "-q", "-m", "change")
}

func TestAnalyze_Repository(t *testing.T) {
	repo := newGitRepo(t)
	repo.commit("Ada", "2024-03-04T10:00:00Z", map[string]string{
		"main.c":    "// entry\nint main() {\n\n    return 0;\n}\n",
		"notes.txt": "not source\n",
	})
	repo.commit("Grace", "2024-03-06T10:00:00Z", map[string]string{
		"main.c": "// entry\nint main() {\n\n    return 1;\n}\n",
	})

	ctx := context.Background()
	require.True(t, IsRepo(ctx, repo.dir))

	s, err := Analyze(ctx, repo.dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, s.TotalCommits)
	require.Len(t, s.Daily, 2)
	assert.Equal(t, day("2024-03-06"), s.Daily[0].Date)
	assert.Equal(t, stats.FileStats{Code: 1}, s.Daily[0].Additions)
	assert.Equal(t, stats.FileStats{Code: 1}, s.Daily[0].Deletions)
	assert.Equal(t, stats.FileStats{Blank: 1, Comment: 1, Code: 3}, s.Daily[1].Additions)
	assert.Equal(t, 3, s.Daily[1].NetCode)

	s, err = Analyze(ctx, repo.dir, Options{Since: day("2024-03-05")})
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalCommits)

	s, err = Analyze(ctx, repo.dir, Options{Author: "ada"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalCommits)
	assert.Contains(t, s.ByAuthor, "Ada")
}

func TestAnalyze_EmptyRepository(t *testing.T) {
	repo := newGitRepo(t)

	s, err := Analyze(context.Background(), repo.dir, Options{})
	require.NoError(t, err)
	assert.Zero(t, s.TotalCommits)
	assert.Empty(t, s.Daily)
}

func TestAnalyze_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	assert.False(t, IsRepo(context.Background(), dir))

	_, err := Analyze(context.Background(), dir, Options{})
	assert.Error(t, err)
}
