package diff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modifyPatch = `diff --git a/src/main.c b/src/main.c
index 3b18e51..a5c1966 100644
--- a/src/main.c
+++ b/src/main.c
@@ -1,4 +1,5 @@
 #include <stdio.h>
-/* old banner */
+/* new banner
+ * two lines */
 int main() {
     return 0;
@@ -10 +11,0 @@ int helper(void)
-int unused;
`

func TestParse_ModifiedFile(t *testing.T) {
	files, err := Parse(strings.NewReader(modifyPatch))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "src/main.c", f.OldPath)
	assert.Equal(t, "src/main.c", f.NewPath)
	assert.Equal(t, "src/main.c", f.Path())
	assert.False(t, f.IsNew)
	assert.False(t, f.IsDelete)
	require.Len(t, f.Hunks, 2)

	want := Hunk{
		OldStart: 1, OldCount: 4, NewStart: 1, NewCount: 5,
		Lines: []Line{
			{LineContext, "#include <stdio.h>"},
			{LineRemoved, "/* old banner */"},
			{LineAdded, "/* new banner"},
			{LineAdded, " * two lines */"},
			{LineContext, "int main() {"},
			{LineContext, "    return 0;"},
		},
	}
	if diff := cmp.Diff(want, f.Hunks[0]); diff != "" {
		t.Errorf("hunk mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, Hunk{OldStart: 10, OldCount: 1, NewStart: 11, NewCount: 0,
		Lines: []Line{{LineRemoved, "int unused;"}}}, f.Hunks[1])
}

func TestParse_NewDeletedAndBinary(t *testing.T) {
	patch := `COMMIT:abc|1700000000|Ada
diff --git a/new.go b/new.go
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/new.go
@@ -0,0 +1,2 @@
+package x
+// doc
diff --git a/old.js b/old.js
deleted file mode 100644
index e69de29..0000000
--- a/old.js
+++ /dev/null
@@ -1 +0,0 @@
-var a = 1;
\ No newline at end of file
diff --git a/logo.png b/logo.png
index 1234567..89abcde 100644
Binary files a/logo.png and b/logo.png differ
`
	files, err := Parse(strings.NewReader(patch))
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.True(t, files[0].IsNew)
	assert.Equal(t, "new.go", files[0].Path())
	require.Len(t, files[0].Hunks, 1)
	assert.Len(t, files[0].Hunks[0].Lines, 2)

	assert.True(t, files[1].IsDelete)
	assert.Equal(t, "old.js", files[1].Path())
	require.Len(t, files[1].Hunks, 1)
	assert.Equal(t, []Line{{LineRemoved, "var a = 1;"}}, files[1].Hunks[0].Lines)

	assert.True(t, files[2].IsBinary)
	assert.Empty(t, files[2].Hunks)
}

func TestParse_HeaderLookalikesInsideHunk(t *testing.T) {
	patch := `diff --git a/a.c b/a.c
--- a/a.c
+++ b/a.c
@@ -1,2 +1,2 @@
--- decrement
+++ increment
 int x;
`
	files, err := Parse(strings.NewReader(patch))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.c", files[0].OldPath)
	assert.Equal(t, []Line{
		{LineRemoved, "-- decrement"},
		{LineAdded, "++ increment"},
		{LineContext, "int x;"},
	}, files[0].Hunks[0].Lines)
}

func TestParse_PlainUnifiedDiff(t *testing.T) {
	patch := "--- a.c\t2024-01-01\n+++ b.c\t2024-01-02\n@@ -1 +1 @@\n-x\n+y\n"
	files, err := Parse(strings.NewReader(patch))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.c", files[0].OldPath)
	assert.Equal(t, "b.c", files[0].NewPath)
	assert.Len(t, files[0].Hunks[0].Lines, 2)
}

func TestParse_Empty(t *testing.T) {
	files, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		in      string
		want    Hunk
		wantErr bool
	}{
		{in: "@@ -1,3 +1,4 @@", want: Hunk{OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 4}},
		{in: "@@ -5 +7 @@ func x()", want: Hunk{OldStart: 5, OldCount: 1, NewStart: 7, NewCount: 1}},
		{in: "@@ -0,0 +1,2 @@", want: Hunk{NewStart: 1, NewCount: 2}},
		{in: "@@ -a,1 +1 @@", wantErr: true},
		{in: "@@ -1 @@", wantErr: true},
		{in: "@@ -1 +1", wantErr: true},
		{in: "-1 +1 @@", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHunkHeader(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_InvalidHunkHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("diff --git a/x.c b/x.c\n@@ -z +1 @@\n"))
	assert.Error(t, err)
}

func TestSplitGitPaths(t *testing.T) {
	a, b := splitGitPaths("a/dir/x.c b/dir/y.c")
	assert.Equal(t, "dir/x.c", a)
	assert.Equal(t, "dir/y.c", b)
}

func TestLineTypeString(t *testing.T) {
	assert.Equal(t, "added", LineAdded.String())
	assert.Equal(t, "LineType(9)", LineType(9).String())
}
