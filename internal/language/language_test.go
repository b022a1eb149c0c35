package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Builtin(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"main.c", "C", true},
		{"include/util.h", "C", true},
		{"src/App.JAVA", "Java", true},
		{"lib/index.mjs", "JavaScript", true},
		{"web/app.tsx", "TypeScript", true},
		{"cmd/tally/main.go", "Go", true},
		{"a/b/c.hpp", "C++", true},
		{"style.scss", "SCSS", true},
		{"Program.cs", "C#", true},
		{"src/lib.rs", "", false},
		{"README.md", "", false},
		{"Makefile", "", false},
		{"package-lock.json", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := d.Detect(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_ExtraExtension(t *testing.T) {
	d := NewDetector()
	d.AddExtension(".groovy", "Groovy")
	d.AddExtension("", "Nothing")

	got, ok := d.Detect("build.GROOVY")
	require.True(t, ok)
	assert.Equal(t, "Groovy", got)
}

func TestDetect_OverridesWinOverExtension(t *testing.T) {
	d := NewDetector()
	require.NoError(t, d.Configure(
		map[string]string{"proto": "Protobuf"},
		map[string]string{
			"vendor/**/*.c": "Vendored C",
			"*.h.in":        "C",
		},
	))

	got, ok := d.Detect("vendor/zlib/inflate.c")
	require.True(t, ok)
	assert.Equal(t, "Vendored C", got)

	got, ok = d.Detect("src/inflate.c")
	require.True(t, ok)
	assert.Equal(t, "C", got)

	got, ok = d.Detect("deep/dir/config.h.in")
	require.True(t, ok)
	assert.Equal(t, "C", got)

	got, ok = d.Detect("api/service.proto")
	require.True(t, ok)
	assert.Equal(t, "Protobuf", got)
}

func TestAddOverride_InvalidPattern(t *testing.T) {
	d := NewDetector()
	err := d.AddOverride("[unterminated", "C")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	d := NewDetector()
	require.NoError(t, d.AddOverride("*.tpl", "Template"))

	names := d.Names()
	assert.Contains(t, names, "C")
	assert.Contains(t, names, "Template")
	assert.NotContains(t, names, "Rust")
	assert.IsIncreasing(t, names)
}
