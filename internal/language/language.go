// Package language maps file paths to the names of languages whose comment
// syntax is "//" plus non-nesting "/* */". Every detected language is
// classified with the same grammar; the name only labels the aggregate row.
package language

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Info describes one supported language.
type Info struct {
	Name       string
	Extensions []string
}

// Builtin lists the languages recognised without configuration. Rust is
// deliberately absent: its block comments nest.
var Builtin = []Info{
	{Name: "C", Extensions: []string{"c", "h"}},
	{Name: "C#", Extensions: []string{"cs"}},
	{Name: "C++", Extensions: []string{"cpp", "cc", "cxx", "hpp", "hxx", "hh"}},
	{Name: "Go", Extensions: []string{"go"}},
	{Name: "Java", Extensions: []string{"java"}},
	{Name: "JavaScript", Extensions: []string{"js", "jsx", "mjs", "cjs"}},
	{Name: "Kotlin", Extensions: []string{"kt", "kts"}},
	{Name: "PHP", Extensions: []string{"php"}},
	{Name: "SCSS", Extensions: []string{"scss"}},
	{Name: "Sass", Extensions: []string{"sass"}},
	{Name: "Scala", Extensions: []string{"scala"}},
	{Name: "Swift", Extensions: []string{"swift"}},
	{Name: "TypeScript", Extensions: []string{"ts", "tsx"}},
}

type override struct {
	pattern string
	glob    glob.Glob
	name    string
}

// Detector resolves a path to a language name.
type Detector struct {
	byExt     map[string]string
	overrides []override
}

// NewDetector returns a Detector for the builtin languages.
func NewDetector() *Detector {
	d := &Detector{byExt: make(map[string]string)}
	for _, info := range Builtin {
		for _, ext := range info.Extensions {
			d.byExt[ext] = info.Name
		}
	}
	return d
}

// AddExtension maps an extra extension (with or without the leading dot)
// to a language name.
func (d *Detector) AddExtension(ext, name string) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || name == "" {
		return
	}
	d.byExt[ext] = name
}

// AddOverride maps every slash-separated path matching pattern to name.
// Overrides are consulted before extensions, in the order they were added.
func (d *Detector) AddOverride(pattern, name string) error {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return fmt.Errorf("invalid language override %q: %w", pattern, err)
	}
	d.overrides = append(d.overrides, override{pattern: pattern, glob: g, name: name})
	return nil
}

// Configure applies extension mappings and path overrides. Overrides are
// added in sorted pattern order so results do not depend on map iteration.
func (d *Detector) Configure(extensions, overrides map[string]string) error {
	for ext, name := range extensions {
		d.AddExtension(ext, name)
	}
	patterns := make([]string, 0, len(overrides))
	for p := range overrides {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		if err := d.AddOverride(p, overrides[p]); err != nil {
			return err
		}
	}
	return nil
}

// Detect returns the language of path. Extension matching is case-insensitive.
func (d *Detector) Detect(path string) (string, bool) {
	slashed := filepath.ToSlash(path)
	for _, o := range d.overrides {
		if o.glob.Match(slashed) || o.glob.Match(filepath.Base(path)) {
			return o.name, true
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "", false
	}
	name, ok := d.byExt[ext]
	return name, ok
}

// Names returns the sorted set of language names the detector can produce.
func (d *Detector) Names() []string {
	seen := make(map[string]bool)
	for _, n := range d.byExt {
		seen[n] = true
	}
	for _, o := range d.overrides {
		seen[o.name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
