package discovery

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// gitignore holds the rules of every .gitignore seen so far, ordered from the
// repository root towards the leaves. Later rules override earlier ones.
type gitignore struct {
	rules  []ignoreRule
	loaded map[string]bool
}

type ignoreRule struct {
	base     string // directory of the .gitignore that defined the rule
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool // contains a slash, so it matches the base-relative path
}

func newGitignore() *gitignore {
	return &gitignore{loaded: make(map[string]bool)}
}

// loadAncestors reads .gitignore files from the enclosing repository root down
// to the parent of dir. Without a repository only dir's own file applies.
func (g *gitignore) loadAncestors(dir string) {
	if isRepoRoot(dir) {
		return
	}
	var chain []string
	for cur := filepath.Dir(dir); ; cur = filepath.Dir(cur) {
		chain = append([]string{cur}, chain...)
		if isRepoRoot(cur) {
			break
		}
		if filepath.Dir(cur) == cur {
			return
		}
	}
	for _, d := range chain {
		g.loadDir(d)
	}
}

func isRepoRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// loadDir appends the rules of dir/.gitignore, once per directory.
func (g *gitignore) loadDir(dir string) {
	if g.loaded[dir] {
		return
	}
	g.loaded[dir] = true

	rules, err := parseGitignore(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	g.rules = append(g.rules, rules...)
}

func parseGitignore(path string) ([]ignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	base := filepath.Dir(path)
	var rules []ignoreRule

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := trimTrailingSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r := ignoreRule{base: base}
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		} else if strings.HasPrefix(line, `\`) {
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			line = line[1:]
			r.anchored = true
		} else {
			r.anchored = strings.Contains(line, "/")
		}
		if line == "" || !doublestar.ValidatePattern(line) {
			continue
		}

		r.pattern = line
		rules = append(rules, r)
	}
	return rules, scanner.Err()
}

// trimTrailingSpace drops trailing blanks unless the last one is escaped.
func trimTrailingSpace(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
		i--
	}
	if i < len(s) && i > 0 && s[i-1] == '\\' {
		return s[:i-1] + " "
	}
	return s[:i]
}

// ignored reports whether the absolute path is excluded by the loaded rules.
func (g *gitignore) ignored(absPath string, isDir bool) bool {
	ignored := false
	for _, r := range g.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if r.match(absPath) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r ignoreRule) match(absPath string) bool {
	rel, err := filepath.Rel(r.base, absPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}

	if r.anchored {
		ok, _ := doublestar.Match(r.pattern, rel)
		return ok
	}
	ok, _ := doublestar.Match(r.pattern, filepath.Base(absPath))
	return ok
}
