// Package stats aggregates line counts per file, per language and per project.
package stats

import (
	"sort"
	"sync"

	"linetally/internal/classifier"
)

// FileStats holds line counts for one file or any aggregate of files.
type FileStats struct {
	Blank   int `json:"blank"`
	Comment int `json:"comment"`
	Code    int `json:"code"`
}

// FromResult converts a classification result into counts.
func FromResult(r classifier.Result) FileStats {
	return FileStats{Blank: r.Blank, Comment: r.Comment, Code: r.Code}
}

// Total returns the number of lines counted.
func (s FileStats) Total() int {
	return s.Blank + s.Comment + s.Code
}

// Add returns the element-wise sum of s and o.
func (s FileStats) Add(o FileStats) FileStats {
	return FileStats{
		Blank:   s.Blank + o.Blank,
		Comment: s.Comment + o.Comment,
		Code:    s.Code + o.Code,
	}
}

// Record counts one line of the given kind.
func (s *FileStats) Record(k classifier.LineKind) {
	switch k {
	case classifier.Blank:
		s.Blank++
	case classifier.Comment:
		s.Comment++
	case classifier.Code:
		s.Code++
	}
}

// Language is the aggregate for all files of one language.
type Language struct {
	Name  string    `json:"language"`
	Files int       `json:"files"`
	Stats FileStats `json:"stats"`
}

// Project aggregates statistics across languages. It is safe for concurrent use.
type Project struct {
	mu        sync.Mutex
	languages map[string]*Language
}

// NewProject returns an empty Project.
func NewProject() *Project {
	return &Project{languages: make(map[string]*Language)}
}

// AddFile records one file of the given language.
func (p *Project) AddFile(language string, s FileStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(language, 1, s)
}

// AddLanguage adds a whole language aggregate, as recorded earlier.
func (p *Project) AddLanguage(l Language) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(l.Name, l.Files, l.Stats)
}

func (p *Project) addLocked(language string, files int, s FileStats) {
	if p.languages == nil {
		p.languages = make(map[string]*Language)
	}
	l, ok := p.languages[language]
	if !ok {
		l = &Language{Name: language}
		p.languages[language] = l
	}
	l.Files += files
	l.Stats = l.Stats.Add(s)
}

// Merge adds every language aggregate of o into p.
func (p *Project) Merge(o *Project) {
	if o == nil || o == p {
		return
	}
	theirs := o.Languages()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range theirs {
		p.addLocked(l.Name, l.Files, l.Stats)
	}
}

// Languages returns a copy of the per-language aggregates sorted by name.
func (p *Project) Languages() []Language {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Language, 0, len(p.languages))
	for _, l := range p.languages {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Total returns the file count and line counts over all languages.
func (p *Project) Total() (int, FileStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		files int
		total FileStats
	)
	for _, l := range p.languages {
		files += l.Files
		total = total.Add(l.Stats)
	}
	return files, total
}

// Empty reports whether no file has been recorded.
func (p *Project) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.languages) == 0
}
