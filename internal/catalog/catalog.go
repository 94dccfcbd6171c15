// Package catalog holds the static, ordered question catalog.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"discovery/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrEmptyCatalog = errors.New("catalog defines no sections")

// Catalog is the immutable ordered list of sections
type Catalog struct {
	Title    string
	sections []model.Section
	index    map[string]int                         // section id -> 0-based position
	byID     map[string]map[string]*model.Question // section id -> question id -> question
}

type catalogFile struct {
	Title    string          `yaml:"title"`
	Sections []model.Section `yaml:"sections"`
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the default catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	c, err := New(f.Sections)
	if err != nil {
		return nil, err
	}
	c.Title = f.Title
	return c, nil
}

// New builds a catalog from sections after validating them
func New(sections []model.Section) (*Catalog, error) {
	if len(sections) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		sections: sections,
		index:    make(map[string]int, len(sections)),
		byID:     make(map[string]map[string]*model.Question, len(sections)),
	}
	seen := make(map[string]bool)

	for i := range c.sections {
		s := &c.sections[i]
		if s.ID == "" {
			return nil, fmt.Errorf("section %d has no id", i+1)
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate section id %q", s.ID)
		}
		c.index[s.ID] = i

		questions := make(map[string]*model.Question, len(s.Questions))
		for j := range s.Questions {
			q := &s.Questions[j]
			if err := checkQuestion(q, seen); err != nil {
				return nil, fmt.Errorf("section %s: %w", s.ID, err)
			}
			questions[q.ID] = q
		}
		c.byID[s.ID] = questions
	}
	return c, nil
}

func checkQuestion(q *model.Question, seen map[string]bool) error {
	if q.ID == "" {
		return errors.New("question without id")
	}
	if seen[q.ID] {
		return fmt.Errorf("duplicate question id %q", q.ID)
	}
	seen[q.ID] = true

	if !q.Type.Valid() {
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
	if q.Type == model.QuestionTypeScale {
		lo, hi := q.Bounds()
		if lo > hi {
			return fmt.Errorf("question %s: min %d greater than max %d", q.ID, lo, hi)
		}
	}
	if q.Followup != nil {
		if q.Type != model.QuestionTypeYesNoFollowup {
			return fmt.Errorf("question %s: follow-up only allowed on %s", q.ID, model.QuestionTypeYesNoFollowup)
		}
		return checkQuestion(q.Followup, seen)
	}
	return nil
}

// Sections returns the sections in catalog order. Callers must not mutate them.
func (c *Catalog) Sections() []model.Section {
	return c.sections
}

// Len is the number of sections
func (c *Catalog) Len() int {
	return len(c.sections)
}

// Section looks up a section by id
func (c *Catalog) Section(id string) (*model.Section, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.sections[i], true
}

// SectionIndex returns the 1-based position of a section, or 0 if unknown
func (c *Catalog) SectionIndex(id string) int {
	i, ok := c.index[id]
	if !ok {
		return 0
	}
	return i + 1
}

// Question looks up a top-level question within a section
func (c *Catalog) Question(sectionID, questionID string) (*model.Question, bool) {
	qs, ok := c.byID[sectionID]
	if !ok {
		return nil, false
	}
	q, ok := qs[questionID]
	return q, ok
}
