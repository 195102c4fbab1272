package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/render"
)

// Policy decides how a relation is drawn
type Policy interface {
	StyleFor(rel *membership.Relation) render.Style
}

// Config represents a per-relation style policy file
type Config struct {
	// Default style for relations not matched by any other entry
	Default string `yaml:"default,omitempty"`
	// Stroke lists relation ids drawn as strokes
	Stroke []int64 `yaml:"stroke,omitempty"`
	// Fill lists relation ids drawn as filled areas
	Fill []int64 `yaml:"fill,omitempty"`
	// Rules select a style by tags, first match wins. Id lists take precedence.
	Rules []Rule `yaml:"rules,omitempty"`
	// Relations is an optional allow-list; empty means every relation
	Relations []int64 `yaml:"relations,omitempty"`

	StrokeWidth float64 `yaml:"stroke_width,omitempty"`
	StrokeColor string  `yaml:"stroke_color,omitempty"`
	FillColor   string  `yaml:"fill_color,omitempty"`
}

// Rule assigns a style to relations whose tags pass its filter
type Rule struct {
	Style        string `yaml:"style"`
	FilterConfig `yaml:",inline"`
}

// LoadConfig loads a style policy from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}

	return cfg, nil
}

// DefaultConfig strokes every relation in black
func DefaultConfig() *Config {
	return &Config{
		Default:     "stroke",
		StrokeWidth: 1,
		StrokeColor: "black",
		FillColor:   "#d0d0d0",
	}
}

// IsRelevant returns the allow-list as a predicate
func (c *Config) IsRelevant() func(int64) bool {
	if len(c.Relations) == 0 {
		return func(int64) bool { return true }
	}
	allowed := make(map[int64]struct{}, len(c.Relations))
	for _, id := range c.Relations {
		allowed[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := allowed[id]
		return ok
	}
}

// Table is the compiled form of a Config
type Table struct {
	def   render.Style
	byID  map[int64]render.Style
	rules []compiledRule
}

type compiledRule struct {
	style  render.Style
	filter *Filter
}

// Compile validates a Config and builds its lookup table
func (c *Config) Compile() (*Table, error) {
	def := render.StyleStroke
	if c.Default != "" {
		s, err := render.ParseStyle(c.Default)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		def = s
	}

	t := &Table{def: def, byID: make(map[int64]render.Style, len(c.Stroke)+len(c.Fill))}
	for _, id := range c.Stroke {
		t.byID[id] = render.StyleStroke
	}
	for _, id := range c.Fill {
		if s, ok := t.byID[id]; ok && s != render.StyleFill {
			return nil, fmt.Errorf("relation %d is listed as both stroke and fill", id)
		}
		t.byID[id] = render.StyleFill
	}

	for i, r := range c.Rules {
		s, err := render.ParseStyle(r.Style)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		fc := r.FilterConfig
		t.rules = append(t.rules, compiledRule{style: s, filter: NewFilter(&fc)})
	}

	return t, nil
}

// StyleFor implements Policy
func (t *Table) StyleFor(rel *membership.Relation) render.Style {
	if s, ok := t.byID[rel.ID]; ok {
		return s
	}
	for _, r := range t.rules {
		if r.filter.Match(rel.Tags) {
			return r.style
		}
	}
	return t.def
}

// Fixed is a policy that gives every relation the same style
type Fixed render.Style

// StyleFor implements Policy
func (f Fixed) StyleFor(*membership.Relation) render.Style {
	return render.Style(f)
}
