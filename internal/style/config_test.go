package style

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wegman-software/osm2svg-go/internal/membership"
	"github.com/wegman-software/osm2svg-go/internal/render"
)

const testPolicy = `
default: stroke
fill: [62781, 51477]
stroke: [16239]
stroke_width: 2.5
rules:
  - style: fill
    include:
      admin_level: ["2"]
    exclude:
      disputed: []
relations: [62781, 16239, 1]
`

func loadTestPolicy(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "style.yaml")
	if err := os.WriteFile(path, []byte(testPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := loadTestPolicy(t)
	if cfg.StrokeWidth != 2.5 {
		t.Errorf("StrokeWidth = %v, want 2.5", cfg.StrokeWidth)
	}
	// Unset fields keep their defaults
	if cfg.StrokeColor != "black" {
		t.Errorf("StrokeColor = %q, want black", cfg.StrokeColor)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Include["admin_level"][0] != "2" {
		t.Errorf("rules = %+v", cfg.Rules)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTableStyleFor(t *testing.T) {
	table, err := loadTestPolicy(t).Compile()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		rel  membership.Relation
		want render.Style
	}{
		{name: "fill list", rel: membership.Relation{ID: 62781}, want: render.StyleFill},
		{name: "stroke list beats rules", rel: membership.Relation{ID: 16239, Tags: map[string]string{"admin_level": "2"}}, want: render.StyleStroke},
		{name: "rule match", rel: membership.Relation{ID: 5, Tags: map[string]string{"admin_level": "2"}}, want: render.StyleFill},
		{name: "rule exclude", rel: membership.Relation{ID: 6, Tags: map[string]string{"admin_level": "2", "disputed": "yes"}}, want: render.StyleStroke},
		{name: "default", rel: membership.Relation{ID: 7, Tags: map[string]string{"admin_level": "4"}}, want: render.StyleStroke},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.StyleFor(&tt.rel); got != tt.want {
				t.Errorf("StyleFor(%d) = %v, want %v", tt.rel.ID, got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "bad default", cfg: Config{Default: "dotted"}, want: "default"},
		{name: "conflicting lists", cfg: Config{Stroke: []int64{3}, Fill: []int64{3}}, want: "both stroke and fill"},
		{name: "bad rule", cfg: Config{Rules: []Rule{{Style: "hatch"}}}, want: "rule 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Compile()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Compile() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestIsRelevant(t *testing.T) {
	cfg := loadTestPolicy(t)
	relevant := cfg.IsRelevant()
	for id, want := range map[int64]bool{62781: true, 1: true, 51477: false} {
		if got := relevant(id); got != want {
			t.Errorf("IsRelevant(%d) = %v, want %v", id, got, want)
		}
	}

	if !DefaultConfig().IsRelevant()(42) {
		t.Error("empty allow-list should accept everything")
	}
}

func TestFilterMatch(t *testing.T) {
	f := NewFilter(&FilterConfig{
		RequireAny: []string{"boundary"},
		Include:    map[string][]string{"admin_level": {"2", "4"}},
	})
	if !f.HasFilter() {
		t.Error("HasFilter() = false")
	}
	if !f.Match(map[string]string{"boundary": "administrative", "admin_level": "4"}) {
		t.Error("expected match")
	}
	if f.Match(map[string]string{"admin_level": "4"}) {
		t.Error("missing required key should not match")
	}
	if f.Match(map[string]string{"boundary": "administrative", "admin_level": "8"}) {
		t.Error("unlisted value should not match")
	}
	if NewFilter(nil).HasFilter() || !NewFilter(nil).Match(nil) {
		t.Error("empty filter should match everything")
	}
}
