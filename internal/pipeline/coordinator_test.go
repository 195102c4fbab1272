package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wegman-software/osm2svg-go/internal/config"
	"github.com/wegman-software/osm2svg-go/internal/osmfile"
	"github.com/wegman-software/osm2svg-go/internal/render"
	"github.com/wegman-software/osm2svg-go/internal/rings"
)

// Relation 100 is a closed triangle in the window, 200 is a single open way,
// 300 is a closed way east of the window.
const fixtureXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="52.0" lon="8.0"/>
  <node id="2" lat="52.0" lon="9.0"/>
  <node id="3" lat="53.0" lon="8.5"/>
  <node id="4" lat="50.0" lon="10.0"/>
  <node id="5" lat="50.0" lon="30.0"/>
  <node id="6" lat="50.0" lon="31.0"/>
  <node id="7" lat="51.0" lon="30.5"/>
  <way id="10"><nd ref="1"/><nd ref="2"/></way>
  <way id="11"><nd ref="3"/><nd ref="2"/></way>
  <way id="12"><nd ref="3"/><nd ref="1"/></way>
  <way id="13"><nd ref="4"/><nd ref="1"/></way>
  <way id="14"><nd ref="5"/><nd ref="6"/><nd ref="7"/><nd ref="5"/></way>
  <relation id="100">
    <member type="way" ref="10" role="outer"/>
    <member type="way" ref="11" role="outer"/>
    <member type="way" ref="12" role="outer"/>
    <member type="way" ref="99" role="outer"/>
    <tag k="name" v="Dreieck"/>
    <tag k="admin_level" v="2"/>
  </relation>
  <relation id="200">
    <member type="way" ref="13" role="outer"/>
  </relation>
  <relation id="300">
    <member type="way" ref="14" role="outer"/>
    <tag k="admin_level" v="4"/>
  </relation>
</osm>
`

func fixtureSource() Source {
	open := func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(fixtureXML)), nil
	}
	return osmfile.NewReader(open, osmfile.FormatXML, 1, nil)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputFile = "fixture.osm"
	cfg.OutputFile = filepath.Join(dir, "borders.svg")
	cfg.ParquetFile = filepath.Join(dir, "rings.parquet")
	cfg.Workers = 3
	return cfg
}

func TestRunFailsOnUnclosableRing(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewCoordinator(context.Background(), cfg, fixtureSource())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.Run(context.Background(), Outputs{SVG: true})
	var unclosable *rings.UnclosableRingError
	if !errors.As(err, &unclosable) {
		t.Fatalf("Run() = %v, want UnclosableRingError", err)
	}
	if unclosable.RelationID != 200 {
		t.Errorf("RelationID = %d, want 200", unclosable.RelationID)
	}
}

func TestRunSkipUnclosable(t *testing.T) {
	cfg := testConfig(t)
	cfg.SkipUnclosable = true
	cfg.CullOutside = true

	c, err := NewCoordinator(context.Background(), cfg, fixtureSource())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	stats, err := c.Run(context.Background(), Outputs{SVG: true, Parquet: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Skipped) != 1 || stats.Skipped[0] != 200 {
		t.Errorf("Skipped = %v, want [200]", stats.Skipped)
	}
	if stats.Relations != 2 {
		t.Errorf("Relations = %d, want 2", stats.Relations)
	}
	if stats.Culled != 1 || stats.Rings != 1 {
		t.Errorf("Culled = %d Rings = %d, want 1 and 1", stats.Culled, stats.Rings)
	}
	if stats.Dangling != 1 {
		t.Errorf("Dangling = %d, want 1 (way 99)", stats.Dangling)
	}
	if stats.RingsExported != 1 {
		t.Errorf("RingsExported = %d, want 1", stats.RingsExported)
	}

	data, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, want := range []string{
		`<g id="relation_100" data-name="Dreieck">`,
		`<g id="relation_300">`,
		`stroke:black`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("SVG missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "relation_200") {
		t.Error("skipped relation should not be rendered")
	}
	// 300 was culled so its group holds no path
	if strings.Count(doc, "<path") != 1 {
		t.Errorf("want exactly one path:\n%s", doc)
	}
	if _, err := os.Stat(cfg.ParquetFile); err != nil {
		t.Errorf("parquet file: %v", err)
	}
}

func TestRunWithStyleScriptAndAllowList(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	stylePath := filepath.Join(dir, "style.yaml")
	if err := os.WriteFile(stylePath, []byte("relations: [100]\nfill_color: \"#00ff00\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.StyleFile = stylePath

	c, err := NewCoordinator(context.Background(), cfg, fixtureSource())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if len(cfg.Relations) != 1 || cfg.Relations[0] != 100 {
		t.Fatalf("allow-list from style file not applied: %v", cfg.Relations)
	}

	stats, err := c.Run(context.Background(), Outputs{SVG: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Ingest.DiscardedRelations != 2 || stats.Relations != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// A Lua policy replaces the YAML table
	scriptPath := filepath.Join(dir, "style.lua")
	script := `function style(r) if r.tags.admin_level == "2" then return "fill" end end`
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg2 := testConfig(t)
	cfg2.StyleScript = scriptPath
	cfg2.SkipUnclosable = true
	c2, err := NewCoordinator(context.Background(), cfg2, fixtureSource())
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	if _, err := c2.Run(context.Background(), Outputs{SVG: true}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg2.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fill-rule:evenodd") || !strings.Contains(string(data), "fill:none") {
		t.Errorf("expected one filled and one stroked relation:\n%s", data)
	}
}

func TestRenderToRecorder(t *testing.T) {
	cfg := testConfig(t)
	cfg.SkipUnclosable = true
	c, err := NewCoordinator(context.Background(), cfg, fixtureSource())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	window, err := c.Window()
	if err != nil {
		t.Fatal(err)
	}
	idx, err := c.Index(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := c.Reconstruct(context.Background(), idx, window)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[1] != nil {
		t.Fatalf("results = %v, want the second relation skipped", results)
	}
	if got := results[0].Rings[0].String(); got != "[+10 -11 +12]" {
		t.Errorf("ring = %s, want [+10 -11 +12]", got)
	}

	rec := &render.Recorder{}
	stats := &Stats{}
	if err := c.Render(rec, idx, window, results, stats); err != nil {
		t.Fatal(err)
	}
	if len(rec.Groups) != 2 || rec.Groups[0].RelationID != 100 || rec.Groups[1].RelationID != 300 {
		t.Errorf("groups = %+v", rec.Groups)
	}
	path := rec.Groups[0].Paths[0]
	if path[0].Point != path[len(path)-1].Point {
		t.Errorf("triangle should close: %v", path)
	}

	coords := RingCoords(idx, results[0].Rings[0], nil)
	if len(coords) != 8 || coords[0] != coords[6] || coords[1] != coords[7] {
		t.Errorf("RingCoords = %v, want 4 points ending at the start", coords)
	}
}

func TestNewCoordinatorErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.StyleFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewCoordinator(context.Background(), cfg, fixtureSource()); err == nil {
		t.Error("expected error for missing style file")
	}

	cfg = testConfig(t)
	cfg.InputFile = filepath.Join(t.TempDir(), "missing.osm.pbf")
	if _, err := NewCoordinator(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for missing input file")
	}
}
