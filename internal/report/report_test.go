package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

func fixedWriter(dir string) *Writer {
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	return &Writer{Dir: dir, Now: func() time.Time { return at }}
}

func sampleSession() *models.Session {
	s := models.NewSession("sess-1")
	s.Phase = models.PhaseAnalyzed
	s.Items = []models.PlanItem{
		models.NewPlanItem(models.ImageRecord{ID: "a", Name: "wood.png", RawPath: "//wood.png"}, models.TagExternalAdoptable, []string{"file lives outside the project"}, models.RoleBaseColor, "Floor"),
		models.NewPlanItem(models.ImageRecord{ID: "b", Name: "logo.png"}, models.TagPacked, []string{"image data is packed into the scene"}, models.RoleGeneric, "Sign"),
	}
	s.Items[0].Status = models.StatusReady
	s.Items[0].InitialSuggestion = "Oak"
	s.Items[0].FinalFilename = "LIME_Oak_BaseColor.png"
	s.Recount()
	return s
}

func TestWriteAnalysisNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := fixedWriter(dir)
	s := sampleSession()

	first, err := w.WriteAnalysis(&PhaseReport{RunID: "r1", Scope: s.Scope, Summary: s.Counts, Items: Items(s.Items)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := w.WriteAnalysis(&PhaseReport{RunID: "r2"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first == second {
		t.Fatalf("Expected distinct report paths, both were %s", first)
	}
	if !strings.HasPrefix(filepath.Base(first), "analysis_20261018_093000") {
		t.Errorf("Expected timestamped name, got %s", filepath.Base(first))
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	for _, key := range []string{"generated_at", "scope", "summary", "items"} {
		if _, ok := got[key]; !ok {
			t.Errorf("Expected key %q in report", key)
		}
	}
	if got["phase"] != "analysis" {
		t.Errorf("Expected phase analysis, got %v", got["phase"])
	}
}

func TestWriteManifest(t *testing.T) {
	w := fixedWriter(t.TempDir())
	m := &Manifest{
		RunID: "r1",
		Stats: ApplyStats{SelectedReady: 2, Adopted: 1, Errors: 1},
		Changes: []Change{{
			ItemID: "a", OriginalPath: "/src/wood.png", Hash: "abc", Bytes: 4,
			Action: "COPIED", DestPath: "/proj/textures/Oak.png", Relink: "relinked",
		}},
		Skips: []Skip{{ItemID: "b", Status: models.StatusError, Reason: "source missing"}},
	}
	path, err := w.WriteManifest(m)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	var back Manifest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Stats != m.Stats || len(back.Changes) != 1 || back.Changes[0].Hash != "abc" || len(back.Skips) != 1 {
		t.Errorf("Unexpected manifest round trip: %+v", back)
	}
}

func TestExportYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := Export(sampleSession(), path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	var spec ExportSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("Expected valid YAML, got %v", err)
	}
	if spec.Session.Session != "sess-1" || len(spec.Items) != 2 {
		t.Errorf("Unexpected export: %+v", spec)
	}
	if spec.Items[0].Suggestion != "Oak" || spec.Items[1].ReadOnly != true {
		t.Errorf("Unexpected rows: %+v", spec.Items)
	}
}

func TestExportParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.parquet")
	if err := Export(sampleSession(), path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	rows, err := parquet.ReadFile[PlanRow](path)
	if err != nil {
		t.Fatalf("Expected readable parquet, got %v", err)
	}
	if len(rows) != 2 || rows[0].FinalFilename != "LIME_Oak_BaseColor.png" || rows[1].Classification != "PACKED" {
		t.Errorf("Unexpected rows: %+v", rows)
	}
}

func TestExportUnsupported(t *testing.T) {
	if err := Export(sampleSession(), filepath.Join(t.TempDir(), "plan.csv")); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
