package scene

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himatts/LimePipeline-sub001/internal/models"
)

const snapshot = `name: Kitchen
images:
  - id: img-wood
    name: wood.png
    path: //src/wood.png
  - id: img-packed
    name: logo.png
    path: ""
    packed: true
  - id: img-unused
    name: unused.png
    path: //src/unused.png
materials:
  - name: Floor
    selected: true
    slots:
      - image: img-wood
        role: BaseColor
        targets: [Base Color]
  - name: Sign
    slots:
      - image: img-packed
`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "wood.png"), []byte("wood"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanAll(t *testing.T) {
	path := writeScene(t, snapshot)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entries, err := f.Scan(context.Background(), models.ScopeAll)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 used images, got %d", len(entries))
	}

	wood := entries[0].Image
	if wood.ID != "img-wood" || !wood.Exists || wood.Source != models.SourceFile {
		t.Errorf("Unexpected wood record %+v", wood)
	}
	if wood.AbsPath != filepath.Join(filepath.Dir(path), "src", "wood.png") {
		t.Errorf("Expected // path to resolve next to the scene, got %s", wood.AbsPath)
	}
	if entries[0].Usages[0].Role != models.RoleBaseColor {
		t.Errorf("Expected BaseColor usage, got %+v", entries[0].Usages)
	}

	packed := entries[1].Image
	if packed.AbsPath != "" || !packed.Packed {
		t.Errorf("Expected unresolved packed image, got %+v", packed)
	}
	if f.Name() != "Kitchen" {
		t.Errorf("Expected scene name Kitchen, got %s", f.Name())
	}
}

func TestScanSelection(t *testing.T) {
	f, err := Open(writeScene(t, snapshot))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := f.Scan(context.Background(), models.ScopeSelection)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Image.ID != "img-wood" {
		t.Errorf("Expected only the selected material's image, got %+v", entries)
	}
}

func TestRelinkPersists(t *testing.T) {
	path := writeScene(t, snapshot)
	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(filepath.Dir(path), "textures", "KITCHEN_Wood_BaseColor.png")
	if err := f.Relink("img-wood", dest); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := f.Relink("img-wood", dest); err != nil {
		t.Fatalf("Expected second relink to be a no-op, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "//textures/KITCHEN_Wood_BaseColor.png") {
		t.Errorf("Expected scene-relative path in snapshot, got:\n%s", data)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	entries, _ := reopened.Scan(context.Background(), models.ScopeAll)
	if entries[0].Image.AbsPath != dest {
		t.Errorf("Expected relinked path %s, got %s", dest, entries[0].Image.AbsPath)
	}
}

func TestRelinkUnknownImage(t *testing.T) {
	f, err := Open(writeScene(t, snapshot))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Relink("nope", "/tmp/x.png"); err == nil {
		t.Error("Expected error for unknown image")
	}
}

func TestOpenRejectsDanglingSlot(t *testing.T) {
	bad := `images: []
materials:
  - name: M
    slots:
      - image: ghost
`
	if _, err := Open(writeScene(t, bad)); err == nil {
		t.Error("Expected validation error for unknown image reference")
	}
}
