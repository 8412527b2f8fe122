// Package scene reads and relinks a scene snapshot stored as YAML. The
// snapshot lists image datablocks and the materials that consume them.
package scene

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/naming"
	"github.com/himatts/LimePipeline-sub001/internal/store"
	"gopkg.in/yaml.v3"
)

// Image is one image datablock in the snapshot
type Image struct {
	ID     string            `yaml:"id"`
	Name   string            `yaml:"name"`
	Path   string            `yaml:"path"`
	Packed bool              `yaml:"packed,omitempty"`
	Linked bool              `yaml:"linked,omitempty"`
	Source models.SourceKind `yaml:"source,omitempty"`
}

// Slot is one image texture node inside a material
type Slot struct {
	Image   string         `yaml:"image"`
	Role    models.MapRole `yaml:"role,omitempty"`
	Targets []string       `yaml:"targets,omitempty"`
}

// Material is a consumer of images
type Material struct {
	Name     string `yaml:"name"`
	Linked   bool   `yaml:"linked,omitempty"`
	Selected bool   `yaml:"selected,omitempty"`
	Slots    []Slot `yaml:"slots"`
}

// Document is the on-disk snapshot
type Document struct {
	Name      string     `yaml:"name,omitempty"`
	Images    []Image    `yaml:"images"`
	Materials []Material `yaml:"materials"`
}

// File is a scene backed by a YAML snapshot on disk
type File struct {
	path string
	dir  string

	mu  sync.Mutex
	doc Document
}

// Open loads the snapshot at path.
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scene path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scene %s: %w", abs, err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scene %s: %w", abs, err)
	}
	return &File{path: abs, dir: filepath.Dir(abs), doc: doc}, nil
}

func (d *Document) validate() error {
	ids := make(map[string]bool, len(d.Images))
	for _, img := range d.Images {
		if img.ID == "" {
			return fmt.Errorf("image %q has no id", img.Name)
		}
		if ids[img.ID] {
			return fmt.Errorf("duplicate image id %q", img.ID)
		}
		ids[img.ID] = true
	}
	for _, m := range d.Materials {
		for _, s := range m.Slots {
			if !ids[s.Image] {
				return fmt.Errorf("material %q references unknown image %q", m.Name, s.Image)
			}
		}
	}
	return nil
}

// Path is the snapshot location.
func (f *File) Path() string {
	return f.path
}

// Name is the scene's display name, defaulting to the snapshot filename.
func (f *File) Name() string {
	if f.doc.Name != "" {
		return f.doc.Name
	}
	return strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
}

// Scan returns one entry per image used by a material in scope, in snapshot order.
func (f *File) Scan(ctx context.Context, scope models.Scope) ([]models.SourceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	usages := make(map[string][]models.UsageRecord)
	for _, m := range f.doc.Materials {
		if scope == models.ScopeSelection && !m.Selected {
			continue
		}
		for _, s := range m.Slots {
			usages[s.Image] = append(usages[s.Image], models.UsageRecord{
				Material:       m.Name,
				MaterialLinked: m.Linked,
				Role:           s.Role,
				Targets:        s.Targets,
			})
		}
	}

	entries := make([]models.SourceEntry, 0, len(usages))
	for _, img := range f.doc.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, ok := usages[img.ID]
		if !ok {
			continue
		}
		entries = append(entries, models.SourceEntry{Image: f.record(img), Usages: u})
	}
	slog.Debug("Scanned scene", "scene", f.path, "scope", scope, "images", len(entries))
	return entries, nil
}

func (f *File) record(img Image) models.ImageRecord {
	source := img.Source
	if source == "" {
		source = models.SourceFile
	}
	name := img.Name
	if name == "" {
		name = filepath.Base(img.Path)
	}
	rec := models.ImageRecord{
		ID:      img.ID,
		Name:    name,
		RawPath: img.Path,
		AbsPath: f.resolve(img.Path),
		Packed:  img.Packed,
		Linked:  img.Linked,
		Source:  source,
	}
	if rec.AbsPath != "" && !naming.IsUDIMPath(rec.AbsPath) {
		if info, err := os.Stat(rec.AbsPath); err == nil && !info.IsDir() {
			rec.Exists = true
		}
	}
	return rec
}

// resolve turns a stored path into an absolute one. "//" marks a path relative
// to the scene file; empty paths are unresolvable.
func (f *File) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return filepath.Join(f.dir, filepath.FromSlash(raw[2:]))
	case filepath.IsAbs(raw):
		return filepath.Clean(raw)
	default:
		return filepath.Join(f.dir, filepath.FromSlash(raw))
	}
}

// Relink points image id at newPath and saves the snapshot. Relinking to the
// current path is a no-op.
func (f *File) Relink(id string, newPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.doc.Images {
		if f.doc.Images[i].ID != id {
			continue
		}
		if f.resolve(f.doc.Images[i].Path) == filepath.Clean(newPath) {
			return nil
		}
		f.doc.Images[i].Path = f.relative(newPath)
		return f.save()
	}
	return fmt.Errorf("image %q not found in scene", id)
}

// relative expresses path with the "//" scene-relative prefix when it lives below the scene.
func (f *File) relative(path string) string {
	if naming.IsWithin(path, f.dir) {
		if rel, err := filepath.Rel(f.dir, path); err == nil {
			return "//" + filepath.ToSlash(rel)
		}
	}
	return path
}

func (f *File) save() error {
	data, err := yaml.Marshal(&f.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}
	if err := store.WriteFileAtomic(f.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save scene: %w", err)
	}
	return nil
}
