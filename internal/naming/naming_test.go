package naming

import (
	"path/filepath"
	"testing"

	"github.com/himatts/LimePipeline-sub001/internal/models"
)

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"spaces and underscores", "old wood_plank", "OldWoodPlank"},
		{"drops extension", "brick wall.png", "BrickWall"},
		{"keeps digits", "tile 02 grout", "Tile02Grout"},
		{"strips non ascii", "café table", "CafTable"},
		{"empty", "", ""},
		{"only symbols", "#$%", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeStem(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSafeFileStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PRJ_Wood_BaseColor.png", "PRJ_Wood_BaseColor"},
		{"my file (1).jpg", "my_file_1"},
		{"__x__", "x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeFileStem(tt.input); got != tt.expected {
			t.Errorf("SafeFileStem(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCanonicalFilename(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		stem     string
		role     models.MapRole
		ext      string
		expected string
	}{
		{"full", "LIME", "oak planks", models.RoleNormal, ".PNG", "LIME_OakPlanks_Normal.png"},
		{"generic role omitted", "LIME", "decal", models.RoleGeneric, "jpg", "LIME_Decal.jpg"},
		{"no token", "", "rust", models.RoleRoughness, ".tif", "Rust_Roughness.tif"},
		{"empty stem falls back", "LIME", "!!", models.RoleBaseColor, ".png", "LIME_Texture_BaseColor.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalFilename(tt.token, tt.stem, tt.role, tt.ext)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestClassifyPath(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "project")
	library := filepath.Join(root, "library")
	protected := []string{library}

	tests := []struct {
		name     string
		path     string
		expected PathClass
	}{
		{"relative is unknown", "textures/a.png", PathUnknown},
		{"empty is unknown", "", PathUnknown},
		{"inside project", filepath.Join(project, "tex", "a.png"), PathInProject},
		{"protected wins", filepath.Join(library, "a.png"), PathProtectedRoot},
		{"outside", filepath.Join(root, "downloads", "a.png"), PathExternal},
		{"sibling prefix is not inside", filepath.Join(root, "project2", "a.png"), PathExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPath(tt.path, project, protected); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestIsUDIMPath(t *testing.T) {
	if !IsUDIMPath("//tex/skin.<UDIM>.exr") {
		t.Error("Expected <UDIM> template to be detected")
	}
	if !IsUDIMPath("/tex/skin.<uvtile>.png") {
		t.Error("Expected <uvtile> template to be detected")
	}
	if IsUDIMPath("/tex/skin.1001.exr") {
		t.Error("Expected a concrete tile path not to be a template")
	}
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name     string
		usages   []models.UsageRecord
		expected models.MapRole
	}{
		{
			name:     "single explicit role",
			usages:   []models.UsageRecord{{Material: "M", Role: models.RoleNormal}},
			expected: models.RoleNormal,
		},
		{
			name:     "targets agree",
			usages:   []models.UsageRecord{{Material: "M", Targets: []string{"Base Color"}}, {Material: "N", Role: models.RoleBaseColor}},
			expected: models.RoleBaseColor,
		},
		{
			name:     "targets conflict",
			usages:   []models.UsageRecord{{Material: "M", Targets: []string{"Roughness", "Metallic"}}},
			expected: models.RoleGeneric,
		},
		{
			name:     "nothing known",
			usages:   []models.UsageRecord{{Material: "M", Targets: []string{"Fac"}}},
			expected: models.RoleGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.usages); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
