// Package naming normalizes texture names and classifies filesystem paths
// relative to the project and protected roots.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/himatts/LimePipeline-sub001/internal/models"
)

// PathClass locates a path relative to the configured roots
type PathClass string

const (
	PathInProject     PathClass = "IN_PROJECT"
	PathExternal      PathClass = "EXTERNAL"
	PathProtectedRoot PathClass = "PROTECTED_ROOT"
	PathUnknown       PathClass = "UNKNOWN"
)

// DefaultStem is used when sanitizing leaves nothing behind
const DefaultStem = "Texture"

const maxStemLength = 64

var udimTokens = []string{"<udim>", "<uvtile>"}

// SanitizeStem turns free text into a PascalCase token of ASCII letters and digits.
// Any file extension is dropped first. The result may be empty.
func SanitizeStem(text string) string {
	text = strings.TrimSuffix(text, filepath.Ext(text))

	var b strings.Builder
	upperNext := true
	for _, r := range text {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upperNext = true
			continue
		}
		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}
		b.WriteRune(r)
		if b.Len() >= maxStemLength {
			break
		}
	}
	return b.String()
}

// SafeFileStem keeps letters, digits, '-' and '_' of a filename stem and
// collapses everything else into single underscores.
func SafeFileStem(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		ok := r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
		if !ok {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_-")
}

// ProjectToken derives the filename prefix for a project from its name.
func ProjectToken(name string) string {
	return strings.ToUpper(SanitizeStem(name))
}

// CanonicalFilename joins the project token, stem and map role into a filename with ext.
func CanonicalFilename(projectToken string, stem string, role models.MapRole, ext string) string {
	stem = SanitizeStem(stem)
	if stem == "" {
		stem = DefaultStem
	}
	parts := make([]string, 0, 3)
	if projectToken != "" {
		parts = append(parts, projectToken)
	}
	parts = append(parts, stem)
	if role != "" && role != models.RoleGeneric {
		parts = append(parts, string(role))
	}
	return strings.Join(parts, "_") + NormalizeExt(ext)
}

// NormalizeExt lowercases ext and guarantees a leading dot. Empty stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// ClassifyPath reports where path lies. Protected roots take precedence over the project root.
func ClassifyPath(path string, projectRoot string, protectedRoots []string) PathClass {
	if path == "" || !filepath.IsAbs(path) {
		return PathUnknown
	}
	for _, root := range protectedRoots {
		if root != "" && IsWithin(path, root) {
			return PathProtectedRoot
		}
	}
	if projectRoot != "" && IsWithin(path, projectRoot) {
		return PathInProject
	}
	return PathExternal
}

// IsWithin reports whether path equals root or lies below it.
func IsWithin(path string, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsUDIMPath reports whether raw is a multi-tile template rather than one file.
func IsUDIMPath(raw string) bool {
	lower := strings.ToLower(raw)
	for _, tok := range udimTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

var socketRoles = map[string]models.MapRole{
	"base color":        models.RoleBaseColor,
	"basecolor":         models.RoleBaseColor,
	"color":             models.RoleBaseColor,
	"diffuse":           models.RoleBaseColor,
	"albedo":            models.RoleBaseColor,
	"normal":            models.RoleNormal,
	"roughness":         models.RoleRoughness,
	"metallic":          models.RoleMetallic,
	"ambient occlusion": models.RoleAO,
	"ao":                models.RoleAO,
	"alpha":             models.RoleAlpha,
	"opacity":           models.RoleAlpha,
	"height":            models.RoleHeight,
	"displacement":      models.RoleHeight,
	"emission":          models.RoleEmission,
	"emission color":    models.RoleEmission,
	"emission strength": models.RoleEmission,
}

// RoleForSocket maps a shader socket name to a role, or Generic when unknown.
func RoleForSocket(socket string) models.MapRole {
	if r, ok := socketRoles[strings.ToLower(strings.TrimSpace(socket))]; ok {
		return r
	}
	return models.RoleGeneric
}

// ResolveRole picks one role for an image from all of its usages. Explicit
// usage roles and socket targets both vote; more than one distinct
// non-generic vote resolves to Generic.
func ResolveRole(usages []models.UsageRecord) models.MapRole {
	seen := make(map[models.MapRole]struct{})
	for _, u := range usages {
		if u.Role != "" && u.Role != models.RoleGeneric {
			seen[u.Role] = struct{}{}
		}
		for _, target := range u.Targets {
			if r := RoleForSocket(target); r != models.RoleGeneric {
				seen[r] = struct{}{}
			}
		}
	}
	if len(seen) != 1 {
		return models.RoleGeneric
	}
	for r := range seen {
		return r
	}
	return models.RoleGeneric
}
