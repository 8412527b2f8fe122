// Package classify decides whether a scene image may be adopted into the
// project texture store.
package classify

import (
	"fmt"
	"path/filepath"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/naming"
)

// Input carries everything the classifier looks at. It does no I/O of its own;
// Exists must be supplied by the caller.
type Input struct {
	Image          models.ImageRecord
	Usages         []models.UsageRecord
	AbsPath        string
	RawPath        string
	Exists         bool
	ProjectRoot    string
	ProtectedRoots []string
	DestRoot       string
}

var fileBacked = map[models.SourceKind]bool{
	models.SourceFile:  true,
	models.SourceTiled: true,
}

type check struct {
	tag    models.Tag
	hit    bool
	reason string
}

// Classify returns the first matching tag and the reasons of every check that
// fired, in evaluation order. The first reason always belongs to the returned tag;
// adoptable checks only contribute a reason when they decide.
func Classify(in Input) (models.Tag, []string) {
	udim := naming.IsUDIMPath(in.RawPath) || naming.IsUDIMPath(in.AbsPath)
	pathClass := naming.ClassifyPath(in.AbsPath, in.ProjectRoot, in.ProtectedRoots)
	linkedMaterial := firstLinkedMaterial(in.Usages)

	checks := []check{
		{
			tag:    models.TagUnsupported,
			hit:    !fileBacked[in.Image.Source] && in.Image.Source != models.SourceGenerated,
			reason: fmt.Sprintf("source kind %q is not supported", in.Image.Source),
		},
		{
			tag:    models.TagGenerated,
			hit:    in.Image.Source == models.SourceGenerated,
			reason: "image is generated and has no file",
		},
		{
			tag:    models.TagPacked,
			hit:    in.Image.Packed,
			reason: "image data is packed into the scene",
		},
		{
			tag:    models.TagProtected,
			hit:    in.Image.Linked,
			reason: "image is linked from an external library",
		},
		{
			tag:    models.TagProtected,
			hit:    linkedMaterial != "",
			reason: fmt.Sprintf("used by linked material %q", linkedMaterial),
		},
		{
			tag:    models.TagProtected,
			hit:    pathClass == naming.PathProtectedRoot,
			reason: "path is under a protected root",
		},
		{
			tag:    models.TagUnknown,
			hit:    in.AbsPath == "" || !filepath.IsAbs(in.AbsPath),
			reason: "path could not be resolved",
		},
		{
			tag:    models.TagMissing,
			hit:    !in.Exists && !udim,
			reason: "file does not exist on disk",
		},
		{
			tag:    models.TagInTextureRoot,
			hit:    in.DestRoot != "" && in.AbsPath != "" && naming.IsWithin(in.AbsPath, in.DestRoot),
			reason: "file already lives in the texture root",
		},
		{
			tag:    models.TagUDIMSkip,
			hit:    udim,
			reason: "multi-tile (UDIM) paths are not adopted",
		},
		{
			tag:    models.TagExternalAdoptable,
			hit:    in.ProjectRoot != "" && pathClass == naming.PathExternal,
			reason: "file lives outside the project",
		},
		{
			tag:    models.TagInProjectAdoptable,
			hit:    in.ProjectRoot != "" && pathClass == naming.PathInProject,
			reason: "file lives inside the project but outside the texture root",
		},
	}

	tag := models.TagAdoptable
	decided := false
	var reasons []string
	for _, c := range checks {
		if !c.hit || (decided && c.tag.Adoptable()) {
			continue
		}
		if !decided {
			tag = c.tag
			decided = true
		}
		reasons = append(reasons, c.reason)
	}
	if !decided {
		reasons = append(reasons, "no project root configured")
	}
	return tag, reasons
}

func firstLinkedMaterial(usages []models.UsageRecord) string {
	for _, u := range usages {
		if u.MaterialLinked {
			if u.Material == "" {
				return "<unnamed>"
			}
			return u.Material
		}
	}
	return ""
}
