package models

// Tag is the classification assigned to an image by the classifier
type Tag string

const (
	TagUnsupported        Tag = "UNSUPPORTED"
	TagGenerated          Tag = "GENERATED"
	TagPacked             Tag = "PACKED"
	TagProtected          Tag = "PROTECTED"
	TagUnknown            Tag = "UNKNOWN"
	TagMissing            Tag = "MISSING"
	TagInTextureRoot      Tag = "IN_TEXTURE_ROOT"
	TagUDIMSkip           Tag = "UDIM_SKIP"
	TagExternalAdoptable  Tag = "EXTERNAL_ADOPTABLE"
	TagInProjectAdoptable Tag = "IN_PROJECT_ADOPTABLE"
	TagAdoptable          Tag = "ADOPTABLE"
)

// Adoptable reports whether items with this tag may be named, refined and applied
func (t Tag) Adoptable() bool {
	switch t {
	case TagExternalAdoptable, TagInProjectAdoptable, TagAdoptable:
		return true
	}
	return false
}
