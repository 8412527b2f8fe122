package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind describes how an image's pixels are backed in the host scene
type SourceKind string

const (
	SourceFile      SourceKind = "FILE"
	SourceTiled     SourceKind = "TILED"
	SourceSequence  SourceKind = "SEQUENCE"
	SourceMovie     SourceKind = "MOVIE"
	SourceGenerated SourceKind = "GENERATED"
)

// MapRole is the material channel a texture feeds
type MapRole string

const (
	RoleBaseColor MapRole = "BaseColor"
	RoleNormal    MapRole = "Normal"
	RoleRoughness MapRole = "Roughness"
	RoleMetallic  MapRole = "Metallic"
	RoleAO        MapRole = "AO"
	RoleAlpha     MapRole = "Alpha"
	RoleHeight    MapRole = "Height"
	RoleEmission  MapRole = "Emission"
	RoleGeneric   MapRole = "Generic"
)

var mapRoles = []MapRole{
	RoleBaseColor, RoleNormal, RoleRoughness, RoleMetallic,
	RoleAO, RoleAlpha, RoleHeight, RoleEmission, RoleGeneric,
}

// ParseMapRole matches s against the known roles, ignoring case.
func ParseMapRole(s string) (MapRole, bool) {
	for _, r := range mapRoles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// ImageRecord is one distinct externally-backed asset supplied by the scene
type ImageRecord struct {
	ID      string     `json:"id" yaml:"id"`
	Name    string     `json:"name" yaml:"name"`
	RawPath string     `json:"raw_path" yaml:"raw_path"`
	AbsPath string     `json:"abs_path,omitempty" yaml:"abs_path,omitempty"`
	Exists  bool       `json:"exists" yaml:"exists"`
	Packed  bool       `json:"packed" yaml:"packed"`
	Linked  bool       `json:"linked" yaml:"linked"`
	Source  SourceKind `json:"source" yaml:"source"`
}

// UsageRecord is one edge from a consuming material to an image
type UsageRecord struct {
	Material       string   `json:"material" yaml:"material"`
	MaterialLinked bool     `json:"material_linked" yaml:"material_linked"`
	Role           MapRole  `json:"role" yaml:"role"`
	Targets        []string `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// SourceEntry pairs an image with every usage of it found during a scan
type SourceEntry struct {
	Image  ImageRecord   `json:"image"`
	Usages []UsageRecord `json:"usages"`
}

// Status tracks one plan item through the phases
type Status string

const (
	StatusAnalyzed  Status = "ANALYZED"
	StatusAIBlocked Status = "AI_BLOCKED"
	StatusReady     Status = "READY"
	StatusApplied   Status = "APPLIED"
	StatusError     Status = "ERROR"
	StatusSkipped   Status = "SKIPPED"
)

// Terminal reports whether no later phase may change the status
func (s Status) Terminal() bool {
	return s == StatusApplied || s == StatusSkipped
}

// Phase is the session-level lifecycle position
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseAnalyzed     Phase = "ANALYZED"
	PhaseRefined      Phase = "REFINED"
	PhaseReadyToApply Phase = "READY_TO_APPLY"
	PhaseApplied      Phase = "APPLIED"
)

// Scope selects which part of the scene a scan covers
type Scope string

const (
	ScopeAll       Scope = "ALL"
	ScopeSelection Scope = "SELECTION"
)

// ParseScope accepts "all" or "selection" in any case.
func ParseScope(s string) (Scope, error) {
	switch {
	case strings.EqualFold(s, string(ScopeAll)), s == "":
		return ScopeAll, nil
	case strings.EqualFold(s, string(ScopeSelection)):
		return ScopeSelection, nil
	default:
		return "", fmt.Errorf("unknown scope %q (expected all or selection)", s)
	}
}

// PlanItem is one row of the session table
type PlanItem struct {
	ID                string   `json:"id"`
	ImageName         string   `json:"image_name"`
	RawPath           string   `json:"raw_path"`
	AbsPath           string   `json:"abs_path,omitempty"`
	Classification    Tag      `json:"classification"`
	Issues            []string `json:"issues,omitempty"`
	MapRole           MapRole  `json:"map_role"`
	Materials         string   `json:"materials"`
	Hint              string   `json:"hint,omitempty"`
	InitialSuggestion string   `json:"initial_suggestion,omitempty"`
	RefinedSuggestion string   `json:"refined_suggestion,omitempty"`
	Explanation       string   `json:"explanation,omitempty"`
	FinalFilename     string   `json:"final_filename,omitempty"`
	DestPreview       string   `json:"dest_preview,omitempty"`
	Status            Status   `json:"status"`
	LastError         string   `json:"last_error,omitempty"`
	ReadOnly          bool     `json:"read_only"`
	Selected          bool     `json:"selected"`
}

// NewPlanItem builds a row for img with its read-only flag derived from tag.
func NewPlanItem(img ImageRecord, tag Tag, issues []string, role MapRole, materials string) PlanItem {
	adoptable := tag.Adoptable()
	return PlanItem{
		ID:             img.ID,
		ImageName:      img.Name,
		RawPath:        img.RawPath,
		AbsPath:        img.AbsPath,
		Classification: tag,
		Issues:         issues,
		MapRole:        role,
		Materials:      materials,
		Status:         StatusAnalyzed,
		ReadOnly:       !adoptable,
		Selected:       adoptable,
	}
}

// Validate checks the row-level invariants.
func (p *PlanItem) Validate() error {
	if p.ReadOnly == p.Classification.Adoptable() {
		return fmt.Errorf("item %s: read_only=%t disagrees with classification %s", p.ID, p.ReadOnly, p.Classification)
	}
	if p.Status == StatusReady && p.FinalFilename == "" {
		return fmt.Errorf("item %s: READY without a final filename", p.ID)
	}
	if p.ReadOnly && p.Selected {
		return fmt.Errorf("item %s: read-only item is selected", p.ID)
	}
	return nil
}

// Counts are the aggregate counters shown with the session table
type Counts struct {
	Total         int `json:"total"`
	Adoptable     int `json:"adoptable"`
	Protected     int `json:"protected"`
	Missing       int `json:"missing"`
	SelectedReady int `json:"selected_ready"`
}

// Reports holds the paths of the most recent phase reports
type Reports struct {
	Analysis      string `json:"analysis,omitempty"`
	Refine        string `json:"refine,omitempty"`
	ApplyManifest string `json:"apply_manifest,omitempty"`
}

// Session is the state of one ingestion run
type Session struct {
	ID        string                 `json:"id"`
	Items     []PlanItem             `json:"items"`
	Active    int                    `json:"active"`
	Scope     Scope                  `json:"scope"`
	Phase     Phase                  `json:"phase"`
	AIBlocked bool                   `json:"ai_blocked"`
	Counts    Counts                 `json:"counts"`
	Reports   Reports                `json:"reports"`
	Sources   map[string]SourceEntry `json:"sources,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewSession returns an empty IDLE session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Scope:     ScopeAll,
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset clears every row and returns the session to IDLE, keeping its ID.
func (s *Session) Reset() {
	s.Items = nil
	s.Sources = nil
	s.Active = 0
	s.Phase = PhaseIdle
	s.AIBlocked = false
	s.Counts = Counts{}
	s.Reports = Reports{}
	s.UpdatedAt = time.Now()
}

// Item returns a pointer to the row with the given ID.
func (s *Session) Item(id string) (*PlanItem, bool) {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i], true
		}
	}
	return nil, false
}

// Recount refreshes the aggregate counters from the rows.
func (s *Session) Recount() {
	c := Counts{Total: len(s.Items)}
	for _, it := range s.Items {
		switch {
		case it.Classification.Adoptable():
			c.Adoptable++
		case it.Classification == TagMissing:
			c.Missing++
		default:
			c.Protected++
		}
		if it.Selected && it.Status == StatusReady && !it.ReadOnly {
			c.SelectedReady++
		}
	}
	s.Counts = c
	s.UpdatedAt = time.Now()
}
