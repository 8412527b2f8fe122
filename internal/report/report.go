// Package report writes the JSON audit trail of each phase: analysis and
// refine reports, and the apply manifest.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/store"
)

const timestampLayout = "20060102_150405.000"

// ItemRecord is the per-row entry of an analysis or refine report
type ItemRecord struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	RawPath        string         `json:"raw_path"`
	AbsPath        string         `json:"abs_path,omitempty"`
	Classification models.Tag     `json:"classification"`
	Issues         []string       `json:"issues,omitempty"`
	MapRole        models.MapRole `json:"map_role"`
	Materials      string         `json:"materials"`
	Suggestion     string         `json:"suggestion,omitempty"`
	FinalFilename  string         `json:"final_filename,omitempty"`
	Status         models.Status  `json:"status"`
	Error          string         `json:"error,omitempty"`
}

// PhaseReport is written at the end of Analyze and Refine
type PhaseReport struct {
	RunID       string        `json:"run_id"`
	Phase       string        `json:"phase"`
	GeneratedAt time.Time     `json:"generated_at"`
	Scope       models.Scope  `json:"scope"`
	AIBlocked   bool          `json:"ai_blocked"`
	Cancelled   bool          `json:"cancelled"`
	Summary     models.Counts `json:"summary"`
	Items       []ItemRecord  `json:"items"`
}

// Change records one applied item
type Change struct {
	ItemID         string       `json:"item_id"`
	OriginalPath   string       `json:"original_path"`
	Classification models.Tag   `json:"classification"`
	Hash           string       `json:"sha256"`
	Bytes          int64        `json:"bytes"`
	Action         store.Action `json:"action"`
	DestPath       string       `json:"dest_path"`
	Relink         string       `json:"relink"`
}

// Skip records one item that was skipped or failed during Apply
type Skip struct {
	ItemID       string        `json:"item_id"`
	OriginalPath string        `json:"original_path,omitempty"`
	Status       models.Status `json:"status"`
	Reason       string        `json:"reason"`
}

// ApplyStats are the run-level counters of an Apply pass
type ApplyStats struct {
	SelectedReady    int `json:"selected_ready"`
	Adopted          int `json:"adopted"`
	RelinkedExisting int `json:"relinked_existing"`
	Skipped          int `json:"skipped"`
	Errors           int `json:"errors"`
}

// Manifest is the durable record of an Apply pass
type Manifest struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Scope       models.Scope `json:"scope"`
	TextureRoot string       `json:"texture_root"`
	IndexPath   string       `json:"index_path"`
	Cancelled   bool         `json:"cancelled"`
	Stats       ApplyStats   `json:"stats"`
	Changes     []Change     `json:"changes"`
	Skips       []Skip       `json:"skips"`
}

// Writer places timestamped reports in one directory
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Items converts session rows into report records.
func Items(items []models.PlanItem) []ItemRecord {
	out := make([]ItemRecord, 0, len(items))
	for _, it := range items {
		sug := it.RefinedSuggestion
		if sug == "" {
			sug = it.InitialSuggestion
		}
		out = append(out, ItemRecord{
			ID:             it.ID,
			Name:           it.ImageName,
			RawPath:        it.RawPath,
			AbsPath:        it.AbsPath,
			Classification: it.Classification,
			Issues:         it.Issues,
			MapRole:        it.MapRole,
			Materials:      it.Materials,
			Suggestion:     sug,
			FinalFilename:  it.FinalFilename,
			Status:         it.Status,
			Error:          it.LastError,
		})
	}
	return out
}

// WriteAnalysis writes an analysis report and returns its path.
func (w *Writer) WriteAnalysis(r *PhaseReport) (string, error) {
	r.Phase = "analysis"
	r.GeneratedAt = w.Now().UTC()
	return w.write("analysis", r)
}

// WriteRefine writes a refine report and returns its path.
func (w *Writer) WriteRefine(r *PhaseReport) (string, error) {
	r.Phase = "refine"
	r.GeneratedAt = w.Now().UTC()
	return w.write("refine", r)
}

// WriteManifest writes an apply manifest and returns its path.
func (w *Writer) WriteManifest(m *Manifest) (string, error) {
	m.GeneratedAt = w.Now().UTC()
	return w.write("apply_manifest", m)
}

func (w *Writer) write(prefix string, v any) (string, error) {
	path, err := w.uniquePath(prefix)
	if err != nil {
		return "", err
	}
	if err := store.WriteJSONAtomic(path, v); err != nil {
		return "", fmt.Errorf("failed to write %s report: %w", prefix, err)
	}
	return path, nil
}

// uniquePath never returns the path of an existing report.
func (w *Writer) uniquePath(prefix string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	base := fmt.Sprintf("%s_%s", prefix, w.Now().Format(timestampLayout))
	for n := 1; n < 1000; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.json", base, n)
		}
		path := filepath.Join(w.Dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free report filename for %s", base)
}
