package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// PlanRow is the flat export form of a plan item
type PlanRow struct {
	SessionID      string `yaml:"session" parquet:"session_id"`
	ID             string `yaml:"id" parquet:"id"`
	Name           string `yaml:"name" parquet:"name"`
	RawPath        string `yaml:"rawpath" parquet:"raw_path"`
	AbsPath        string `yaml:"abspath,omitempty" parquet:"abs_path"`
	Classification string `yaml:"classification" parquet:"classification"`
	Issues         string `yaml:"issues,omitempty" parquet:"issues"`
	MapRole        string `yaml:"maprole" parquet:"map_role"`
	Materials      string `yaml:"materials" parquet:"materials"`
	Suggestion     string `yaml:"suggestion,omitempty" parquet:"suggestion"`
	FinalFilename  string `yaml:"finalfilename,omitempty" parquet:"final_filename"`
	DestPreview    string `yaml:"destpreview,omitempty" parquet:"dest_preview"`
	Status         string `yaml:"status" parquet:"status"`
	LastError      string `yaml:"lasterror,omitempty" parquet:"last_error"`
	ReadOnly       bool   `yaml:"readonly" parquet:"read_only"`
	Selected       bool   `yaml:"selected" parquet:"selected"`
}

// ExportHeader describes the session in a YAML export
type ExportHeader struct {
	Session    string        `yaml:"session"`
	Phase      models.Phase  `yaml:"phase"`
	Scope      models.Scope  `yaml:"scope"`
	AIBlocked  bool          `yaml:"aiblocked"`
	Counts     models.Counts `yaml:"counts"`
	ExportedAt string        `yaml:"exportedat"`
}

// ExportSpec is the complete YAML export document
type ExportSpec struct {
	Session ExportHeader `yaml:"session"`
	Items   []PlanRow    `yaml:"items"`
}

// Rows flattens the session table.
func Rows(s *models.Session) []PlanRow {
	rows := make([]PlanRow, 0, len(s.Items))
	for _, it := range s.Items {
		sug := it.RefinedSuggestion
		if sug == "" {
			sug = it.InitialSuggestion
		}
		rows = append(rows, PlanRow{
			SessionID:      s.ID,
			ID:             it.ID,
			Name:           it.ImageName,
			RawPath:        it.RawPath,
			AbsPath:        it.AbsPath,
			Classification: string(it.Classification),
			Issues:         strings.Join(it.Issues, "; "),
			MapRole:        string(it.MapRole),
			Materials:      it.Materials,
			Suggestion:     sug,
			FinalFilename:  it.FinalFilename,
			DestPreview:    it.DestPreview,
			Status:         string(it.Status),
			LastError:      it.LastError,
			ReadOnly:       it.ReadOnly,
			Selected:       it.Selected,
		})
	}
	return rows
}

// Export writes the session table to path, choosing the format from the extension.
func Export(s *models.Session, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return exportYAML(s, path)
	case ".parquet":
		return exportParquet(s, path)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: .yaml, .parquet)", ext)
	}
}

func exportYAML(s *models.Session, path string) error {
	spec := ExportSpec{
		Session: ExportHeader{
			Session:    s.ID,
			Phase:      s.Phase,
			Scope:      s.Scope,
			AIBlocked:  s.AIBlocked,
			Counts:     s.Counts,
			ExportedAt: time.Now().Format("2006-01-02_15-04-05"),
		},
		Items: Rows(s),
	}

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

func exportParquet(s *models.Session, path string) error {
	if err := parquet.WriteFile(path, Rows(s)); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}
