package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himatts/LimePipeline-sub001/internal/models"
)

func TestGetWithoutSession(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestSetAndReload(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	session := models.NewSession("abc")
	session.Phase = models.PhaseAnalyzed
	session.AIBlocked = true
	session.Items = []models.PlanItem{{ID: "img1", Status: models.StatusAIBlocked, Classification: models.TagAdoptable}}
	if err := s.Set(session); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	reloaded, err := New(dir).Get()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if reloaded.ID != "abc" || reloaded.Phase != models.PhaseAnalyzed || !reloaded.AIBlocked {
		t.Errorf("Unexpected session: %+v", reloaded)
	}
	if len(reloaded.Items) != 1 || reloaded.Items[0].Status != models.StatusAIBlocked {
		t.Errorf("Unexpected items: %+v", reloaded.Items)
	}
}

func TestGetOrCreate(t *testing.T) {
	s := New(t.TempDir())
	session, err := s.GetOrCreate("fresh")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if session.ID != "fresh" || session.Phase != models.PhaseIdle {
		t.Errorf("Expected fresh IDLE session, got %+v", session)
	}

	again, _ := s.GetOrCreate("other")
	if again != session {
		t.Error("Expected cached session to be returned")
	}
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Set(models.NewSession("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := os.Stat(s.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected session file to be removed")
	}
	if _, err := s.Get(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession after delete, got %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Errorf("Expected deleting twice to succeed, got %v", err)
	}
}

func TestGetRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{
			name: "read-only adoptable item",
			item: `{"id":"a","classification":"EXTERNAL_ADOPTABLE","status":"ANALYZED","read_only":true}`,
		},
		{
			name: "ready without a filename",
			item: `{"id":"b","classification":"EXTERNAL_ADOPTABLE","status":"READY","selected":true}`,
		},
		{
			name: "selected protected item",
			item: `{"id":"c","classification":"PACKED","status":"ANALYZED","read_only":true,"selected":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			data := `{"id":"s","phase":"ANALYZED","items":[` + tt.item + `]}`
			if err := os.WriteFile(filepath.Join(dir, SessionFilename), []byte(data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := New(dir).Get()
			if err == nil || !strings.Contains(err.Error(), "invalid session") {
				t.Errorf("Expected invalid session error, got %v", err)
			}
		})
	}
}
