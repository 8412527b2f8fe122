package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/providers"
)

type stubProvider struct {
	text    string
	err     error
	pingErr error
	prompt  string
}

func (p *stubProvider) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	p.prompt = config.Prompt
	return p.text, p.err
}

func (p *stubProvider) Ping(ctx context.Context) error {
	return p.pingErr
}

type noPing struct{}

func (noPing) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	return "", nil
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		stem     string
		role     models.MapRole
		wantErr  bool
	}{
		{name: "plain json", response: `{"stem":"oak planks","map_type":"Normal","explanation":"wood"}`, stem: "OakPlanks", role: models.RoleNormal},
		{name: "code fence", response: "```json\n{\"stem\":\"Rust\",\"map_type\":\"roughness\"}\n```", stem: "Rust", role: models.RoleRoughness},
		{name: "leading prose", response: "Sure! {\"stem\":\"Moss\"}", stem: "Moss"},
		{name: "unknown map type ignored", response: `{"stem":"Tile","map_type":"Specular"}`, stem: "Tile"},
		{name: "empty stem", response: `{"stem":"  !! "}`, wantErr: true},
		{name: "not json", response: "I cannot help with that", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseResponse(tc.response)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidOutput) {
					t.Errorf("Expected ErrInvalidOutput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got.Stem != tc.stem || got.Role != tc.role {
				t.Errorf("Expected %s/%s, got %s/%s", tc.stem, tc.role, got.Stem, got.Role)
			}
		})
	}
}

func TestBuildPromptIncludesContext(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(Request{
		OriginalName: "IMG_0042.jpg",
		Material:     "Floor",
		Role:         models.RoleBaseColor,
		Targets:      []string{"Base Color"},
		Hint:         "herringbone parquet",
		Prior:        "WoodFloor",
	})
	for _, want := range []string{"IMG_0042.jpg", "Floor", "BaseColor", "Base Color", "herringbone parquet", "WoodFloor"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	p := &stubProvider{text: `{"stem":"brushed steel","map_type":"Metallic"}`}
	s := NewService(p, "test-model")

	got, err := s.Suggest(context.Background(), Request{OriginalName: "steel.png", Role: models.RoleGeneric})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Stem != "BrushedSteel" || got.Role != models.RoleMetallic {
		t.Errorf("Unexpected suggestion %+v", got)
	}
	if !strings.Contains(p.prompt, "steel.png") {
		t.Error("Expected the prompt to reach the provider")
	}
}

func TestSuggestProviderError(t *testing.T) {
	t.Parallel()

	s := NewService(&stubProvider{err: errors.New("network down")}, "m")
	if _, err := s.Suggest(context.Background(), Request{}); err == nil {
		t.Error("Expected provider error to surface")
	}
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	if err := NewService(&stubProvider{pingErr: errors.New("no key")}, "m").Available(context.Background()); err == nil {
		t.Error("Expected ping failure to surface")
	}
	if err := NewService(noPing{}, "m").Available(context.Background()); err != nil {
		t.Errorf("Expected providers without Ping to be available, got %v", err)
	}
	if err := NewService(nil, "m").Available(context.Background()); err == nil {
		t.Error("Expected nil provider to be unavailable")
	}
}

func TestProviderFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "ollama", "openai", "gemini"} {
		if _, err := ProviderFor(name); err != nil {
			t.Errorf("ProviderFor(%q) returned %v", name, err)
		}
	}
	if _, err := ProviderFor("claude"); err == nil {
		t.Error("Expected unsupported provider error")
	}
}
