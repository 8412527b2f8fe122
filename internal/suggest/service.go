// Package suggest asks an LLM provider for a descriptive texture name.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/himatts/LimePipeline-sub001/internal/gemini"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/naming"
	"github.com/himatts/LimePipeline-sub001/internal/ollama"
	"github.com/himatts/LimePipeline-sub001/internal/openai"
	"github.com/himatts/LimePipeline-sub001/internal/providers"
)

// ErrInvalidOutput is returned when the provider answers but the answer has no usable stem
var ErrInvalidOutput = errors.New("invalid naming output")

// Request describes the texture being named
type Request struct {
	OriginalName string
	Material     string
	Role         models.MapRole
	Targets      []string
	Hint         string
	Prior        string
}

// Suggestion is a validated naming answer
type Suggestion struct {
	Stem        string
	Role        models.MapRole
	Explanation string
}

// Suggester is the remote naming collaborator used by the pipeline
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Suggestion, error)
	Available(ctx context.Context) error
}

// Service implements Suggester on top of an LLM provider
type Service struct {
	provider    providers.Provider
	model       string
	temperature float64
	timeout     time.Duration
}

// NewService wraps provider. An empty model falls back to the provider's default.
func NewService(provider providers.Provider, model string) *Service {
	return &Service{
		provider:    provider,
		model:       model,
		temperature: 0.2,
		timeout:     90 * time.Second,
	}
}

// ProviderFor builds the provider named by name, defaulting to ollama.
func ProviderFor(name string) (providers.Provider, error) {
	switch name {
	case "", "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel returns the model for provider from the environment or a built-in default.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o-mini"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "", "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// Available reports whether the provider can currently be reached.
func (s *Service) Available(ctx context.Context) error {
	if s.provider == nil {
		return fmt.Errorf("no naming provider configured")
	}
	if checker, ok := s.provider.(providers.Checker); ok {
		return checker.Ping(ctx)
	}
	return nil
}

// Suggest asks the provider for a name and validates the answer.
func (s *Service) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	if s.provider == nil {
		return Suggestion{}, fmt.Errorf("no naming provider configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: s.temperature,
		Prompt:      BuildPrompt(req),
		JSON:        true,
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to get naming suggestion: %w", err)
	}

	sug, err := ParseResponse(raw)
	if err != nil {
		return Suggestion{}, err
	}
	slog.Debug("Naming suggestion", "original", req.OriginalName, "stem", sug.Stem, "role", sug.Role)
	return sug, nil
}

// BuildPrompt renders the naming instructions for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(`You name texture files for a 3D production pipeline.

Given the information below, propose a short descriptive name for the texture's content.

RULES:
1. Describe the surface or material (e.g. "OakPlanks", "BrushedSteel", "CrackedPlaster").
2. Use 1 to 4 English words. Do not include the project name, map type, resolution or file extension.
3. If the map type you see differs from the one given, report the one you believe is correct.
   Allowed map types: BaseColor, Normal, Roughness, Metallic, AO, Alpha, Height, Emission, Generic.

OUTPUT FORMAT:
Respond with ONLY a JSON object:

{
  "stem": "...",
  "map_type": "...",
  "explanation": "One sentence on why you chose this name"
}

TEXTURE:
`)
	fmt.Fprintf(&b, "- original filename: %s\n", req.OriginalName)
	if req.Material != "" {
		fmt.Fprintf(&b, "- material: %s\n", req.Material)
	}
	fmt.Fprintf(&b, "- map type: %s\n", req.Role)
	if len(req.Targets) > 0 {
		fmt.Fprintf(&b, "- feeds shader inputs: %s\n", strings.Join(req.Targets, ", "))
	}
	if req.Prior != "" {
		fmt.Fprintf(&b, "- previous suggestion: %s (improve on it)\n", req.Prior)
	}
	if req.Hint != "" {
		fmt.Fprintf(&b, "- artist hint: %s\n", req.Hint)
	}
	return b.String()
}

// ParseResponse extracts and validates the JSON answer, tolerating markdown code fences.
func ParseResponse(response string) (Suggestion, error) {
	var result struct {
		Stem        string `json:"stem"`
		MapType     string `json:"map_type"`
		Explanation string `json:"explanation"`
	}

	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if start, end := strings.Index(response, "{"), strings.LastIndex(response, "}"); start >= 0 && end > start {
		response = response[start : end+1]
	}

	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	stem := naming.SanitizeStem(result.Stem)
	if stem == "" {
		return Suggestion{}, fmt.Errorf("%w: empty stem %q", ErrInvalidOutput, result.Stem)
	}

	sug := Suggestion{Stem: stem, Explanation: strings.TrimSpace(result.Explanation)}
	if role, ok := models.ParseMapRole(strings.TrimSpace(result.MapType)); ok {
		sug.Role = role
	}
	return sug, nil
}
