// Package config resolves project settings from limetex.yaml, the environment
// and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/himatts/LimePipeline-sub001/internal/naming"
	"gopkg.in/yaml.v3"
)

// Filename is the project config file looked up in the project root
const Filename = "limetex.yaml"

// Config holds the resolved project settings
type Config struct {
	ProjectRoot    string   `yaml:"project_root"`
	ProjectToken   string   `yaml:"project_token"`
	TextureRoot    string   `yaml:"texture_root"`
	ProtectedRoots []string `yaml:"protected_roots"`
	Scene          string   `yaml:"scene"`
	ReportsDir     string   `yaml:"reports_dir"`
	Provider       string   `yaml:"provider"`
	Model          string   `yaml:"model"`
}

// StateDir is where the session file lives.
func (c *Config) StateDir() string {
	return filepath.Join(c.ProjectRoot, ".limetex")
}

// Load reads limetex.yaml from projectRoot when present, applies environment
// overrides and fills defaults. projectRoot defaults to the working directory.
func Load(projectRoot string) (*Config, error) {
	if projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		projectRoot = wd
	}
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg := &Config{}
	path := filepath.Join(root, Filename)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("No project config, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = root
	}
	cfg.applyEnv()
	if err := cfg.resolve(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LIMETEX_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("LIMETEX_MODEL"); v != "" {
		c.Model = v
	}
}

// resolve makes every path absolute relative to base and fills defaults.
func (c *Config) resolve(base string) error {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	c.ProjectRoot = abs(c.ProjectRoot)
	if !filepath.IsAbs(c.ProjectRoot) {
		return fmt.Errorf("project root %q is not absolute", c.ProjectRoot)
	}
	if c.TextureRoot == "" {
		c.TextureRoot = filepath.Join(c.ProjectRoot, "textures")
	}
	c.TextureRoot = abs(c.TextureRoot)
	if c.ReportsDir == "" {
		c.ReportsDir = filepath.Join(c.StateDir(), "reports")
	}
	c.ReportsDir = abs(c.ReportsDir)
	if c.Scene == "" {
		c.Scene = "scene.yaml"
	}
	c.Scene = abs(c.Scene)

	roots := make([]string, 0, len(c.ProtectedRoots))
	for _, r := range c.ProtectedRoots {
		if r == "" {
			continue
		}
		roots = append(roots, abs(r))
	}
	c.ProtectedRoots = roots

	if c.ProjectToken == "" {
		c.ProjectToken = naming.ProjectToken(filepath.Base(c.ProjectRoot))
	}
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	return nil
}

// Override applies the non-empty command-line values. A relative scene path
// is taken from the working directory.
func (c *Config) Override(scene string, provider string, model string) error {
	if scene != "" {
		abs, err := filepath.Abs(scene)
		if err != nil {
			return fmt.Errorf("failed to resolve scene path: %w", err)
		}
		c.Scene = abs
	}
	if provider != "" {
		c.Provider = provider
	}
	if model != "" {
		c.Model = model
	}
	return nil
}
