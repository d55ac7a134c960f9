package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Detector.History < cfg.Detector.SpeedLag {
		t.Fatalf("default history shorter than lag")
	}
	if len(cfg.Classifier.Phrases["card"]) == 0 {
		t.Fatalf("expected default card phrases")
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "matchcut.toml")
	body := `
[video]
fps = 25

[aggregate]
max_gap = 50
min_duration = 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Video.FPS != 25 || cfg.Aggregate.MaxGap != 50 || cfg.Aggregate.MinDuration != 10 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Fusion.PenaltyGap != 1.0 {
		t.Fatalf("expected default penalty gap to survive, got %v", cfg.Fusion.PenaltyGap)
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	if _, _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[fusion]\nmerge_treshold = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", " sk-test ")
	t.Setenv("OPENROUTER_MODEL", "some/model")
	t.Setenv("OPENROUTER_ALLOWED_HOSTS", "a.example,b.example")
	cfg := Default()
	cfg.applyEnv()
	if cfg.OpenRouter.APIKey != "sk-test" || cfg.OpenRouter.Model != "some/model" {
		t.Fatalf("env not applied: %+v", cfg.OpenRouter)
	}
	if len(cfg.OpenRouter.AllowedHosts) != 2 {
		t.Fatalf("allowed hosts not split: %v", cfg.OpenRouter.AllowedHosts)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative fps", func(c *Config) { c.Video.FPS = -1 }, "video.fps"},
		{"negative min duration", func(c *Config) { c.Aggregate.MinDuration = -1 }, "aggregate.min_duration"},
		{"negative merge gap", func(c *Config) { c.Aggregate.MaxGap = -1 }, "aggregate.max_gap"},
		{"history below lag", func(c *Config) { c.Detector.History = 3; c.Detector.SpeedLag = 5 }, "detector.history"},
		{"bad backend", func(c *Config) { c.Classifier.Backend = "bert" }, "classifier.backend"},
		{"bad threshold", func(c *Config) { c.Classifier.Threshold = 1.5 }, "classifier.threshold"},
		{"negative request interval", func(c *Config) { c.OpenRouter.RequestInterval = -1 }, "openrouter.request_interval"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if cfg.Interpolate.MaxGap != Default().Interpolate.MaxGap {
		t.Fatalf("sample round trip mismatch")
	}
}
