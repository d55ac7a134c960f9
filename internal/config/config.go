package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output, cache and store locations.
type Paths struct {
	OutDir    string `toml:"out_dir"`
	CacheDir  string `toml:"cache_dir"`
	StorePath string `toml:"store_path"`
}

// Video contains source video settings.
type Video struct {
	FPS     float64 `toml:"fps"`
	FFmpeg  string  `toml:"ffmpeg"`
	FFprobe string  `toml:"ffprobe"`
}

type Interpolate struct {
	MaxGap int `toml:"max_gap"`
}

type Detector struct {
	History        int     `toml:"history"`
	SpeedLag       int     `toml:"speed_lag"`
	SpeedThreshold float64 `toml:"speed_threshold"`
	ProximityPx    float64 `toml:"proximity_px"`
}

type Aggregate struct {
	MaxGap      int `toml:"max_gap"`
	MinDuration int `toml:"min_duration"`
}

type Fusion struct {
	MergeThreshold float64 `toml:"merge_threshold"`
	PenaltyGap     float64 `toml:"penalty_gap"`
	OverlapDedupe  bool    `toml:"overlap_dedupe"`
}

// Classifier configures transcript-to-moment classification.
type Classifier struct {
	Backend   string              `toml:"backend"`
	Window    int                 `toml:"window"`
	Threshold float64             `toml:"threshold"`
	Phrases   map[string][]string `toml:"phrases"`
}

type Whisper struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

// OpenRouter configures the LLM classifier. The API key is read from the
// environment only.
type OpenRouter struct {
	APIKey         string   `toml:"-"`
	Model          string   `toml:"model"`
	BaseURL        string   `toml:"base_url"`
	AllowedHosts   []string `toml:"allowed_hosts"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MinScore       float64  `toml:"min_score"`

	// Seconds between batch requests; 0 disables pacing.
	RequestInterval float64 `toml:"request_interval"`
}

type Summary struct {
	Padding float64 `toml:"padding"`
}

type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for matchcut.
//
// Sections by stage:
//   - Interpolate, Detector, Aggregate, Fusion: the highlight pass
//   - Classifier, Whisper, OpenRouter: audio moments from commentary
//   - Video, Summary: probing and clip assembly
//   - Paths, Logging: ambient
type Config struct {
	Paths       Paths       `toml:"paths"`
	Video       Video       `toml:"video"`
	Interpolate Interpolate `toml:"interpolate"`
	Detector    Detector    `toml:"detector"`
	Aggregate   Aggregate   `toml:"aggregate"`
	Fusion      Fusion      `toml:"fusion"`
	Classifier  Classifier  `toml:"classifier"`
	Whisper     Whisper     `toml:"whisper"`
	OpenRouter  OpenRouter  `toml:"openrouter"`
	Summary     Summary     `toml:"summary"`
	Logging     Logging     `toml:"logging"`
}

// Default returns the configuration described by the embedded sample file.
func Default() Config {
	var cfg Config
	if err := toml.Unmarshal([]byte(sampleConfig), &cfg); err != nil {
		panic(fmt.Sprintf("embedded sample config: %v", err))
	}
	return cfg
}

// Load reads the config at path (or the default locations when path is
// empty) on top of the defaults, applies environment overrides and
// validates the result. exists reports whether a file was found.
func Load(path string) (cfg *Config, resolved string, exists bool, err error) {
	c := Default()

	resolved, exists, err = resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}
	if path != "" && !exists {
		return nil, "", false, fmt.Errorf("config file %s: %w", resolved, fs.ErrNotExist)
	}
	if exists {
		b, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, "", false, err
	}
	return &c, resolved, exists, nil
}

func resolvePath(path string) (string, bool, error) {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", false, err
		}
		return statFile(abs)
	}

	candidates := []string{"matchcut.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "matchcut", "config.toml"))
	}
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			return "", false, err
		}
		p, ok, err := statFile(abs)
		if err != nil {
			return "", false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return "", false, nil
}

func statFile(p string) (string, bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", p)
	}
	return p, true, nil
}

func (c *Config) applyEnv() {
	c.OpenRouter.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")); v != "" {
		c.OpenRouter.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")); v != "" {
		c.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("OPENROUTER_ALLOWED_HOSTS"); strings.TrimSpace(v) != "" {
		c.OpenRouter.AllowedHosts = strings.Split(v, ",")
	}
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
