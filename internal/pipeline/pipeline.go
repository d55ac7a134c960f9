package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/matchcut/internal/config"
	"github.com/forPelevin/matchcut/internal/domain/classify"
	"github.com/forPelevin/matchcut/internal/domain/detect"
	"github.com/forPelevin/matchcut/internal/domain/fusion"
	"github.com/forPelevin/matchcut/internal/logging"
	"github.com/forPelevin/matchcut/internal/ports"
	"github.com/forPelevin/matchcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/matchcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/matchcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/matchcut/internal/store"
	"github.com/forPelevin/matchcut/internal/types"
	"github.com/forPelevin/matchcut/internal/usecase"
)

// ErrWorkspaceBusy is returned when another run holds the cache lock.
var ErrWorkspaceBusy = errors.New("workspace is locked by another run")

type Config struct {
	App       *config.Config
	Tracks    []string
	AudioJSON string
	VideoPath string
	Summary   bool
	Logger    *slog.Logger
}

func (c Config) Validate() error {
	if c.App == nil {
		return errors.New("configuration is nil")
	}
	if len(c.Tracks) == 0 {
		return errors.New("at least one tracking stream is required")
	}
	for _, p := range c.Tracks {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("stat tracks: %w", err)
		}
	}
	if c.VideoPath != "" {
		if _, err := os.Stat(c.VideoPath); err != nil {
			return fmt.Errorf("stat video: %w", err)
		}
	} else if c.Summary {
		return errors.New("summary requires --video")
	}
	if c.AudioJSON == "" && c.VideoPath != "" && c.App.Whisper.Model == "" {
		return errors.New("whisper model path is required to transcribe the video")
	}
	if c.useOpenRouter() {
		return openrouter.ValidateBaseURL(c.App.OpenRouter.BaseURL, c.App.OpenRouter.AllowedHosts)
	}
	return nil
}

func (c Config) useOpenRouter() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Classifier.Backend), "openrouter") && c.App.OpenRouter.APIKey != ""
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID    string
	OutDir   string
	Segments []types.FusedSegment
}

func Run(ctx context.Context, cfg Config) (Outcome, error) {
	app := cfg.App
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	baseCache := app.Paths.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	seed := strings.Join(append(append([]string{}, cfg.Tracks...), cfg.VideoPath), "|")
	cacheDir := filepath.Join(baseCache, "runs", hash(seed))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Outcome{}, err
	}
	unlock, err := lockWorkspace(cacheDir)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()
	log.Debug("workspace locked", "cache", cacheDir)

	outRoot := app.Paths.OutDir
	if outRoot == "" {
		outRoot = "out"
	}
	name := cfg.VideoPath
	if name == "" {
		name = cfg.Tracks[0]
	}
	runOutDir := buildRunOutDir(outRoot, name, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Outcome{}, err
	}
	log.Info("output run dir", "path", runOutDir)

	deps, err := buildDeps(cfg, log)
	if err != nil {
		return Outcome{}, err
	}
	runID := uuid.NewString()
	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		RunID:     runID,
		Tracks:    cfg.Tracks,
		AudioJSON: cfg.AudioJSON,
		VideoPath: cfg.VideoPath,
		Pass:      passFromConfig(app),
		Summary:   cfg.Summary,
		Padding:   time.Duration(app.Summary.Padding * float64(time.Second)),
		CacheDir:  cacheDir,
		OutDir:    runOutDir,
	})
	if err != nil {
		return Outcome{}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Outcome{}, err
	}
	log.Info("manifest written", "clips", len(res.Manifest.Clips), "path", manifestPath)

	st, err := store.Open(app.Paths.StorePath)
	if err != nil {
		return Outcome{}, err
	}
	defer st.Close()
	run := &store.Run{
		ID:           runID,
		Tracks:       cfg.Tracks,
		AudioPath:    cfg.AudioJSON,
		VideoPath:    cfg.VideoPath,
		FPS:          res.FPS,
		Frames:       res.Stats.Frames,
		Intervals:    len(res.Intervals),
		AudioMoments: len(res.Audio),
		OutDir:       runOutDir,
	}
	if res.Manifest.Summary != "" {
		run.SummaryPath = filepath.Join(runOutDir, res.Manifest.Summary)
	}
	if err := st.SaveRun(ctx, run, res.Segments); err != nil {
		return Outcome{}, err
	}
	log.Info("run recorded", "run_id", runID, "segments", len(res.Segments))
	return Outcome{RunID: runID, OutDir: runOutDir, Segments: res.Segments}, nil
}

func lockWorkspace(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, "matchcut.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

func buildDeps(cfg Config, log *slog.Logger) (usecase.Deps, error) {
	app := cfg.App
	lex, err := NewLexical(app.Classifier)
	if err != nil {
		return usecase.Deps{}, err
	}
	deps := usecase.Deps{
		Video:      ffmpeg.New(app.Video.FFmpeg, app.Video.FFprobe),
		ASR:        whispercpp.New(app.Whisper.Bin, app.Whisper.Model),
		Classifier: lexicalClassifier{c: lex},
		Logger:     log,
	}
	if cfg.useOpenRouter() {
		llm, err := openrouter.New(openrouter.Options{
			APIKey:          app.OpenRouter.APIKey,
			Model:           app.OpenRouter.Model,
			BaseURL:         app.OpenRouter.BaseURL,
			AllowedHosts:    app.OpenRouter.AllowedHosts,
			Timeout:         time.Duration(app.OpenRouter.TimeoutSeconds) * time.Second,
			MinScore:        app.OpenRouter.MinScore,
			RequestInterval: time.Duration(app.OpenRouter.RequestInterval * float64(time.Second)),
		}, lex)
		if err != nil {
			return usecase.Deps{}, err
		}
		deps.Classifier = llm
		deps.Fallback = lexicalClassifier{c: lex}
		log.Info("audio classifier", "backend", "openrouter", "model", app.OpenRouter.Model)
	} else if strings.EqualFold(app.Classifier.Backend, "openrouter") {
		log.Warn("OPENROUTER_API_KEY is not set, using the lexical classifier")
	}
	return deps, nil
}

// NewLexical builds the lexical classifier from the [classifier] section.
func NewLexical(c config.Classifier) (*classify.Classifier, error) {
	return classify.New(classify.Options{Window: c.Window, Threshold: c.Threshold, Phrases: c.Phrases})
}

// FusionParams maps the [fusion] section; fps comes from the caller.
func FusionParams(app *config.Config, fps float64) fusion.Params {
	return fusion.Params{
		FPS:            fps,
		MergeThreshold: app.Fusion.MergeThreshold,
		PenaltyGap:     app.Fusion.PenaltyGap,
		OverlapDedupe:  app.Fusion.OverlapDedupe,
	}
}

func passFromConfig(app *config.Config) usecase.Pass {
	return usecase.Pass{
		InterpolateMaxGap: app.Interpolate.MaxGap,
		Detector: detect.Config{
			History:        app.Detector.History,
			SpeedLag:       app.Detector.SpeedLag,
			SpeedThreshold: app.Detector.SpeedThreshold,
			ProximityPx:    app.Detector.ProximityPx,
		},
		AggregateMaxGap: app.Aggregate.MaxGap,
		MinDuration:     app.Aggregate.MinDuration,
		Fusion:          FusionParams(app, app.Video.FPS),
	}
}

type lexicalClassifier struct{ c *classify.Classifier }

func (l lexicalClassifier) Classify(_ context.Context, tr types.Transcript) ([]types.AudioMoment, error) {
	return l.c.Classify(tr), nil
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.AudioClassifier = (*openrouter.Adapter)(nil)
var _ ports.AudioClassifier = lexicalClassifier{}
