package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/matchcut/internal/domain/aggregate"
	"github.com/forPelevin/matchcut/internal/domain/chapters"
	"github.com/forPelevin/matchcut/internal/domain/detect"
	"github.com/forPelevin/matchcut/internal/domain/fusion"
	"github.com/forPelevin/matchcut/internal/logging"
	"github.com/forPelevin/matchcut/internal/domain/trajectory"
	"github.com/forPelevin/matchcut/internal/momentsfile"
	"github.com/forPelevin/matchcut/internal/ports"
	"github.com/forPelevin/matchcut/internal/trackfile"
	"github.com/forPelevin/matchcut/internal/types"
)

// Deps are the collaborators of a highlight pass. Video and ASR are only
// needed when audio must be extracted or a summary assembled. Fallback, when
// set, labels the transcript if Classifier fails.
type Deps struct {
	Video      ports.VideoTool
	ASR        ports.ASR
	Classifier ports.AudioClassifier
	Fallback   ports.AudioClassifier
	Logger     *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return Usecase{d: d}
}

// Pass holds the tuning of the core highlight pass.
type Pass struct {
	InterpolateMaxGap int
	Detector          detect.Config
	AggregateMaxGap   int
	MinDuration       int
	Fusion            fusion.Params
}

type Input struct {
	RunID string
	// Tracks are tracking stream shards; they are merged by frame index.
	Tracks []string
	// AudioJSON, when set, supplies audio moments directly.
	AudioJSON string
	// VideoPath is the match recording. It is probed for fps and, without
	// AudioJSON, its commentary is transcribed.
	VideoPath string
	Pass      Pass
	Summary   bool
	Padding   time.Duration
	CacheDir  string
	OutDir    string
}

type Result struct {
	FPS       float64
	Stats     trackfile.Stats
	Intervals []types.EventInterval
	Audio     []types.AudioMoment
	Segments  []types.FusedSegment
	Manifest  types.Manifest
}

const (
	interpolatedName = "tracks_interpolated.jsonl"
	videoMomentsName = "video_moments.json"
	audioMomentsName = "audio_moments.json"
	transcriptName   = "transcript.json"
	segmentsName     = "segments.json"
	chaptersName     = "chapters.txt"
	summaryName      = "summary.mp4"
)

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := u.d.Logger

	fps, err := u.resolveFPS(ctx, in)
	if err != nil {
		return Result{}, err
	}
	pass := in.Pass
	pass.Fusion.FPS = fps

	frames, st, err := trackfile.ReadShards(ctx, in.Tracks)
	if err != nil {
		return Result{}, err
	}
	log.Info("tracking stream loaded", "frames", st.Frames, "shards", len(in.Tracks))
	if st.MalformedBox > 0 || st.UnknownRoles > 0 {
		log.Warn("malformed tracking input dropped", "boxes", st.MalformedBox, "unknown_roles", st.UnknownRoles)
	}
	if st.Truncated {
		log.Warn("tracking stream truncated", "last_frame", st.LastFrame)
	}
	u.checkCoverage(ctx, in.VideoPath, st)

	frames = trajectory.Interpolate(frames, types.RoleBall, pass.InterpolateMaxGap)
	if err := trackfile.WriteFile(filepath.Join(in.OutDir, interpolatedName), frames); err != nil {
		return Result{}, err
	}

	det, err := detect.NewDetector(pass.Detector)
	if err != nil {
		return Result{}, fmt.Errorf("detector: %w", err)
	}
	events := det.DetectAll(frames)
	intervals := aggregate.Aggregate(events, pass.AggregateMaxGap, pass.MinDuration)
	log.Info("video moments", "frame_events", len(events), "intervals", len(intervals))
	if err := momentsfile.WriteJSON(filepath.Join(in.OutDir, videoMomentsName), intervals); err != nil {
		return Result{}, err
	}

	audio, err := u.audioMoments(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if err := momentsfile.WriteJSON(filepath.Join(in.OutDir, audioMomentsName), audio); err != nil {
		return Result{}, err
	}

	segs, err := fusion.Fuse(intervals, audio, pass.Fusion)
	if err != nil {
		return Result{}, err
	}
	log.Info("segments fused", "segments", len(segs), "audio_moments", len(audio))
	if err := momentsfile.WriteJSON(filepath.Join(in.OutDir, segmentsName), segs); err != nil {
		return Result{}, err
	}

	res := Result{
		FPS:       fps,
		Stats:     st,
		Intervals: intervals,
		Audio:     audio,
		Segments:  segs,
		Manifest:  types.Manifest{RunID: in.RunID, Input: in.VideoPath, FPS: fps},
	}
	for i, s := range segs {
		res.Manifest.Clips = append(res.Manifest.Clips, types.ManifestClip{
			ID:       fmt.Sprintf("%03d", i+1),
			StartSec: s.Start,
			EndSec:   s.End,
			Type:     s.Type,
			Events:   s.Events,
			Text:     s.Text,
		})
	}

	if in.Summary {
		if err := u.assemble(ctx, in, segs, &res.Manifest); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func (u Usecase) resolveFPS(ctx context.Context, in Input) (float64, error) {
	fps := in.Pass.Fusion.FPS
	if fps > 0 {
		return fps, nil
	}
	if in.VideoPath != "" && u.d.Video != nil {
		probed, err := u.d.Video.ProbeFPS(ctx, in.VideoPath)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", fusion.ErrInvalidFPS, err)
		}
		u.d.Logger.Info("fps probed", "fps", probed)
		return probed, nil
	}
	return 0, fmt.Errorf("%w: set video.fps or pass --video", fusion.ErrInvalidFPS)
}

// checkCoverage warns when the tracking stream ends before the video does.
func (u Usecase) checkCoverage(ctx context.Context, video string, st trackfile.Stats) {
	if video == "" || u.d.Video == nil {
		return
	}
	n, err := u.d.Video.ProbeFrameCount(ctx, video)
	if err != nil {
		u.d.Logger.Debug("frame count probe failed", "error", err)
		return
	}
	if n > 0 && st.LastFrame+1 < n {
		u.d.Logger.Warn("tracking stream shorter than video", "last_frame", st.LastFrame, "video_frames", n)
	}
}

func (u Usecase) audioMoments(ctx context.Context, in Input) ([]types.AudioMoment, error) {
	if in.AudioJSON != "" {
		return momentsfile.ReadAudio(in.AudioJSON)
	}
	if in.VideoPath == "" {
		u.d.Logger.Info("no audio source, fusing video moments only")
		return nil, nil
	}
	if u.d.Video == nil || u.d.ASR == nil || u.d.Classifier == nil {
		return nil, errors.New("audio extraction requires video, asr and classifier collaborators")
	}

	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, wav); err != nil {
		return nil, err
	}
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return nil, err
	}
	if err := writeTranscript(filepath.Join(in.OutDir, transcriptName), tr); err != nil {
		u.d.Logger.Warn("transcript not saved", "error", err)
	}

	moments, err := u.d.Classifier.Classify(ctx, tr)
	if err != nil {
		if u.d.Fallback == nil {
			return nil, err
		}
		u.d.Logger.Warn("audio classifier failed, using lexical fallback", "error", err)
		return u.d.Fallback.Classify(ctx, tr)
	}
	return moments, nil
}

func writeTranscript(path string, tr types.Transcript) error {
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// assemble cuts one clip per segment and concatenates them with chapters.
func (u Usecase) assemble(ctx context.Context, in Input, segs []types.FusedSegment, m *types.Manifest) error {
	if in.VideoPath == "" || u.d.Video == nil {
		return errors.New("summary requires a video")
	}
	if len(segs) == 0 {
		u.d.Logger.Warn("no segments, summary skipped")
		return nil
	}
	limit, err := u.d.Video.ProbeDuration(ctx, in.VideoPath)
	if err != nil {
		u.d.Logger.Debug("duration probe failed, clips are not clamped", "error", err)
		limit = 0
	}

	clipsDir := filepath.Join(in.OutDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return err
	}

	var (
		clips []string
		kept  []types.FusedSegment
	)
	for i, s := range segs {
		start, end := chapters.ClipRange(s, in.Padding, limit)
		if end <= start {
			continue
		}
		id := m.Clips[i].ID
		clipPath := filepath.Join(clipsDir, id+".mp4")
		if err := u.d.Video.CutClip(ctx, in.VideoPath, start, end, clipPath); err != nil {
			return err
		}
		m.Clips[i].File = filepath.ToSlash(filepath.Join("clips", id+".mp4"))
		clips = append(clips, clipPath)
		kept = append(kept, s)
	}
	if len(clips) == 0 {
		u.d.Logger.Warn("every segment is empty after clamping, summary skipped")
		return nil
	}

	chPath := filepath.Join(in.OutDir, chaptersName)
	doc := chapters.Render(chapters.Layout(kept, in.Padding, limit))
	if err := os.WriteFile(chPath, []byte(doc), 0o644); err != nil {
		return err
	}
	summary := filepath.Join(in.OutDir, summaryName)
	if err := u.d.Video.Concat(ctx, clips, chPath, summary); err != nil {
		return err
	}
	m.Summary = summaryName
	m.Chapters = chaptersName
	u.d.Logger.Info("summary assembled", "clips", len(clips), "path", summary)
	return nil
}
