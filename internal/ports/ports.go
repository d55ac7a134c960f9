package ports

import (
	"context"
	"time"

	"github.com/forPelevin/matchcut/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	CutClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string) error
	Concat(ctx context.Context, clips []string, metadata, outMP4 string) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
	ProbeFPS(ctx context.Context, inMP4 string) (float64, error)
	ProbeFrameCount(ctx context.Context, inMP4 string) (int, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// AudioClassifier turns a commentary transcript into labeled moments.
type AudioClassifier interface {
	Classify(ctx context.Context, tr types.Transcript) ([]types.AudioMoment, error)
}
