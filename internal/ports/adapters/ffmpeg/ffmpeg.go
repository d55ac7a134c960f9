package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// CutClip copies [start, end) of the input without re-encoding. Cuts land on
// the nearest preceding keyframe.
func (a *Adapter) CutClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string) error {
	if end <= start {
		return fmt.Errorf("cut clip: empty range %s..%s", start, end)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-t", fmtSeconds(end-start),
		"-i", inMP4,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut clip: %w\n%s", err, string(b))
	}
	return nil
}

// Concat joins clips with the concat demuxer. When metadata is non-empty it
// is an FFMETADATA1 file whose chapters are copied into the output.
func (a *Adapter) Concat(ctx context.Context, clips []string, metadata, outMP4 string) error {
	if len(clips) == 0 {
		return fmt.Errorf("concat: no clips")
	}
	listPath := outMP4 + ".list.txt"
	if err := os.WriteFile(listPath, []byte(concatList(clips)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	if metadata != "" {
		args = append(args, "-i", metadata, "-map_metadata", "1", "-map", "0")
	}
	args = append(args, "-c", "copy", outMP4)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	s, err := a.probe(ctx, inMP4, "format=duration", false)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// ProbeFPS reads the first video stream's frame rate. avg_frame_rate is
// preferred; r_frame_rate is used when the average is unknown.
func (a *Adapter) ProbeFPS(ctx context.Context, inMP4 string) (float64, error) {
	s, err := a.probe(ctx, inMP4, "stream=avg_frame_rate,r_frame_rate", true)
	if err != nil {
		return 0, fmt.Errorf("ffprobe fps: %w", err)
	}
	for _, line := range strings.Split(s, "\n") {
		if fps, err := ParseRate(line); err == nil && fps > 0 {
			return fps, nil
		}
	}
	return 0, fmt.Errorf("ffprobe fps: no usable rate in %q", s)
}

// ProbeFrameCount returns nb_frames of the first video stream, or 0 when the
// container does not record it.
func (a *Adapter) ProbeFrameCount(ctx context.Context, inMP4 string) (int, error) {
	s, err := a.probe(ctx, inMP4, "stream=nb_frames", true)
	if err != nil {
		return 0, fmt.Errorf("ffprobe frame count: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (a *Adapter) probe(ctx context.Context, inMP4, entries string, videoStream bool) (string, error) {
	args := []string{"-v", "error"}
	if videoStream {
		args = append(args, "-select_streams", "v:0")
	}
	args = append(args,
		"-show_entries", entries,
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMP4,
	)
	cmd := exec.CommandContext(ctx, a.ffprobe, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w\n%s", err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// ParseRate parses an ffprobe rate such as "30000/1001" or "25".
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if !ok {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("parse rate %q: zero denominator", s)
	}
	return n / d, nil
}

func concatList(clips []string) string {
	var b strings.Builder
	for _, c := range clips {
		if abs, err := filepath.Abs(c); err == nil {
			c = abs
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(c, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
