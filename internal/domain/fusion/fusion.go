package fusion

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/forPelevin/matchcut/internal/types"
)

// ErrInvalidFPS is returned when the frame rate is missing or not positive.
var ErrInvalidFPS = errors.New("fps must be > 0")

type Params struct {
	// FPS converts frame indices to seconds.
	FPS float64
	// MergeThreshold is the largest gap, in seconds, bridged when pre-merging
	// video moments.
	MergeThreshold float64
	// PenaltyGap is the adjacency window, in seconds, for audio matching.
	PenaltyGap float64
	// OverlapDedupe suppresses a card audio segment when any retained
	// audio-bearing segment overlaps it, instead of requiring identical bounds.
	OverlapDedupe bool
}

func (p Params) Validate() error {
	if p.FPS <= 0 || math.IsNaN(p.FPS) || math.IsInf(p.FPS, 0) {
		return fmt.Errorf("%w (got %v)", ErrInvalidFPS, p.FPS)
	}
	if p.MergeThreshold < 0 {
		return errors.New("merge threshold must be >= 0")
	}
	if p.PenaltyGap < 0 {
		return errors.New("penalty gap must be >= 0")
	}
	return nil
}

// Fuse reconciles video intervals with audio moments into the final,
// start-ordered segment list.
func Fuse(intervals []types.EventInterval, audio []types.AudioMoment, p Params) ([]types.FusedSegment, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("fusion: %w", err)
	}

	merged := PreMerge(intervals, int(p.FPS*p.MergeThreshold))

	var out []types.FusedSegment
	for _, iv := range merged {
		seg := types.FusedSegment{
			Start:  float64(iv.Start) / p.FPS,
			End:    float64(iv.End) / p.FPS,
			Type:   types.SegmentVideo,
			Events: iv.Events,
		}
		matched := MatchAudio(seg.Start, seg.End, audio, p.PenaltyGap)
		if kept, ok := policyFor(seg.Events).apply(seg, matched); ok {
			out = append(out, kept)
		}
	}

	out = appendCards(out, audio, p.OverlapDedupe)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// PreMerge sorts intervals by start and merges neighbours whose gap is at
// most maxGapFrames. The input is not modified.
func PreMerge(intervals []types.EventInterval, maxGapFrames int) []types.EventInterval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]types.EventInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []types.EventInterval{sorted[0]}
	out[0].Events = types.UnionLabels(nil, sorted[0].Events...)
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start-last.End <= maxGapFrames {
			if iv.End > last.End {
				last.End = iv.End
			}
			last.Events = types.UnionLabels(last.Events, iv.Events...)
			last.Confidence += iv.Confidence
			continue
		}
		iv.Events = types.UnionLabels(nil, iv.Events...)
		out = append(out, iv)
	}
	return out
}

// MatchAudio returns the labels of every audio moment overlapping
// [start, end] or lying within gap seconds of either boundary.
func MatchAudio(start, end float64, audio []types.AudioMoment, gap float64) []types.EventLabel {
	var labels []types.EventLabel
	for _, a := range audio {
		if adjacent(start, end, a, gap) {
			labels = append(labels, a.Label)
		}
	}
	return labels
}

func adjacent(start, end float64, a types.AudioMoment, gap float64) bool {
	if a.Start <= end && a.End >= start {
		return true
	}
	return math.Abs(a.Start-end) <= gap || math.Abs(a.End-start) <= gap
}

func appendCards(out []types.FusedSegment, audio []types.AudioMoment, overlap bool) []types.FusedSegment {
	for _, a := range audio {
		if a.Label != types.LabelCard {
			continue
		}
		if covered(out, a, overlap) {
			continue
		}
		out = append(out, types.FusedSegment{
			Start:  a.Start,
			End:    a.End,
			Type:   types.SegmentAudio,
			Events: []types.EventLabel{a.Label},
			Text:   a.Text,
		})
	}
	return out
}

func covered(segs []types.FusedSegment, a types.AudioMoment, overlap bool) bool {
	for _, s := range segs {
		if !s.Type.HasAudio() {
			continue
		}
		if s.Start == a.Start && s.End == a.End {
			return true
		}
		if overlap && a.Start <= s.End && a.End >= s.Start {
			return true
		}
	}
	return false
}
