package aggregate

import "github.com/forPelevin/matchcut/internal/types"

// Aggregate groups frame-ordered events into intervals.
//
// An event within maxGap frames of the open interval's end extends it; a
// larger gap closes it. Closed intervals shorter than minDuration frames
// (end-start) are dropped.
func Aggregate(events []types.FrameEvent, maxGap, minDuration int) []types.EventInterval {
	var (
		out  []types.EventInterval
		open *types.EventInterval
	)
	closeOpen := func() {
		if open != nil && open.End-open.Start >= minDuration {
			out = append(out, *open)
		}
	}

	for _, ev := range events {
		if open != nil && ev.Index-open.End <= maxGap {
			open.End = ev.Index
			open.Events = types.UnionLabels(open.Events, ev.Events...)
			open.Confidence += ev.Confidence
			continue
		}
		closeOpen()
		open = &types.EventInterval{
			Start:      ev.Index,
			End:        ev.Index,
			Events:     types.UnionLabels(nil, ev.Events...),
			Confidence: ev.Confidence,
		}
	}
	closeOpen()
	return out
}
