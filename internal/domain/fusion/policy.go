package fusion

import "github.com/forPelevin/matchcut/internal/types"

// momentClass selects the retention policy of a video moment. Classes are
// checked in priority order.
type momentClass int

const (
	classPenalty momentClass = iota
	classChance
	classDefault
)

type policy struct {
	// requireAudio drops the moment when no audio was matched.
	requireAudio bool
	// absorbAudio folds matched audio labels into the segment.
	absorbAudio bool
}

var policies = map[momentClass]policy{
	// Strong geometric signal, trusted on its own.
	classPenalty: {absorbAudio: true},
	// Fires on routine play; needs an audio cue to survive.
	classChance:  {requireAudio: true, absorbAudio: true},
	classDefault: {},
}

func classify(events []types.EventLabel) momentClass {
	switch {
	case types.HasLabel(events, types.LabelPenaltySequence):
		return classPenalty
	case types.HasLabel(events, types.LabelGoalChance):
		return classChance
	default:
		return classDefault
	}
}

func policyFor(events []types.EventLabel) policy {
	return policies[classify(events)]
}

// apply returns the retained segment, or false if the moment is dropped.
func (p policy) apply(seg types.FusedSegment, matched []types.EventLabel) (types.FusedSegment, bool) {
	if len(matched) == 0 {
		return seg, !p.requireAudio
	}
	if !p.absorbAudio {
		return seg, true
	}
	seg.Type = types.SegmentVideoAudio
	seg.Events = types.UnionLabels(seg.Events, matched...)
	return seg, true
}
