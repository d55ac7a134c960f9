package trajectory

import "github.com/forPelevin/matchcut/internal/types"

// run is a maximal stretch of consecutive absent positions, [start, end]
// inclusive. hasLeft/hasRight report whether a known position exists
// immediately before/after it.
type run struct {
	start, end        int
	hasLeft, hasRight bool
}

func (r run) length() int { return r.end - r.start + 1 }

// Interpolate fills short gaps in role's position over the stream.
//
// Absence runs of at most maxGap frames are filled: linearly between the two
// neighbouring anchors, or by holding the single anchor when the run touches
// either end of the stream. Longer runs stay absent. Frames where role was
// present and every other role pass through unchanged. The input slice is
// not modified.
func Interpolate(frames []types.TrackedFrame, role types.Role, maxGap int) []types.TrackedFrame {
	series := Series(frames, role)
	filled := Fill(series, maxGap)

	out := make([]types.TrackedFrame, len(frames))
	copy(out, frames)
	for i := range out {
		if series[i].Present || !filled[i].Present {
			continue
		}
		out[i] = withRole(out[i], role, filled[i].Box)
	}
	return out
}

// Series extracts role's first box per frame. Boxes failing validation are
// treated as absent.
func Series(frames []types.TrackedFrame, role types.Role) types.PositionSeries {
	s := make(types.PositionSeries, len(frames))
	for i, f := range frames {
		if b, ok := f.First(role); ok && b.Valid() {
			s[i] = types.Position{Box: b, Present: true}
		}
	}
	return s
}

// Fill returns a copy of s with runs of length <= maxGap filled.
func Fill(s types.PositionSeries, maxGap int) types.PositionSeries {
	out := make(types.PositionSeries, len(s))
	copy(out, s)
	for _, r := range findRuns(s) {
		if r.length() > maxGap {
			continue
		}
		fillRun(out, s, r)
	}
	return out
}

func findRuns(s types.PositionSeries) []run {
	var runs []run
	start := -1
	for i, p := range s {
		switch {
		case !p.Present && start < 0:
			start = i
		case p.Present && start >= 0:
			runs = append(runs, run{start: start, end: i - 1, hasLeft: start > 0, hasRight: true})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{start: start, end: len(s) - 1, hasLeft: start > 0, hasRight: false})
	}
	return runs
}

func fillRun(dst, src types.PositionSeries, r run) {
	switch {
	case r.hasLeft && r.hasRight:
		left := src[r.start-1].Box
		right := src[r.end+1].Box
		span := float64(r.end + 2 - r.start)
		for i := r.start; i <= r.end; i++ {
			t := float64(i-r.start+1) / span
			dst[i] = types.Position{Box: lerp(left, right, t), Present: true}
		}
	case r.hasLeft:
		hold(dst, r, src[r.start-1].Box)
	case r.hasRight:
		hold(dst, r, src[r.end+1].Box)
	}
	// no anchors at all: the whole stream is absent, leave it.
}

func hold(dst types.PositionSeries, r run, b types.BoundingBox) {
	for i := r.start; i <= r.end; i++ {
		dst[i] = types.Position{Box: b, Present: true}
	}
}

func lerp(a, b types.BoundingBox, t float64) types.BoundingBox {
	return types.BoundingBox{
		X1: a.X1 + (b.X1-a.X1)*t,
		Y1: a.Y1 + (b.Y1-a.Y1)*t,
		X2: a.X2 + (b.X2-a.X2)*t,
		Y2: a.Y2 + (b.Y2-a.Y2)*t,
	}
}

func withRole(f types.TrackedFrame, role types.Role, b types.BoundingBox) types.TrackedFrame {
	roles := make(map[types.Role][]types.BoundingBox, len(f.Roles)+1)
	for k, v := range f.Roles {
		roles[k] = v
	}
	roles[role] = []types.BoundingBox{b}
	return types.TrackedFrame{Index: f.Index, Roles: roles}
}
