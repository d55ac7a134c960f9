package types

import "math"

// Transcript is the word-timed ASR output consumed by the audio classifiers.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Role is the semantic category of a tracked entity.
type Role string

const (
	RoleBall       Role = "ball"
	RoleGoalkeeper Role = "goalkeeper"
	RolePlayer     Role = "player"
	RoleReferee    Role = "referee"
)

// ParseRole maps a tracker role tag onto a Role. Plural tags written by the
// tracker ("players", "referees") are accepted.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "ball":
		return RoleBall, true
	case "goalkeeper", "goalkeepers":
		return RoleGoalkeeper, true
	case "player", "players":
		return RolePlayer, true
	case "referee", "referees":
		return RoleReferee, true
	}
	return "", false
}

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Valid reports whether all coordinates are finite and the box is non-empty.
func (b BoundingBox) Valid() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

func (b BoundingBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// TrackedFrame is one frame of the tracker's output. A role mapped to no
// boxes is absent in that frame.
type TrackedFrame struct {
	Index int
	Roles map[Role][]BoundingBox
}

// First returns the first box of role r, if any.
func (f TrackedFrame) First(r Role) (BoundingBox, bool) {
	boxes := f.Roles[r]
	if len(boxes) == 0 {
		return BoundingBox{}, false
	}
	return boxes[0], true
}

// Position is one entry of a PositionSeries; Present=false means absent.
type Position struct {
	Box     BoundingBox
	Present bool
}

// PositionSeries holds exactly one Position per frame of a stream.
type PositionSeries []Position

type EventLabel string

const (
	LabelGoalChance      EventLabel = "goal/chance"
	LabelPenaltySequence EventLabel = "penalty-sequence"
	LabelCard            EventLabel = "card"

	// audio-only labels
	LabelGoal       EventLabel = "goal"
	LabelChance     EventLabel = "chance"
	LabelSave       EventLabel = "save"
	LabelPenalty    EventLabel = "penalty"
	LabelShot       EventLabel = "shot"
	LabelExcitement EventLabel = "excitement"
)

// FrameEvent carries the labels fired for one frame. Confidence is the
// number of rules that fired.
type FrameEvent struct {
	Index      int
	Events     []EventLabel
	Confidence int
}

// EventInterval is a closed span of frames with aggregated labels.
type EventInterval struct {
	Start      int          `json:"start"`
	End        int          `json:"end"`
	Events     []EventLabel `json:"events"`
	Confidence int          `json:"confidence"`
}

// AudioMoment is a labeled span of the commentary, in seconds.
type AudioMoment struct {
	Start float64    `json:"start"`
	End   float64    `json:"end"`
	Label EventLabel `json:"label"`
	Text  string     `json:"text"`
	Score float64    `json:"score"`
}

type SegmentType string

const (
	SegmentVideo      SegmentType = "video"
	SegmentAudio      SegmentType = "audio"
	SegmentVideoAudio SegmentType = "video+audio"
)

// HasAudio reports whether the segment was sourced at least partly from audio.
func (t SegmentType) HasAudio() bool {
	return t == SegmentAudio || t == SegmentVideoAudio
}

// FusedSegment is one entry of the final highlight list.
type FusedSegment struct {
	Start  float64      `json:"start"`
	End    float64      `json:"end"`
	Type   SegmentType  `json:"type"`
	Events []EventLabel `json:"events"`
	Text   string       `json:"text,omitempty"`
}

// HasLabel reports whether labels contains l.
func HasLabel(labels []EventLabel, l EventLabel) bool {
	for _, x := range labels {
		if x == l {
			return true
		}
	}
	return false
}

// UnionLabels appends the labels of b missing from a, keeping first-seen order.
func UnionLabels(a []EventLabel, b ...EventLabel) []EventLabel {
	out := make([]EventLabel, 0, len(a)+len(b))
	seen := make(map[EventLabel]struct{}, len(a)+len(b))
	for _, set := range [][]EventLabel{a, b} {
		for _, l := range set {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// Manifest describes an assembled summary video.
type Manifest struct {
	RunID    string         `json:"run_id"`
	Input    string         `json:"input"`
	FPS      float64        `json:"fps"`
	Summary  string         `json:"summary,omitempty"`
	Chapters string         `json:"chapters,omitempty"`
	Clips    []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID       string       `json:"id"`
	StartSec float64      `json:"start_sec"`
	EndSec   float64      `json:"end_sec"`
	Type     SegmentType  `json:"type"`
	Events   []EventLabel `json:"events"`
	Text     string       `json:"text,omitempty"`
	File     string       `json:"file,omitempty"`
}
