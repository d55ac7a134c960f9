package fusion

import (
	"errors"
	"reflect"
	"testing"

	"github.com/forPelevin/matchcut/internal/types"
)

var defaultParams = Params{FPS: 25, MergeThreshold: 1, PenaltyGap: 1}

func labels(ls ...types.EventLabel) []types.EventLabel { return ls }

func TestFuse_PenaltyWithoutAudioKeptAsVideo(t *testing.T) {
	in := []types.EventInterval{{Start: 100, End: 120, Events: labels(types.LabelPenaltySequence)}}
	got, err := Fuse(in, nil, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.FusedSegment{{Start: 4.0, End: 4.8, Type: types.SegmentVideo, Events: labels(types.LabelPenaltySequence)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFuse_ChanceCorroboratedByAudio(t *testing.T) {
	in := []types.EventInterval{{Start: 200, End: 210, Events: labels(types.LabelGoalChance)}}
	audio := []types.AudioMoment{{Start: 8.3, End: 9.0, Label: types.LabelGoal, Text: "what a strike"}}
	got, err := Fuse(in, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.FusedSegment{{Start: 8.0, End: 8.4, Type: types.SegmentVideoAudio, Events: labels(types.LabelGoalChance, types.LabelGoal)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFuse_ChanceWithoutAudioDropped(t *testing.T) {
	in := []types.EventInterval{{Start: 200, End: 210, Events: labels(types.LabelGoalChance)}}
	far := []types.AudioMoment{{Start: 30, End: 31, Label: types.LabelGoal}}
	for name, audio := range map[string][]types.AudioMoment{"none": nil, "far": far} {
		t.Run(name, func(t *testing.T) {
			got, err := Fuse(in, audio, defaultParams)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 0 {
				t.Fatalf("expected moment dropped, got %+v", got)
			}
		})
	}
}

func TestFuse_CardPassThrough(t *testing.T) {
	audio := []types.AudioMoment{{Start: 50, End: 52, Label: types.LabelCard, Text: "straight red"}}
	got, err := Fuse(nil, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.FusedSegment{{Start: 50, End: 52, Type: types.SegmentAudio, Events: labels(types.LabelCard), Text: "straight red"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFuse_CardSuppressedOnExactBounds(t *testing.T) {
	// penalty moment at frames 100-120 (4.0-4.8s) absorbs a card with the same bounds.
	in := []types.EventInterval{{Start: 100, End: 120, Events: labels(types.LabelPenaltySequence)}}
	audio := []types.AudioMoment{{Start: 4.0, End: 4.8, Label: types.LabelCard}}
	got, err := Fuse(in, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != types.SegmentVideoAudio {
		t.Fatalf("expected single video+audio segment, got %+v", got)
	}
}

func TestFuse_CardOverlapDedupe(t *testing.T) {
	in := []types.EventInterval{{Start: 100, End: 120, Events: labels(types.LabelPenaltySequence)}}
	audio := []types.AudioMoment{{Start: 4.5, End: 5.5, Label: types.LabelCard}}

	exact, err := Fuse(in, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 2 {
		t.Fatalf("exact-bounds suppression must keep overlapping card, got %+v", exact)
	}

	p := defaultParams
	p.OverlapDedupe = true
	overlap, err := Fuse(in, audio, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(overlap) != 1 {
		t.Fatalf("overlap suppression must drop the card, got %+v", overlap)
	}
}

func TestFuse_DefaultClassIgnoresAudio(t *testing.T) {
	in := []types.EventInterval{{Start: 0, End: 25, Events: labels(types.LabelShot)}}
	audio := []types.AudioMoment{{Start: 0.5, End: 0.8, Label: types.LabelExcitement}}
	got, err := Fuse(in, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != types.SegmentVideo || len(got[0].Events) != 1 {
		t.Fatalf("expected unaltered video segment, got %+v", got)
	}
}

func TestFuse_PreMergeCollapsesFragments(t *testing.T) {
	in := []types.EventInterval{
		{Start: 300, End: 320, Events: labels(types.LabelGoalChance)},
		{Start: 100, End: 120, Events: labels(types.LabelPenaltySequence)},
		{Start: 140, End: 150, Events: labels(types.LabelGoalChance)},
	}
	got, err := Fuse(in, nil, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	// 100-150 merges (gap 20 <= 25 frames) and is kept as a penalty moment;
	// 300-320 is an uncorroborated chance and is dropped.
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %+v", got)
	}
	if got[0].Start != 4.0 || got[0].End != 6.0 {
		t.Fatalf("unexpected bounds %v-%v", got[0].Start, got[0].End)
	}
	if !types.HasLabel(got[0].Events, types.LabelGoalChance) || !types.HasLabel(got[0].Events, types.LabelPenaltySequence) {
		t.Fatalf("expected union of events, got %v", got[0].Events)
	}
}

func TestFuse_SortedOutput(t *testing.T) {
	in := []types.EventInterval{{Start: 1000, End: 1020, Events: labels(types.LabelPenaltySequence)}}
	audio := []types.AudioMoment{
		{Start: 90, End: 91, Label: types.LabelCard},
		{Start: 2, End: 3, Label: types.LabelCard},
	}
	got, err := Fuse(in, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Start > got[i].Start {
			t.Fatalf("output not sorted: %+v", got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(got))
	}
}

func TestFuse_DuplicateCardsEmittedOnce(t *testing.T) {
	audio := []types.AudioMoment{
		{Start: 10, End: 11, Label: types.LabelCard},
		{Start: 10, End: 11, Label: types.LabelCard},
	}
	got, err := Fuse(nil, audio, defaultParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one card segment, got %+v", got)
	}
}

func TestFuse_InvalidFPS(t *testing.T) {
	for _, fps := range []float64{0, -25} {
		_, err := Fuse(nil, nil, Params{FPS: fps})
		if !errors.Is(err, ErrInvalidFPS) {
			t.Fatalf("fps=%v: expected ErrInvalidFPS, got %v", fps, err)
		}
	}
}

func TestMatchAudio_Adjacency(t *testing.T) {
	tests := []struct {
		name string
		a    types.AudioMoment
		want bool
	}{
		{"overlap", types.AudioMoment{Start: 9, End: 11}, true},
		{"inside", types.AudioMoment{Start: 10.2, End: 10.4}, true},
		{"after within gap", types.AudioMoment{Start: 11.5, End: 13}, true},
		{"before within gap", types.AudioMoment{Start: 7, End: 9.2}, true},
		{"after beyond gap", types.AudioMoment{Start: 12.5, End: 13}, false},
		{"before beyond gap", types.AudioMoment{Start: 5, End: 8.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchAudio(10, 11, []types.AudioMoment{tt.a}, 1)
			if (len(got) == 1) != tt.want {
				t.Fatalf("matched=%v, want %v", len(got) == 1, tt.want)
			}
		})
	}
}
