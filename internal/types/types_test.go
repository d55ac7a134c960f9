package types

import (
	"math"
	"reflect"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ball", RoleBall, true},
		{"goalkeepers", RoleGoalkeeper, true},
		{"player", RolePlayer, true},
		{"referees", RoleReferee, true},
		{"balls", "", false},
		{"coach", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseRole(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBoundingBoxValid(t *testing.T) {
	cases := []struct {
		name string
		box  BoundingBox
		want bool
	}{
		{"ordinary", BoundingBox{0, 0, 10, 10}, true},
		{"inverted x", BoundingBox{10, 0, 0, 10}, false},
		{"flat", BoundingBox{0, 5, 10, 5}, false},
		{"nan", BoundingBox{math.NaN(), 0, 10, 10}, false},
		{"inf", BoundingBox{0, 0, math.Inf(1), 10}, false},
	}
	for _, tc := range cases {
		if got := tc.box.Valid(); got != tc.want {
			t.Fatalf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}

	x, y := BoundingBox{2, 4, 6, 10}.Center()
	if x != 4 || y != 7 {
		t.Fatalf("Center() = (%v, %v), want (4, 7)", x, y)
	}
}

func TestTrackedFrameFirst(t *testing.T) {
	f := TrackedFrame{Roles: map[Role][]BoundingBox{
		RolePlayer: {{0, 0, 1, 1}, {5, 5, 6, 6}},
		RoleBall:   {},
	}}
	if b, ok := f.First(RolePlayer); !ok || b.X1 != 0 {
		t.Fatalf("First(player) = %+v, %v", b, ok)
	}
	if _, ok := f.First(RoleBall); ok {
		t.Fatalf("empty box list must read as absent")
	}
	if _, ok := f.First(RoleReferee); ok {
		t.Fatalf("missing role must read as absent")
	}
}

func TestUnionLabels(t *testing.T) {
	got := UnionLabels(
		[]EventLabel{LabelGoalChance, LabelGoalChance},
		LabelCard, LabelGoalChance, LabelPenaltySequence,
	)
	want := []EventLabel{LabelGoalChance, LabelCard, LabelPenaltySequence}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnionLabels = %v, want %v", got, want)
	}
	if !HasLabel(got, LabelCard) || HasLabel(got, LabelGoal) {
		t.Fatalf("HasLabel mismatch on %v", got)
	}
}

func TestSegmentTypeHasAudio(t *testing.T) {
	if SegmentVideo.HasAudio() {
		t.Fatalf("video segment reported audio")
	}
	if !SegmentAudio.HasAudio() || !SegmentVideoAudio.HasAudio() {
		t.Fatalf("audio-bearing segment not reported")
	}
}
