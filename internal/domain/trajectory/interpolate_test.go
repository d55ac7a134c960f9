package trajectory

import (
	"testing"

	"github.com/forPelevin/matchcut/internal/types"
)

func ballFrames(boxes ...*types.BoundingBox) []types.TrackedFrame {
	frames := make([]types.TrackedFrame, len(boxes))
	for i, b := range boxes {
		roles := map[types.Role][]types.BoundingBox{
			types.RolePlayer: {{X1: 1, Y1: 1, X2: 2, Y2: 2}},
		}
		if b != nil {
			roles[types.RoleBall] = []types.BoundingBox{*b}
		}
		frames[i] = types.TrackedFrame{Index: i, Roles: roles}
	}
	return frames
}

func box(x, y float64) *types.BoundingBox {
	return &types.BoundingBox{X1: x, Y1: y, X2: x + 10, Y2: y + 10}
}

func TestInterpolate_LinearInterior(t *testing.T) {
	in := ballFrames(box(0, 0), nil, nil, nil, box(40, 80))
	out := Interpolate(in, types.RoleBall, 3)

	want := []float64{0, 10, 20, 30, 40}
	for i, f := range out {
		b, ok := f.First(types.RoleBall)
		if !ok {
			t.Fatalf("frame %d: expected ball", i)
		}
		if b.X1 != want[i] || b.Y1 != 2*want[i] {
			t.Fatalf("frame %d: got (%v,%v), want (%v,%v)", i, b.X1, b.Y1, want[i], 2*want[i])
		}
	}
	if _, ok := in[2].First(types.RoleBall); ok {
		t.Fatalf("input frames must not be mutated")
	}
}

func TestInterpolate_LongGapStaysAbsent(t *testing.T) {
	in := ballFrames(box(0, 0), nil, nil, nil, box(40, 0))
	out := Interpolate(in, types.RoleBall, 2)
	for i := 1; i <= 3; i++ {
		if _, ok := out[i].First(types.RoleBall); ok {
			t.Fatalf("frame %d: run longer than max gap must stay absent", i)
		}
	}
}

func TestInterpolate_BoundaryHold(t *testing.T) {
	in := ballFrames(nil, nil, box(5, 5), box(7, 7), nil)
	out := Interpolate(in, types.RoleBall, 2)

	for i, wantX := range []float64{5, 5, 5, 7, 7} {
		b, ok := out[i].First(types.RoleBall)
		if !ok {
			t.Fatalf("frame %d: expected boundary fill", i)
		}
		if b.X1 != wantX {
			t.Fatalf("frame %d: got x1=%v, want %v", i, b.X1, wantX)
		}
	}
}

func TestInterpolate_Unchanged(t *testing.T) {
	tests := []struct {
		name string
		in   []types.TrackedFrame
	}{
		{"all absent", ballFrames(nil, nil, nil)},
		{"no absence", ballFrames(box(0, 0), box(1, 1))},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Interpolate(tt.in, types.RoleBall, 10)
			if len(out) != len(tt.in) {
				t.Fatalf("length changed: %d -> %d", len(tt.in), len(out))
			}
			for i := range out {
				gb, gok := out[i].First(types.RoleBall)
				wb, wok := tt.in[i].First(types.RoleBall)
				if gok != wok || gb != wb {
					t.Fatalf("frame %d changed", i)
				}
			}
		})
	}
}

func TestInterpolate_OtherRolesUntouched(t *testing.T) {
	in := ballFrames(box(0, 0), nil, box(20, 0))
	out := Interpolate(in, types.RoleBall, 1)
	if len(out[1].Roles[types.RolePlayer]) != 1 {
		t.Fatalf("player role lost during fill")
	}
}

func TestInterpolate_InvalidBoxTreatedAbsent(t *testing.T) {
	bad := &types.BoundingBox{X1: 10, Y1: 10, X2: 5, Y2: 5}
	in := ballFrames(box(0, 0), bad, box(20, 0))
	series := Series(in, types.RoleBall)
	if series[1].Present {
		t.Fatalf("inverted box must count as absent")
	}
	out := Interpolate(in, types.RoleBall, 1)
	b, _ := out[1].First(types.RoleBall)
	if b.X1 != 10 {
		t.Fatalf("expected interpolated x1=10, got %v", b.X1)
	}
}

func TestFill_Bounded(t *testing.T) {
	s := types.PositionSeries{
		{Box: *box(100, 0), Present: true},
		{}, {}, {}, {}, {},
		{Box: *box(-50, 30), Present: true},
	}
	out := Fill(s, 5)
	for i := 1; i <= 5; i++ {
		if !out[i].Present {
			t.Fatalf("frame %d not filled", i)
		}
		x := out[i].Box.X1
		if x > 100 || x < -50 {
			t.Fatalf("frame %d: x1=%v outside anchors", i, x)
		}
		if out[i].Box.X1 >= out[i-1].Box.X1 {
			t.Fatalf("frame %d: expected monotonic decrease", i)
		}
	}
}
