// Package trackfile reads and writes the tracking stream: JSON Lines with
// one frame per line,
//
//	{"frame_index":0,"roles":{"ball":[[x1,y1,x2,y2]],"players":[[...],[...]]}}
//
// Records are read forward-only. Invalid boxes are dropped (the role is
// absent for that frame), a partial final line marks a truncated stream,
// and shards written by parallel workers are re-sequenced by frame index.
package trackfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/matchcut/internal/types"
)

// ErrOutOfOrder is returned when the re-sequenced stream is not strictly
// increasing and gap-free.
var ErrOutOfOrder = errors.New("tracking stream is not strictly ordered")

const maxLineBytes = 16 << 20

// Stats reports what the reader absorbed.
type Stats struct {
	Frames       int
	MalformedBox int
	UnknownRoles int
	// Truncated is set when a shard ended with a partial record.
	Truncated bool
	// LastFrame is the last fully available frame index, -1 when empty.
	LastFrame int
}

type record struct {
	FrameIndex *int                         `json:"frame_index"`
	Roles      map[string][]json.RawMessage `json:"roles"`
}

// Read decodes one stream. Invalid boxes are counted and dropped.
func Read(r io.Reader) ([]types.TrackedFrame, Stats, error) {
	st := Stats{LastFrame: -1}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		frames  []types.TrackedFrame
		pending error
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if pending != nil {
			// a bad line followed by more data is corruption, not truncation.
			return nil, st, pending
		}
		f, err := decodeRecord(line, &st)
		if err != nil {
			pending = fmt.Errorf("line %d: %w", lineNo, err)
			continue
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, st, fmt.Errorf("read tracking stream: %w", err)
	}
	if pending != nil {
		st.Truncated = true
	}
	st.Frames = len(frames)
	if len(frames) > 0 {
		st.LastFrame = frames[len(frames)-1].Index
	}
	return frames, st, nil
}

func decodeRecord(line []byte, st *Stats) (types.TrackedFrame, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return types.TrackedFrame{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.FrameIndex == nil {
		return types.TrackedFrame{}, errors.New("record without frame_index")
	}
	f := types.TrackedFrame{Index: *rec.FrameIndex, Roles: make(map[types.Role][]types.BoundingBox, len(rec.Roles))}
	for tag, raws := range rec.Roles {
		role, ok := types.ParseRole(tag)
		if !ok {
			st.UnknownRoles++
			continue
		}
		// One bad box makes the whole role absent for this frame.
		boxes := make([]types.BoundingBox, 0, len(raws))
		bad := 0
		for _, raw := range raws {
			b, ok := parseBox(raw)
			if !ok {
				bad++
				continue
			}
			boxes = append(boxes, b)
		}
		if bad > 0 {
			st.MalformedBox += bad
			continue
		}
		if len(boxes) > 0 {
			f.Roles[role] = boxes
		}
	}
	return f, nil
}

func parseBox(raw json.RawMessage) (types.BoundingBox, bool) {
	var coords []*float64
	if err := json.Unmarshal(raw, &coords); err != nil || len(coords) != 4 {
		return types.BoundingBox{}, false
	}
	for _, c := range coords {
		if c == nil {
			return types.BoundingBox{}, false
		}
	}
	b := types.BoundingBox{X1: *coords[0], Y1: *coords[1], X2: *coords[2], Y2: *coords[3]}
	return b, b.Valid()
}

// ReadFile reads a single stream from disk.
func ReadFile(path string) ([]types.TrackedFrame, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{LastFrame: -1}, fmt.Errorf("open tracks: %w", err)
	}
	defer f.Close()
	frames, st, err := Read(f)
	if err != nil {
		return nil, st, fmt.Errorf("%s: %w", path, err)
	}
	return frames, st, nil
}

// ReadShards reads every shard concurrently, merges them by frame index and
// checks the result is strictly increasing and gap-free.
func ReadShards(ctx context.Context, paths []string) ([]types.TrackedFrame, Stats, error) {
	results := make([][]types.TrackedFrame, len(paths))
	stats := make([]Stats, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frames, st, err := ReadFile(p)
			if err != nil {
				return err
			}
			results[i] = frames
			stats[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{LastFrame: -1}, err
	}

	var (
		all []types.TrackedFrame
		st  = Stats{LastFrame: -1}
	)
	for i := range results {
		all = append(all, results[i]...)
		st.MalformedBox += stats[i].MalformedBox
		st.UnknownRoles += stats[i].UnknownRoles
		st.Truncated = st.Truncated || stats[i].Truncated
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	if err := CheckSequence(all); err != nil {
		return nil, st, err
	}
	st.Frames = len(all)
	if len(all) > 0 {
		st.LastFrame = all[len(all)-1].Index
	}
	return all, st, nil
}

// CheckSequence reports ErrOutOfOrder unless every frame index is exactly
// one more than its predecessor.
func CheckSequence(frames []types.TrackedFrame) error {
	for i := 1; i < len(frames); i++ {
		prev, cur := frames[i-1].Index, frames[i].Index
		switch {
		case cur == prev:
			return fmt.Errorf("%w: duplicate frame %d", ErrOutOfOrder, cur)
		case cur < prev:
			return fmt.Errorf("%w: frame %d after %d", ErrOutOfOrder, cur, prev)
		case cur != prev+1:
			return fmt.Errorf("%w: frames %d..%d missing", ErrOutOfOrder, prev+1, cur-1)
		}
	}
	return nil
}
