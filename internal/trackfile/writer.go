package trackfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/forPelevin/matchcut/internal/types"
)

type outRecord struct {
	FrameIndex int                    `json:"frame_index"`
	Roles      map[string][][]float64 `json:"roles"`
}

// Write encodes frames as JSON Lines in the order given.
func Write(w io.Writer, frames []types.TrackedFrame) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, f := range frames {
		rec := outRecord{FrameIndex: f.Index, Roles: make(map[string][][]float64, len(f.Roles))}
		roles := make([]string, 0, len(f.Roles))
		for r := range f.Roles {
			roles = append(roles, string(r))
		}
		sort.Strings(roles)
		for _, r := range roles {
			boxes := f.Roles[types.Role(r)]
			if len(boxes) == 0 {
				continue
			}
			out := make([][]float64, 0, len(boxes))
			for _, b := range boxes {
				out = append(out, []float64{b.X1, b.Y1, b.X2, b.Y2})
			}
			rec.Roles[r] = out
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Index, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes frames to path, replacing any existing file.
func WriteFile(path string, frames []types.TrackedFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tracks: %w", err)
	}
	if err := Write(f, frames); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
