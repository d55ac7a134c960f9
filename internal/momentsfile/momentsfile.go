// Package momentsfile reads and writes the JSON artifacts of a highlight
// pass: audio moments, video event intervals and fused segments.
package momentsfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"github.com/forPelevin/matchcut/internal/types"
)

var folder = cases.Fold()

// NormalizeLabel trims and case-folds a label ("Goal " -> "goal").
func NormalizeLabel(l types.EventLabel) types.EventLabel {
	return types.EventLabel(folder.String(strings.TrimSpace(string(l))))
}

// ReadAudio loads audio moments. A missing file or an empty document yields
// an empty list.
func ReadAudio(path string) ([]types.AudioMoment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audio moments: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, nil
	}
	var out []types.AudioMoment
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode audio moments %s: %w", path, err)
	}
	for i := range out {
		out[i].Label = NormalizeLabel(out[i].Label)
	}
	return out, nil
}

// ReadIntervals loads video event intervals.
func ReadIntervals(path string) ([]types.EventInterval, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intervals: %w", err)
	}
	var out []types.EventInterval
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode intervals %s: %w", path, err)
	}
	for i := range out {
		for j := range out[i].Events {
			out[i].Events[j] = NormalizeLabel(out[i].Events[j])
		}
	}
	return out, nil
}

// ReadSegments loads a fused segment list.
func ReadSegments(path string) ([]types.FusedSegment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var out []types.FusedSegment
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode segments %s: %w", path, err)
	}
	return out, nil
}

// WriteJSON writes v as indented JSON. Nil slices are written as [].
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(emptyIfNil(v), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func emptyIfNil(v any) any {
	switch x := v.(type) {
	case []types.AudioMoment:
		if x == nil {
			return []types.AudioMoment{}
		}
	case []types.EventInterval:
		if x == nil {
			return []types.EventInterval{}
		}
	case []types.FusedSegment:
		if x == nil {
			return []types.FusedSegment{}
		}
	}
	return v
}
