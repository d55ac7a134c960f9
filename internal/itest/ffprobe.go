//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Chapters []struct {
		Tags struct {
			Title string `json:"title"`
		} `json:"tags"`
	} `json:"chapters"`
}

// probeSummary reports the container duration and chapter titles of mp4Path.
func probeSummary(mp4Path string) (float64, []string, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_chapters",
		"-of", "json",
		mp4Path,
	)
	b, err := cmd.Output()
	if err != nil {
		return 0, nil, fmt.Errorf("ffprobe %s: %w", mp4Path, err)
	}
	var rep probeReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return 0, nil, fmt.Errorf("decode ffprobe report: %w", err)
	}
	sec, err := strconv.ParseFloat(rep.Format.Duration, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("parse duration %q: %w", rep.Format.Duration, err)
	}
	titles := make([]string, 0, len(rep.Chapters))
	for _, c := range rep.Chapters {
		titles = append(titles, c.Tags.Title)
	}
	return sec, titles, nil
}
