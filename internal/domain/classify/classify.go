// Package classify turns a word-timed commentary transcript into labeled
// AudioMoments by matching short word windows against reference phrases.
package classify

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/forPelevin/matchcut/internal/types"
)

// Options configure a Classifier.
type Options struct {
	// Window is the number of consecutive words per scored window.
	Window int
	// Threshold is the score a label must strictly exceed.
	Threshold float64
	// Phrases maps a label to its reference phrases.
	Phrases map[string][]string
}

// Classifier is a lexical moment classifier. It is safe for concurrent use.
type Classifier struct {
	window    int
	threshold float64
	labels    []types.EventLabel
	refs      map[types.EventLabel][]string
}

// labelOrder fixes tie-breaking: on equal scores the earlier label wins.
var labelOrder = []types.EventLabel{
	types.LabelGoal,
	types.LabelChance,
	types.LabelSave,
	types.LabelCard,
	types.LabelPenalty,
	types.LabelShot,
	types.LabelExcitement,
}

func New(opts Options) (*Classifier, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("classifier window must be > 0, got %d", opts.Window)
	}
	if opts.Threshold < 0 || opts.Threshold > 1 || math.IsNaN(opts.Threshold) {
		return nil, fmt.Errorf("classifier threshold must be in [0,1], got %v", opts.Threshold)
	}
	c := &Classifier{
		window:    opts.Window,
		threshold: opts.Threshold,
		refs:      make(map[types.EventLabel][]string, len(opts.Phrases)),
	}
	for k, phrases := range opts.Phrases {
		label := types.EventLabel(Clean(k))
		if label == "" {
			continue
		}
		for _, p := range phrases {
			if cp := Clean(p); cp != "" {
				c.refs[label] = append(c.refs[label], cp)
			}
		}
	}
	if len(c.refs) == 0 {
		return nil, errors.New("classifier has no reference phrases")
	}

	known := make(map[types.EventLabel]bool, len(labelOrder))
	for _, l := range labelOrder {
		known[l] = true
		if len(c.refs[l]) > 0 {
			c.labels = append(c.labels, l)
		}
	}
	var extra []types.EventLabel
	for l := range c.refs {
		if !known[l] {
			extra = append(extra, l)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	c.labels = append(c.labels, extra...)
	return c, nil
}

// Classify scores every window of the transcript and returns one moment per
// window whose best label clears the threshold, in transcript order.
func (c *Classifier) Classify(tr types.Transcript) []types.AudioMoment {
	return c.ClassifyWindows(BuildWindows(Words(tr), c.window))
}

func (c *Classifier) ClassifyWindows(windows []Window) []types.AudioMoment {
	var out []types.AudioMoment
	for _, w := range windows {
		label, score, ok := c.Best(w.Text)
		if !ok {
			continue
		}
		out = append(out, types.AudioMoment{
			Start: w.Start,
			End:   w.End,
			Label: label,
			Text:  w.Text,
			Score: math.Round(score*100) / 100,
		})
	}
	return out
}

// Best returns the highest scoring label for already cleaned text.
func (c *Classifier) Best(text string) (types.EventLabel, float64, bool) {
	if strings.TrimSpace(text) == "" {
		return "", 0, false
	}
	var (
		best      types.EventLabel
		bestScore float64
	)
	for _, l := range c.labels {
		s := 0.0
		for _, p := range c.refs[l] {
			if v := Similarity(text, p); v > s {
				s = v
			}
		}
		if s > c.threshold && s > bestScore {
			best, bestScore = l, s
		}
	}
	return best, bestScore, best != ""
}

// Window returns the configured window size.
func (c *Classifier) Window() int { return c.window }
