package classify

import (
	"strings"

	"github.com/forPelevin/matchcut/internal/types"
)

// Window is a run of consecutive transcript words.
type Window struct {
	Start float64
	End   float64
	Text  string
}

// Words flattens a transcript into its timed words. Segments without word
// timestamps contribute one pseudo-word spanning the whole segment so
// transcripts from engines without word timing still produce windows.
func Words(tr types.Transcript) []types.Word {
	var out []types.Word
	for _, s := range tr.Segments {
		if len(s.Words) == 0 {
			if text := strings.TrimSpace(s.Text); text != "" && s.End >= s.Start {
				out = append(out, types.Word{Start: s.Start, End: s.End, Word: text})
			}
			continue
		}
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			out = append(out, types.Word{Start: w.Start, End: w.End, Word: text})
		}
	}
	return out
}

// BuildWindows slides a window of size words over the transcript, one word
// at a time. Each window spans from its first word's start to its last
// word's end; its text is the cleaned words joined by spaces. Fewer words
// than size yields no windows.
func BuildWindows(words []types.Word, size int) []Window {
	if size <= 0 || len(words) < size {
		return nil
	}
	out := make([]Window, 0, len(words)-size+1)
	parts := make([]string, size)
	for i := 0; i+size <= len(words); i++ {
		for j := range size {
			parts[j] = Clean(words[i+j].Word)
		}
		out = append(out, Window{
			Start: words[i].Start,
			End:   words[i+size-1].End,
			Text:  strings.Join(parts, " "),
		})
	}
	return out
}
