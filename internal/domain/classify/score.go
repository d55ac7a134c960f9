package classify

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	rePunct = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	reSpace = regexp.MustCompile(`\s+`)
	folder  = cases.Fold()
)

// Clean collapses runs of three or more repeated characters ("goooool" ->
// "gol"), strips punctuation and case-folds.
func Clean(text string) string {
	t := collapseRepeats(text)
	t = rePunct.ReplaceAllString(t, "")
	t = reSpace.ReplaceAllString(t, " ")
	return folder.String(strings.TrimSpace(t))
}

// collapseRepeats keeps one rune of every run of 3+ identical runes. RE2 has
// no backreferences so this is done by hand.
func collapseRepeats(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); {
		j := i + 1
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			n = 1
		}
		for range n {
			b.WriteRune(rs[i])
		}
		i = j
	}
	return b.String()
}

// Similarity scores cleaned text against one cleaned reference phrase in
// [0..1]: 1 when the phrase occurs as a whole-word sequence, otherwise the
// fraction of the phrase's tokens present in text.
func Similarity(text, phrase string) float64 {
	pt := strings.Fields(phrase)
	if len(pt) == 0 {
		return 0
	}
	tt := strings.Fields(text)
	if containsSeq(tt, pt) {
		return 1
	}
	have := make(map[string]struct{}, len(tt))
	for _, w := range tt {
		have[w] = struct{}{}
	}
	hit := 0
	for _, w := range pt {
		if _, ok := have[w]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(pt))
}

func containsSeq(hay, needle []string) bool {
	if len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
