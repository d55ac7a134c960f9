// Package chapters lays fused segments out on the summary timeline and
// renders them as an FFMETADATA1 chapter file.
package chapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/matchcut/internal/types"
)

// Chapter is one clip on the summary timeline.
type Chapter struct {
	Start time.Duration
	End   time.Duration
	Title string
}

// ClipRange returns the padded source range of a segment, clamped at 0 and,
// when limit > 0, at limit.
func ClipRange(seg types.FusedSegment, padding, limit time.Duration) (time.Duration, time.Duration) {
	start := dur(seg.Start) - padding
	if start < 0 {
		start = 0
	}
	end := dur(seg.End) + padding
	if limit > 0 && end > limit {
		end = limit
	}
	return start, end
}

// Layout places segments back to back in the given order. Segments whose
// clamped range is empty are skipped.
func Layout(segs []types.FusedSegment, padding, limit time.Duration) []Chapter {
	var (
		out    []Chapter
		cursor time.Duration
	)
	for _, s := range segs {
		st, en := ClipRange(s, padding, limit)
		if en <= st {
			continue
		}
		d := en - st
		out = append(out, Chapter{Start: cursor, End: cursor + d, Title: Title(s)})
		cursor += d
	}
	return out
}

// Title names a chapter after its events, falling back to the commentary.
func Title(seg types.FusedSegment) string {
	if len(seg.Events) > 0 {
		parts := make([]string, 0, len(seg.Events))
		for _, e := range seg.Events {
			parts = append(parts, string(e))
		}
		return strings.Join(parts, " + ")
	}
	if t := strings.TrimSpace(seg.Text); t != "" {
		return t
	}
	return string(seg.Type)
}

// Render produces an FFMETADATA1 document with millisecond timebase.
func Render(chs []Chapter) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, c := range chs {
		b.WriteString("\n[CHAPTER]\nTIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", c.Start.Milliseconds())
		fmt.Fprintf(&b, "END=%d\n", c.End.Milliseconds())
		b.WriteString("title=")
		b.WriteString(escape(c.Title))
		b.WriteString("\n")
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"=", `\=`,
		";", `\;`,
		"#", `\#`,
		"\n", `\`+"\n",
	)
	return r.Replace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
