package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/matchcut/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, language: "auto"}
}

// Transcribe runs whisper.cpp with full JSON output and rebuilds word
// timings from its token offsets.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-ojf",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return Parse(jb)
}

type output struct {
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// offsets are milliseconds.
type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Parse decodes a whisper.cpp -ojf document. Tokens starting with a space
// begin a new word; special tokens such as "[_BEG_]" are skipped.
func Parse(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp output: %w", err)
	}
	var tr types.Transcript
	for _, seg := range out.Transcription {
		s := types.Segment{
			Start: ms(seg.Offsets.From),
			End:   ms(seg.Offsets.To),
			Text:  strings.TrimSpace(seg.Text),
		}
		for _, tok := range seg.Tokens {
			if strings.HasPrefix(tok.Text, "[_") || tok.Text == "" {
				continue
			}
			newWord := strings.HasPrefix(tok.Text, " ") || len(s.Words) == 0
			if newWord {
				s.Words = append(s.Words, types.Word{
					Start: ms(tok.Offsets.From),
					End:   ms(tok.Offsets.To),
					Word:  strings.TrimSpace(tok.Text),
				})
				continue
			}
			w := &s.Words[len(s.Words)-1]
			w.Word += tok.Text
			w.End = ms(tok.Offsets.To)
		}
		words := s.Words[:0]
		for _, w := range s.Words {
			if w.Word != "" {
				words = append(words, w)
			}
		}
		s.Words = words
		tr.Segments = append(tr.Segments, s)
	}
	return tr, nil
}

func ms(v int64) float64 { return float64(v) / 1000 }
