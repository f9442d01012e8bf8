// Package transcribe turns call audio into a single speaker-tagged text blob.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/deepgram"
)

// Transcript is the normalized transcription result.
type Transcript struct {
	Text         string  `json:"text"`
	DurationSecs float64 `json:"duration_secs"`
	Language     string  `json:"language,omitempty"`
	Speakers     int     `json:"speakers"`
}

// Transcriber converts audio to text. Errors are fatal for the recording.
type Transcriber interface {
	Transcribe(ctx context.Context, audio model.Audio) (*Transcript, error)
}

// Deepgram transcribes with Deepgram's diarized pre-recorded API.
type Deepgram struct {
	client deepgram.Client
}

// NewDeepgram wraps a Deepgram client as a Transcriber.
func NewDeepgram(client deepgram.Client) *Deepgram {
	return &Deepgram{client: client}
}

// Transcribe sends the audio once and formats the response.
func (d *Deepgram) Transcribe(ctx context.Context, audio model.Audio) (*Transcript, error) {
	if len(audio.Data) == 0 {
		return nil, eris.Errorf("transcribe: %s is empty", audio.Name)
	}

	resp, err := d.client.Listen(ctx, audio.Data, audio.ContentType)
	if err != nil {
		return nil, eris.Wrap(err, "transcribe: deepgram listen")
	}

	// A silent call still goes to extraction, which classifies it.
	text, speakers := Format(resp)
	if strings.TrimSpace(text) == "" {
		zap.L().Warn("transcribe: no speech recognized", zap.String("file", audio.Name))
	}

	t := &Transcript{
		Text:         text,
		DurationSecs: resp.Metadata.Duration,
		Speakers:     speakers,
	}
	if len(resp.Results.Channels) > 0 {
		t.Language = resp.Results.Channels[0].DetectedLanguage
	}

	zap.L().Info("transcribe: complete",
		zap.String("file", audio.Name),
		zap.Float64("duration_secs", t.DurationSecs),
		zap.Int("speakers", t.Speakers),
		zap.Int("chars", len(t.Text)),
	)
	return t, nil
}

// Format renders a Deepgram response as text, preferring utterances, then
// word-level speaker tags, then the plain transcript. It also returns the
// number of distinct speakers seen (0 when untagged).
func Format(resp *deepgram.Response) (string, int) {
	if resp == nil {
		return "", 0
	}
	if text, n := formatUtterances(resp.Results.Utterances); text != "" {
		return text, n
	}

	var alt *deepgram.Alternative
	if len(resp.Results.Channels) > 0 && len(resp.Results.Channels[0].Alternatives) > 0 {
		alt = &resp.Results.Channels[0].Alternatives[0]
	}
	if alt == nil {
		return "", 0
	}
	if text, n := foldWords(alt.Words); text != "" {
		return text, n
	}
	return strings.TrimSpace(alt.Transcript), 0
}

func formatUtterances(utts []deepgram.Utterance) (string, int) {
	lines := make([]string, 0, len(utts))
	speakers := make(map[int]struct{})
	for _, u := range utts {
		text := strings.TrimSpace(u.Transcript)
		if text == "" {
			continue
		}
		speakers[u.Speaker] = struct{}{}
		lines = append(lines, tag(u.Speaker)+" "+text)
	}
	return strings.Join(lines, "\n"), len(speakers)
}

// foldWords groups consecutive words that share a speaker into one tagged
// line, starting a new line whenever the speaker changes. Word order is
// preserved exactly. It returns "" unless every word carries a speaker.
func foldWords(words []deepgram.Word) (string, int) {
	if len(words) == 0 {
		return "", 0
	}
	for _, w := range words {
		if w.Speaker == nil {
			return "", 0
		}
	}

	var (
		b        strings.Builder
		current  = -1
		speakers = make(map[int]struct{})
	)
	for i, w := range words {
		token := w.PunctuatedWord
		if token == "" {
			token = w.Word
		}
		spk := *w.Speaker
		speakers[spk] = struct{}{}

		if i == 0 || spk != current {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(tag(spk))
			current = spk
		}
		b.WriteByte(' ')
		b.WriteString(token)
	}
	return b.String(), len(speakers)
}

func tag(speaker int) string {
	return fmt.Sprintf("[Speaker:%d]", speaker)
}
