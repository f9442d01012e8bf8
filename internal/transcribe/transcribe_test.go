package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/deepgram"
)

type mockDeepgram struct {
	mock.Mock
}

func (m *mockDeepgram) Listen(ctx context.Context, audio []byte, contentType string) (*deepgram.Response, error) {
	args := m.Called(ctx, audio, contentType)
	if resp := args.Get(0); resp != nil {
		return resp.(*deepgram.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func spk(n int) *int { return &n }

func TestFormat_Utterances(t *testing.T) {
	resp := &deepgram.Response{Results: deepgram.Results{
		Utterances: []deepgram.Utterance{
			{Speaker: 0, Transcript: "Thanks for calling."},
			{Speaker: 1, Transcript: " Hi, I need a quote. "},
			{Speaker: 0, Transcript: ""},
			{Speaker: 0, Transcript: "Sure."},
		},
		Channels: []deepgram.Channel{{Alternatives: []deepgram.Alternative{{Transcript: "ignored"}}}},
	}}

	text, speakers := Format(resp)
	assert.Equal(t, "[Speaker:0] Thanks for calling.\n[Speaker:1] Hi, I need a quote.\n[Speaker:0] Sure.", text)
	assert.Equal(t, 2, speakers)
}

func TestFormat_WordFold(t *testing.T) {
	resp := &deepgram.Response{Results: deepgram.Results{
		Channels: []deepgram.Channel{{Alternatives: []deepgram.Alternative{{
			Transcript: "hello there hi yes hello",
			Words: []deepgram.Word{
				{Word: "hello", PunctuatedWord: "Hello", Speaker: spk(0)},
				{Word: "there", PunctuatedWord: "there.", Speaker: spk(0)},
				{Word: "hi", Speaker: spk(1)},
				{Word: "yes", Speaker: spk(0)},
				{Word: "hello", Speaker: spk(0)},
			},
		}}}},
	}}

	text, speakers := Format(resp)
	assert.Equal(t, "[Speaker:0] Hello there.\n[Speaker:1] hi\n[Speaker:0] yes hello", text)
	assert.Equal(t, 2, speakers)
}

func TestFormat_PlainFallback(t *testing.T) {
	resp := &deepgram.Response{Results: deepgram.Results{
		Channels: []deepgram.Channel{{Alternatives: []deepgram.Alternative{{
			Transcript: " just text ",
			Words:      []deepgram.Word{{Word: "just"}, {Word: "text", Speaker: spk(0)}},
		}}}},
	}}

	text, speakers := Format(resp)
	assert.Equal(t, "just text", text)
	assert.Zero(t, speakers)
}

func TestFormat_Empty(t *testing.T) {
	text, _ := Format(nil)
	assert.Empty(t, text)
	text, _ = Format(&deepgram.Response{})
	assert.Empty(t, text)
}

func TestDeepgramTranscribe(t *testing.T) {
	dg := &mockDeepgram{}
	dg.On("Listen", mock.Anything, []byte("audio"), "audio/wav").Return(&deepgram.Response{
		Metadata: deepgram.Metadata{Duration: 90},
		Results: deepgram.Results{
			Channels:   []deepgram.Channel{{DetectedLanguage: "en"}},
			Utterances: []deepgram.Utterance{{Speaker: 0, Transcript: "hello"}},
		},
	}, nil)

	tr, err := NewDeepgram(dg).Transcribe(context.Background(), model.Audio{
		Name: "call.wav", ContentType: "audio/wav", Data: []byte("audio"),
	})
	require.NoError(t, err)
	assert.Equal(t, "[Speaker:0] hello", tr.Text)
	assert.InDelta(t, 90.0, tr.DurationSecs, 0.001)
	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, 1, tr.Speakers)
	dg.AssertExpectations(t)
}

func TestDeepgramTranscribe_Errors(t *testing.T) {
	dg := &mockDeepgram{}
	dg.On("Listen", mock.Anything, []byte("bad"), "").Return(nil, errors.New("503"))

	tr := NewDeepgram(dg)

	_, err := tr.Transcribe(context.Background(), model.Audio{Name: "empty.wav"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = tr.Transcribe(context.Background(), model.Audio{Name: "bad.wav", Data: []byte("bad")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcribe: deepgram listen")

}

func TestDeepgramTranscribe_SilentCallIsNotFatal(t *testing.T) {
	dg := &mockDeepgram{}
	dg.On("Listen", mock.Anything, []byte("silent"), "").Return(&deepgram.Response{}, nil)
	dg.On("Listen", mock.Anything, []byte("hush"), "").Return(&deepgram.Response{
		Results: deepgram.Results{Channels: []deepgram.Channel{{
			Alternatives: []deepgram.Alternative{{Transcript: ""}},
		}}},
	}, nil)

	tr := NewDeepgram(dg)
	for _, data := range []string{"silent", "hush"} {
		got, err := tr.Transcribe(context.Background(), model.Audio{Name: "5551234567.wav", Data: []byte(data)})
		require.NoError(t, err, data)
		require.NotNil(t, got)
		assert.Empty(t, got.Text)
		assert.Zero(t, got.Speakers)
	}
	dg.AssertExpectations(t)
}
