package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-validator/internal/model"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"/data/calls/5551234567.wav", "file"},
		{"calls/5551234567.wav", "file"},
		{"file:///data/call.wav", "file"},
		{`C:\calls\call.wav`, "file"},
		{"https://cdn.example.com/a.mp3", "https"},
		{"HTTP://cdn.example.com/a.mp3", "http"},
		{"ftp://dialer.example.com/out/a.wav", "ftp"},
		{"s3://recordings/2024/a.wav", "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, Scheme(tt.ref))
		})
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		declared string
		want     string
	}{
		{name: "wav by extension", file: "a.wav", want: "audio/wav"},
		{name: "mp3 upper case", file: "A.MP3", want: "audio/mpeg"},
		{name: "declared wins", file: "a.wav", declared: "audio/x-wav", want: "audio/x-wav"},
		{name: "declared with params", file: "a", declared: "audio/ogg; codecs=opus", want: "audio/ogg"},
		{name: "octet stream ignored", file: "a.m4a", declared: "application/octet-stream", want: "audio/mp4"},
		{name: "unknown falls back", file: "a.bin", want: DefaultContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentType(tt.file, tt.declared))
		})
	}
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("call.wav"))
	assert.True(t, IsAudioFile("call.FLAC"))
	assert.False(t, IsAudioFile("manifest.csv"))
	assert.False(t, IsAudioFile("noext"))
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = readLimited(strings.NewReader("123456"), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 5 bytes")
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "5551234567_call.mp3")
	require.NoError(t, os.WriteFile(p, []byte("ID3fake"), 0o644))

	a, err := FileSource{}.Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "5551234567_call.mp3", a.Name)
	assert.Equal(t, "audio/mpeg", a.ContentType)
	assert.Equal(t, []byte("ID3fake"), a.Data)

	a, err = FileSource{}.Load(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, "5551234567_call.mp3", a.Name)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource{}.Load(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
}

func TestFileSource_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.wav")
	require.NoError(t, os.WriteFile(p, make([]byte, 64), 0o644))

	_, err := FileSource{MaxBytes: 32}.Load(context.Background(), p)
	require.Error(t, err)
}

type stubSource struct {
	refs []string
}

func (s *stubSource) Load(_ context.Context, ref string) (model.Audio, error) {
	s.refs = append(s.refs, ref)
	return model.Audio{Name: ref}, nil
}

func TestLoader_Dispatch(t *testing.T) {
	file := &stubSource{}
	s3 := &stubSource{}
	l := NewLoader(file, map[string]Source{"s3": s3, "ftp": nil})

	_, err := l.Load(context.Background(), "/tmp/a.wav")
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "s3://bucket/a.wav")
	require.NoError(t, err)

	assert.Equal(t, []string{"/tmp/a.wav"}, file.refs)
	assert.Equal(t, []string{"s3://bucket/a.wav"}, s3.refs)

	_, err = l.Load(context.Background(), "ftp://host/a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ftp"`)
}
