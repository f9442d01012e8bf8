package audio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	bucket, key string
	body        string
	contentType string
	err         error
}

func (f *fakeGetter) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, string, error) {
	f.bucket, f.key = bucket, key
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), f.contentType, nil
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://recordings/2024/06/5551234567.wav")
	require.NoError(t, err)
	assert.Equal(t, "recordings", bucket)
	assert.Equal(t, "2024/06/5551234567.wav", key)

	for _, bad := range []string{"s3://recordings", "s3:///key.wav", "https://recordings/key.wav"} {
		_, _, err := parseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestS3Source_Load(t *testing.T) {
	g := &fakeGetter{body: "RIFF....", contentType: "binary/octet-stream"}
	src := &S3Source{getter: g}

	a, err := src.Load(context.Background(), "s3://recordings/2024/5551234567.wav")
	require.NoError(t, err)

	assert.Equal(t, "recordings", g.bucket)
	assert.Equal(t, "2024/5551234567.wav", g.key)
	assert.Equal(t, "5551234567.wav", a.Name)
	assert.Equal(t, "audio/wav", a.ContentType)
	assert.Equal(t, "RIFF....", string(a.Data))
}

func TestS3Source_GetError(t *testing.T) {
	src := &S3Source{getter: &fakeGetter{err: errors.New("NoSuchKey")}}
	_, err := src.Load(context.Background(), "s3://recordings/missing.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recordings/missing.wav")
}

func TestNewS3Source(t *testing.T) {
	_, err := NewS3Source(S3Options{})
	require.Error(t, err)

	src, err := NewS3Source(S3Options{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Region: "us-east-1"})
	require.NoError(t, err)
	assert.NotNil(t, src.getter)
}
