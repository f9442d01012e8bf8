// Package audio loads call recordings from local disk, HTTP, FTP and S3
// compatible object storage.
package audio

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
)

// DefaultMaxBytes caps a single recording.
const DefaultMaxBytes = 200 << 20

// DefaultContentType is used when the type cannot be derived.
const DefaultContentType = "audio/wav"

// Source loads one recording by reference.
type Source interface {
	Load(ctx context.Context, ref string) (model.Audio, error)
}

// audioTypes maps common recording extensions to MIME types.
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".amr":  "audio/amr",
}

// IsAudioFile reports whether name has a known recording extension.
func IsAudioFile(name string) bool {
	_, ok := audioTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ContentType picks a MIME type for a recording. A declared type wins when it
// is specific; otherwise the extension decides.
func ContentType(name, declared string) string {
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err == nil && mt != "application/octet-stream" && mt != "binary/octet-stream" {
			return mt
		}
	}
	if ct, ok := audioTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// readLimited reads r fully, failing once more than max bytes arrive.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		return nil, eris.Wrap(err, "audio: read")
	}
	if n > max {
		return nil, eris.Errorf("audio: recording exceeds %d bytes", max)
	}
	return buf.Bytes(), nil
}

// Loader dispatches references to a Source by URL scheme. Plain paths and
// file:// URLs go to the file source.
type Loader struct {
	sources map[string]Source
}

// NewLoader creates a Loader with a file source and any extra sources keyed
// by scheme ("http", "https", "ftp", "s3").
func NewLoader(file Source, extra map[string]Source) *Loader {
	l := &Loader{sources: map[string]Source{"file": file}}
	for k, v := range extra {
		if v != nil {
			l.sources[k] = v
		}
	}
	return l
}

// Load implements Source.
func (l *Loader) Load(ctx context.Context, ref string) (model.Audio, error) {
	scheme := Scheme(ref)
	src, ok := l.sources[scheme]
	if !ok {
		return model.Audio{}, eris.Errorf("audio: no source configured for scheme %q", scheme)
	}
	return src.Load(ctx, ref)
}

// Scheme returns the lower-cased URL scheme of ref, or "file" for paths.
func Scheme(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) < 2 {
		// Windows drive letters parse as one-letter schemes.
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// nameFromURL returns the last path element of a URL, unescaped.
func nameFromURL(u *url.URL) string {
	return path.Base(u.Path)
}
