package audio

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
)

// FileSource reads recordings from the local filesystem.
type FileSource struct {
	MaxBytes int64
}

// Load implements Source.
func (s FileSource) Load(_ context.Context, ref string) (model.Audio, error) {
	p := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return model.Audio{}, eris.Wrap(err, "audio: parse file url")
		}
		p = u.Path
	}

	f, err := os.Open(p)
	if err != nil {
		return model.Audio{}, eris.Wrapf(err, "audio: open %s", p)
	}
	defer f.Close() //nolint:errcheck

	data, err := readLimited(f, s.MaxBytes)
	if err != nil {
		return model.Audio{}, err
	}

	name := filepath.Base(p)
	return model.Audio{Name: name, ContentType: ContentType(name, ""), Data: data}, nil
}
