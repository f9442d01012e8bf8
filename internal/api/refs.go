package api

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/audio"
)

// refPolicy limits which recording references POST /v1/validate may load.
// Local paths are only accepted under root, after symlinks are resolved.
type refPolicy struct {
	schemes map[string]bool
	root    string
}

func newRefPolicy(schemes []string, root string) refPolicy {
	p := refPolicy{schemes: make(map[string]bool, len(schemes)), root: root}
	for _, s := range schemes {
		p.schemes[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return p
}

func (p refPolicy) check(ref string) error {
	scheme := audio.Scheme(ref)
	if !p.schemes[scheme] {
		return eris.Errorf("scheme %q is not allowed for references", scheme)
	}
	if scheme != "file" {
		return nil
	}
	if p.root == "" {
		return eris.New("local references require a configured root")
	}

	path := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return eris.Wrap(err, "parse file url")
		}
		path = u.Path
	}

	root, err := resolve(p.root)
	if err != nil {
		return eris.Wrap(err, "resolve reference root")
	}
	target, err := resolve(path)
	if err != nil {
		return eris.Wrap(err, "resolve reference")
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return eris.New("reference is outside the allowed root")
	}
	return nil
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
