package audio

import (
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
)

// FTPOptions configures the FTP source.
type FTPOptions struct {
	Timeout  time.Duration
	MaxBytes int64
}

// FTPSource downloads recordings from FTP servers, the usual drop point for
// dialer exports.
type FTPSource struct {
	opts FTPOptions
}

// NewFTPSource creates a new FTPSource with the given options.
func NewFTPSource(opts FTPOptions) *FTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPSource{opts: opts}
}

// ftpTarget is a parsed ftp:// reference.
type ftpTarget struct {
	host     string
	path     string
	user     string
	password string
}

// parseFTPURL extracts host (with port), path and credentials from an FTP URL.
// Missing credentials mean anonymous login.
func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "audio: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("audio: expected ftp scheme, got %q", u.Scheme)
	}

	t := ftpTarget{host: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if _, _, splitErr := net.SplitHostPort(t.host); splitErr != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if t.path == "" || t.path == "/" {
		return ftpTarget{}, eris.New("audio: empty path in ftp url")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpConnReader wraps an FTP response and connection so that closing the reader
// also closes the FTP response and disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "audio: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "audio: quit ftp connection")
	}
	return nil
}

// open connects to the FTP server and starts retrieving the file. The
// caller must close the returned ReadCloser to release the connection.
func (s *FTPSource) open(ctx context.Context, t ftpTarget) (io.ReadCloser, error) {
	zap.L().Debug("audio: ftp connecting", zap.String("host", t.host), zap.String("path", t.path))

	conn, err := ftp.Dial(t.host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "audio: ftp dial")
	}

	if err := conn.Login(t.user, t.password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "audio: ftp login")
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "audio: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// Load implements Source.
func (s *FTPSource) Load(ctx context.Context, ref string) (model.Audio, error) {
	t, err := parseFTPURL(ref)
	if err != nil {
		return model.Audio{}, err
	}

	rc, err := s.open(ctx, t)
	if err != nil {
		return model.Audio{}, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := readLimited(rc, s.opts.MaxBytes)
	if err != nil {
		return model.Audio{}, err
	}

	name := path.Base(t.path)
	return model.Audio{Name: name, ContentType: ContentType(name, ""), Data: data}, nil
}
