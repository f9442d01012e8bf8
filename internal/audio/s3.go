package audio

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-validator/internal/model"
)

// S3Options configures the object storage source.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	MaxBytes  int64
}

// objectGetter is the slice of the MinIO client S3Source needs.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, string, error)
}

type minioGetter struct {
	client *minio.Client
}

func (g minioGetter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	obj, err := g.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close() //nolint:errcheck
		return nil, "", err
	}
	return obj, stat.ContentType, nil
}

// S3Source reads recordings addressed as s3://bucket/key from any S3
// compatible store.
type S3Source struct {
	getter   objectGetter
	maxBytes int64
}

// NewS3Source creates an S3Source backed by a MinIO client.
func NewS3Source(opts S3Options) (*S3Source, error) {
	if opts.Endpoint == "" {
		return nil, eris.New("audio: s3 endpoint is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "audio: create s3 client")
	}
	return &S3Source{getter: minioGetter{client: client}, maxBytes: opts.MaxBytes}, nil
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "audio: parse s3 url")
	}
	if u.Scheme != "s3" {
		return "", "", eris.Errorf("audio: expected s3 scheme, got %q", u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", eris.Errorf("audio: s3 url needs bucket and key: %s", rawURL)
	}
	return bucket, key, nil
}

// Load implements Source.
func (s *S3Source) Load(ctx context.Context, ref string) (model.Audio, error) {
	bucket, key, err := parseS3URL(ref)
	if err != nil {
		return model.Audio{}, err
	}

	rc, contentType, err := s.getter.GetObject(ctx, bucket, key)
	if err != nil {
		return model.Audio{}, eris.Wrapf(err, "audio: get object %s/%s", bucket, key)
	}
	defer rc.Close() //nolint:errcheck

	data, err := readLimited(rc, s.maxBytes)
	if err != nil {
		return model.Audio{}, err
	}

	name := path.Base(key)
	return model.Audio{Name: name, ContentType: ContentType(name, contentType), Data: data}, nil
}
