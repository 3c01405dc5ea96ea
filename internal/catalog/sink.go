package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrBadFilename is returned when the suggested filename has no usable final element.
var ErrBadFilename = errors.New("catalog: unusable download filename")

// Sink stores a downloaded model archive. Save returns where the archive ended up.
// size is -1 when unknown.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// cleanName keeps only the final element of a server-suggested filename.
func cleanName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	return name, nil
}

// DirSink writes archives into a local directory. Data goes to a temporary file first and is
// renamed into place only when complete, so a failed transfer leaves nothing behind.
type DirSink struct {
	Dir string
}

// NewDirSink returns a sink writing into dir, created on first use.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// Save writes r to Dir under the cleaned name and returns the final path.
func (s *DirSink) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.Dir, ".download-*")
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	target := filepath.Join(s.Dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	committed = true
	return target, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// MinIOSink uploads archives to a bucket of an S3-compatible store.
type MinIOSink struct {
	client *minio.Client
	bucket string
	prefix string
}

// MinIOConfig holds the connection settings of a MinIOSink.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// NewMinIOSink connects to the store and creates the bucket when missing.
func NewMinIOSink(ctx context.Context, cfg MinIOConfig) (*MinIOSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOSink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Save streams the archive into the bucket. A failed upload leaves no object behind; minio
// aborts incomplete multipart uploads itself.
func (s *MinIOSink) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := path.Join(s.prefix, name)

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", info.Bucket, info.Key), nil
}
