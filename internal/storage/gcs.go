package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	DefaultPublicBaseURL = "https://storage.googleapis.com"
	MaxImageSize         = 5 << 20
)

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotAnImage    = errors.New("file is not an image")
)

// ImageStore uploads product images and returns their public url.
type ImageStore interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

type writerFunc func(ctx context.Context, object, contentType string) io.WriteCloser

type GCSImageStore struct {
	bucket        string
	publicBaseURL string
	newWriter     writerFunc
	now           func() time.Time
}

// NewClient opens a GCS client. An empty credentialsFile uses application default credentials.
func NewClient(ctx context.Context, credentialsFile string) (*gcs.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

func NewGCSImageStore(client *gcs.Client, bucket, publicBaseURL string) *GCSImageStore {
	if publicBaseURL == "" {
		publicBaseURL = DefaultPublicBaseURL
	}
	return &GCSImageStore{
		bucket:        strings.TrimSpace(bucket),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newWriter: func(ctx context.Context, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "public, max-age=31536000"
			return w
		},
		now: time.Now,
	}
}

// Upload writes data as a new object named <unix millis>-<random>.<ext>.
func (s *GCSImageStore) Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	object := s.objectName(fileName)

	w := s.newWriter(ctx, object, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write image %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize image %s: %w", object, err)
	}

	return s.PublicURL(object), nil
}

func (s *GCSImageStore) PublicURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, object)
}

func (s *GCSImageStore) objectName(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%d-%d.%s", s.now().UnixMilli(), rand.Int63(), ext)
}
