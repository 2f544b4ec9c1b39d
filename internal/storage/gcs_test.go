package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (w *memoryWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func newTestStore(w *memoryWriter) (*GCSImageStore, *string, *string) {
	var gotObject, gotType string
	s := &GCSImageStore{
		bucket:        "melos-products",
		publicBaseURL: DefaultPublicBaseURL,
		newWriter: func(_ context.Context, object, contentType string) io.WriteCloser {
			gotObject, gotType = object, contentType
			return w
		},
		now: func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return s, &gotObject, &gotType
}

func TestUpload_WritesObjectAndReturnsURL(t *testing.T) {
	w := &memoryWriter{}
	store, object, contentType := newTestStore(w)

	url, err := store.Upload(context.Background(), "Frente.PNG", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^1700000000000-\d+\.png$`), *object)
	assert.Equal(t, "image/png", *contentType)
	assert.Equal(t, "https://storage.googleapis.com/melos-products/"+*object, url)
	assert.Equal(t, "png-bytes", w.String())
	assert.True(t, w.closed)
}

func TestUpload_Rejects(t *testing.T) {
	store, _, _ := newTestStore(&memoryWriter{})
	ctx := context.Background()

	_, err := store.Upload(ctx, "a.png", "image/png", nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = store.Upload(ctx, "a.txt", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = store.Upload(ctx, "a.png", "image/png", make([]byte, MaxImageSize+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestUpload_CloseFailure(t *testing.T) {
	store, _, _ := newTestStore(&memoryWriter{closeErr: errors.New("quota")})

	_, err := store.Upload(context.Background(), "a.jpg", "image/jpeg", []byte("x"))
	assert.Error(t, err)
}

func TestObjectName_NoExtension(t *testing.T) {
	store, _, _ := newTestStore(&memoryWriter{})
	assert.Regexp(t, `\.bin$`, store.objectName("blob"))
}
