package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

const defaultMaxImageBytes = 5 << 20

var (
	// ErrUnsupportedImage is returned when the upload is not an accepted image type.
	ErrUnsupportedImage = errors.New("storage: unsupported image type")
	// ErrImageTooLarge is returned when the upload exceeds the configured limit.
	ErrImageTooLarge = errors.New("storage: image too large")
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Uploader writes an object to a bucket.
type Uploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) error
}

// GCSUploader writes objects to a Cloud Storage bucket.
type GCSUploader struct {
	bucket *gcs.BucketHandle
}

// NewGCSUploader binds an uploader to bucket.
func NewGCSUploader(client *gcs.Client, bucket string) (*GCSUploader, error) {
	if client == nil || strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: client and bucket are required")
	}
	return &GCSUploader{bucket: client.Bucket(strings.TrimSpace(bucket))}, nil
}

// Upload streams body into object. Images are immutable once written, so they are cached publicly.
func (u *GCSUploader) Upload(ctx context.Context, object, contentType string, body io.Reader) error {
	w := u.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", object, err)
	}
	return nil
}

// ImageStore validates product image uploads and returns their public URL.
type ImageStore struct {
	uploader Uploader
	baseURL  string
	maxBytes int64
	newID    func() string
}

// ImageStoreOption customises ImageStore.
type ImageStoreOption func(*ImageStore)

// WithMaxImageBytes overrides the upload size limit.
func WithMaxImageBytes(n int64) ImageStoreOption {
	return func(s *ImageStore) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithUploadIDGenerator overrides the object id generator.
func WithUploadIDGenerator(fn func() string) ImageStoreOption {
	return func(s *ImageStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewImageStore constructs an ImageStore. publicBaseURL is usually https://storage.googleapis.com/{bucket}.
func NewImageStore(uploader Uploader, publicBaseURL string, opts ...ImageStoreOption) (*ImageStore, error) {
	if uploader == nil {
		return nil, errors.New("storage: uploader is required")
	}
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("storage: invalid public base url: %w", err)
	}
	s := &ImageStore{
		uploader: uploader,
		baseURL:  base,
		maxBytes: defaultMaxImageBytes,
		newID:    func() string { return strings.ToLower(ulid.Make().String()) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// PutProductImage sniffs the content type, enforces the size limit, and uploads the image.
func (s *ImageStore) PutProductImage(ctx context.Context, productID, fileName string, body io.Reader) (string, error) {
	object, err := ProductImagePath(productID, s.newID(), fileName)
	if err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	contentType := http.DetectContentType(head)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	limited := &limitedReader{r: br, remaining: s.maxBytes}
	if err := s.uploader.Upload(ctx, object, contentType, limited); err != nil {
		if limited.exceeded {
			return "", ErrImageTooLarge
		}
		return "", err
	}
	return s.baseURL + "/" + object, nil
}

type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrImageTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrImageTooLarge
	}
	return n, err
}
