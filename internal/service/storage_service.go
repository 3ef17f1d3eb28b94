package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"astramentor/internal/config"
	"astramentor/internal/middleware"
	"astramentor/internal/models"
	"astramentor/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir         = "/tmp/astramentor/media"
	DefaultMaxUploadSizeMB  = 10
	NormalizedMaxSize       = 2048
	ThumbnailSize           = 256
	NormalizedJPEGQuality   = 82
	ThumbnailWebPQuality    = 70
	uploadFilenameTimestamp = "20060102T150405.000"
)

// ObjectStore abstracts the blob backend that upload strategies write to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// fsObjectStore stores objects on the local filesystem under a base directory.
type fsObjectStore struct {
	baseDir string
	baseURL string
}

// NewFSObjectStore returns an ObjectStore backed by the local filesystem.
func NewFSObjectStore(baseDir, baseURL string) ObjectStore {
	return &fsObjectStore{baseDir: baseDir, baseURL: baseURL}
}

func (s *fsObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

func (s *fsObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	// #nosec G304: key is built from validated owner IDs and timestamps
	return os.ReadFile(full)
}

func (s *fsObjectStore) URL(key string) string {
	return path.Join(s.baseURL, key)
}

type UploadImageInput struct {
	OwnerID     uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult describes a stored image and its public URLs.
type UploadResult struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// StorageService validates and stores uploaded images. Uploads go through an
// ordered list of strategies; the first success wins and strategy failures are
// aggregated into a single error when every strategy fails.
type StorageService struct {
	store              ObjectStore
	maxUploadSizeBytes int64
	now                func() time.Time
}

func NewStorageService(store ObjectStore, cfg *config.Config) *StorageService {
	maxUploadSizeMB := DefaultMaxUploadSizeMB
	if cfg != nil && cfg.MaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.MaxUploadSizeMB
	}

	return &StorageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// Upload validates the payload then tries each strategy in order. The
// normalized strategy decodes, resizes, and re-encodes the image; the raw
// strategy stores the original bytes untouched. Validation failures are
// terminal and never fall through to the next strategy.
func (s *StorageService) Upload(ctx context.Context, in UploadImageInput) (*UploadResult, error) {
	if in.OwnerID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	var strategyErrs []error

	result, err := s.uploadNormalized(ctx, in)
	if err == nil {
		return result, nil
	}
	strategyErrs = append(strategyErrs, fmt.Errorf("normalized: %w", err))

	result, err = s.uploadRaw(ctx, in, detectedType)
	if err == nil {
		observability.UploadFallbacks.Inc()
		middleware.Logger.WarnContext(ctx, "image upload fell back to raw bytes",
			slog.Any("owner_id", in.OwnerID),
			slog.String("filename", in.Filename),
		)
		return result, nil
	}
	strategyErrs = append(strategyErrs, fmt.Errorf("raw: %w", err))

	return nil, models.NewUploadError(errors.Join(strategyErrs...))
}

// uploadNormalized decodes the image, scales it down to a bounded size, and
// re-encodes as JPEG alongside a WebP thumbnail.
func (s *StorageService) uploadNormalized(ctx context.Context, in UploadImageInput) (*UploadResult, error) {
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if !isSupportedDecodedFormat(format) {
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	normalized := resizeToFit(decoded, NormalizedMaxSize, NormalizedMaxSize)
	encoded, err := encodeJPEG(normalized, NormalizedJPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	key := s.objectKey(in.OwnerID, in.Filename, "jpg")
	if err := s.store.Put(ctx, key, encoded, "image/jpeg"); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	result := &UploadResult{Key: key, URL: s.store.URL(key)}

	// Thumbnail failure is non-fatal; the normalized image is already stored.
	thumb := resizeToFit(normalized, ThumbnailSize, ThumbnailSize)
	if thumbBytes, thumbErr := encodeWebP(thumb, ThumbnailWebPQuality); thumbErr == nil {
		thumbKey := strings.TrimSuffix(key, ".jpg") + "_thumb.webp"
		if putErr := s.store.Put(ctx, thumbKey, thumbBytes, "image/webp"); putErr == nil {
			result.ThumbnailURL = s.store.URL(thumbKey)
		}
	}

	return result, nil
}

// uploadRaw stores the original bytes without re-encoding.
func (s *StorageService) uploadRaw(ctx context.Context, in UploadImageInput, contentType string) (*UploadResult, error) {
	ext := extensionForMIME(contentType)
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(in.Filename)), ".")
	}
	if ext == "" {
		ext = "bin"
	}

	key := s.objectKey(in.OwnerID, in.Filename, ext)
	if err := s.store.Put(ctx, key, in.Content, contentType); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &UploadResult{Key: key, URL: s.store.URL(key)}, nil
}

// objectKey builds a per-owner path with a millisecond-timestamped filename so
// back-to-back uploads never collide and an owner's objects group under one
// prefix.
func (s *StorageService) objectKey(ownerID uint, filename, ext string) string {
	base := sanitizeFilename(filename)
	ts := s.now().UTC().Format(uploadFilenameTimestamp)
	return fmt.Sprintf("%d/%s_%s.%s", ownerID, ts, base, ext)
}

func sanitizeFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "upload"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func extensionForMIME(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return ""
	}
}
