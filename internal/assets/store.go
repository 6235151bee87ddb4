// Package assets stores customization images submitted with a cart.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxBytes = int64(5 * 1024 * 1024) // 5 MiB
	createAttempts  = 3
)

// allowedImageTypes maps accepted MIME types to the extension used on disk.
var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var storedNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,254}$`)

// Backend is write-once object storage.
type Backend interface {
	// Create writes data under name and fails with ErrExists if name is taken.
	Create(ctx context.Context, name, contentType string, data []byte) error
	Delete(ctx context.Context, name string) error
}

type StoreDeps struct {
	Backend   Backend
	MaxBytes  int64
	PublicURL string
	Clock     func() time.Time
	Logger    *zap.Logger
}

type Store struct {
	backend   Backend
	maxBytes  int64
	publicURL string
	clock     func() time.Time
	suffix    func() string
	logger    *zap.Logger
}

func NewStore(deps StoreDeps) (*Store, error) {
	if deps.Backend == nil {
		return nil, errors.New("asset store: backend is required")
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:   deps.Backend,
		maxBytes:  maxBytes,
		publicURL: strings.TrimRight(deps.PublicURL, "/"),
		clock:     clock,
		suffix:    randomSuffix,
		logger:    logger.Named("assets"),
	}, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// IsInline reports whether ref carries image data rather than a stored name.
func IsInline(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), "data:")
}

// Persist returns the stored filename for ref. A stored filename is returned
// unchanged; an inline data URI is decoded, checked and written once.
func (s *Store) Persist(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	if !IsInline(ref) {
		if !storedNamePattern.MatchString(ref) || strings.Contains(ref, "..") {
			return "", fmt.Errorf("%w: %q is not a stored asset name", ErrInvalidAsset, ref)
		}
		return ref, nil
	}

	mime, data, err := s.decode(ref)
	if err != nil {
		return "", err
	}
	ext := allowedImageTypes[mime]

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		name := fmt.Sprintf("custom_%d_%s.%s", s.clock().Unix(), s.suffix(), ext)
		err := s.backend.Create(ctx, name, mime, data)
		if err == nil {
			s.logger.Debug("stored customization image", zap.String("name", name), zap.Int("bytes", len(data)))
			return name, nil
		}
		lastErr = err
		if !errors.Is(err, ErrExists) {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrPersistFailure, lastErr)
}

func (s *Store) decode(ref string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data URI", ErrInvalidAsset)
	}
	mime, encoding, _ := strings.Cut(header, ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" {
		mime = "image/jpeg"
	}
	if _, ok := allowedImageTypes[mime]; !ok {
		return "", nil, fmt.Errorf("%w: content type %q not allowed", ErrInvalidAsset, mime)
	}
	if !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return "", nil, fmt.Errorf("%w: only base64 data URIs are accepted", ErrInvalidAsset)
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > s.maxBytes+2 {
		return "", nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidAsset, s.maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 payload", ErrInvalidAsset)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty image", ErrInvalidAsset)
	}
	if int64(len(data)) > s.maxBytes {
		return "", nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidAsset, s.maxBytes)
	}
	if sniffed := http.DetectContentType(data); sniffed != mime {
		return "", nil, fmt.Errorf("%w: declared %s but content is %s", ErrInvalidAsset, mime, sniffed)
	}
	return mime, data, nil
}

// Delete removes an asset written by Persist. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	if name == "" || !storedNamePattern.MatchString(name) {
		return nil
	}
	return s.backend.Delete(ctx, name)
}

// URL is where the asset-serving collaborator exposes name.
func (s *Store) URL(name string) string {
	if name == "" {
		return ""
	}
	return s.publicURL + "/" + url.PathEscape(name)
}
