package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/noah-isme/syllabus-portal-api/pkg/config"
)

// ErrObjectNotFound is returned when a key has no payload behind it.
var ErrObjectNotFound = errors.New("storage: object not found")

const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// FileStore persists syllabus payloads. Keys are produced by Key and are
// opaque to callers.
type FileStore interface {
	Driver() string
	Key(spec KeySpec) string
	Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)
	Resolve(ctx context.Context, key string, opts ResolveOptions) (*Descriptor, error)
	Remove(ctx context.Context, key string) error
}

// KeySpec carries the attributes a driver may fold into a storage key.
type KeySpec struct {
	CourseCode   string
	Semester     int
	OriginalName string
}

// Object describes a stored payload.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// ResolveOptions controls how a payload is handed back to a client.
type ResolveOptions struct {
	Disposition string
	Filename    string
	ContentType string
}

// Descriptor is either a redirect or an open stream. Callers must close
// Content when it is set.
type Descriptor struct {
	RedirectURL string
	Content     io.ReadCloser
	Size        int64
	ContentType string
	Filename    string
	Disposition string
}

// Close releases the stream if one is attached.
func (d *Descriptor) Close() error {
	if d == nil || d.Content == nil {
		return nil
	}
	return d.Content.Close()
}

// New builds the file store selected by cfg.Driver. filesPrefix is the public
// route under which signed local downloads are served.
func New(cfg config.StorageConfig, filesPrefix string) (FileStore, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		var opts []LocalOption
		if cfg.SignedURLSecret != "" {
			opts = append(opts, WithSignedURLs(NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL), filesPrefix))
		}
		return NewLocalStorage(cfg.LocalDir, opts...)
	case config.StorageDriverObject:
		return NewObjectStorage(cfg.Object)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ContentDisposition renders a Content-Disposition header value.
func ContentDisposition(disposition, filename string) string {
	if disposition != DispositionAttachment {
		disposition = DispositionInline
	}
	if filename == "" {
		return disposition
	}
	return mime.FormatMediaType(disposition, map[string]string{"filename": filename})
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename strips directories and anything outside [a-zA-Z0-9._-].
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._-")
	if base == "" {
		return "syllabus"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return base
}

func normalizeCourse(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = unsafeNameChars.ReplaceAllString(code, "_")
	if code == "" {
		return "GENERAL"
	}
	return code
}
