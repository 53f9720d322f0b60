package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/syllabus-portal-api/pkg/config"
)

// LocalStorage persists files on disk under a base directory, one
// sub-directory per course.
type LocalStorage struct {
	baseDir     string
	signer      *SignedURLSigner
	filesPrefix string
}

// LocalOption customises a LocalStorage.
type LocalOption func(*LocalStorage)

// WithSignedURLs makes Resolve hand out redirects to filesPrefix/<token>
// instead of opening the file directly.
func WithSignedURLs(signer *SignedURLSigner, filesPrefix string) LocalOption {
	return func(s *LocalStorage) {
		s.signer = signer
		s.filesPrefix = strings.TrimSuffix(filesPrefix, "/")
	}
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload directory: %w", err)
	}
	s := &LocalStorage{baseDir: abs}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LocalStorage) Driver() string { return config.StorageDriverLocal }

// Key returns <COURSE>/<name>-<unix>-<rand>.pdf.
func (s *LocalStorage) Key(ks KeySpec) string {
	name := fmt.Sprintf("%s-%d-%s.pdf", SanitizeFilename(ks.OriginalName), time.Now().Unix(), randomSuffix())
	return path.Join(normalizeCourse(ks.CourseCode), name)
}

// Store streams r into a temporary file and renames it into place so that a
// partially written payload is never visible under key.
func (s *LocalStorage) Store(ctx context.Context, key string, r io.Reader, _ int64, _ string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return nil, fmt.Errorf("write upload stream: %w", copyErr)
		}
		return nil, fmt.Errorf("close upload file: %w", closeErr)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("commit upload file: %w", err)
	}
	return &Object{Key: key, Size: written}, nil
}

// Resolve returns a signed redirect when a signer is configured, otherwise an
// open file.
func (s *LocalStorage) Resolve(ctx context.Context, key string, opts ResolveOptions) (*Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat upload file: %w", err)
	}

	if s.signer != nil {
		token, _, err := s.signer.Generate(encodeSubject(opts.Disposition, opts.Filename), key)
		if err != nil {
			return nil, fmt.Errorf("sign download url: %w", err)
		}
		return &Descriptor{
			RedirectURL: s.filesPrefix + "/" + url.PathEscape(token),
			Size:        info.Size(),
			ContentType: opts.ContentType,
			Filename:    opts.Filename,
			Disposition: opts.Disposition,
		}, nil
	}

	return s.open(target, info.Size(), opts)
}

// OpenSigned validates a token produced by Resolve and opens the file behind it.
func (s *LocalStorage) OpenSigned(token string) (*Descriptor, error) {
	if s.signer == nil {
		return nil, ErrObjectNotFound
	}
	subject, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, err
	}
	disposition, filename := decodeSubject(subject)
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat upload file: %w", err)
	}
	return s.open(target, info.Size(), ResolveOptions{Disposition: disposition, Filename: filename, ContentType: "application/pdf"})
}

// Remove deletes a stored file. A missing file is not an error.
func (s *LocalStorage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(key string) string {
	p, _ := s.resolve(key)
	return p
}

func (s *LocalStorage) open(target string, size int64, opts ResolveOptions) (*Descriptor, error) {
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(target)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Descriptor{
		Content:     file,
		Size:        size,
		ContentType: contentType,
		Filename:    filename,
		Disposition: opts.Disposition,
	}, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	clean := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(key)))
	if clean != s.baseDir && !strings.HasPrefix(clean, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes base directory", key)
	}
	return clean, nil
}

// Subjects are "<disposition>~<base64 filename>"; neither part contains the
// signer's "." separator.
func encodeSubject(disposition, filename string) string {
	if disposition != DispositionAttachment {
		disposition = DispositionInline
	}
	return disposition + "~" + base64.RawURLEncoding.EncodeToString([]byte(filename))
}

func decodeSubject(subject string) (string, string) {
	disposition, encoded, _ := strings.Cut(subject, "~")
	if disposition != DispositionAttachment {
		disposition = DispositionInline
	}
	name, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return disposition, ""
	}
	return disposition, string(name)
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(buf)
}
