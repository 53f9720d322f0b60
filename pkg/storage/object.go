package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/noah-isme/syllabus-portal-api/pkg/config"
)

// ObjectStorage keeps payloads in an S3-compatible bucket and serves them
// through presigned GET URLs.
type ObjectStorage struct {
	client        *minio.Client
	bucket        string
	prefix        string
	presignTTL    time.Duration
	publicBaseURL string
}

// NewObjectStorage connects lazily; no request is made until the first operation.
func NewObjectStorage(cfg config.ObjectStorageConfig) (*ObjectStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object storage bucket required")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ObjectStorage{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		presignTTL:    ttl,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *ObjectStorage) Driver() string { return config.StorageDriverObject }

// Key returns <prefix>/syllabus_<COURSE>_<SEM>_<unixnano>.pdf.
func (s *ObjectStorage) Key(ks KeySpec) string {
	name := fmt.Sprintf("syllabus_%s_%d_%d.pdf", normalizeCourse(ks.CourseCode), ks.Semester, time.Now().UnixNano())
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *ObjectStorage) Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error) {
	if contentType == "" {
		contentType = "application/pdf"
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	stored := info.Size
	if stored <= 0 {
		stored = size
	}
	return &Object{Key: key, URL: s.publicURL(key), Size: stored}, nil
}

func (s *ObjectStorage) Resolve(ctx context.Context, key string, opts ResolveOptions) (*Descriptor, error) {
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isObjectMissing(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = stat.ContentType
	}
	params := url.Values{}
	params.Set("response-content-disposition", ContentDisposition(opts.Disposition, opts.Filename))
	if contentType != "" {
		params.Set("response-content-type", contentType)
	}
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, params)
	if err != nil {
		return nil, fmt.Errorf("presign object %s: %w", key, err)
	}
	return &Descriptor{
		RedirectURL: signed.String(),
		Size:        stat.Size,
		ContentType: contentType,
		Filename:    opts.Filename,
		Disposition: opts.Disposition,
	}, nil
}

// Remove deletes the object. S3 treats deleting a missing key as success.
func (s *ObjectStorage) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isObjectMissing(err) {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStorage) publicURL(key string) string {
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + "/" + key
}

func isObjectMissing(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
