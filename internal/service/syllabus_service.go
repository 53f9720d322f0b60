package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/search"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/jobs"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

const (
	pdfMediaType          = "application/pdf"
	defaultMaxUploadBytes = 10 << 20
	// SearchResultLimit caps GET /search responses.
	SearchResultLimit = 50
	sniffLength       = 512
)

type syllabusRepository interface {
	Create(ctx context.Context, s *models.Syllabus) error
	FindByID(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error)
	IncrementCounter(ctx context.Context, id string, intent models.ServeIntent) error
	Deactivate(ctx context.Context, id string, at time.Time) error
}

type courseLookup interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Course, error)
}

type adminLookup interface {
	FindByID(ctx context.Context, id string) (*models.Admin, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context)
}

// SyllabusUpload is the file part of an upload request.
type SyllabusUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// SyllabusConfig tunes upload acceptance.
type SyllabusConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// SyllabusService owns the syllabus lifecycle: upload, serve, delete and the
// listings built on top of the record store.
type SyllabusService struct {
	repo      syllabusRepository
	courses   courseLookup
	admins    adminLookup
	audit     auditRecorder
	store     storage.FileStore
	cleanup   jobEnqueuer
	analytics analyticsInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SyllabusConfig
	allowed   map[string]struct{}
	now       func() time.Time
}

// SyllabusDeps groups the collaborators of SyllabusService.
type SyllabusDeps struct {
	Repo      syllabusRepository
	Courses   courseLookup
	Admins    adminLookup
	Audit     auditRecorder
	Store     storage.FileStore
	Cleanup   jobEnqueuer
	Analytics analyticsInvalidator
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewSyllabusService constructs a SyllabusService. Cleanup may be nil, in which
// case payloads are removed inline.
func NewSyllabusService(deps SyllabusDeps, cfg SyllabusConfig) *SyllabusService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = defaultMaxUploadBytes
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{pdfMediaType}
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &SyllabusService{
		repo:      deps.Repo,
		courses:   deps.Courses,
		admins:    deps.Admins,
		audit:     deps.Audit,
		store:     deps.Store,
		cleanup:   deps.Cleanup,
		analytics: deps.Analytics,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		cfg:       cfg,
		allowed:   allowed,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MaxFileSize returns the largest accepted payload in bytes.
func (s *SyllabusService) MaxFileSize() int64 {
	return s.cfg.MaxFileSizeBytes
}

// Upload validates and stores a PDF, then records it against its course. The
// stored payload is removed again when the record cannot be created.
func (s *SyllabusService) Upload(ctx context.Context, req models.UploadSyllabusRequest, file *SyllabusUpload, actor *models.JWTClaims, meta models.LoginRequest) (result *models.Syllabus, err error) {
	defer func() {
		if err != nil {
			s.metrics.RecordUpload(strings.ToLower(appErrors.CodeOf(err)))
			return
		}
		s.metrics.RecordUpload("success")
	}()

	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if !actor.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions")
	}

	req.CourseCode = normalizeCode(req.CourseCode)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	if req.Version == 0 {
		req.Version = 1
	}

	if err := s.checkFile(file); err != nil {
		return nil, err
	}

	course, err := s.courses.FindActiveByCode(ctx, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if req.Semester > course.Semesters {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("semester must be between 1 and %d for %s", course.Semesters, course.Code))
	}

	key := s.store.Key(storage.KeySpec{CourseCode: course.Code, Semester: req.Semester, OriginalName: file.Filename})
	obj, err := s.store.Store(ctx, key, file.Content, file.Size, pdfMediaType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store file")
	}

	record := &models.Syllabus{
		ID:            uuid.NewString(),
		CourseCode:    course.Code,
		Branch:        course.Branch,
		Semester:      req.Semester,
		Subject:       req.Subject,
		Title:         req.Title,
		Description:   req.Description,
		StorageDriver: s.store.Driver(),
		FileKey:       obj.Key,
		FileURL:       obj.URL,
		FileName:      originalFilename(file.Filename),
		MimeType:      pdfMediaType,
		FileSize:      obj.Size,
		UploaderID:    actor.UserID,
		Version:       req.Version,
		IsActive:      true,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), obj.Key); rmErr != nil {
			s.logger.Error("failed to roll back stored syllabus file", zap.String("key", obj.Key), zap.Error(rmErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save syllabus")
	}

	s.invalidateAnalytics(ctx)
	s.recordAudit(ctx, actor.UserID, models.AuditActionSyllabusUpload, record, meta)
	s.logger.Info("syllabus uploaded",
		zap.String("syllabus_id", record.ID),
		zap.String("course_code", record.CourseCode),
		zap.Int("semester", record.Semester),
		zap.Int64("size", record.FileSize),
		zap.String("uploader_id", actor.UserID),
	)
	return record, nil
}

// Get returns an active syllabus.
func (s *SyllabusService) Get(ctx context.Context, id string) (*models.Syllabus, error) {
	return s.loadActive(ctx, id)
}

// List returns active syllabi matching every filter. A search term keeps only
// substring matches on title, subject or description and orders them by rank.
func (s *SyllabusService) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	filter.CourseCode = normalizeCode(filter.CourseCode)
	filter.Branch = normalizeCode(filter.Branch)
	filter.Search = strings.TrimSpace(filter.Search)
	filter.UploaderID = ""

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	ranked := search.Rank(items, search.Query{Text: filter.Search}, search.SyllabusFields)
	if ranked == nil {
		ranked = []models.Syllabus{}
	}
	return ranked, nil
}

// Search behaves like List but returns at most SearchResultLimit entries.
func (s *SyllabusService) Search(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	filter.Limit = 0
	items, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(items) > SearchResultLimit {
		items = items[:SearchResultLimit]
	}
	return items, nil
}

// ListOwned returns the active syllabi actor administers: their own uploads
// for ADMIN, everything for SUPERADMIN.
func (s *SyllabusService) ListOwned(ctx context.Context, actor *models.JWTClaims, query, course string) ([]models.Syllabus, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	items, err := s.repo.List(ctx, models.SyllabusFilter{UploaderID: ownerScope(actor)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	ranked := search.Rank(items, search.Query{
		Text:    query,
		Filters: map[string]string{"course": normalizeCode(course)},
	}, search.SyllabusFields)
	if ranked == nil {
		ranked = []models.Syllabus{}
	}
	return ranked, nil
}

// Serve resolves the payload of an active syllabus and counts the access.
// The counter is incremented before the payload is handed out; a failed
// increment aborts the serve. Cached analytics are dropped after each counted
// access. Callers must Close the returned descriptor.
func (s *SyllabusService) Serve(ctx context.Context, id string, intent models.ServeIntent) (*storage.Descriptor, error) {
	record, err := s.loadActive(ctx, id)
	if err != nil {
		return nil, err
	}

	disposition := storage.DispositionInline
	if intent == models.ServeDownload {
		disposition = storage.DispositionAttachment
	}
	desc, err := s.store.Resolve(ctx, record.FileKey, storage.ResolveOptions{
		Disposition: disposition,
		Filename:    downloadFilename(record),
		ContentType: record.MimeType,
	})
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("syllabus file missing", zap.String("syllabus_id", record.ID), zap.String("key", record.FileKey))
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open file")
	}

	if err := s.repo.IncrementCounter(ctx, record.ID, intent); err != nil {
		_ = desc.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record access")
	}
	s.metrics.RecordServe(intent)
	s.invalidateAnalytics(ctx)
	return desc, nil
}

// Delete deactivates a syllabus and schedules removal of its payload. Only a
// SUPERADMIN or an ADMIN assigned to the syllabus course may delete.
func (s *SyllabusService) Delete(ctx context.Context, id string, actor *models.JWTClaims, meta models.LoginRequest) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	record, err := s.loadActive(ctx, id)
	if err != nil {
		return err
	}

	admin, err := s.admins.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "admin no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
	}
	if !admin.ManagesCourse(record.CourseCode) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete syllabi of this course")
	}

	if err := s.repo.Deactivate(ctx, record.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete syllabus")
	}

	s.scheduleRemoval(ctx, record)
	s.invalidateAnalytics(ctx)
	s.recordAudit(ctx, actor.UserID, models.AuditActionSyllabusDelete, record, meta)
	return nil
}

func (s *SyllabusService) loadActive(ctx context.Context, id string) (*models.Syllabus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	if !record.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
	}
	return record, nil
}

func (s *SyllabusService) checkFile(file *SyllabusUpload) error {
	if file == nil || file.Content == nil || file.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "a PDF file is required")
	}
	if file.Size > s.cfg.MaxFileSizeBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}

	declared, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "only PDF files are allowed")
	}
	if _, ok := s.allowed[strings.ToLower(declared)]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "only PDF files are allowed")
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable file")
	}
	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind file")
	}
	if sniffed := http.DetectContentType(head[:n]); sniffed != pdfMediaType {
		return appErrors.Clone(appErrors.ErrValidation, "file content is not a PDF")
	}
	return nil
}

func (s *SyllabusService) scheduleRemoval(ctx context.Context, record *models.Syllabus) {
	payload := FileCleanupPayload{SyllabusID: record.ID, Key: record.FileKey}
	if s.cleanup != nil {
		err := s.cleanup.Enqueue(jobs.Job{ID: record.ID, Type: JobTypeRemoveFile, Payload: payload})
		if err == nil {
			return
		}
		s.logger.Warn("cleanup queue unavailable, removing inline", zap.String("syllabus_id", record.ID), zap.Error(err))
	}
	if err := s.store.Remove(context.WithoutCancel(ctx), record.FileKey); err != nil {
		s.metrics.RecordCleanup("failed")
		s.logger.Error("syllabus file left behind", zap.String("syllabus_id", record.ID), zap.String("key", record.FileKey), zap.Error(err))
		return
	}
	s.metrics.RecordCleanup("success")
}

func (s *SyllabusService) invalidateAnalytics(ctx context.Context) {
	if s.analytics != nil {
		s.analytics.Invalidate(ctx)
	}
}

func (s *SyllabusService) recordAudit(ctx context.Context, actorID, action string, record *models.Syllabus, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"courseCode": record.CourseCode,
		"semester":   record.Semester,
		"title":      record.Title,
		"fileSize":   record.FileSize,
	})
	entry := &models.AuditLog{
		AdminID:    &actorID,
		Action:     action,
		Resource:   "syllabi",
		ResourceID: &record.ID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if action == models.AuditActionSyllabusDelete {
		entry.OldValues = payload
	} else {
		entry.NewValues = payload
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record syllabus audit log", zap.String("action", action), zap.Error(err))
	}
}

// originalFilename keeps the client's base name for display and downloads.
func originalFilename(name string) string {
	base := storage.SanitizeFilename(name)
	return base + ".pdf"
}

func downloadFilename(record *models.Syllabus) string {
	if record.FileName != "" {
		return record.FileName
	}
	return storage.SanitizeFilename(record.Title) + ".pdf"
}
