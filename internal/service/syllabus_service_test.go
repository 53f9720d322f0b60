package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/jobs"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

const samplePDF = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

type memorySyllabusRepo struct {
	mu        sync.Mutex
	records   map[string]*models.Syllabus
	createErr error
	incrErr   error
}

func newMemorySyllabusRepo() *memorySyllabusRepo {
	return &memorySyllabusRepo{records: map[string]*models.Syllabus{}}
}

func (m *memorySyllabusRepo) Create(_ context.Context, s *models.Syllabus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copy := *s
	m.records[s.ID] = &copy
	return nil
}

func (m *memorySyllabusRepo) FindByID(_ context.Context, id string) (*models.Syllabus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *record
	return &copy, nil
}

func (m *memorySyllabusRepo) List(_ context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(filter.Search)
	var out []models.Syllabus
	for _, r := range m.records {
		if !r.IsActive {
			continue
		}
		if filter.CourseCode != "" && r.CourseCode != filter.CourseCode {
			continue
		}
		if filter.Semester > 0 && r.Semester != filter.Semester {
			continue
		}
		if filter.Branch != "" && r.Branch != filter.Branch {
			continue
		}
		if filter.UploaderID != "" && r.UploaderID != filter.UploaderID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Title+"\x00"+r.Subject+"\x00"+r.Description), needle) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memorySyllabusRepo) IncrementCounter(_ context.Context, id string, intent models.ServeIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return m.incrErr
	}
	record, ok := m.records[id]
	if !ok || !record.IsActive {
		return sql.ErrNoRows
	}
	if intent == models.ServeDownload {
		record.DownloadCount++
	} else {
		record.ViewCount++
	}
	return nil
}

func (m *memorySyllabusRepo) Deactivate(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok || !record.IsActive {
		return sql.ErrNoRows
	}
	record.IsActive = false
	record.UpdatedAt = at
	return nil
}

func (m *memorySyllabusRepo) get(id string) models.Syllabus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

type stubCourseLookup map[string]*models.Course

func (s stubCourseLookup) FindActiveByCode(_ context.Context, code string) (*models.Course, error) {
	course, ok := s[code]
	if !ok || !course.IsActive {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubAdminLookup map[string]*models.Admin

func (s stubAdminLookup) FindByID(_ context.Context, id string) (*models.Admin, error) {
	admin, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return admin, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordingEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (r *recordingEnqueuer) Enqueue(job jobs.Job) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls++
}

type failingStore struct {
	storage.FileStore
}

func (failingStore) Store(context.Context, string, io.Reader, int64, string) (*storage.Object, error) {
	return nil, fmt.Errorf("disk full")
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

type trackingStore struct {
	storage.FileStore
	opened []*closeTracker
}

func (s *trackingStore) Resolve(ctx context.Context, key string, opts storage.ResolveOptions) (*storage.Descriptor, error) {
	desc, err := s.FileStore.Resolve(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	tracker := &closeTracker{Reader: desc.Content}
	s.opened = append(s.opened, tracker)
	desc.Content = tracker
	return desc, nil
}

type syllabusFixture struct {
	svc       *SyllabusService
	repo      *memorySyllabusRepo
	store     *storage.LocalStorage
	dir       string
	audit     *recordingAudit
	cleanup   *recordingEnqueuer
	analytics *countingInvalidator
}

func newSyllabusFixture(t *testing.T) *syllabusFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	f := &syllabusFixture{
		repo:      newMemorySyllabusRepo(),
		store:     store,
		dir:       dir,
		audit:     &recordingAudit{},
		cleanup:   &recordingEnqueuer{},
		analytics: &countingInvalidator{},
	}
	f.svc = NewSyllabusService(SyllabusDeps{
		Repo: f.repo,
		Courses: stubCourseLookup{
			"CSE":   {Code: "CSE", Branch: "ENGINEERING", Semesters: 8, IsActive: true},
			"MBA":   {Code: "MBA", Branch: "MANAGEMENT", Semesters: 4, IsActive: true},
			"CS101": {Code: "CS101", Branch: "ENGINEERING", Semesters: 8, IsActive: true},
		},
		Admins: stubAdminLookup{
			"root":    {ID: "root", Role: models.RoleSuperAdmin, Active: true},
			"cse-adm": {ID: "cse-adm", Role: models.RoleAdmin, Active: true, AssignedCourses: []string{"CSE"}},
			"mba-adm": {ID: "mba-adm", Role: models.RoleAdmin, Active: true, AssignedCourses: []string{"MBA"}},
		},
		Audit:     f.audit,
		Store:     store,
		Cleanup:   f.cleanup,
		Analytics: f.analytics,
		Logger:    zap.NewNop(),
	}, SyllabusConfig{MaxFileSizeBytes: 1024})
	return f
}

func pdfUpload(name, body string) *SyllabusUpload {
	return &SyllabusUpload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Content:     bytes.NewReader([]byte(body)),
	}
}

func (f *syllabusFixture) upload(t *testing.T, actor *models.JWTClaims, course, title string) *models.Syllabus {
	t.Helper()
	record, err := f.svc.Upload(context.Background(), models.UploadSyllabusRequest{
		CourseCode: course,
		Semester:   3,
		Subject:    "Core",
		Title:      title,
	}, pdfUpload(title+".pdf", samplePDF), actor, models.LoginRequest{})
	require.NoError(t, err)
	return record
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

func requireAppCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, want.Code, appErr.Code, appErr.Message)
}

func TestSyllabusServiceUpload(t *testing.T) {
	f := newSyllabusFixture(t)

	record, err := f.svc.Upload(context.Background(), models.UploadSyllabusRequest{
		CourseCode: " cse ",
		Semester:   3,
		Subject:    "Data Structures",
		Title:      "DS Syllabus",
	}, pdfUpload("DS Syllabus.pdf", samplePDF), adminActor("cse-adm"), models.LoginRequest{IP: "10.1.1.1"})
	require.NoError(t, err)

	assert.Equal(t, "CSE", record.CourseCode)
	assert.Equal(t, "ENGINEERING", record.Branch)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, int64(len(samplePDF)), record.FileSize)
	assert.Equal(t, "DS_Syllabus.pdf", record.FileName)
	assert.Equal(t, "local", record.StorageDriver)
	assert.True(t, record.IsActive)
	assert.Zero(t, record.DownloadCount)
	assert.Zero(t, record.ViewCount)
	assert.Equal(t, "cse-adm", record.UploaderID)

	require.FileExists(t, f.store.Path(record.FileKey))
	assert.Equal(t, 1, f.analytics.calls)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionSyllabusUpload, f.audit.logs[0].Action)
	assert.Equal(t, "10.1.1.1", f.audit.logs[0].IPAddress)
}

func TestSyllabusServiceUploadRejections(t *testing.T) {
	f := newSyllabusFixture(t)
	valid := models.UploadSyllabusRequest{CourseCode: "CSE", Semester: 2, Subject: "Maths", Title: "Calculus"}

	cases := []struct {
		name  string
		req   models.UploadSyllabusRequest
		file  *SyllabusUpload
		actor *models.JWTClaims
		want  *appErrors.Error
	}{
		{name: "no actor", req: valid, file: pdfUpload("a.pdf", samplePDF), want: appErrors.ErrUnauthorized},
		{name: "unknown role", req: valid, file: pdfUpload("a.pdf", samplePDF), actor: &models.JWTClaims{UserID: "x", Role: "STUDENT"}, want: appErrors.ErrForbidden},
		{name: "missing title", req: models.UploadSyllabusRequest{CourseCode: "CSE", Semester: 2, Subject: "Maths"}, file: pdfUpload("a.pdf", samplePDF), actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "semester out of range", req: models.UploadSyllabusRequest{CourseCode: "CSE", Semester: 9, Subject: "Maths", Title: "T"}, file: pdfUpload("a.pdf", samplePDF), actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "semester beyond course", req: models.UploadSyllabusRequest{CourseCode: "MBA", Semester: 6, Subject: "Finance", Title: "T"}, file: pdfUpload("a.pdf", samplePDF), actor: adminActor("mba-adm"), want: appErrors.ErrValidation},
		{name: "no file", req: valid, actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "empty file", req: valid, file: pdfUpload("a.pdf", ""), actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "too large", req: valid, file: pdfUpload("a.pdf", samplePDF+strings.Repeat("x", 2048)), actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "declared type", req: valid, file: &SyllabusUpload{Filename: "a.docx", ContentType: "application/msword", Size: int64(len(samplePDF)), Content: strings.NewReader(samplePDF)}, actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "sniffed type", req: valid, file: pdfUpload("a.pdf", "<html><body>not a pdf</body></html>"), actor: adminActor("cse-adm"), want: appErrors.ErrValidation},
		{name: "unknown course", req: models.UploadSyllabusRequest{CourseCode: "XYZ", Semester: 1, Subject: "S", Title: "T"}, file: pdfUpload("a.pdf", samplePDF), actor: adminActor("cse-adm"), want: appErrors.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), tc.req, tc.file, tc.actor, models.LoginRequest{})
			requireAppCode(t, err, tc.want)
		})
	}

	assert.Empty(t, storedFiles(t, f.dir))
	assert.Empty(t, f.repo.records)
	assert.Empty(t, f.audit.logs)
}

func TestSyllabusServiceUploadOversizeIsValidation(t *testing.T) {
	f := newSyllabusFixture(t)
	body := samplePDF + strings.Repeat("%comment line\n", 150)
	require.Greater(t, len(body), 2048)

	_, err := f.svc.Upload(context.Background(), models.UploadSyllabusRequest{
		CourseCode: "CSE", Semester: 1, Subject: "S", Title: "Big",
	}, pdfUpload("big.pdf", body), adminActor("cse-adm"), models.LoginRequest{})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, storedFiles(t, f.dir))
}

func TestSyllabusServiceUploadRollsBackFile(t *testing.T) {
	f := newSyllabusFixture(t)
	f.repo.createErr = fmt.Errorf("insert failed")

	_, err := f.svc.Upload(context.Background(), models.UploadSyllabusRequest{
		CourseCode: "CSE", Semester: 1, Subject: "S", Title: "T",
	}, pdfUpload("t.pdf", samplePDF), adminActor("cse-adm"), models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrInternal)
	assert.Empty(t, storedFiles(t, f.dir))
	assert.Zero(t, f.analytics.calls)
}

func TestSyllabusServiceUploadStorageFailure(t *testing.T) {
	f := newSyllabusFixture(t)
	f.svc.store = failingStore{FileStore: f.store}

	_, err := f.svc.Upload(context.Background(), models.UploadSyllabusRequest{
		CourseCode: "CSE", Semester: 1, Subject: "S", Title: "T",
	}, pdfUpload("t.pdf", samplePDF), adminActor("cse-adm"), models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrStorage)
	assert.Empty(t, f.repo.records)
}

func TestSyllabusServiceServeCountsOnce(t *testing.T) {
	f := newSyllabusFixture(t)
	record := f.upload(t, adminActor("cse-adm"), "CSE", "Algorithms")

	desc, err := f.svc.Serve(context.Background(), record.ID, models.ServePreview)
	require.NoError(t, err)
	assert.Equal(t, storage.DispositionInline, desc.Disposition)
	body, err := io.ReadAll(desc.Content)
	require.NoError(t, err)
	require.NoError(t, desc.Close())
	assert.Equal(t, samplePDF, string(body))

	desc, err = f.svc.Serve(context.Background(), record.ID, models.ServeDownload)
	require.NoError(t, err)
	assert.Equal(t, storage.DispositionAttachment, desc.Disposition)
	assert.Equal(t, "Algorithms.pdf", desc.Filename)
	require.NoError(t, desc.Close())

	_, err = f.svc.Serve(context.Background(), record.ID, models.ServeDownload)
	require.NoError(t, err)

	stored := f.repo.get(record.ID)
	assert.Equal(t, int64(1), stored.ViewCount)
	assert.Equal(t, int64(2), stored.DownloadCount)
	assert.Equal(t, 4, f.analytics.calls)
}

func TestSyllabusServiceServeNotFound(t *testing.T) {
	f := newSyllabusFixture(t)
	record := f.upload(t, adminActor("cse-adm"), "CSE", "Networks")

	_, err := f.svc.Serve(context.Background(), "not-a-uuid", models.ServePreview)
	requireAppCode(t, err, appErrors.ErrNotFound)
	_, err = f.svc.Serve(context.Background(), uuid.NewString(), models.ServePreview)
	requireAppCode(t, err, appErrors.ErrNotFound)

	require.NoError(t, os.Remove(f.store.Path(record.FileKey)))
	_, err = f.svc.Serve(context.Background(), record.ID, models.ServeDownload)
	requireAppCode(t, err, appErrors.ErrNotFound)

	stored := f.repo.get(record.ID)
	assert.Zero(t, stored.DownloadCount)
	assert.Zero(t, stored.ViewCount)
}

func TestSyllabusServiceServeAbortsWhenCountFails(t *testing.T) {
	f := newSyllabusFixture(t)
	record := f.upload(t, adminActor("cse-adm"), "CSE", "Compilers")
	store := &trackingStore{FileStore: f.store}
	f.svc.store = store
	f.repo.incrErr = fmt.Errorf("connection reset")

	desc, err := f.svc.Serve(context.Background(), record.ID, models.ServePreview)
	require.Nil(t, desc)
	requireAppCode(t, err, appErrors.ErrInternal)
	require.Len(t, store.opened, 1)
	assert.True(t, store.opened[0].closed)
	assert.Equal(t, 1, f.analytics.calls)
}

func TestSyllabusServiceDeleteAuthorization(t *testing.T) {
	f := newSyllabusFixture(t)
	record := f.upload(t, adminActor("cse-adm"), "CSE", "Operating Systems")

	err := f.svc.Delete(context.Background(), record.ID, adminActor("mba-adm"), models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrForbidden)
	assert.True(t, f.repo.get(record.ID).IsActive)

	err = f.svc.Delete(context.Background(), record.ID, adminActor("ghost"), models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrUnauthorized)

	require.NoError(t, f.svc.Delete(context.Background(), record.ID, adminActor("cse-adm"), models.LoginRequest{}))
	stored := f.repo.get(record.ID)
	assert.False(t, stored.IsActive)

	require.Len(t, f.cleanup.jobs, 1)
	assert.Equal(t, JobTypeRemoveFile, f.cleanup.jobs[0].Type)
	assert.Equal(t, FileCleanupPayload{SyllabusID: record.ID, Key: record.FileKey}, f.cleanup.jobs[0].Payload)
	assert.Equal(t, models.AuditActionSyllabusDelete, f.audit.logs[len(f.audit.logs)-1].Action)

	err = f.svc.Delete(context.Background(), record.ID, superActor("root"), models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Serve(context.Background(), record.ID, models.ServePreview)
	requireAppCode(t, err, appErrors.ErrNotFound)

	listed, err := f.svc.List(context.Background(), models.SyllabusFilter{CourseCode: "CSE"})
	require.NoError(t, err)
	assert.NotContains(t, syllabusIDs(listed), record.ID)
	found, err := f.svc.Search(context.Background(), models.SyllabusFilter{Search: "operating"})
	require.NoError(t, err)
	assert.Empty(t, found)
	owned, err := f.svc.ListOwned(context.Background(), adminActor("cse-adm"), "", "")
	require.NoError(t, err)
	assert.NotContains(t, syllabusIDs(owned), record.ID)
}

func syllabusIDs(items []models.Syllabus) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestSyllabusServiceCourseLifecycle(t *testing.T) {
	f := newSyllabusFixture(t)
	ctx := context.Background()
	actor := superActor("root")

	notes, err := f.svc.Upload(ctx, models.UploadSyllabusRequest{
		CourseCode: "CS101", Semester: 3, Subject: "Data Structures", Title: "DSA Notes",
	}, pdfUpload("dsa.pdf", samplePDF), actor, models.LoginRequest{})
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, models.UploadSyllabusRequest{
		CourseCode: "CS101", Semester: 3, Subject: "Algorithms", Title: "Algorithms",
		Description: "Builds on the dsa module",
	}, pdfUpload("algo.pdf", samplePDF), actor, models.LoginRequest{})
	require.NoError(t, err)

	found, err := f.svc.Search(ctx, models.SyllabusFilter{Search: "dsa"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, notes.ID, found[0].ID)

	found, err = f.svc.Search(ctx, models.SyllabusFilter{Search: "data", Semester: 3})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, notes.ID, found[0].ID)

	found, err = f.svc.Search(ctx, models.SyllabusFilter{Search: "data", Semester: 4})
	require.NoError(t, err)
	assert.Empty(t, found)

	for i := 0; i < 2; i++ {
		desc, err := f.svc.Serve(ctx, notes.ID, models.ServeDownload)
		require.NoError(t, err)
		require.NoError(t, desc.Close())
	}
	assert.Equal(t, int64(2), f.repo.get(notes.ID).DownloadCount)

	require.NoError(t, f.svc.Delete(ctx, notes.ID, actor, models.LoginRequest{}))

	found, err = f.svc.Search(ctx, models.SyllabusFilter{Search: "data", Semester: 3})
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = f.svc.Search(ctx, models.SyllabusFilter{Search: "dsa"})
	require.NoError(t, err)
	assert.NotContains(t, syllabusIDs(found), notes.ID)
}

func TestSyllabusServiceDeleteSuperadminRemovesInline(t *testing.T) {
	f := newSyllabusFixture(t)
	f.svc.cleanup = nil
	record := f.upload(t, adminActor("mba-adm"), "MBA", "Marketing")

	require.NoError(t, f.svc.Delete(context.Background(), record.ID, superActor("root"), models.LoginRequest{}))
	assert.NoFileExists(t, f.store.Path(record.FileKey))
	assert.Equal(t, 2, f.analytics.calls)
}

func TestSyllabusServiceDeleteFallsBackWhenQueueFull(t *testing.T) {
	f := newSyllabusFixture(t)
	f.cleanup.err = jobs.ErrQueueFull
	record := f.upload(t, adminActor("cse-adm"), "CSE", "Databases")

	require.NoError(t, f.svc.Delete(context.Background(), record.ID, adminActor("cse-adm"), models.LoginRequest{}))
	assert.NoFileExists(t, f.store.Path(record.FileKey))
}

func TestSyllabusServiceListingsAndSearch(t *testing.T) {
	f := newSyllabusFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		id := uuid.NewString()
		f.repo.records[id] = &models.Syllabus{
			ID: id, CourseCode: "CSE", Branch: "ENGINEERING", Semester: 1 + i%8,
			Subject: "Programming", Title: fmt.Sprintf("Programming Lab %02d", i),
			UploaderID: "cse-adm", IsActive: true, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	mba := uuid.NewString()
	f.repo.records[mba] = &models.Syllabus{
		ID: mba, CourseCode: "MBA", Branch: "MANAGEMENT", Semester: 1, Subject: "Finance",
		Title: "Corporate Finance", UploaderID: "mba-adm", IsActive: true, CreatedAt: base,
	}

	all, err := f.svc.List(context.Background(), models.SyllabusFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 61)
	assert.Equal(t, "Programming Lab 59", all[0].Title)

	found, err := f.svc.Search(context.Background(), models.SyllabusFilter{Search: "programming"})
	require.NoError(t, err)
	assert.Len(t, found, SearchResultLimit)

	filtered, err := f.svc.List(context.Background(), models.SyllabusFilter{Branch: "management", Search: "finance"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, mba, filtered[0].ID)

	owned, err := f.svc.ListOwned(context.Background(), adminActor("mba-adm"), "", "")
	require.NoError(t, err)
	require.Len(t, owned, 1)

	owned, err = f.svc.ListOwned(context.Background(), superActor("root"), "", "mba")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, mba, owned[0].ID)

	owned, err = f.svc.ListOwned(context.Background(), superActor("root"), "lab 07", "")
	require.NoError(t, err)
	require.NotEmpty(t, owned)
	assert.Equal(t, "Programming Lab 07", owned[0].Title)
}
