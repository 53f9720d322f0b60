package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-portal-api/internal/middleware"
	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/service"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

type apiEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type fakeSyllabusSrv struct {
	maxSize int64

	uploadReq    models.UploadSyllabusRequest
	uploadBody   string
	uploadName   string
	uploadType   string
	uploadCalled bool
	uploadErr    error
	uploadResult *models.Syllabus
	listFilter   models.SyllabusFilter
	searchFilter models.SyllabusFilter
	ownedQuery   string
	ownedCourse  string
	items        []models.Syllabus
	serveIntent  models.ServeIntent
	serveDesc    *storage.Descriptor
	serveErr     error
	deletedID    string
	deleteActor  *models.JWTClaims
	deleteErr    error
	getErr       error
}

func (f *fakeSyllabusSrv) MaxFileSize() int64 {
	if f.maxSize == 0 {
		return 10 << 20
	}
	return f.maxSize
}

func (f *fakeSyllabusSrv) Upload(_ context.Context, req models.UploadSyllabusRequest, file *service.SyllabusUpload, _ *models.JWTClaims, _ models.LoginRequest) (*models.Syllabus, error) {
	f.uploadCalled = true
	f.uploadReq = req
	if file != nil {
		body, _ := io.ReadAll(file.Content)
		f.uploadBody = string(body)
		f.uploadName = file.Filename
		f.uploadType = file.ContentType
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadResult, nil
}

func (f *fakeSyllabusSrv) Get(_ context.Context, id string) (*models.Syllabus, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.Syllabus{ID: id}, nil
}

func (f *fakeSyllabusSrv) List(_ context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	f.listFilter = filter
	return f.items, nil
}

func (f *fakeSyllabusSrv) Search(_ context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	f.searchFilter = filter
	return f.items, nil
}

func (f *fakeSyllabusSrv) ListOwned(_ context.Context, _ *models.JWTClaims, query, course string) ([]models.Syllabus, error) {
	f.ownedQuery = query
	f.ownedCourse = course
	return f.items, nil
}

func (f *fakeSyllabusSrv) Serve(_ context.Context, _ string, intent models.ServeIntent) (*storage.Descriptor, error) {
	f.serveIntent = intent
	return f.serveDesc, f.serveErr
}

func (f *fakeSyllabusSrv) Delete(_ context.Context, id string, actor *models.JWTClaims, _ models.LoginRequest) error {
	f.deletedID = id
	f.deleteActor = actor
	return f.deleteErr
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (t *trackingCloser) Close() error {
	t.closed = true
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", "application/pdf")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func uploadContext(t *testing.T, body io.Reader, contentType string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/syllabi", body)
	c.Request.Header.Set("Content-Type", contentType)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

var uploadFields = map[string]string{
	"courseCode": "cse",
	"semester":   "3",
	"subject":    "Data Structures",
	"title":      "DS Syllabus",
}

func TestSyllabusHandlerUploadRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{}
	body, ct := multipartUpload(t, uploadFields, "ds.pdf", []byte("%PDF-1.4"))
	c, rec := uploadContext(t, body, ct, nil)

	NewSyllabusHandler(srv).Upload(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, srv.uploadCalled)
}

func TestSyllabusHandlerUploadSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{uploadResult: &models.Syllabus{ID: "syl-1", CourseCode: "CSE"}}
	body, ct := multipartUpload(t, uploadFields, "ds.pdf", []byte("%PDF-1.4 body"))
	c, rec := uploadContext(t, body, ct, adminClaims())

	NewSyllabusHandler(srv).Upload(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cse", srv.uploadReq.CourseCode)
	assert.Equal(t, 3, srv.uploadReq.Semester)
	assert.Equal(t, "Data Structures", srv.uploadReq.Subject)
	assert.Equal(t, "%PDF-1.4 body", srv.uploadBody)
	assert.Equal(t, "ds.pdf", srv.uploadName)
	assert.Equal(t, "application/pdf", srv.uploadType)

	env := decodeEnvelope(t, rec)
	var created models.Syllabus
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "syl-1", created.ID)
}

func TestSyllabusHandlerUploadWithoutFileDelegates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{uploadErr: appErrors.Clone(appErrors.ErrValidation, "file is required")}
	body, ct := multipartUpload(t, uploadFields, "", nil)
	c, rec := uploadContext(t, body, ct, adminClaims())

	NewSyllabusHandler(srv).Upload(c)

	assert.True(t, srv.uploadCalled)
	assert.Empty(t, srv.uploadName)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyllabusHandlerUploadRejectsNonMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{}
	c, rec := uploadContext(t, strings.NewReader(`{"courseCode":"CSE"}`), "application/json", adminClaims())

	NewSyllabusHandler(srv).Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, srv.uploadCalled)
}

func TestSyllabusHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{maxSize: 1024}
	content := append([]byte("%PDF-1.4"), bytes.Repeat([]byte("a"), 2*multipartOverhead)...)
	body, ct := multipartUpload(t, uploadFields, "big.pdf", content)
	c, rec := uploadContext(t, body, ct, adminClaims())

	NewSyllabusHandler(srv).Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, srv.uploadCalled)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSyllabusHandlerListAndSearchFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{items: []models.Syllabus{{ID: "a"}, {ID: "b"}}}
	handler := NewSyllabusHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/syllabi?course=cse&semester=2&branch=eng&search=graph", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SyllabusFilter{CourseCode: "cse", Semester: 2, Branch: "eng", Search: "graph"}, srv.listFilter)
	assert.EqualValues(t, 2, decodeEnvelope(t, rec).Meta["count"])

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/search?q=graph+theory", nil)
	handler.Search(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "graph theory", srv.searchFilter.Search)
	assert.Equal(t, "graph theory", decodeEnvelope(t, rec).Meta["query"])
}

func TestSyllabusHandlerListRejectsBadSemester(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, raw := range []string{"0", "9", "two"} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/syllabi?semester="+raw, nil)

		NewSyllabusHandler(&fakeSyllabusSrv{}).List(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
	}
}

func TestSyllabusHandlerOwnedPassesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{items: []models.Syllabus{}}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admins/syllabi?q=algo&course=CSE", nil)
	c.Set(middleware.ContextUserKey, adminClaims())

	NewSyllabusHandler(srv).Owned(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "algo", srv.ownedQuery)
	assert.Equal(t, "CSE", srv.ownedCourse)
}

func TestSyllabusHandlerPreviewStreamsInline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	content := &trackingCloser{Reader: strings.NewReader("%PDF-1.4")}
	srv := &fakeSyllabusSrv{serveDesc: &storage.Descriptor{
		Content:     content,
		Size:        8,
		ContentType: "application/pdf",
		Filename:    "DS_Syllabus.pdf",
		Disposition: storage.DispositionInline,
	}}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/syllabi/id/preview", nil)
	c.Params = gin.Params{{Key: "id", Value: "id"}}

	NewSyllabusHandler(srv).Preview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ServePreview, srv.serveIntent)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=DS_Syllabus.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.True(t, content.closed)
}

func TestSyllabusHandlerDownloadRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{serveDesc: &storage.Descriptor{RedirectURL: "https://s3.example.edu/signed"}}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/syllabi/id/download", nil)

	NewSyllabusHandler(srv).Download(c)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, models.ServeDownload, srv.serveIntent)
	assert.Equal(t, "https://s3.example.edu/signed", rec.Header().Get("Location"))
}

func TestSyllabusHandlerServeNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeSyllabusSrv{serveErr: appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/syllabi/missing/download", nil)

	NewSyllabusHandler(srv).Download(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyllabusHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		srv := &fakeSyllabusSrv{}
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodDelete, "/syllabi/syl-1", nil)
		c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
		c.Set(middleware.ContextUserKey, adminClaims())

		NewSyllabusHandler(srv).Delete(c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "syl-1", srv.deletedID)
		assert.Equal(t, "adm-1", srv.deleteActor.UserID)
		assert.Contains(t, rec.Body.String(), "syllabus deleted")
	})

	t.Run("forbidden", func(t *testing.T) {
		srv := &fakeSyllabusSrv{deleteErr: appErrors.Clone(appErrors.ErrForbidden, "course not assigned")}
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodDelete, "/syllabi/syl-1", nil)
		c.Set(middleware.ContextUserKey, adminClaims())

		NewSyllabusHandler(srv).Delete(c)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
