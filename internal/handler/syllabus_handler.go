package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/service"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

// multipartOverhead leaves room for the text fields and part headers around
// the file itself.
const multipartOverhead = 64 << 10

type syllabusService interface {
	MaxFileSize() int64
	Upload(ctx context.Context, req models.UploadSyllabusRequest, file *service.SyllabusUpload, actor *models.JWTClaims, meta models.LoginRequest) (*models.Syllabus, error)
	Get(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error)
	Search(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error)
	ListOwned(ctx context.Context, actor *models.JWTClaims, query, course string) ([]models.Syllabus, error)
	Serve(ctx context.Context, id string, intent models.ServeIntent) (*storage.Descriptor, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims, meta models.LoginRequest) error
}

// SyllabusHandler exposes the syllabus lifecycle over HTTP.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler constructs a SyllabusHandler.
func NewSyllabusHandler(svc syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: svc}
}

// Upload godoc
// @Summary Upload syllabus
// @Description Upload a syllabus PDF for a course semester
// @Tags Syllabi
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param courseCode formData string true "Course code"
// @Param semester formData int true "Semester (1-8)"
// @Param subject formData string true "Subject"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param version formData int false "Version"
// @Param file formData file true "PDF file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabi [post]
func (h *SyllabusHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxFileSize()+multipartOverhead)

	var req models.UploadSyllabusRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		response.Error(c, uploadBindError(err))
		return
	}

	var upload *service.SyllabusUpload
	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable file"))
			return
		}
		defer file.Close() //nolint:errcheck
		upload = &service.SyllabusUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Content:     file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, uploadBindError(err))
		return
	}

	record, err := h.service.Upload(c.Request.Context(), req, upload, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Get syllabus
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List syllabi
// @Description Active syllabi matching every filter; search ranks the results
// @Tags Syllabi
// @Produce json
// @Param course query string false "Course code"
// @Param semester query int false "Semester"
// @Param branch query string false "Branch"
// @Param search query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /syllabi [get]
func (h *SyllabusHandler) List(c *gin.Context) {
	filter, err := syllabusFilterFromQuery(c, "search")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// Search godoc
// @Summary Search syllabi
// @Description Ranked search over active syllabi, at most 50 results
// @Tags Syllabi
// @Produce json
// @Param q query string false "Search text"
// @Param course query string false "Course code"
// @Param semester query int false "Semester"
// @Param branch query string false "Branch"
// @Success 200 {object} response.Envelope
// @Router /search [get]
func (h *SyllabusHandler) Search(c *gin.Context) {
	filter, err := syllabusFilterFromQuery(c, "q")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items), "query": filter.Search})
}

// Owned godoc
// @Summary List administered syllabi
// @Description Own uploads for ADMIN, all syllabi for SUPERADMIN
// @Tags Admins
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Param course query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /admins/syllabi [get]
func (h *SyllabusHandler) Owned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListOwned(c.Request.Context(), claims, c.Query("q"), c.Query("course"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// Preview godoc
// @Summary Preview syllabus
// @Description Serves the PDF inline and counts a view
// @Tags Syllabi
// @Produce application/pdf
// @Param id path string true "Syllabus ID"
// @Success 200 {file} file
// @Success 302 {string} string "redirect to signed URL"
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id}/preview [get]
func (h *SyllabusHandler) Preview(c *gin.Context) {
	h.serve(c, models.ServePreview)
}

// Download godoc
// @Summary Download syllabus
// @Description Serves the PDF as an attachment and counts a download
// @Tags Syllabi
// @Produce application/pdf
// @Param id path string true "Syllabus ID"
// @Success 200 {file} file
// @Success 302 {string} string "redirect to signed URL"
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id}/download [get]
func (h *SyllabusHandler) Download(c *gin.Context) {
	h.serve(c, models.ServeDownload)
}

func (h *SyllabusHandler) serve(c *gin.Context, intent models.ServeIntent) {
	desc, err := h.service.Serve(c.Request.Context(), c.Param("id"), intent)
	if err != nil {
		response.Error(c, err)
		return
	}
	deliver(c, desc)
}

// Delete godoc
// @Summary Delete syllabus
// @Description Deactivates a syllabus and removes its file
// @Tags Syllabi
// @Produce json
// @Security BearerAuth
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabi/{id} [delete]
func (h *SyllabusHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "syllabus deleted")
}

// deliver writes a descriptor as a redirect or a streamed body and closes it.
func deliver(c *gin.Context, desc *storage.Descriptor) {
	defer desc.Close() //nolint:errcheck

	if desc.RedirectURL != "" {
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusFound, desc.RedirectURL)
		return
	}
	c.DataFromReader(http.StatusOK, desc.Size, desc.ContentType, desc.Content, map[string]string{
		"Content-Disposition":    storage.ContentDisposition(desc.Disposition, desc.Filename),
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, no-store",
	})
}

func uploadBindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "upload exceeds the size limit")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload form")
}
