package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

type signedFileOpener interface {
	OpenSigned(token string) (*storage.Descriptor, error)
}

// FileHandler delivers files behind signed links issued by the local store.
type FileHandler struct {
	files signedFileOpener
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(files signedFileOpener) *FileHandler {
	return &FileHandler{files: files}
}

// Serve godoc
// @Summary Signed file delivery
// @Description Streams a file referenced by a short-lived signed token
// @Tags Syllabi
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	desc, err := h.files.OpenSigned(c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrObjectNotFound):
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		case errors.Is(err, storage.ErrTokenExpired), errors.Is(err, storage.ErrTokenSignature), errors.Is(err, storage.ErrTokenMalformed):
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "link is invalid or has expired"))
		default:
			response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open file"))
		}
		return
	}
	deliver(c, desc)
}
