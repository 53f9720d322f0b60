package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
)

type adminService interface {
	Create(ctx context.Context, req models.CreateAdminRequest, actorID string, meta models.LoginRequest) (*models.Admin, error)
}

// AdminHandler manages admin accounts.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Create godoc
// @Summary Create admin
// @Description Create an admin account (SUPERADMIN only)
// @Tags Admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admins [post]
func (h *AdminHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admin payload"))
		return
	}

	admin, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}
