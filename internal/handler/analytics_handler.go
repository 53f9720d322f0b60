package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-portal-api/internal/middleware"
	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/service"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

type analyticsService interface {
	Syllabi(ctx context.Context, actor *models.JWTClaims) (*models.SyllabusAnalytics, bool, error)
	Export(ctx context.Context, actor *models.JWTClaims, format string) (*service.AnalyticsExport, error)
	SystemMetrics() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes admin analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Syllabi godoc
// @Summary Syllabus analytics
// @Description Totals and the ten most downloaded syllabi in the caller's scope
// @Tags Admins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admins/analytics [get]
func (h *AnalyticsHandler) Syllabi(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cacheHit, err := h.analytics.Syllabi(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export syllabus analytics
// @Tags Admins
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admins/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.analytics.Export(c.Request.Context(), claims, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", storage.ContentDisposition(storage.DispositionAttachment, result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// System godoc
// @Summary System metrics snapshot
// @Tags Admins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admins/analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
