package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Get(ctx context.Context, code string) (*models.Course, error)
	Syllabi(ctx context.Context, code string, semester int) ([]models.Syllabus, error)
	Create(ctx context.Context, req models.CreateCourseRequest, actorID string, meta models.LoginRequest) (*models.Course, error)
}

// CourseHandler serves the course catalog.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary List courses
// @Description Active courses, ranked when q is given
// @Tags Courses
// @Produce json
// @Param q query string false "Search text"
// @Param branch query string false "Branch"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context(), models.CourseFilter{Query: c.Query("q"), Branch: c.Query("branch")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"count": len(courses)})
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Syllabi godoc
// @Summary List course syllabi
// @Description Active syllabi of a course, optionally for one semester
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Param semester query int false "Semester"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code}/syllabi [get]
func (h *CourseHandler) Syllabi(c *gin.Context) {
	semester, err := semesterQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Syllabi(c.Request.Context(), c.Param("code"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// Create godoc
// @Summary Create course
// @Description Add a course to the catalog (SUPERADMIN only)
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
