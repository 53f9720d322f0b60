package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-portal-api/internal/middleware"
	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// semesterQuery parses ?semester; absent or empty means no constraint.
func semesterQuery(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("semester"))
	if raw == "" {
		return 0, nil
	}
	semester, err := strconv.Atoi(raw)
	if err != nil || semester < 1 || semester > 8 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "semester must be a number between 1 and 8")
	}
	return semester, nil
}

func syllabusFilterFromQuery(c *gin.Context, searchParam string) (models.SyllabusFilter, error) {
	semester, err := semesterQuery(c)
	if err != nil {
		return models.SyllabusFilter{}, err
	}
	return models.SyllabusFilter{
		CourseCode: c.Query("course"),
		Semester:   semester,
		Branch:     c.Query("branch"),
		Search:     c.Query(searchParam),
	}, nil
}
