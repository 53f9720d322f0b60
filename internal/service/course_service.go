package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/repository"
	"github.com/noah-isme/syllabus-portal-api/internal/search"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

const (
	defaultCourseDuration  = 4
	defaultCourseSemesters = 8
)

type courseRepository interface {
	ListActive(ctx context.Context, branch string) ([]models.Course, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
}

type syllabusLister interface {
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CourseService serves the public course catalog.
type CourseService struct {
	repo      courseRepository
	syllabi   syllabusLister
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, syllabi syllabusLister, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, syllabi: syllabi, audit: audit, validator: validate, logger: logger}
}

// List returns active courses of the optional branch, ranked by filter.Query
// when one is given.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	courses, err := s.repo.ListActive(ctx, normalizeCode(filter.Branch))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	ranked := search.Rank(courses, search.Query{Text: filter.Query}, search.CourseFields)
	if ranked == nil {
		ranked = []models.Course{}
	}
	return ranked, nil
}

// Get returns one active course by code.
func (s *CourseService) Get(ctx context.Context, code string) (*models.Course, error) {
	course, err := s.repo.FindActiveByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Syllabi lists the active syllabi of an active course, optionally for one semester.
func (s *CourseService) Syllabi(ctx context.Context, code string, semester int) ([]models.Syllabus, error) {
	course, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if semester < 0 || semester > course.Semesters {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester out of range for course")
	}
	items, err := s.syllabi.List(ctx, models.SyllabusFilter{CourseCode: course.Code, Semester: semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}
	if items == nil {
		items = []models.Syllabus{}
	}
	return items, nil
}

// Create adds a course to the catalog. Codes are unique across active and
// inactive courses.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest, actorID string, meta models.LoginRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create course payload")
	}

	code := normalizeCode(req.Code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	}

	course := &models.Course{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Branch:      normalizeCode(req.Branch),
		Description: strings.TrimSpace(req.Description),
		Duration:    req.Duration,
		Semesters:   req.Semesters,
		IsActive:    true,
	}
	if course.Duration == 0 {
		course.Duration = defaultCourseDuration
	}
	if course.Semesters == 0 {
		course.Semesters = defaultCourseSemesters
	}

	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]interface{}{"code": course.Code, "branch": course.Branch})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			AdminID:    &actorID,
			Action:     models.AuditActionCourseCreate,
			Resource:   "courses",
			ResourceID: &course.ID,
			NewValues:  payload,
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record course create audit log", zap.Error(err))
		}
	}

	return course, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
