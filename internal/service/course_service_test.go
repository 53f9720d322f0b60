package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

type mockCourseRepo struct {
	courses    []models.Course
	lastBranch string
	exists     bool
	createErr  error
	created    []*models.Course
}

func (m *mockCourseRepo) ListActive(_ context.Context, branch string) ([]models.Course, error) {
	m.lastBranch = branch
	var out []models.Course
	for _, c := range m.courses {
		if c.IsActive && (branch == "" || c.Branch == branch) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) FindActiveByCode(_ context.Context, code string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Code == code && c.IsActive {
			copy := c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByCode(_ context.Context, _ string) (bool, error) {
	return m.exists, nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	course.ID = fmt.Sprintf("course-%d", len(m.created)+1)
	m.created = append(m.created, course)
	return nil
}

type stubSyllabusLister struct {
	filters []models.SyllabusFilter
	items   []models.Syllabus
}

func (s *stubSyllabusLister) List(_ context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	s.filters = append(s.filters, filter)
	return s.items, nil
}

func catalog() []models.Course {
	return []models.Course{
		{Code: "CE", Name: "Civil Engineering", Branch: "ENGINEERING", Semesters: 8, IsActive: true},
		{Code: "CSE", Name: "Computer Science and Engineering", Branch: "ENGINEERING", Semesters: 8, IsActive: true},
		{Code: "MBA", Name: "Master of Business Administration", Branch: "MANAGEMENT", Semesters: 4, IsActive: true},
		{Code: "OLD", Name: "Computer Applications", Branch: "SCIENCE", Semesters: 6, IsActive: false},
	}
}

func TestCourseServiceListRanksAndFilters(t *testing.T) {
	repo := &mockCourseRepo{courses: catalog()}
	svc := NewCourseService(repo, &stubSyllabusLister{}, nil, nil, nil)

	all, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ranked, err := svc.List(context.Background(), models.CourseFilter{Query: "cse"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "CSE", ranked[0].Code)

	ranked, err = svc.List(context.Background(), models.CourseFilter{Query: "engineering", Branch: " engineering"})
	require.NoError(t, err)
	assert.Equal(t, "ENGINEERING", repo.lastBranch)
	require.Len(t, ranked, 2)
	assert.Equal(t, "CE", ranked[0].Code)

	none, err := svc.List(context.Background(), models.CourseFilter{Query: "zoology"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCourseServiceGetAndSyllabi(t *testing.T) {
	lister := &stubSyllabusLister{items: []models.Syllabus{{ID: "s1", CourseCode: "MBA"}}}
	svc := NewCourseService(&mockCourseRepo{courses: catalog()}, lister, nil, nil, nil)

	course, err := svc.Get(context.Background(), "mba")
	require.NoError(t, err)
	assert.Equal(t, "Master of Business Administration", course.Name)

	_, err = svc.Get(context.Background(), "OLD")
	requireAppCode(t, err, appErrors.ErrNotFound)

	items, err := svc.Syllabi(context.Background(), "mba", 2)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, models.SyllabusFilter{CourseCode: "MBA", Semester: 2}, lister.filters[0])

	_, err = svc.Syllabi(context.Background(), "mba", 5)
	requireAppCode(t, err, appErrors.ErrValidation)
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	audit := &recordingAudit{}
	svc := NewCourseService(repo, nil, audit, nil, nil)

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		Code: " ece ", Name: "Electronics", Branch: "engineering",
	}, "root", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ECE", course.Code)
	assert.Equal(t, "ENGINEERING", course.Branch)
	assert.Equal(t, 4, course.Duration)
	assert.Equal(t, 8, course.Semesters)
	assert.True(t, course.IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCourseCreate, audit.logs[0].Action)
	assert.Equal(t, "course-1", *audit.logs[0].ResourceID)

	_, err = NewCourseService(&mockCourseRepo{exists: true}, nil, nil, nil, nil).
		Create(context.Background(), models.CreateCourseRequest{Code: "ECE", Name: "E", Branch: "X"}, "root", models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrConflict)

	_, err = NewCourseService(&mockCourseRepo{createErr: fmt.Errorf("create course: %w", repository.ErrDuplicate)}, nil, nil, nil, nil).
		Create(context.Background(), models.CreateCourseRequest{Code: "ECE", Name: "E", Branch: "X"}, "root", models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), models.CreateCourseRequest{Code: "X", Name: "", Branch: "Y"}, "root", models.LoginRequest{})
	requireAppCode(t, err, appErrors.ErrValidation)
}
