package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
)

var courseColumnNames = []string{"id", "code", "name", "branch", "description", "duration", "semesters", "is_active", "created_at", "updated_at"}

func TestCourseListActiveByBranch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_active = TRUE AND branch = $1 ORDER BY name ASC, code ASC")).
		WithArgs("ENGINEERING").
		WillReturnRows(sqlmock.NewRows(courseColumnNames).
			AddRow("c1", "CSE", "Computer Science", "ENGINEERING", "", 4, 8, true, now, now))

	courses, err := repo.ListActive(context.Background(), "ENGINEERING")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 8, courses[0].Semesters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseFindActiveByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE code = $1 AND is_active = TRUE")).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows(courseColumnNames).
			AddRow("c1", "CS101", "Computer Science", "CSE", "", 4, 8, true, now, now))

	course, err := repo.FindActiveByCode(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "CSE", course.Branch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Course{Code: "CSE", Name: "CS", Branch: "ENG"})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
