package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
)

const syllabusColumns = `id, course_code, branch, semester, subject, title, description, storage_driver, file_key, file_url,
       file_name, mime_type, file_size, uploader_id, version, download_count, view_count, is_active, created_at, updated_at`

const maxSyllabusListLimit = 500

// SyllabusRepository handles syllabus metadata persistence.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs the repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// Create stores metadata for an uploaded syllabus file.
func (r *SyllabusRepository) Create(ctx context.Context, s *models.Syllabus) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	const query = `INSERT INTO syllabi
	(id, course_code, branch, semester, subject, title, description, storage_driver, file_key, file_url, file_name, mime_type,
	 file_size, uploader_id, version, download_count, view_count, is_active, created_at, updated_at)
	VALUES (:id, :course_code, :branch, :semester, :subject, :title, :description, :storage_driver, :file_key, :file_url, :file_name, :mime_type,
	 :file_size, :uploader_id, :version, :download_count, :view_count, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return wrapWriteError("create syllabus", err)
	}
	return nil
}

// FindByID retrieves one syllabus row regardless of its active flag.
func (r *SyllabusRepository) FindByID(ctx context.Context, id string) (*models.Syllabus, error) {
	query := `SELECT ` + syllabusColumns + ` FROM syllabi WHERE id = $1`
	var s models.Syllabus
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find syllabus: %w", err)
	}
	return &s, nil
}

// List returns active syllabi matching every supplied filter, newest first.
// Search is a case-insensitive literal substring match on title, subject and
// description.
func (r *SyllabusRepository) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + syllabusColumns + ` FROM syllabi`)
	args := make([]interface{}, 0, 5)
	conditions := []string{"is_active = TRUE"}

	if filter.CourseCode != "" {
		args = append(args, filter.CourseCode)
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)))
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.Branch != "" {
		args = append(args, filter.Branch)
		conditions = append(conditions, fmt.Sprintf("branch = $%d", len(args)))
	}
	if filter.UploaderID != "" {
		args = append(args, filter.UploaderID)
		conditions = append(conditions, fmt.Sprintf("uploader_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR subject ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, n, n, n))
	}

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC, id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > maxSyllabusListLimit {
		limit = maxSyllabusListLimit
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var records []models.Syllabus
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list syllabi: %w", err)
	}
	return records, nil
}

// IncrementCounter bumps the view or download counter of an active syllabus
// by one. It returns sql.ErrNoRows when no active row matched.
func (r *SyllabusRepository) IncrementCounter(ctx context.Context, id string, intent models.ServeIntent) error {
	column := intent.CounterColumn()
	query := fmt.Sprintf(`UPDATE syllabi SET %s = %s + 1 WHERE id = $1 AND is_active = TRUE`, column, column)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", column, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft deletes an active syllabus. It returns sql.ErrNoRows when
// the row is missing or already inactive.
func (r *SyllabusRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE syllabi SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("deactivate syllabus: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check syllabus delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
