package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
)

// AnalyticsRepository aggregates syllabus counters. An empty uploaderID
// aggregates over every active syllabus.
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Totals returns file, download and view sums for the scope.
func (r *AnalyticsRepository) Totals(ctx context.Context, uploaderID string) (models.AnalyticsTotals, error) {
	query := `SELECT COUNT(*) AS total_files,
       COALESCE(SUM(download_count), 0) AS total_downloads,
       COALESCE(SUM(view_count), 0) AS total_views
	FROM syllabi WHERE is_active = TRUE`
	args := make([]interface{}, 0, 1)
	if uploaderID != "" {
		args = append(args, uploaderID)
		query += " AND uploader_id = $1"
	}

	var totals models.AnalyticsTotals
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		return models.AnalyticsTotals{}, fmt.Errorf("analytics totals: %w", err)
	}
	return totals, nil
}

// TopDownloaded returns the most downloaded syllabi. Ties go to the older
// record, then to the lower id.
func (r *AnalyticsRepository) TopDownloaded(ctx context.Context, uploaderID string, limit int) ([]models.TopSyllabusRow, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, title, course_code, download_count, view_count FROM syllabi WHERE is_active = TRUE`
	args := make([]interface{}, 0, 1)
	if uploaderID != "" {
		args = append(args, uploaderID)
		query += " AND uploader_id = $1"
	}
	query += fmt.Sprintf(" ORDER BY download_count DESC, created_at ASC, id ASC LIMIT %d", limit)

	rows := make([]models.TopSyllabusRow, 0, limit)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics top downloaded: %w", err)
	}
	return rows, nil
}
