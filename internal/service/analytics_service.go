package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/export"
)

const (
	topDownloadedLimit    = 10
	analyticsCachePattern = "analytics:*"
)

// Analytics export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	Totals(ctx context.Context, uploaderID string) (models.AnalyticsTotals, error)
	TopDownloaded(ctx context.Context, uploaderID string, limit int) ([]models.TopSyllabusRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AnalyticsExport is a rendered analytics table ready to be sent as a file.
type AnalyticsExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AnalyticsService provides read-optimised access to syllabus counters with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	csv     csvRenderer
	pdf     pdfRenderer
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Syllabi returns totals and the most downloaded syllabi visible to actor:
// everything for a superadmin, the actor's own uploads otherwise. The boolean
// indicates whether data originated from cache.
func (s *AnalyticsService) Syllabi(ctx context.Context, actor *models.JWTClaims) (*models.SyllabusAnalytics, bool, error) {
	if actor == nil {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	uploaderID := ownerScope(actor)
	cacheKey := analyticsCacheKey(uploaderID)

	var cached models.SyllabusAnalytics
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	totals, err := s.repo.Totals(ctx, uploaderID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analytics")
	}
	top, err := s.repo.TopDownloaded(ctx, uploaderID, topDownloadedLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analytics")
	}
	s.metrics.ObserveDBQuery("analytics_syllabi", time.Since(start))

	if top == nil {
		top = []models.TopSyllabusRow{}
	}
	result := &models.SyllabusAnalytics{
		TotalFiles:     totals.TotalFiles,
		TotalDownloads: totals.TotalDownloads,
		TotalViews:     totals.TotalViews,
		TopDownloaded:  top,
	}
	_ = s.cache.Set(ctx, cacheKey, result, 0)
	return result, false, nil
}

// Invalidate drops every cached analytics scope. Failures are logged by the
// cache service and otherwise ignored.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, analyticsCachePattern)
}

// Export renders the analytics of actor as a CSV or PDF table.
func (s *AnalyticsService) Export(ctx context.Context, actor *models.JWTClaims, format string) (*AnalyticsExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	summary, _, err := s.Syllabi(ctx, actor)
	if err != nil {
		return nil, err
	}
	dataset := analyticsDataset(summary)
	stamp := s.now().Format("20060102-150405")

	switch format {
	case ExportFormatPDF:
		body, err := s.pdf.Render(dataset, "Syllabus Analytics")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &AnalyticsExport{Filename: fmt.Sprintf("syllabus-analytics-%s.pdf", stamp), ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &AnalyticsExport{Filename: fmt.Sprintf("syllabus-analytics-%s.csv", stamp), ContentType: "text/csv", Body: body}, nil
	}
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}

// analyticsDataset lays out the top list followed by a totals row.
func analyticsDataset(summary *models.SyllabusAnalytics) export.Dataset {
	headers := []string{"Rank", "Title", "Course", "Downloads", "Views"}
	rows := make([]map[string]string, 0, len(summary.TopDownloaded)+1)
	for i, row := range summary.TopDownloaded {
		rows = append(rows, map[string]string{
			"Rank":      strconv.Itoa(i + 1),
			"Title":     row.Title,
			"Course":    row.CourseCode,
			"Downloads": strconv.FormatInt(row.DownloadCount, 10),
			"Views":     strconv.FormatInt(row.ViewCount, 10),
		})
	}
	rows = append(rows, map[string]string{
		"Rank":      "",
		"Title":     fmt.Sprintf("Total (%d files)", summary.TotalFiles),
		"Course":    "",
		"Downloads": strconv.FormatInt(summary.TotalDownloads, 10),
		"Views":     strconv.FormatInt(summary.TotalViews, 10),
	})
	return export.Dataset{Headers: headers, Rows: rows}
}

// ownerScope returns the uploader filter for actor; empty means all uploaders.
func ownerScope(actor *models.JWTClaims) string {
	if actor.Role == models.RoleSuperAdmin {
		return ""
	}
	return actor.UserID
}

func analyticsCacheKey(uploaderID string) string {
	if uploaderID == "" {
		return CacheKey("analytics", "all")
	}
	return CacheKey("analytics", "admin", uploaderID)
}
