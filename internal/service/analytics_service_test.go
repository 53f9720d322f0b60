package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	totals      models.AnalyticsTotals
	top         []models.TopSyllabusRow
	err         error
	calls       int
	uploaderIDs []string
}

func (m *mockAnalyticsRepo) Totals(_ context.Context, uploaderID string) (models.AnalyticsTotals, error) {
	m.calls++
	m.uploaderIDs = append(m.uploaderIDs, uploaderID)
	if m.err != nil {
		return models.AnalyticsTotals{}, m.err
	}
	return m.totals, nil
}

func (m *mockAnalyticsRepo) TopDownloaded(_ context.Context, _ string, limit int) ([]models.TopSyllabusRow, error) {
	if limit != topDownloadedLimit {
		return nil, assert.AnError
	}
	return m.top, nil
}

type stubCacheRepo struct {
	store    map[string][]byte
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func adminActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin}
}

func superActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleSuperAdmin}
}

func TestAnalyticsServiceSyllabiCaching(t *testing.T) {
	repo := &mockAnalyticsRepo{
		totals: models.AnalyticsTotals{TotalFiles: 2, TotalDownloads: 7, TotalViews: 3},
		top:    []models.TopSyllabusRow{{ID: "s1", Title: "DS", CourseCode: "CSE", DownloadCount: 5}},
	}
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(repo, cacheSvc, nil, zap.NewNop())
	ctx := context.Background()

	result, hit, err := svc.Syllabi(ctx, adminActor("a1"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(7), result.TotalDownloads)
	assert.Len(t, result.TopDownloaded, 1)

	cached, hit, err := svc.Syllabi(ctx, adminActor("a1"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, result, cached)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate(ctx)
	assert.Equal(t, []string{analyticsCachePattern}, cacheRepo.patterns)

	_, hit, err = svc.Syllabi(ctx, adminActor("a1"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestAnalyticsServiceScopes(t *testing.T) {
	repo := &mockAnalyticsRepo{}
	svc := NewAnalyticsService(repo, NewCacheService(nil, nil, time.Minute, nil, false), nil, nil)
	ctx := context.Background()

	result, _, err := svc.Syllabi(ctx, superActor("root"))
	require.NoError(t, err)
	assert.NotNil(t, result.TopDownloaded)
	_, _, err = svc.Syllabi(ctx, adminActor("a2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a2"}, repo.uploaderIDs)

	_, _, err = svc.Syllabi(ctx, nil)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAnalyticsServiceErrorPassthrough(t *testing.T) {
	repo := &mockAnalyticsRepo{err: assert.AnError}
	svc := NewAnalyticsService(repo, NewCacheService(nil, nil, time.Minute, zap.NewNop(), false), nil, zap.NewNop())

	_, _, err := svc.Syllabi(context.Background(), adminActor("a1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsServiceExport(t *testing.T) {
	repo := &mockAnalyticsRepo{
		totals: models.AnalyticsTotals{TotalFiles: 1, TotalDownloads: 4, TotalViews: 9},
		top:    []models.TopSyllabusRow{{ID: "s1", Title: "Thermo", CourseCode: "ME", DownloadCount: 4, ViewCount: 9}},
	}
	svc := NewAnalyticsService(repo, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	csvOut, err := svc.Export(context.Background(), adminActor("a1"), "")
	require.NoError(t, err)
	assert.Equal(t, "syllabus-analytics-20240301-100000.csv", csvOut.Filename)
	assert.Equal(t, "Rank,Title,Course,Downloads,Views\n1,Thermo,ME,4,9\n,Total (1 files),,4,9\n", string(csvOut.Body))

	pdfOut, err := svc.Export(context.Background(), adminActor("a1"), "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfOut.ContentType)
	assert.True(t, strings.HasPrefix(string(pdfOut.Body), "%PDF-"))

	_, err = svc.Export(context.Background(), adminActor("a1"), "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
