package models

import "time"

// SyllabusAnalytics aggregates counters over the syllabi an admin owns.
type SyllabusAnalytics struct {
	TotalFiles     int64            `json:"totalFiles"`
	TotalDownloads int64            `json:"totalDownloads"`
	TotalViews     int64            `json:"totalViews"`
	TopDownloaded  []TopSyllabusRow `json:"topDownloaded"`
}

// AnalyticsTotals is the scalar part of SyllabusAnalytics as read from the store.
type AnalyticsTotals struct {
	TotalFiles     int64 `db:"total_files"`
	TotalDownloads int64 `db:"total_downloads"`
	TotalViews     int64 `db:"total_views"`
}

// TopSyllabusRow is one entry of the most downloaded list.
type TopSyllabusRow struct {
	ID            string `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	CourseCode    string `db:"course_code" json:"courseCode"`
	DownloadCount int64  `db:"download_count" json:"downloadCount"`
	ViewCount     int64  `db:"view_count" json:"viewCount"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
