package redis

import (
	"context"
	"time"

	"github.com/academy-hub/academy-lms/internal/application/query"
)

// SummaryCache implements query.SummaryCache and query.DashboardCache on
// top of the generic cache. Entries expire on TTL; attendance writes also
// invalidate eagerly through the attendance.marked event handler.
type SummaryCache struct {
	cache        *Cache
	summaryTTL   time.Duration
	dashboardTTL time.Duration
}

// NewSummaryCache creates a summary cache with the given TTLs.
func NewSummaryCache(cache *Cache, summaryTTL, dashboardTTL time.Duration) *SummaryCache {
	return &SummaryCache{
		cache:        cache,
		summaryTTL:   summaryTTL,
		dashboardTTL: dashboardTTL,
	}
}

// GetSummary returns the cached summary, or ErrCacheMiss.
func (s *SummaryCache) GetSummary(ctx context.Context, studentID string) (*query.AttendanceSummaryResult, error) {
	var summary query.AttendanceSummaryResult
	if err := s.cache.GetJSON(ctx, keyPrefixSummary+studentID, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SetSummary stores the summary under the configured TTL.
func (s *SummaryCache) SetSummary(ctx context.Context, studentID string, summary *query.AttendanceSummaryResult) error {
	return s.cache.SetJSON(ctx, keyPrefixSummary+studentID, summary, s.summaryTTL)
}

// InvalidateSummary drops the cached summary for a student.
func (s *SummaryCache) InvalidateSummary(ctx context.Context, studentID string) error {
	return s.cache.Delete(ctx, keyPrefixSummary+studentID)
}

// GetDashboard returns the cached dashboard, or ErrCacheMiss.
func (s *SummaryCache) GetDashboard(ctx context.Context, key string) (*query.DashboardResult, error) {
	var dashboard query.DashboardResult
	if err := s.cache.GetJSON(ctx, keyPrefixDashboard+key, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// SetDashboard stores the dashboard under the configured TTL.
func (s *SummaryCache) SetDashboard(ctx context.Context, key string, dashboard *query.DashboardResult) error {
	return s.cache.SetJSON(ctx, keyPrefixDashboard+key, dashboard, s.dashboardTTL)
}

// InvalidateDashboards drops every cached dashboard.
func (s *SummaryCache) InvalidateDashboards(ctx context.Context) error {
	return s.cache.DeleteByPrefix(ctx, keyPrefixDashboard)
}
