// Package query contains the read-side handlers. Each query is a struct
// with Validate, each handler reads through the domain repositories and,
// where a cache port is wired, serves cached results first.
package query

import "context"

// SummaryCache caches rendered attendance summaries per student. A nil port
// disables caching; handlers must treat every cache failure as a miss.
type SummaryCache interface {
	// GetSummary returns the cached summary, or a cache-miss error.
	GetSummary(ctx context.Context, studentID string) (*AttendanceSummaryResult, error)

	// SetSummary stores the summary under the configured TTL.
	SetSummary(ctx context.Context, studentID string, summary *AttendanceSummaryResult) error

	// InvalidateSummary drops the cached summary for a student.
	InvalidateSummary(ctx context.Context, studentID string) error
}

// DashboardCache caches dashboard snapshots per (role, user).
type DashboardCache interface {
	GetDashboard(ctx context.Context, key string) (*DashboardResult, error)
	SetDashboard(ctx context.Context, key string, dashboard *DashboardResult) error
	InvalidateDashboards(ctx context.Context) error
}
