package storage

import "github.com/innotech/hrbot/internal/models"

// ComputeStats aggregates the request log for the HR dashboard. Pure; the
// store backends call it over their current snapshot.
func ComputeStats(requests []*models.Request) models.RequestStats {
	stats := models.RequestStats{Total: len(requests)}
	for _, req := range requests {
		if req.Status == models.StatusPending {
			stats.Pending++
		}
		if req.Escalated {
			stats.Escalated++
		}
		switch req.Type {
		case models.RequestLeave:
			stats.Leave++
		case models.RequestIssue:
			stats.Issues++
		case models.RequestHarassment:
			stats.Harassment++
		}
	}
	return stats
}
