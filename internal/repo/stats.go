// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries over submissions
// used by the admin API and the bot's /pending command.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prosteam/invitegate/internal/domain"
)

// SubmissionStats returns the number of records per status and the most
// recent submitted_at across all records (nil when the table is empty).
func SubmissionStats(ctx context.Context, db *gorm.DB) (*domain.SubmissionStats, error) {
	var rows []struct {
		Status domain.Status
		N      int64
	}
	if err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := &domain.SubmissionStats{}
	var total int64
	for _, r := range rows {
		total += r.N
		switch r.Status {
		case domain.StatusPending:
			out.Pending = r.N
		case domain.StatusApproved:
			out.Approved = r.N
		case domain.StatusRejected:
			out.Rejected = r.N
		}
	}
	if total == 0 {
		return out, nil
	}

	// Latest submitted_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		SubmittedAt time.Time
	}
	if err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Select("submitted_at").
		Order("submitted_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	out.LastSubmitted = &row.SubmittedAt
	return out, nil
}
