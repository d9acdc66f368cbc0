package repository

import (
	"context"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// Snapshot stores are append-only. LatestAsOf returns the row with the
// greatest captured_at <= upTo, or (nil, nil) when there is none.

type HardwareSnapshotRepository interface {
	LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.HardwareSnapshot, error)
	Save(ctx context.Context, s *domain.HardwareSnapshot) error
}

type SecuritySnapshotRepository interface {
	LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.SecuritySnapshot, error)
	Save(ctx context.Context, s *domain.SecuritySnapshot) error
}

type PerformanceSnapshotRepository interface {
	LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.PerformanceSnapshot, error)
	Save(ctx context.Context, s *domain.PerformanceSnapshot) error
}

// SoftwareRepository software inventory. One capture = every row sharing captured_at.
type SoftwareRepository interface {
	// LatestCaptureAsOf max captured_at <= upTo, nil when none.
	LatestCaptureAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*time.Time, error)
	RowsAtCapture(ctx context.Context, equipmentID int64, capturedAt time.Time) ([]*domain.SoftwareItem, error)
	// CountRisky counts every risky row of the equipment, regardless of date.
	CountRisky(ctx context.Context, equipmentID int64) (int, error)
	// CountRiskyAsOf counts risky rows in the latest capture <= upTo.
	CountRiskyAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (int, error)
	SaveItems(ctx context.Context, items []*domain.SoftwareItem) error
	// ActiveWhitelist active entries that are global or scoped to laboratoryID.
	ActiveWhitelist(ctx context.Context, laboratoryID int64) ([]*domain.AuthorizedSoftware, error)
}
