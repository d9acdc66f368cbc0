package repository

import (
	"context"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// FindingsRepository audit findings. Findings are never deleted.
type FindingsRepository interface {
	// CreateBatch persists all findings or none.
	CreateBatch(ctx context.Context, findings []*domain.AuditFinding) error
	GetByID(ctx context.Context, id string) (*domain.AuditFinding, error)
	// ListOpenByLaboratory severity desc, then finding date desc.
	ListOpenByLaboratory(ctx context.Context, laboratoryID int64) ([]*domain.AuditFinding, error)
	// ListByEquipment finding date desc.
	ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.AuditFinding, error)
	// Trends counts per (audit test, severity), count desc.
	Trends(ctx context.Context, laboratoryID int64) ([]domain.FindingTrend, error)
	// Recurring equipment with at least minOpen open findings, count desc.
	Recurring(ctx context.Context, laboratoryID int64, minOpen int) ([]domain.RecurringEquipment, error)
	// UpdateStatus returns (nil, nil) when the id does not exist.
	// A nil notes keeps the stored notes.
	UpdateStatus(ctx context.Context, id string, status domain.FindingStatus, notes *string) (*domain.AuditFinding, error)
}

// ReportsRepository AI audit reports. Reports are immutable.
type ReportsRepository interface {
	Create(ctx context.Context, r *domain.AIAuditReport) error
	GetByID(ctx context.Context, id string) (*domain.AIAuditReport, error)
	// ListLaboratoryHistory laboratory-scope reports, audit date desc, at most limit.
	ListLaboratoryHistory(ctx context.Context, laboratoryID int64, limit int) ([]*domain.AIAuditReport, error)
}
