package repository

import (
	"context"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// EquipmentRepository read access to the equipment registry, plus the
// sync write-back of last connection and status.
// Lookups return (nil, nil) when no row matches.
type EquipmentRepository interface {
	FindActiveByID(ctx context.Context, id int64) (*domain.Equipment, error)
	FindActiveByCode(ctx context.Context, code string) (*domain.Equipment, error)
	// FindByCode ignores the active flag.
	FindByCode(ctx context.Context, code string) (*domain.Equipment, error)
	// FindAllActiveInLaboratory active equipment of an active laboratory, ordered by code.
	FindAllActiveInLaboratory(ctx context.Context, laboratoryID int64) ([]*domain.Equipment, error)
	// UpdateSyncState sets last_connection and, when status is not nil, status.
	UpdateSyncState(ctx context.Context, id int64, lastConnection time.Time, status *domain.EquipmentStatus) error
}

// LaboratoryRepository read access to laboratories.
type LaboratoryRepository interface {
	FindActiveByID(ctx context.Context, id int64) (*domain.Laboratory, error)
}
