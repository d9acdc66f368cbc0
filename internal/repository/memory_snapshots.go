package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// snapshotLog append-only per-equipment snapshot history shared by the
// in-memory hardware, security and performance stores.
type snapshotLog[T any] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64][]*T
}

func newSnapshotLog[T any]() *snapshotLog[T] {
	return &snapshotLog[T]{rows: map[int64][]*T{}}
}

func (l *snapshotLog[T]) append(equipmentID int64, row *T, setID func(int64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	setID(l.nextID)
	cp := *row
	l.rows[equipmentID] = append(l.rows[equipmentID], &cp)
}

// latest greatest capturedAt <= upTo; ties go to the most recently inserted row.
func (l *snapshotLog[T]) latest(equipmentID int64, upTo time.Time, capturedAt func(*T) time.Time) *T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var best *T
	for _, row := range l.rows[equipmentID] {
		at := capturedAt(row)
		if at.After(upTo) {
			continue
		}
		if best == nil || !at.Before(capturedAt(best)) {
			best = row
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

type MemoryHardwareSnapshotRepository struct {
	log *snapshotLog[domain.HardwareSnapshot]
}

func NewMemoryHardwareSnapshotRepository() *MemoryHardwareSnapshotRepository {
	return &MemoryHardwareSnapshotRepository{log: newSnapshotLog[domain.HardwareSnapshot]()}
}

var _ HardwareSnapshotRepository = (*MemoryHardwareSnapshotRepository)(nil)

func (r *MemoryHardwareSnapshotRepository) LatestAsOf(_ context.Context, equipmentID int64, upTo time.Time) (*domain.HardwareSnapshot, error) {
	return r.log.latest(equipmentID, upTo, func(s *domain.HardwareSnapshot) time.Time { return s.CapturedAt }), nil
}

func (r *MemoryHardwareSnapshotRepository) Save(_ context.Context, s *domain.HardwareSnapshot) error {
	r.log.append(s.EquipmentID, s, func(id int64) { s.ID = id })
	return nil
}

type MemorySecuritySnapshotRepository struct {
	log *snapshotLog[domain.SecuritySnapshot]
}

func NewMemorySecuritySnapshotRepository() *MemorySecuritySnapshotRepository {
	return &MemorySecuritySnapshotRepository{log: newSnapshotLog[domain.SecuritySnapshot]()}
}

var _ SecuritySnapshotRepository = (*MemorySecuritySnapshotRepository)(nil)

func (r *MemorySecuritySnapshotRepository) LatestAsOf(_ context.Context, equipmentID int64, upTo time.Time) (*domain.SecuritySnapshot, error) {
	return r.log.latest(equipmentID, upTo, func(s *domain.SecuritySnapshot) time.Time { return s.CapturedAt }), nil
}

func (r *MemorySecuritySnapshotRepository) Save(_ context.Context, s *domain.SecuritySnapshot) error {
	r.log.append(s.EquipmentID, s, func(id int64) { s.ID = id })
	return nil
}

type MemoryPerformanceSnapshotRepository struct {
	log *snapshotLog[domain.PerformanceSnapshot]
}

func NewMemoryPerformanceSnapshotRepository() *MemoryPerformanceSnapshotRepository {
	return &MemoryPerformanceSnapshotRepository{log: newSnapshotLog[domain.PerformanceSnapshot]()}
}

var _ PerformanceSnapshotRepository = (*MemoryPerformanceSnapshotRepository)(nil)

func (r *MemoryPerformanceSnapshotRepository) LatestAsOf(_ context.Context, equipmentID int64, upTo time.Time) (*domain.PerformanceSnapshot, error) {
	return r.log.latest(equipmentID, upTo, func(s *domain.PerformanceSnapshot) time.Time { return s.CapturedAt }), nil
}

func (r *MemoryPerformanceSnapshotRepository) Save(_ context.Context, s *domain.PerformanceSnapshot) error {
	r.log.append(s.EquipmentID, s, func(id int64) { s.ID = id })
	return nil
}

// MemorySoftwareRepository software inventory and whitelist when DB is disabled.
type MemorySoftwareRepository struct {
	mu         sync.RWMutex
	nextID     int64
	items      map[int64][]domain.SoftwareItem
	authorized []domain.AuthorizedSoftware
}

func NewMemorySoftwareRepository() *MemorySoftwareRepository {
	return &MemorySoftwareRepository{items: map[int64][]domain.SoftwareItem{}}
}

var _ SoftwareRepository = (*MemorySoftwareRepository)(nil)

func (r *MemorySoftwareRepository) PutAuthorized(a *domain.AuthorizedSoftware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authorized = append(r.authorized, *a)
}

func (r *MemorySoftwareRepository) latestCapture(equipmentID int64, upTo time.Time) *time.Time {
	var latest *time.Time
	for _, it := range r.items[equipmentID] {
		if it.CapturedAt.After(upTo) {
			continue
		}
		if latest == nil || it.CapturedAt.After(*latest) {
			t := it.CapturedAt
			latest = &t
		}
	}
	return latest
}

func (r *MemorySoftwareRepository) LatestCaptureAsOf(_ context.Context, equipmentID int64, upTo time.Time) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestCapture(equipmentID, upTo), nil
}

func (r *MemorySoftwareRepository) RowsAtCapture(_ context.Context, equipmentID int64, capturedAt time.Time) ([]*domain.SoftwareItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SoftwareItem
	for _, it := range r.items[equipmentID] {
		if it.CapturedAt.Equal(capturedAt) {
			it := it
			out = append(out, &it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemorySoftwareRepository) CountRisky(_ context.Context, equipmentID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, it := range r.items[equipmentID] {
		if it.IsRisk {
			n++
		}
	}
	return n, nil
}

func (r *MemorySoftwareRepository) CountRiskyAsOf(_ context.Context, equipmentID int64, upTo time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := r.latestCapture(equipmentID, upTo)
	if latest == nil {
		return 0, nil
	}
	n := 0
	for _, it := range r.items[equipmentID] {
		if it.IsRisk && it.CapturedAt.Equal(*latest) {
			n++
		}
	}
	return n, nil
}

func (r *MemorySoftwareRepository) SaveItems(_ context.Context, items []*domain.SoftwareItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.nextID++
		it.ID = r.nextID
		r.items[it.EquipmentID] = append(r.items[it.EquipmentID], *it)
	}
	return nil
}

func (r *MemorySoftwareRepository) ActiveWhitelist(_ context.Context, laboratoryID int64) ([]*domain.AuthorizedSoftware, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.AuthorizedSoftware
	for _, a := range r.authorized {
		if !a.IsActive {
			continue
		}
		if a.LaboratoryID != nil && *a.LaboratoryID != laboratoryID {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return out, nil
}
