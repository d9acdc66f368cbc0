package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// MemoryLaboratoryRepository laboratories when DB is disabled.
type MemoryLaboratoryRepository struct {
	mu   sync.RWMutex
	labs map[int64]domain.Laboratory
}

func NewMemoryLaboratoryRepository() *MemoryLaboratoryRepository {
	return &MemoryLaboratoryRepository{labs: map[int64]domain.Laboratory{}}
}

var _ LaboratoryRepository = (*MemoryLaboratoryRepository)(nil)

func (r *MemoryLaboratoryRepository) Put(l domain.Laboratory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labs[l.ID] = l
}

func (r *MemoryLaboratoryRepository) FindActiveByID(_ context.Context, id int64) (*domain.Laboratory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.labs[id]
	if !ok || !l.IsActive {
		return nil, nil
	}
	return &l, nil
}

func (r *MemoryLaboratoryRepository) isActive(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.labs[id]
	return ok && l.IsActive
}

// MemoryEquipmentRepository equipment registry when DB is disabled.
type MemoryEquipmentRepository struct {
	mu        sync.RWMutex
	equipment map[int64]domain.Equipment
	labs      *MemoryLaboratoryRepository
}

func NewMemoryEquipmentRepository(labs *MemoryLaboratoryRepository) *MemoryEquipmentRepository {
	return &MemoryEquipmentRepository{
		equipment: map[int64]domain.Equipment{},
		labs:      labs,
	}
}

var _ EquipmentRepository = (*MemoryEquipmentRepository)(nil)

func (r *MemoryEquipmentRepository) Put(e domain.Equipment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Status == "" {
		e.Status = domain.StatusNoData
	}
	r.equipment[e.ID] = e
}

func (r *MemoryEquipmentRepository) FindActiveByID(_ context.Context, id int64) (*domain.Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.equipment[id]
	if !ok || !e.IsActive {
		return nil, nil
	}
	return &e, nil
}

func (r *MemoryEquipmentRepository) findByCode(code string, activeOnly bool) *domain.Equipment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.equipment {
		if e.Code == code && (!activeOnly || e.IsActive) {
			e := e
			return &e
		}
	}
	return nil
}

func (r *MemoryEquipmentRepository) FindActiveByCode(_ context.Context, code string) (*domain.Equipment, error) {
	return r.findByCode(code, true), nil
}

func (r *MemoryEquipmentRepository) FindByCode(_ context.Context, code string) (*domain.Equipment, error) {
	return r.findByCode(code, false), nil
}

func (r *MemoryEquipmentRepository) FindAllActiveInLaboratory(_ context.Context, laboratoryID int64) ([]*domain.Equipment, error) {
	if r.labs != nil && !r.labs.isActive(laboratoryID) {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Equipment
	for _, e := range r.equipment {
		if e.LaboratoryID == laboratoryID && e.IsActive {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryEquipmentRepository) UpdateSyncState(_ context.Context, id int64, lastConnection time.Time, status *domain.EquipmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.equipment[id]
	if !ok {
		return nil
	}
	lc := lastConnection.UTC()
	e.LastConnection = &lc
	if status != nil {
		e.Status = *status
	}
	r.equipment[id] = e
	return nil
}

func (r *MemoryEquipmentRepository) codeOf(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.equipment[id].Code
}

// Seed registry rows loaded from SEED_FILE.
type Seed struct {
	Laboratories       []domain.Laboratory         `json:"laboratories"`
	Equipment          []domain.Equipment          `json:"equipment"`
	AuthorizedSoftware []domain.AuthorizedSoftware `json:"authorizedSoftware"`
}

func LoadSeedFile(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply loads the seed into the in-memory stores. Nil stores are skipped.
func (s *Seed) Apply(labs *MemoryLaboratoryRepository, equipment *MemoryEquipmentRepository, software *MemorySoftwareRepository) {
	for _, l := range s.Laboratories {
		if labs != nil {
			labs.Put(l)
		}
	}
	for _, e := range s.Equipment {
		if equipment != nil {
			equipment.Put(e)
		}
	}
	for _, a := range s.AuthorizedSoftware {
		if software != nil {
			a := a
			software.PutAuthorized(&a)
		}
	}
}
