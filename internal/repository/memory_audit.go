package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// MemoryFindingsRepository findings when DB is disabled.
type MemoryFindingsRepository struct {
	mu        sync.RWMutex
	findings  map[string]domain.AuditFinding
	order     []string
	equipment *MemoryEquipmentRepository
	now       func() time.Time
}

// NewMemoryFindingsRepository equipment may be nil; it only fills equipment codes.
func NewMemoryFindingsRepository(equipment *MemoryEquipmentRepository) *MemoryFindingsRepository {
	return &MemoryFindingsRepository{
		findings:  map[string]domain.AuditFinding{},
		equipment: equipment,
		now:       time.Now,
	}
}

var _ FindingsRepository = (*MemoryFindingsRepository)(nil)

func (r *MemoryFindingsRepository) withCode(f domain.AuditFinding) *domain.AuditFinding {
	if r.equipment != nil {
		f.EquipmentCode = r.equipment.codeOf(f.EquipmentID)
	}
	return &f
}

func (r *MemoryFindingsRepository) CreateBatch(_ context.Context, findings []*domain.AuditFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	for _, f := range findings {
		f.CreatedAt = now
		f.UpdatedAt = now
		r.findings[f.ID] = *f
		r.order = append(r.order, f.ID)
	}
	return nil
}

func (r *MemoryFindingsRepository) GetByID(_ context.Context, id string) (*domain.AuditFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.findings[id]
	if !ok {
		return nil, nil
	}
	return r.withCode(f), nil
}

func (r *MemoryFindingsRepository) filter(keep func(domain.AuditFinding) bool) []*domain.AuditFinding {
	var out []*domain.AuditFinding
	for _, id := range r.order {
		f := r.findings[id]
		if keep(f) {
			out = append(out, r.withCode(f))
		}
	}
	return out
}

func (r *MemoryFindingsRepository) ListOpenByLaboratory(_ context.Context, laboratoryID int64) ([]*domain.AuditFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.filter(func(f domain.AuditFinding) bool {
		return f.LaboratoryID == laboratoryID && f.Status == domain.FindingOpen
	})
	sort.SliceStable(out, func(i, j int) bool {
		if a, b := out[i].Severity.Rank(), out[j].Severity.Rank(); a != b {
			return a > b
		}
		return out[i].FindingDate.After(out[j].FindingDate)
	})
	return out, nil
}

func (r *MemoryFindingsRepository) ListByEquipment(_ context.Context, equipmentID int64) ([]*domain.AuditFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.filter(func(f domain.AuditFinding) bool { return f.EquipmentID == equipmentID })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FindingDate.After(out[j].FindingDate)
	})
	return out, nil
}

func (r *MemoryFindingsRepository) Trends(_ context.Context, laboratoryID int64) ([]domain.FindingTrend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct {
		test     string
		severity domain.Severity
	}
	counts := map[key]int{}
	for _, f := range r.findings {
		if f.LaboratoryID == laboratoryID {
			counts[key{f.AuditTest, f.Severity}]++
		}
	}
	out := make([]domain.FindingTrend, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.FindingTrend{AuditTest: k.test, Severity: k.severity, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].AuditTest != out[j].AuditTest {
			return out[i].AuditTest < out[j].AuditTest
		}
		return out[i].Severity < out[j].Severity
	})
	return out, nil
}

func (r *MemoryFindingsRepository) Recurring(_ context.Context, laboratoryID int64, minOpen int) ([]domain.RecurringEquipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[int64]int{}
	for _, f := range r.findings {
		if f.LaboratoryID == laboratoryID && f.Status == domain.FindingOpen {
			counts[f.EquipmentID]++
		}
	}
	out := []domain.RecurringEquipment{}
	for id, n := range counts {
		if n < minOpen {
			continue
		}
		code := ""
		if r.equipment != nil {
			code = r.equipment.codeOf(id)
		}
		out = append(out, domain.RecurringEquipment{EquipmentID: id, EquipmentCode: code, FindingCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FindingCount != out[j].FindingCount {
			return out[i].FindingCount > out[j].FindingCount
		}
		return out[i].EquipmentID < out[j].EquipmentID
	})
	return out, nil
}

func (r *MemoryFindingsRepository) UpdateStatus(_ context.Context, id string, status domain.FindingStatus, notes *string) (*domain.AuditFinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.findings[id]
	if !ok {
		return nil, nil
	}
	f.Status = status
	if notes != nil {
		n := *notes
		f.AuditorNotes = &n
	}
	f.UpdatedAt = r.now().UTC()
	r.findings[id] = f
	return r.withCode(f), nil
}

// MemoryReportsRepository AI reports when DB is disabled.
type MemoryReportsRepository struct {
	mu      sync.RWMutex
	reports map[string]domain.AIAuditReport
	now     func() time.Time
}

func NewMemoryReportsRepository() *MemoryReportsRepository {
	return &MemoryReportsRepository{reports: map[string]domain.AIAuditReport{}, now: time.Now}
}

var _ ReportsRepository = (*MemoryReportsRepository)(nil)

func (r *MemoryReportsRepository) Create(_ context.Context, rep *domain.AIAuditReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep.CreatedAt = r.now().UTC()
	r.reports[rep.ID] = *rep
	return nil
}

func (r *MemoryReportsRepository) GetByID(_ context.Context, id string) (*domain.AIAuditReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	return &rep, nil
}

func (r *MemoryReportsRepository) ListLaboratoryHistory(_ context.Context, laboratoryID int64, limit int) ([]*domain.AIAuditReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.AIAuditReport
	for _, rep := range r.reports {
		if rep.Scope == domain.ScopeLaboratory && rep.LaboratoryID != nil && *rep.LaboratoryID == laboratoryID {
			rep := rep
			out = append(out, &rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AuditDate.Equal(out[j].AuditDate) {
			return out[i].AuditDate.After(out[j].AuditDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
