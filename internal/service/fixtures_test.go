package service

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/KeviinASD/audi-back/internal/aiprovider"
	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/repository"
	"github.com/KeviinASD/audi-back/internal/store"
)

// fleet in-memory registry and snapshot stores shared by the service tests.
type fleet struct {
	labs        *repository.MemoryLaboratoryRepository
	equipment   *repository.MemoryEquipmentRepository
	hardware    *repository.MemoryHardwareSnapshotRepository
	security    *repository.MemorySecuritySnapshotRepository
	performance *repository.MemoryPerformanceSnapshotRepository
	software    *repository.MemorySoftwareRepository
	findings    *repository.MemoryFindingsRepository
	reports     *repository.MemoryReportsRepository
}

func newFleet() *fleet {
	labs := repository.NewMemoryLaboratoryRepository()
	equipment := repository.NewMemoryEquipmentRepository(labs)
	return &fleet{
		labs:        labs,
		equipment:   equipment,
		hardware:    repository.NewMemoryHardwareSnapshotRepository(),
		security:    repository.NewMemorySecuritySnapshotRepository(),
		performance: repository.NewMemoryPerformanceSnapshotRepository(),
		software:    repository.NewMemorySoftwareRepository(),
		findings:    repository.NewMemoryFindingsRepository(equipment),
		reports:     repository.NewMemoryReportsRepository(),
	}
}

func (f *fleet) snapshots() SnapshotRepos {
	return SnapshotRepos{
		Hardware:    f.hardware,
		Security:    f.security,
		Performance: f.performance,
		Software:    f.software,
	}
}

func (f *fleet) addLab(id int64, name string) {
	f.labs.Put(domain.Laboratory{ID: id, Name: name, Location: "Pabellon A", IsActive: true})
}

func (f *fleet) addEquipment(id, labID int64, code string) {
	f.equipment.Put(domain.Equipment{ID: id, Code: code, Name: code, LaboratoryID: labID, IsActive: true})
}

func (f *fleet) saveHardware(equipmentID int64, at time.Time, mutate func(*domain.HardwareSnapshot)) {
	hw := healthyHardware(equipmentID, at)
	if mutate != nil {
		mutate(hw)
	}
	_ = f.hardware.Save(context.Background(), hw)
}

func (f *fleet) saveSecurity(equipmentID int64, at time.Time, mutate func(*domain.SecuritySnapshot)) {
	sec := healthySecurity(equipmentID, at)
	if mutate != nil {
		mutate(sec)
	}
	sec.HasSecurityRisk = sec.ComputeSecurityRisk()
	_ = f.security.Save(context.Background(), sec)
}

func healthyHardware(equipmentID int64, at time.Time) *domain.HardwareSnapshot {
	temp := 45.0
	return &domain.HardwareSnapshot{
		EquipmentID:     equipmentID,
		CapturedAt:      at,
		CPUModel:        "Intel Core i5-10400",
		CPUCores:        6,
		CPUTemperatureC: &temp,
		RAMTotalGB:      16,
		RAMUsedGB:       6,
		DiskSmartStatus: "good",
		ManufactureYear: "2021",
	}
}

func healthySecurity(equipmentID int64, at time.Time) *domain.SecuritySnapshot {
	days := 5
	return &domain.SecuritySnapshot{
		EquipmentID:               equipmentID,
		CapturedAt:                at,
		OSName:                    "Windows 11 Pro",
		DaysSinceLastUpdate:       &days,
		AntivirusInstalled:        true,
		AntivirusEnabled:          true,
		FirewallEnabled:           true,
		PasswordMinLength:         12,
		PasswordComplexityEnabled: true,
		AccountLockoutThreshold:   5,
	}
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// MockProvider testify mock of an AI provider.
type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Call(ctx context.Context, systemPrompt, userMessage string) (*aiprovider.Completion, error) {
	args := m.Called(ctx, systemPrompt, userMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aiprovider.Completion), args.Error(1)
}

// memoryKV store.KV over a map, TTL ignored.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newMemoryKV() *memoryKV { return &memoryKV{data: map[string]string{}} }

func (k *memoryKV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gets++
	v, ok := k.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (k *memoryKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *memoryKV) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var keys []string
	for key := range k.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (k *memoryKV) Del(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.data, key)
	}
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, AuditEvent{Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
