package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/metrics"
	"github.com/KeviinASD/audi-back/internal/repository"
)

const (
	SyncModeFull  = "full"
	SyncModeQuick = "quick"
)

// AgentSyncService ingestion of lab agent reports into the snapshot stores.
type AgentSyncService interface {
	// Authorize constant-time check of the agent API key. An empty configured key rejects everything.
	Authorize(apiKey string) bool
	ProcessSync(ctx context.Context, req SyncRequest) (*SyncResponse, error)
}

// heatMapInvalidator drops cached views after new data arrives.
type heatMapInvalidator interface {
	InvalidateLaboratory(ctx context.Context, laboratoryID int64)
}

type agentSyncService struct {
	apiKey      []byte
	equipment   repository.EquipmentRepository
	snapshots   SnapshotRepos
	invalidator heatMapInvalidator
	events      EventPublisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// AgentSyncDeps collaborators of the sync service. Invalidator, Events and Metrics are optional.
type AgentSyncDeps struct {
	APIKey      string
	Equipment   repository.EquipmentRepository
	Snapshots   SnapshotRepos
	Invalidator heatMapInvalidator
	Events      EventPublisher
	Metrics     *metrics.Metrics
}

func NewAgentSyncService(deps AgentSyncDeps, logger *zap.Logger) AgentSyncService {
	return &agentSyncService{
		apiKey:      []byte(deps.APIKey),
		equipment:   deps.Equipment,
		snapshots:   deps.Snapshots,
		invalidator: deps.Invalidator,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// SyncRequest body posted by the lab agent.
type SyncRequest struct {
	EquipmentCode string                      `json:"equipmentCode"`
	Mode          string                      `json:"mode"`      // full | quick
	Timestamp     string                      `json:"timestamp"` // RFC 3339 capture instant
	Hardware      *domain.HardwareSnapshot    `json:"hardware,omitempty"`
	Software      []SoftwarePayload           `json:"software,omitempty"`
	Security      *domain.SecuritySnapshot    `json:"security,omitempty"`
	Performance   *domain.PerformanceSnapshot `json:"performance,omitempty"`
}

// SoftwarePayload one installed program as reported by the agent.
type SoftwarePayload struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Publisher     string `json:"publisher"`
	InstalledAt   string `json:"installedAt"` // YYYY-MM-DD or RFC 3339, empty when unknown
	LicenseStatus string `json:"licenseStatus"`
}

type SyncResponse struct {
	EquipmentID     int64                   `json:"equipmentId"`
	EquipmentCode   string                  `json:"equipmentCode"`
	Mode            string                  `json:"mode"`
	CapturedAt      time.Time               `json:"capturedAt"`
	Status          *domain.EquipmentStatus `json:"status,omitempty"`
	SoftwareCount   int                     `json:"softwareCount"`
	RiskySoftware   int                     `json:"riskySoftware"`
	HasSecurityRisk bool                    `json:"hasSecurityRisk"`
}

func (s *agentSyncService) Authorize(apiKey string) bool {
	if len(s.apiKey) == 0 || apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare(s.apiKey, []byte(apiKey)) == 1
}

func (s *agentSyncService) ProcessSync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	resp, err := s.processSync(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveSync(req.Mode, outcome)
	return resp, err
}

func (s *agentSyncService) processSync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != SyncModeFull && mode != SyncModeQuick {
		return nil, domain.InvalidRequestf("mode must be full or quick")
	}
	capturedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Timestamp))
	if err != nil {
		return nil, domain.InvalidRequestf("timestamp must be an RFC 3339 instant")
	}
	capturedAt = capturedAt.UTC()

	code := strings.TrimSpace(req.EquipmentCode)
	if code == "" {
		return nil, domain.InvalidRequestf("equipmentCode is required")
	}
	eq, err := s.equipment.FindActiveByCode(ctx, code)
	if err != nil {
		s.logger.Error("Failed to resolve agent equipment", zap.String("equipment_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if eq == nil {
		return nil, domain.NotFoundf("equipment %s not found or inactive", code)
	}

	resp := &SyncResponse{
		EquipmentID:   eq.ID,
		EquipmentCode: eq.Code,
		Mode:          mode,
		CapturedAt:    capturedAt,
	}

	if mode == SyncModeQuick {
		if err := s.equipment.UpdateSyncState(ctx, eq.ID, capturedAt, nil); err != nil {
			return nil, fmt.Errorf("failed to update equipment sync state: %w", err)
		}
		s.afterSync(ctx, eq, resp)
		return resp, nil
	}

	if req.Hardware == nil {
		return nil, domain.InvalidRequestf("hardware is required for a full sync")
	}
	if req.Software == nil {
		return nil, domain.InvalidRequestf("software is required for a full sync")
	}

	whitelist, err := s.snapshots.Software.ActiveWhitelist(ctx, eq.LaboratoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load software whitelist: %w", err)
	}

	hw := *req.Hardware
	hw.ID = 0
	hw.EquipmentID = eq.ID
	hw.CapturedAt = capturedAt
	if hw.DiskSmartStatus == "" {
		hw.DiskSmartStatus = "unknown"
	}
	hw.IsObsolete = hw.ComputeObsolescence(capturedAt)

	items := make([]*domain.SoftwareItem, 0, len(req.Software))
	for _, p := range req.Software {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		item := &domain.SoftwareItem{
			EquipmentID:   eq.ID,
			CapturedAt:    capturedAt,
			Name:          name,
			Version:       p.Version,
			Publisher:     p.Publisher,
			InstalledAt:   parseInstallDate(p.InstalledAt),
			LicenseStatus: domain.NormalizeLicenseStatus(p.LicenseStatus),
		}
		item.IsWhitelisted = domain.IsWhitelistedBy(item.Name, whitelist)
		item.IsRisk = item.ComputeRisk(capturedAt)
		if item.IsRisk {
			resp.RiskySoftware++
		}
		items = append(items, item)
	}
	resp.SoftwareCount = len(items)

	var sec *domain.SecuritySnapshot
	if req.Security != nil {
		cp := *req.Security
		cp.ID = 0
		cp.EquipmentID = eq.ID
		cp.CapturedAt = capturedAt
		if cp.DaysSinceLastUpdate == nil && cp.LastUpdateDate != nil {
			days := domain.StaleDays(capturedAt, *cp.LastUpdateDate)
			cp.DaysSinceLastUpdate = &days
		}
		cp.HasSecurityRisk = cp.ComputeSecurityRisk()
		resp.HasSecurityRisk = cp.HasSecurityRisk
		sec = &cp
	}

	var perf *domain.PerformanceSnapshot
	if req.Performance != nil {
		cp := *req.Performance
		cp.ID = 0
		cp.EquipmentID = eq.ID
		cp.CapturedAt = capturedAt
		if cp.Mode == "" {
			cp.Mode = mode
		}
		cp.ApplyDerived()
		perf = &cp
	}

	var g errgroup.Group
	g.Go(func() error { return s.snapshots.Hardware.Save(ctx, &hw) })
	g.Go(func() error { return s.snapshots.Software.SaveItems(ctx, items) })
	if sec != nil {
		g.Go(func() error { return s.snapshots.Security.Save(ctx, sec) })
	}
	if perf != nil {
		g.Go(func() error { return s.snapshots.Performance.Save(ctx, perf) })
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to store agent snapshots",
			zap.String("equipment_code", eq.Code),
			zap.Time("captured_at", capturedAt),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to store agent snapshots: %w", err)
	}

	status := domain.CalculateStatus(&hw, sec)
	if err := s.equipment.UpdateSyncState(ctx, eq.ID, capturedAt, &status); err != nil {
		return nil, fmt.Errorf("failed to update equipment sync state: %w", err)
	}
	resp.Status = &status

	s.afterSync(ctx, eq, resp)
	return resp, nil
}

func (s *agentSyncService) afterSync(ctx context.Context, eq *domain.Equipment, resp *SyncResponse) {
	if s.invalidator != nil {
		s.invalidator.InvalidateLaboratory(ctx, eq.LaboratoryID)
	}
	publishEvent(ctx, s.events, s.logger, EventAgentSynced, map[string]any{
		"equipmentId":   eq.ID,
		"equipmentCode": eq.Code,
		"laboratoryId":  eq.LaboratoryID,
		"mode":          resp.Mode,
		"capturedAt":    resp.CapturedAt,
		"status":        resp.Status,
	})
	s.logger.Info("Agent sync processed",
		zap.String("equipment_code", eq.Code),
		zap.String("mode", resp.Mode),
		zap.Int("software_count", resp.SoftwareCount),
		zap.Int("risky_software", resp.RiskySoftware),
	)
}

// parseInstallDate lenient: unparseable or empty dates are treated as unknown.
const registryDateLayout = "20060102"

func parseInstallDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Windows reports InstallDate as YYYYMMDD.
	if d, err := time.Parse(registryDateLayout, s); err == nil {
		return &d
	}
	d, err := domain.ParseAuditDate(s)
	if err != nil {
		return nil
	}
	return &d
}
