package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/metrics"
	"github.com/KeviinASD/audi-back/internal/repository"
	"github.com/KeviinASD/audi-back/internal/store"
)

// RiskySoftwareScope how the heat map counts risky software per machine.
type RiskySoftwareScope string

const (
	// RiskyScopeCurrent counts every risky row of the machine regardless of the requested date.
	RiskyScopeCurrent RiskySoftwareScope = "current"
	// RiskyScopeAsOf counts risky rows of the latest software capture on or before the requested date.
	RiskyScopeAsOf RiskySoftwareScope = "as-of"
)

func (s RiskySoftwareScope) Valid() bool {
	return s == RiskyScopeCurrent || s == RiskyScopeAsOf
}

// DailyConsolidatorService as-of views over the snapshot history.
type DailyConsolidatorService interface {
	// DailyHeatMap one cell per active machine of the laboratory for the given date.
	DailyHeatMap(ctx context.Context, req DailyHeatMapRequest) (*DailyHeatMapResponse, error)
	// EquipmentDetail full snapshot set of one machine for the given date.
	EquipmentDetail(ctx context.Context, req EquipmentDetailRequest) (*EquipmentDetailResponse, error)
	// InvalidateLaboratory drops cached heat maps of a laboratory.
	InvalidateLaboratory(ctx context.Context, laboratoryID int64)
}

// SnapshotRepos the four snapshot stores read by the consolidator and written by the agent sync.
type SnapshotRepos struct {
	Hardware    repository.HardwareSnapshotRepository
	Security    repository.SecuritySnapshotRepository
	Performance repository.PerformanceSnapshotRepository
	Software    repository.SoftwareRepository
}

// ConsolidatorOptions optional collaborators. Cache nil or CacheTTL 0 disables caching.
type ConsolidatorOptions struct {
	RiskyScope RiskySoftwareScope
	Cache      store.KV
	CacheTTL   time.Duration
	Metrics    *metrics.Metrics
}

type dailyConsolidatorService struct {
	equipment  repository.EquipmentRepository
	labs       repository.LaboratoryRepository
	snapshots  SnapshotRepos
	riskyScope RiskySoftwareScope
	cache      store.KV
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewDailyConsolidatorService(
	equipment repository.EquipmentRepository,
	labs repository.LaboratoryRepository,
	snapshots SnapshotRepos,
	opts ConsolidatorOptions,
	logger *zap.Logger,
) DailyConsolidatorService {
	scope := opts.RiskyScope
	if !scope.Valid() {
		scope = RiskyScopeCurrent
	}
	return &dailyConsolidatorService{
		equipment:  equipment,
		labs:       labs,
		snapshots:  snapshots,
		riskyScope: scope,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

type DailyHeatMapRequest struct {
	LaboratoryID int64
	Date         time.Time // any instant of the requested UTC calendar day
}

type LaboratoryRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type HeatMapSummary struct {
	Total             int `json:"total"`
	Operative         int `json:"operative"`
	Degraded          int `json:"degraded"`
	Critical          int `json:"critical"`
	NoData            int `json:"noData"`
	WithSecurityRisk  int `json:"withSecurityRisk"`
	WithRiskySoftware int `json:"withRiskySoftware"`
	Obsolete          int `json:"obsolete"`
}

// HeatMapCell one machine of the heat map.
type HeatMapCell struct {
	Equipment              domain.EquipmentRef    `json:"equipment"`
	Status                 domain.EquipmentStatus `json:"status"`
	StatusCompareToPrevDay domain.StatusChange    `json:"statusCompareToPrevDay"`
	IsObsolete             bool                   `json:"isObsolete"`
	HasSecurityRisk        bool                   `json:"hasSecurityRisk"`
	RiskyAppsCount         int                    `json:"riskyAppsCount"`
	LastSync               *time.Time             `json:"lastSync"`
}

type DailyHeatMapResponse struct {
	Laboratory         LaboratoryRef      `json:"laboratory"`
	Date               string             `json:"date"`
	Summary            HeatMapSummary     `json:"summary"`
	Equipments         []HeatMapCell      `json:"equipments"`
	RiskySoftwareScope RiskySoftwareScope `json:"riskySoftwareScope"`
}

type EquipmentDetailRequest struct {
	EquipmentID int64
	Date        time.Time
}

// SnapshotRef a snapshot resolved as of a date plus how old it is.
type SnapshotRef[T any] struct {
	Data       T          `json:"data"`
	CapturedAt *time.Time `json:"capturedAt"`
	Stale      bool       `json:"stale"`
	StaleDays  int        `json:"staleDays"`
}

type SoftwareRef struct {
	SnapshotRef[[]*domain.SoftwareItem]
	RiskyCount int `json:"riskyCount"`
	TotalCount int `json:"totalCount"`
}

type SecurityRef struct {
	SnapshotRef[*domain.SecuritySnapshot]
	HasRisk bool `json:"hasRisk"`
}

type EquipmentDetailResponse struct {
	Equipment              domain.EquipmentRef                      `json:"equipment"`
	Status                 domain.EquipmentStatus                   `json:"status"`
	StatusCompareToPrevDay domain.StatusChange                      `json:"statusCompareToPrevDay"`
	Hardware               SnapshotRef[*domain.HardwareSnapshot]    `json:"hardware"`
	Software               SoftwareRef                              `json:"software"`
	Security               SecurityRef                              `json:"security"`
	Performance            SnapshotRef[*domain.PerformanceSnapshot] `json:"performance"`
}

// ============================================
// Heat map
// ============================================

func (s *dailyConsolidatorService) DailyHeatMap(ctx context.Context, req DailyHeatMapRequest) (*DailyHeatMapResponse, error) {
	started := time.Now()
	date := domain.FormatDate(req.Date)
	cacheKey := store.HeatMapKey(req.LaboratoryID, date, string(s.riskyScope))

	if cached := s.cachedHeatMap(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	equipments, err := s.equipment.FindAllActiveInLaboratory(ctx, req.LaboratoryID)
	if err != nil {
		s.logger.Error("Failed to list laboratory equipment",
			zap.Int64("laboratory_id", req.LaboratoryID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list laboratory equipment: %w", err)
	}
	if len(equipments) == 0 {
		return nil, domain.NotFoundf("laboratory %d not found or has no active equipments", req.LaboratoryID)
	}

	lab, err := s.labs.FindActiveByID(ctx, req.LaboratoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get laboratory: %w", err)
	}
	if lab == nil {
		return nil, domain.NotFoundf("laboratory %d not found or has no active equipments", req.LaboratoryID)
	}

	upTo := domain.EndOfUTCDay(req.Date)
	upToPrevDay := domain.EndOfUTCDay(domain.PrevUTCDay(req.Date))

	cells := make([]HeatMapCell, len(equipments))
	var g errgroup.Group
	for i, eq := range equipments {
		i, eq := i, eq
		g.Go(func() error {
			cell, err := s.buildHeatMapCell(ctx, eq, upTo, upToPrevDay)
			if err != nil {
				return err
			}
			cells[i] = *cell
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to consolidate heat map",
			zap.Int64("laboratory_id", req.LaboratoryID),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to consolidate heat map: %w", err)
	}

	resp := &DailyHeatMapResponse{
		Laboratory:         LaboratoryRef{ID: lab.ID, Name: lab.Name, Location: lab.Location},
		Date:               date,
		Summary:            summarize(cells),
		Equipments:         cells,
		RiskySoftwareScope: s.riskyScope,
	}

	s.storeHeatMap(ctx, cacheKey, resp)
	s.metrics.ObserveConsolidation("heatmap", time.Since(started).Seconds())
	return resp, nil
}

func (s *dailyConsolidatorService) buildHeatMapCell(ctx context.Context, eq *domain.Equipment, upTo, upToPrevDay time.Time) (*HeatMapCell, error) {
	var (
		hw, prevHW   *domain.HardwareSnapshot
		sec, prevSec *domain.SecuritySnapshot
		risky        int
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		hw, err = s.snapshots.Hardware.LatestAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		sec, err = s.snapshots.Security.LatestAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		prevHW, err = s.snapshots.Hardware.LatestAsOf(ctx, eq.ID, upToPrevDay)
		return err
	})
	g.Go(func() (err error) {
		prevSec, err = s.snapshots.Security.LatestAsOf(ctx, eq.ID, upToPrevDay)
		return err
	})
	g.Go(func() (err error) {
		if s.riskyScope == RiskyScopeAsOf {
			risky, err = s.snapshots.Software.CountRiskyAsOf(ctx, eq.ID, upTo)
		} else {
			risky, err = s.snapshots.Software.CountRisky(ctx, eq.ID)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("equipment %s: %w", eq.Code, err)
	}

	current := domain.CalculateStatus(hw, sec)
	previous := domain.CalculateStatus(prevHW, prevSec)

	cell := &HeatMapCell{
		Equipment:              eq.Ref(),
		Status:                 current,
		StatusCompareToPrevDay: domain.CompareStatus(current, previous),
		RiskyAppsCount:         risky,
	}
	if hw != nil {
		cell.IsObsolete = hw.IsObsolete
		lastSync := hw.CapturedAt.UTC()
		cell.LastSync = &lastSync
	}
	if sec != nil {
		cell.HasSecurityRisk = sec.HasSecurityRisk
	}
	return cell, nil
}

func summarize(cells []HeatMapCell) HeatMapSummary {
	sum := HeatMapSummary{Total: len(cells)}
	for _, c := range cells {
		switch c.Status {
		case domain.StatusOperative:
			sum.Operative++
		case domain.StatusDegraded:
			sum.Degraded++
		case domain.StatusCritical:
			sum.Critical++
		case domain.StatusNoData:
			sum.NoData++
		}
		if c.HasSecurityRisk {
			sum.WithSecurityRisk++
		}
		if c.RiskyAppsCount > 0 {
			sum.WithRiskySoftware++
		}
		if c.IsObsolete {
			sum.Obsolete++
		}
	}
	return sum
}

func (s *dailyConsolidatorService) cachedHeatMap(ctx context.Context, key string) *DailyHeatMapResponse {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Heat map cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var resp DailyHeatMapResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		s.logger.Warn("Heat map cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &resp
}

func (s *dailyConsolidatorService) storeHeatMap(ctx context.Context, key string, resp *DailyHeatMapResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), s.cacheTTL); err != nil {
		s.logger.Warn("Heat map cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *dailyConsolidatorService) InvalidateLaboratory(ctx context.Context, laboratoryID int64) {
	if s.cache == nil {
		return
	}
	n, err := store.DeleteMatching(ctx, s.cache, store.HeatMapPattern(laboratoryID))
	if err != nil {
		s.logger.Warn("Heat map cache invalidation failed", zap.Int64("laboratory_id", laboratoryID), zap.Error(err))
		return
	}
	s.logger.Debug("Heat map cache invalidated", zap.Int64("laboratory_id", laboratoryID), zap.Int("keys", n))
}

// ============================================
// Equipment detail
// ============================================

func (s *dailyConsolidatorService) EquipmentDetail(ctx context.Context, req EquipmentDetailRequest) (*EquipmentDetailResponse, error) {
	started := time.Now()

	eq, err := s.equipment.FindActiveByID(ctx, req.EquipmentID)
	if err != nil {
		s.logger.Error("Failed to get equipment", zap.Int64("equipment_id", req.EquipmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if eq == nil {
		return nil, domain.NotFoundf("equipment %d not found or inactive", req.EquipmentID)
	}

	upTo := domain.EndOfUTCDay(req.Date)
	upToPrevDay := domain.EndOfUTCDay(domain.PrevUTCDay(req.Date))

	var (
		hw, prevHW   *domain.HardwareSnapshot
		sec, prevSec *domain.SecuritySnapshot
		perf         *domain.PerformanceSnapshot
		software     *domain.SoftwareCapture
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		hw, err = s.snapshots.Hardware.LatestAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		software, err = s.softwareCaptureAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		sec, err = s.snapshots.Security.LatestAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		perf, err = s.snapshots.Performance.LatestAsOf(ctx, eq.ID, upTo)
		return err
	})
	g.Go(func() (err error) {
		prevHW, err = s.snapshots.Hardware.LatestAsOf(ctx, eq.ID, upToPrevDay)
		return err
	})
	g.Go(func() (err error) {
		prevSec, err = s.snapshots.Security.LatestAsOf(ctx, eq.ID, upToPrevDay)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to consolidate equipment detail",
			zap.Int64("equipment_id", req.EquipmentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to consolidate equipment detail: %w", err)
	}

	current := domain.CalculateStatus(hw, sec)
	previous := domain.CalculateStatus(prevHW, prevSec)

	resp := &EquipmentDetailResponse{
		Equipment:              eq.Ref(),
		Status:                 current,
		StatusCompareToPrevDay: domain.CompareStatus(current, previous),
	}

	if hw != nil {
		resp.Hardware = wrapSnapshot(hw, hw.CapturedAt, req.Date)
	}
	if sec != nil {
		resp.Security = SecurityRef{SnapshotRef: wrapSnapshot(sec, sec.CapturedAt, req.Date), HasRisk: sec.HasSecurityRisk}
	}
	if perf != nil {
		resp.Performance = wrapSnapshot(perf, perf.CapturedAt, req.Date)
	}
	if software.CapturedAt != nil {
		resp.Software.SnapshotRef = wrapSnapshot(software.Items, *software.CapturedAt, req.Date)
	}
	resp.Software.RiskyCount = software.RiskyCount
	resp.Software.TotalCount = software.TotalCount

	s.metrics.ObserveConsolidation("detail", time.Since(started).Seconds())
	return resp, nil
}

// softwareCaptureAsOf every row of the latest capture on or before upTo.
func (s *dailyConsolidatorService) softwareCaptureAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.SoftwareCapture, error) {
	latest, err := s.snapshots.Software.LatestCaptureAsOf(ctx, equipmentID, upTo)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return &domain.SoftwareCapture{}, nil
	}
	items, err := s.snapshots.Software.RowsAtCapture(ctx, equipmentID, *latest)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.SoftwareItem{}
	}
	capture := &domain.SoftwareCapture{CapturedAt: latest, Items: items, TotalCount: len(items)}
	for _, it := range items {
		if it.IsRisk {
			capture.RiskyCount++
		}
	}
	return capture, nil
}

func wrapSnapshot[T any](data T, capturedAt, requested time.Time) SnapshotRef[T] {
	at := capturedAt.UTC()
	days := domain.StaleDays(requested, at)
	return SnapshotRef[T]{
		Data:       data,
		CapturedAt: &at,
		Stale:      days > 0,
		StaleDays:  days,
	}
}
