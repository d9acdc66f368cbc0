package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/metrics"
	"github.com/KeviinASD/audi-back/internal/repository"
)

const defaultRecurringMinFindings = 3

// FindingService audit finding lifecycle. Findings are never deleted.
type FindingService interface {
	ListOpen(ctx context.Context, laboratoryID int64) ([]*domain.AuditFinding, error)
	ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.AuditFinding, error)
	Trends(ctx context.Context, laboratoryID int64) ([]domain.FindingTrend, error)
	// Recurring machines with at least minOpen open findings; minOpen <= 0 uses the configured default.
	Recurring(ctx context.Context, laboratoryID int64, minOpen int) ([]domain.RecurringEquipment, error)
	UpdateStatus(ctx context.Context, req UpdateFindingStatusRequest) (*domain.AuditFinding, error)
	CreateManual(ctx context.Context, req CreateFindingRequest) (*domain.AuditFinding, error)
}

type findingService struct {
	findings     repository.FindingsRepository
	equipment    repository.EquipmentRepository
	recurringMin int
	events       EventPublisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// FindingServiceOptions optional collaborators; nil values disable them.
type FindingServiceOptions struct {
	RecurringMinFindings int
	Events               EventPublisher
	Metrics              *metrics.Metrics
}

func NewFindingService(
	findings repository.FindingsRepository,
	equipment repository.EquipmentRepository,
	opts FindingServiceOptions,
	logger *zap.Logger,
) FindingService {
	minOpen := opts.RecurringMinFindings
	if minOpen <= 0 {
		minOpen = defaultRecurringMinFindings
	}
	return &findingService{
		findings:     findings,
		equipment:    equipment,
		recurringMin: minOpen,
		events:       opts.Events,
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

type UpdateFindingStatusRequest struct {
	ID           string  `json:"-"`
	Status       string  `json:"status"`
	AuditorNotes *string `json:"auditorNotes,omitempty"`
}

type CreateFindingRequest struct {
	EquipmentID    int64  `json:"equipmentId"`
	FindingDate    string `json:"findingDate"` // optional, defaults to today (UTC)
	AuditTest      string `json:"auditTest"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
	AuditorNotes   string `json:"auditorNotes"`
}

func (s *findingService) ListOpen(ctx context.Context, laboratoryID int64) ([]*domain.AuditFinding, error) {
	list, err := s.findings.ListOpenByLaboratory(ctx, laboratoryID)
	if err != nil {
		s.logger.Error("Failed to list open findings", zap.Int64("laboratory_id", laboratoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to list open findings: %w", err)
	}
	return nonNil(list), nil
}

func (s *findingService) ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.AuditFinding, error) {
	list, err := s.findings.ListByEquipment(ctx, equipmentID)
	if err != nil {
		s.logger.Error("Failed to list equipment findings", zap.Int64("equipment_id", equipmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list equipment findings: %w", err)
	}
	return nonNil(list), nil
}

func (s *findingService) Trends(ctx context.Context, laboratoryID int64) ([]domain.FindingTrend, error) {
	trends, err := s.findings.Trends(ctx, laboratoryID)
	if err != nil {
		s.logger.Error("Failed to get finding trends", zap.Int64("laboratory_id", laboratoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to get finding trends: %w", err)
	}
	if trends == nil {
		trends = []domain.FindingTrend{}
	}
	return trends, nil
}

func (s *findingService) Recurring(ctx context.Context, laboratoryID int64, minOpen int) ([]domain.RecurringEquipment, error) {
	if minOpen <= 0 {
		minOpen = s.recurringMin
	}
	list, err := s.findings.Recurring(ctx, laboratoryID, minOpen)
	if err != nil {
		s.logger.Error("Failed to get recurring equipment", zap.Int64("laboratory_id", laboratoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to get recurring equipment: %w", err)
	}
	if list == nil {
		list = []domain.RecurringEquipment{}
	}
	return list, nil
}

func (s *findingService) UpdateStatus(ctx context.Context, req UpdateFindingStatusRequest) (*domain.AuditFinding, error) {
	status := domain.FindingStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		return nil, domain.InvalidRequestf("status must be one of open, in-progress, resolved, accepted-risk")
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		return nil, domain.NotFoundf("finding %s not found", req.ID)
	}

	before, err := s.findings.GetByID(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	if before == nil {
		return nil, domain.NotFoundf("finding %s not found", req.ID)
	}

	updated, err := s.findings.UpdateStatus(ctx, req.ID, status, req.AuditorNotes)
	if err != nil {
		s.logger.Error("Failed to update finding status", zap.String("finding_id", req.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update finding status: %w", err)
	}
	if updated == nil {
		return nil, domain.NotFoundf("finding %s not found", req.ID)
	}

	publishEvent(ctx, s.events, s.logger, EventFindingStatusChanged, map[string]any{
		"findingId":    updated.ID,
		"equipmentId":  updated.EquipmentID,
		"laboratoryId": updated.LaboratoryID,
		"from":         before.Status,
		"to":           updated.Status,
	})
	return updated, nil
}

func (s *findingService) CreateManual(ctx context.Context, req CreateFindingRequest) (*domain.AuditFinding, error) {
	severity := domain.Severity(strings.ToLower(strings.TrimSpace(req.Severity)))
	if !severity.Valid() {
		return nil, domain.InvalidRequestf("severity must be one of low, medium, high, critical")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.InvalidRequestf("title is required")
	}
	findingDate := domain.StartOfUTCDay(time.Now())
	if req.FindingDate != "" {
		d, err := domain.ParseAuditDate(req.FindingDate)
		if err != nil {
			return nil, err
		}
		findingDate = d
	}

	eq, err := s.equipment.FindActiveByID(ctx, req.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if eq == nil {
		return nil, domain.NotFoundf("equipment %d not found or inactive", req.EquipmentID)
	}

	f := &domain.AuditFinding{
		ID:             uuid.NewString(),
		EquipmentID:    eq.ID,
		EquipmentCode:  eq.Code,
		LaboratoryID:   eq.LaboratoryID,
		FindingDate:    findingDate,
		AuditTest:      strings.TrimSpace(req.AuditTest),
		Title:          truncateRunes(title, findingTitleMaxRunes),
		Description:    req.Description,
		Severity:       severity,
		Recommendation: req.Recommendation,
		Status:         domain.FindingOpen,
		Source:         domain.SourceManual,
	}
	if notes := strings.TrimSpace(req.AuditorNotes); notes != "" {
		f.AuditorNotes = &notes
	}

	if err := s.findings.CreateBatch(ctx, []*domain.AuditFinding{f}); err != nil {
		s.logger.Error("Failed to create manual finding", zap.Int64("equipment_id", eq.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create finding: %w", err)
	}
	s.metrics.AddFindings(string(domain.SourceManual), 1)
	return f, nil
}

const findingTitleMaxRunes = 100

// truncateRunes first n characters of s, never splitting a multi-byte character.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
