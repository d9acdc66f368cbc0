package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/aiprovider"
	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/metrics"
	"github.com/KeviinASD/audi-back/internal/repository"
)

const reportHistoryLimit = 30

// AIAnalysisService builds an audit context, asks a language model for a
// formal analysis and stores the result as an immutable report.
type AIAnalysisService interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*domain.AIAuditReport, error)
	ReportHistory(ctx context.Context, laboratoryID int64) ([]*domain.AIAuditReport, error)
	GetReport(ctx context.Context, id string) (*domain.AIAuditReport, error)
}

// providerResolver the part of aiprovider.Registry the orchestrator needs.
type providerResolver interface {
	Resolve(name string) aiprovider.Provider
}

type aiAnalysisService struct {
	consolidator DailyConsolidatorService
	equipment    repository.EquipmentRepository
	labs         repository.LaboratoryRepository
	reports      repository.ReportsRepository
	findings     repository.FindingsRepository
	providers    providerResolver
	providerName string
	events       EventPublisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// AIAnalysisDeps collaborators of the orchestrator. Events and Metrics are optional.
type AIAnalysisDeps struct {
	Consolidator DailyConsolidatorService
	Equipment    repository.EquipmentRepository
	Laboratories repository.LaboratoryRepository
	Reports      repository.ReportsRepository
	Findings     repository.FindingsRepository
	Providers    providerResolver
	ProviderName string
	Events       EventPublisher
	Metrics      *metrics.Metrics
}

func NewAIAnalysisService(deps AIAnalysisDeps, logger *zap.Logger) AIAnalysisService {
	return &aiAnalysisService{
		consolidator: deps.Consolidator,
		equipment:    deps.Equipment,
		labs:         deps.Laboratories,
		reports:      deps.Reports,
		findings:     deps.Findings,
		providers:    deps.Providers,
		providerName: deps.ProviderName,
		events:       deps.Events,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// AnalyzeRequest exactly one of EquipmentID and LaboratoryID must be set.
type AnalyzeRequest struct {
	EquipmentID        *int64 `json:"equipmentId,omitempty"`
	LaboratoryID       *int64 `json:"laboratoryId,omitempty"`
	Date               string `json:"date"`
	AutoCreateFindings bool   `json:"autoCreateFindings"`
	// Provider overrides the configured provider for this call.
	Provider string `json:"provider,omitempty"`
}

// EquipmentAuditContext what the model sees for a single machine.
type EquipmentAuditContext struct {
	AuditDate     string                      `json:"auditDate"`
	Laboratory    string                      `json:"laboratory"`
	Equipment     domain.EquipmentRef         `json:"equipment"`
	Status        domain.EquipmentStatus      `json:"status"`
	StatusChange  domain.StatusChange         `json:"statusChange"`
	Hardware      *domain.HardwareSnapshot    `json:"hardware"`
	HardwareStale bool                        `json:"hardwareStale"`
	Software      SoftwareAuditContext        `json:"software"`
	Security      *domain.SecuritySnapshot    `json:"security"`
	SecurityStale bool                        `json:"securityStale"`
	Performance   *domain.PerformanceSnapshot `json:"performance"`
}

type SoftwareAuditContext struct {
	RiskyCount    int                    `json:"riskyCount"`
	TotalCount    int                    `json:"totalCount"`
	LatestCapture *time.Time             `json:"latestCapture"`
	Stale         bool                   `json:"stale"`
	Snapshot      []*domain.SoftwareItem `json:"snapshot"`
}

// LaboratoryAuditContext what the model sees for a whole laboratory.
// Only non-operative machines are listed to keep the prompt small.
type LaboratoryAuditContext struct {
	AuditDate             string                 `json:"auditDate"`
	Laboratory            LaboratoryRef          `json:"laboratory"`
	Summary               HeatMapSummary         `json:"summary"`
	ProblematicEquipments []ProblematicEquipment `json:"problematicEquipments"`
}

type ProblematicEquipment struct {
	Code         string                 `json:"code"`
	Status       domain.EquipmentStatus `json:"status"`
	StatusChange domain.StatusChange    `json:"statusChange"`
	HasSecRisk   bool                   `json:"hasSecRisk"`
	RiskyApps    int                    `json:"riskyApps"`
	IsObsolete   bool                   `json:"isObsolete"`
	LastSync     *time.Time             `json:"lastSync"`
}

func (s *aiAnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*domain.AIAuditReport, error) {
	if (req.EquipmentID == nil) == (req.LaboratoryID == nil) {
		return nil, domain.InvalidRequestf("exactly one of equipmentId or laboratoryId is required")
	}
	date, err := domain.ParseAuditDate(req.Date)
	if err != nil {
		return nil, err
	}

	report := &domain.AIAuditReport{AuditDate: date}
	var auditContext any
	if req.EquipmentID != nil {
		c, eq, err := s.buildEquipmentContext(ctx, *req.EquipmentID, date)
		if err != nil {
			return nil, err
		}
		auditContext = c
		report.Scope = domain.ScopeEquipment
		report.EquipmentID = &eq.ID
		labID := eq.LaboratoryID
		report.LaboratoryID = &labID
	} else {
		c, err := s.buildLaboratoryContext(ctx, *req.LaboratoryID, date)
		if err != nil {
			return nil, err
		}
		auditContext = c
		report.Scope = domain.ScopeLaboratory
		labID := *req.LaboratoryID
		report.LaboratoryID = &labID
	}

	contextJSON, err := json.MarshalIndent(auditContext, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit context: %w", err)
	}

	name := req.Provider
	if name == "" {
		name = s.providerName
	}
	provider := s.providers.Resolve(name)
	if provider == nil {
		return nil, &aiprovider.ProviderError{Provider: name, Message: "no provider configured"}
	}

	completion, err := provider.Call(ctx, auditSystemPrompt, auditUserMessage(report.Scope, contextJSON))
	if err != nil {
		s.metrics.ObserveAICall(provider.Name(), "provider_error", 0)
		s.logger.Error("AI provider call failed",
			zap.String("provider", provider.Name()),
			zap.String("scope", string(report.Scope)),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrProvider) {
			return nil, err
		}
		return nil, &aiprovider.ProviderError{Provider: provider.Name(), Message: err.Error()}
	}

	analysis, err := domain.ParseAnalysis(completion.Text)
	if err != nil {
		s.metrics.ObserveAICall(provider.Name(), "parse_error", completion.TokensUsed)
		s.logger.Error("AI response is not a valid analysis",
			zap.String("provider", provider.Name()),
			zap.String("raw", truncateRunes(completion.Text, 2000)),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.ObserveAICall(provider.Name(), "ok", completion.TokensUsed)

	report.ID = uuid.NewString()
	report.SentContext = contextJSON
	report.Analysis = *analysis
	report.Provider = provider.Name()
	report.TokensUsed = completion.TokensUsed

	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("Failed to save AI audit report", zap.String("report_id", report.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save ai audit report: %w", err)
	}

	created := 0
	if req.AutoCreateFindings && len(analysis.CriticalFindings) > 0 {
		created = s.autoCreateFindings(ctx, report)
	}

	publishEvent(ctx, s.events, s.logger, EventAnalysisCompleted, map[string]any{
		"reportId":        report.ID,
		"scope":           report.Scope,
		"equipmentId":     report.EquipmentID,
		"laboratoryId":    report.LaboratoryID,
		"auditDate":       domain.FormatDate(report.AuditDate),
		"provider":        report.Provider,
		"tokensUsed":      report.TokensUsed,
		"findingsCreated": created,
	})

	s.logger.Info("AI audit analysis completed",
		zap.String("report_id", report.ID),
		zap.String("scope", string(report.Scope)),
		zap.String("provider", report.Provider),
		zap.Int("tokens_used", report.TokensUsed),
		zap.Int("findings_created", created),
	)
	return report, nil
}

func (s *aiAnalysisService) buildEquipmentContext(ctx context.Context, equipmentID int64, date time.Time) (*EquipmentAuditContext, *domain.Equipment, error) {
	eq, err := s.equipment.FindActiveByID(ctx, equipmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	if eq == nil {
		return nil, nil, domain.NotFoundf("equipment %d not found or inactive", equipmentID)
	}

	detail, err := s.consolidator.EquipmentDetail(ctx, EquipmentDetailRequest{EquipmentID: equipmentID, Date: date})
	if err != nil {
		return nil, nil, err
	}

	labName := ""
	lab, err := s.labs.FindActiveByID(ctx, eq.LaboratoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get laboratory: %w", err)
	}
	if lab != nil {
		labName = lab.Name
	}

	return &EquipmentAuditContext{
		AuditDate:     domain.FormatDate(date),
		Laboratory:    labName,
		Equipment:     detail.Equipment,
		Status:        detail.Status,
		StatusChange:  detail.StatusCompareToPrevDay,
		Hardware:      detail.Hardware.Data,
		HardwareStale: detail.Hardware.Stale,
		Software: SoftwareAuditContext{
			RiskyCount:    detail.Software.RiskyCount,
			TotalCount:    detail.Software.TotalCount,
			LatestCapture: detail.Software.CapturedAt,
			Stale:         detail.Software.Stale,
			Snapshot:      detail.Software.Data,
		},
		Security:      detail.Security.Data,
		SecurityStale: detail.Security.Stale,
		Performance:   detail.Performance.Data,
	}, eq, nil
}

func (s *aiAnalysisService) buildLaboratoryContext(ctx context.Context, laboratoryID int64, date time.Time) (*LaboratoryAuditContext, error) {
	daily, err := s.consolidator.DailyHeatMap(ctx, DailyHeatMapRequest{LaboratoryID: laboratoryID, Date: date})
	if err != nil {
		return nil, err
	}

	problematic := []ProblematicEquipment{}
	for _, cell := range daily.Equipments {
		if cell.Status == domain.StatusOperative {
			continue
		}
		problematic = append(problematic, ProblematicEquipment{
			Code:         cell.Equipment.Code,
			Status:       cell.Status,
			StatusChange: cell.StatusCompareToPrevDay,
			HasSecRisk:   cell.HasSecurityRisk,
			RiskyApps:    cell.RiskyAppsCount,
			IsObsolete:   cell.IsObsolete,
			LastSync:     cell.LastSync,
		})
	}

	return &LaboratoryAuditContext{
		AuditDate:             domain.FormatDate(date),
		Laboratory:            daily.Laboratory,
		Summary:               daily.Summary,
		ProblematicEquipments: problematic,
	}, nil
}

// autoCreateFindings stores the model's critical findings for machines it can
// resolve by code. Failures are logged; the report is already persisted.
func (s *aiAnalysisService) autoCreateFindings(ctx context.Context, report *domain.AIAuditReport) int {
	resolved := map[string]*domain.Equipment{}
	var findings []*domain.AuditFinding

	for _, f := range report.Analysis.CriticalFindings {
		eq, seen := resolved[f.EquipmentCode]
		if !seen {
			var err error
			eq, err = s.equipment.FindByCode(ctx, f.EquipmentCode)
			if err != nil {
				s.logger.Error("Failed to resolve finding equipment",
					zap.String("equipment_code", f.EquipmentCode),
					zap.Error(err),
				)
				eq = nil
			}
			resolved[f.EquipmentCode] = eq
		}
		if eq == nil {
			s.logger.Warn("Dropping AI finding for unknown equipment",
				zap.String("report_id", report.ID),
				zap.String("equipment_code", f.EquipmentCode),
			)
			continue
		}

		reportID := report.ID
		findings = append(findings, &domain.AuditFinding{
			ID:             uuid.NewString(),
			EquipmentID:    eq.ID,
			EquipmentCode:  eq.Code,
			LaboratoryID:   eq.LaboratoryID,
			AIReportID:     &reportID,
			FindingDate:    report.AuditDate,
			AuditTest:      strings.TrimSpace(f.AuditTest),
			Title:          truncateRunes(f.Finding, findingTitleMaxRunes),
			Description:    f.Finding,
			Severity:       f.Severity,
			Recommendation: f.Recommendation,
			Status:         domain.FindingOpen,
			Source:         domain.SourceAIGenerated,
		})
	}

	if len(findings) == 0 {
		return 0
	}
	if err := s.findings.CreateBatch(ctx, findings); err != nil {
		s.logger.Error("Failed to save AI findings",
			zap.String("report_id", report.ID),
			zap.Int("count", len(findings)),
			zap.Error(err),
		)
		return 0
	}
	s.metrics.AddFindings(string(domain.SourceAIGenerated), len(findings))
	return len(findings)
}

func (s *aiAnalysisService) ReportHistory(ctx context.Context, laboratoryID int64) ([]*domain.AIAuditReport, error) {
	list, err := s.reports.ListLaboratoryHistory(ctx, laboratoryID, reportHistoryLimit)
	if err != nil {
		s.logger.Error("Failed to list AI report history", zap.Int64("laboratory_id", laboratoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to list ai report history: %w", err)
	}
	return nonNil(list), nil
}

func (s *aiAnalysisService) GetReport(ctx context.Context, id string) (*domain.AIAuditReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFoundf("ai audit report %s not found", id)
	}
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ai audit report: %w", err)
	}
	if rep == nil {
		return nil, domain.NotFoundf("ai audit report %s not found", id)
	}
	return rep, nil
}
