package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/service"
)

const auditAnalysisPrefix = "/api/v1/audit-analysis/"

// AuditAnalysisHandler audit dashboard API.
type AuditAnalysisHandler struct {
	consolidator service.DailyConsolidatorService
	analysis     service.AIAnalysisService
	findings     service.FindingService
	logger       *zap.Logger
}

func NewAuditAnalysisHandler(
	consolidator service.DailyConsolidatorService,
	analysis service.AIAnalysisService,
	findings service.FindingService,
	logger *zap.Logger,
) *AuditAnalysisHandler {
	return &AuditAnalysisHandler{
		consolidator: consolidator,
		analysis:     analysis,
		findings:     findings,
		logger:       logger,
	}
}

// ServeHTTP routes everything under /api/v1/audit-analysis/:
//   - GET   daily, daily/export, equipment-detail
//   - POST  ai; GET ai/history, ai/:id
//   - GET   findings, findings/trends, findings/recurring, findings/equipment/:equipmentId
//   - POST  findings
//   - PATCH findings/:id/status
func (h *AuditAnalysisHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, auditAnalysisPrefix), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "daily":
		h.only(w, r, http.MethodGet, h.GetDailyHeatMap)
	case path == "daily/export":
		h.only(w, r, http.MethodGet, h.ExportDailyHeatMap)
	case path == "equipment-detail":
		h.only(w, r, http.MethodGet, h.GetEquipmentDetail)
	case path == "ai":
		h.only(w, r, http.MethodPost, h.Analyze)
	case path == "ai/history":
		h.only(w, r, http.MethodGet, h.GetReportHistory)
	case len(parts) == 2 && parts[0] == "ai":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.GetReport(w, r, parts[1]) })
	case path == "findings":
		switch r.Method {
		case http.MethodGet:
			h.ListOpenFindings(w, r)
		case http.MethodPost:
			h.CreateFinding(w, r)
		default:
			methodNotAllowed(w)
		}
	case path == "findings/trends":
		h.only(w, r, http.MethodGet, h.GetFindingTrends)
	case path == "findings/recurring":
		h.only(w, r, http.MethodGet, h.GetRecurringEquipment)
	case len(parts) == 3 && parts[0] == "findings" && parts[1] == "equipment":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.ListEquipmentFindings(w, r, parts[2]) })
	case len(parts) == 3 && parts[0] == "findings" && parts[2] == "status":
		h.only(w, r, http.MethodPatch, func(w http.ResponseWriter, r *http.Request) { h.UpdateFindingStatus(w, r, parts[1]) })
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AuditAnalysisHandler) only(w http.ResponseWriter, r *http.Request, method string, next http.HandlerFunc) {
	if r.Method != method {
		methodNotAllowed(w)
		return
	}
	next(w, r)
}

// GetDailyHeatMap GET daily?laboratoryId=1&date=2025-03-10
func (h *AuditAnalysisHandler) GetDailyHeatMap(w http.ResponseWriter, r *http.Request) {
	resp, err := h.dailyHeatMap(r)
	if err != nil {
		writeError(w, h.logger, "GetDailyHeatMap", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// ExportDailyHeatMap GET daily/export?laboratoryId=1&date=2025-03-10
func (h *AuditAnalysisHandler) ExportDailyHeatMap(w http.ResponseWriter, r *http.Request) {
	resp, err := h.dailyHeatMap(r)
	if err != nil {
		writeError(w, h.logger, "ExportDailyHeatMap", err)
		return
	}
	content, err := GenerateHeatMapWorkbook(resp)
	if err != nil {
		writeError(w, h.logger, "ExportDailyHeatMap", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=heatmap-lab%d-%s.xlsx", resp.Laboratory.ID, resp.Date))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *AuditAnalysisHandler) dailyHeatMap(r *http.Request) (*service.DailyHeatMapResponse, error) {
	labID, err := parseID(r.URL.Query().Get("laboratoryId"), "laboratoryId")
	if err != nil {
		return nil, err
	}
	date, err := queryDate(r)
	if err != nil {
		return nil, err
	}
	return h.consolidator.DailyHeatMap(r.Context(), service.DailyHeatMapRequest{LaboratoryID: labID, Date: date})
}

// GetEquipmentDetail GET equipment-detail?equipmentId=10&date=2025-03-10
func (h *AuditAnalysisHandler) GetEquipmentDetail(w http.ResponseWriter, r *http.Request) {
	equipmentID, err := parseID(r.URL.Query().Get("equipmentId"), "equipmentId")
	if err != nil {
		writeError(w, h.logger, "GetEquipmentDetail", err)
		return
	}
	date, err := queryDate(r)
	if err != nil {
		writeError(w, h.logger, "GetEquipmentDetail", err)
		return
	}
	resp, err := h.consolidator.EquipmentDetail(r.Context(), service.EquipmentDetailRequest{EquipmentID: equipmentID, Date: date})
	if err != nil {
		writeError(w, h.logger, "GetEquipmentDetail", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Analyze POST ai
func (h *AuditAnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "Analyze", domain.InvalidRequestf("invalid request body"))
		return
	}
	report, err := h.analysis.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "Analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// GetReportHistory GET ai/history?laboratoryId=1
func (h *AuditAnalysisHandler) GetReportHistory(w http.ResponseWriter, r *http.Request) {
	labID, err := parseID(r.URL.Query().Get("laboratoryId"), "laboratoryId")
	if err != nil {
		writeError(w, h.logger, "GetReportHistory", err)
		return
	}
	list, err := h.analysis.ReportHistory(r.Context(), labID)
	if err != nil {
		writeError(w, h.logger, "GetReportHistory", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GetReport GET ai/:id
func (h *AuditAnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.analysis.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetReport", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// ListOpenFindings GET findings?laboratoryId=1
func (h *AuditAnalysisHandler) ListOpenFindings(w http.ResponseWriter, r *http.Request) {
	labID, err := parseID(r.URL.Query().Get("laboratoryId"), "laboratoryId")
	if err != nil {
		writeError(w, h.logger, "ListOpenFindings", err)
		return
	}
	list, err := h.findings.ListOpen(r.Context(), labID)
	if err != nil {
		writeError(w, h.logger, "ListOpenFindings", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// CreateFinding POST findings
func (h *AuditAnalysisHandler) CreateFinding(w http.ResponseWriter, r *http.Request) {
	var req service.CreateFindingRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "CreateFinding", domain.InvalidRequestf("invalid request body"))
		return
	}
	f, err := h.findings.CreateManual(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateFinding", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

// ListEquipmentFindings GET findings/equipment/:equipmentId
func (h *AuditAnalysisHandler) ListEquipmentFindings(w http.ResponseWriter, r *http.Request, rawID string) {
	equipmentID, err := parseID(rawID, "equipmentId")
	if err != nil {
		writeError(w, h.logger, "ListEquipmentFindings", err)
		return
	}
	list, err := h.findings.ListByEquipment(r.Context(), equipmentID)
	if err != nil {
		writeError(w, h.logger, "ListEquipmentFindings", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// GetFindingTrends GET findings/trends?laboratoryId=1
func (h *AuditAnalysisHandler) GetFindingTrends(w http.ResponseWriter, r *http.Request) {
	labID, err := parseID(r.URL.Query().Get("laboratoryId"), "laboratoryId")
	if err != nil {
		writeError(w, h.logger, "GetFindingTrends", err)
		return
	}
	trends, err := h.findings.Trends(r.Context(), labID)
	if err != nil {
		writeError(w, h.logger, "GetFindingTrends", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(trends))
}

// GetRecurringEquipment GET findings/recurring?laboratoryId=1&min=3
func (h *AuditAnalysisHandler) GetRecurringEquipment(w http.ResponseWriter, r *http.Request) {
	labID, err := parseID(r.URL.Query().Get("laboratoryId"), "laboratoryId")
	if err != nil {
		writeError(w, h.logger, "GetRecurringEquipment", err)
		return
	}
	minOpen := parseInt(r.URL.Query().Get("min"), 0)
	list, err := h.findings.Recurring(r.Context(), labID, minOpen)
	if err != nil {
		writeError(w, h.logger, "GetRecurringEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// UpdateFindingStatus PATCH findings/:id/status
func (h *AuditAnalysisHandler) UpdateFindingStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req service.UpdateFindingStatusRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, "UpdateFindingStatus", domain.InvalidRequestf("invalid request body"))
		return
	}
	req.ID = id
	f, err := h.findings.UpdateStatus(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "UpdateFindingStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}
