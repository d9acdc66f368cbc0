package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/service"
)

// agentMaxBodyBytes a full sync carries the whole software inventory.
const agentMaxBodyBytes = 10 << 20

// AgentSyncHandler ingestion endpoint for the lab agents. Unlike the dashboard
// API it answers with real HTTP status codes.
type AgentSyncHandler struct {
	svc    service.AgentSyncService
	logger *zap.Logger
}

func NewAgentSyncHandler(svc service.AgentSyncService, logger *zap.Logger) *AgentSyncHandler {
	return &AgentSyncHandler{svc: svc, logger: logger}
}

// Sync POST /api/v1/agent/sync
func (h *AgentSyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Authorize(r.Header.Get("x-api-key")) {
		h.logger.Warn("Agent sync with invalid api key", zap.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, Fail("invalid api key"))
		return
	}

	var req service.SyncRequest
	if err := readBodyJSON(r, agentMaxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	resp, err := h.svc.ProcessSync(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		default:
			h.logger.Error("Agent sync failed",
				zap.String("equipment_code", req.EquipmentCode),
				zap.Error(err),
			)
		}
		writeJSON(w, status, FailFor(err))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
