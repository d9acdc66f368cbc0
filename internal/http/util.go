package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// parseID positive int64 from a query value or path segment.
func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidRequestf("%s must be a positive integer", name)
	}
	return id, nil
}

// queryDate the date query parameter; today (UTC) when omitted.
func queryDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if strings.TrimSpace(raw) == "" {
		return domain.StartOfUTCDay(time.Now()), nil
	}
	return domain.ParseAuditDate(raw)
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// writeError business errors go out as HTTP 200 with the failure envelope.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrNotFound):
		logger.Warn(op+" rejected", zap.Error(err))
	default:
		logger.Error(op+" failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, FailFor(err))
}
