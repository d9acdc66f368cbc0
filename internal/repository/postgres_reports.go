package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresReportsRepository ai_audit_reports
type PostgresReportsRepository struct {
	db *sql.DB
}

func NewPostgresReportsRepository(db *sql.DB) *PostgresReportsRepository {
	return &PostgresReportsRepository{db: db}
}

var _ ReportsRepository = (*PostgresReportsRepository)(nil)

const reportColumns = `
	id, scope, equipment_id, laboratory_id, audit_date,
	sent_context, analysis, provider, tokens_used, created_at`

func scanReport(row interface{ Scan(...any) error }) (*domain.AIAuditReport, error) {
	var (
		rep          domain.AIAuditReport
		scope        string
		equipmentID  sql.NullInt64
		laboratoryID sql.NullInt64
		sentContext  []byte
		analysis     []byte
	)
	if err := row.Scan(&rep.ID, &scope, &equipmentID, &laboratoryID, &rep.AuditDate,
		&sentContext, &analysis, &rep.Provider, &rep.TokensUsed, &rep.CreatedAt); err != nil {
		return nil, err
	}
	rep.Scope = domain.AnalysisScope(scope)
	if equipmentID.Valid {
		id := equipmentID.Int64
		rep.EquipmentID = &id
	}
	if laboratoryID.Valid {
		id := laboratoryID.Int64
		rep.LaboratoryID = &id
	}
	rep.AuditDate = domain.StartOfUTCDay(rep.AuditDate)
	rep.SentContext = rawOrNil(sentContext)
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &rep.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode stored analysis: %w", err)
		}
	}
	return &rep, nil
}

func (r *PostgresReportsRepository) Create(ctx context.Context, rep *domain.AIAuditReport) error {
	analysis, err := json.Marshal(rep.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO ai_audit_reports (
			id, scope, equipment_id, laboratory_id, audit_date,
			sent_context, analysis, provider, tokens_used
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		rep.ID, string(rep.Scope), ptrArg(rep.EquipmentID), ptrArg(rep.LaboratoryID), rep.AuditDate,
		string(rep.SentContext), string(analysis), rep.Provider, rep.TokensUsed,
	).Scan(&rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ai audit report: %w", err)
	}
	return nil
}

func (r *PostgresReportsRepository) GetByID(ctx context.Context, id string) (*domain.AIAuditReport, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM ai_audit_reports WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ai audit report: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportsRepository) ListLaboratoryHistory(ctx context.Context, laboratoryID int64, limit int) ([]*domain.AIAuditReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM ai_audit_reports
		WHERE scope = 'laboratory' AND laboratory_id = $1
		ORDER BY audit_date DESC, created_at DESC
		LIMIT $2
	`, laboratoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ai audit reports: %w", err)
	}
	defer rows.Close()

	var out []*domain.AIAuditReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai audit report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ai audit reports: %w", err)
	}
	return out, nil
}
