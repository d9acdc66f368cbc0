package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresFindingsRepository audit_findings
type PostgresFindingsRepository struct {
	db *sql.DB
}

func NewPostgresFindingsRepository(db *sql.DB) *PostgresFindingsRepository {
	return &PostgresFindingsRepository{db: db}
}

var _ FindingsRepository = (*PostgresFindingsRepository)(nil)

const findingColumns = `
	f.id, f.equipment_id, COALESCE(e.code, ''), f.laboratory_id, f.ai_report_id,
	f.finding_date, f.audit_test, f.title, f.description, f.severity,
	f.recommendation, f.status, f.source, f.auditor_notes,
	f.created_at, f.updated_at`

const severityRankSQL = `CASE f.severity
	WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END`

func scanFinding(row interface{ Scan(...any) error }) (*domain.AuditFinding, error) {
	var (
		f        domain.AuditFinding
		reportID sql.NullString
		notes    sql.NullString
		severity string
		status   string
		source   string
	)
	if err := row.Scan(
		&f.ID, &f.EquipmentID, &f.EquipmentCode, &f.LaboratoryID, &reportID,
		&f.FindingDate, &f.AuditTest, &f.Title, &f.Description, &severity,
		&f.Recommendation, &status, &source, &notes,
		&f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.AIReportID = nullString(reportID)
	f.AuditorNotes = nullString(notes)
	f.Severity = domain.Severity(severity)
	f.Status = domain.FindingStatus(status)
	f.Source = domain.FindingSource(source)
	f.FindingDate = domain.StartOfUTCDay(f.FindingDate)
	return &f, nil
}

func (r *PostgresFindingsRepository) list(ctx context.Context, query string, args ...any) ([]*domain.AuditFinding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditFinding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate findings: %w", err)
	}
	return out, nil
}

func (r *PostgresFindingsRepository) CreateBatch(ctx context.Context, findings []*domain.AuditFinding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO audit_findings (
			id, equipment_id, laboratory_id, ai_report_id, finding_date,
			audit_test, title, description, severity, recommendation,
			status, source, auditor_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	for _, f := range findings {
		err := tx.QueryRowContext(ctx, query,
			f.ID, f.EquipmentID, f.LaboratoryID, ptrArg(f.AIReportID), f.FindingDate,
			f.AuditTest, f.Title, f.Description, string(f.Severity), f.Recommendation,
			string(f.Status), string(f.Source), ptrArg(f.AuditorNotes),
		).Scan(&f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert finding %q: %w", f.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}
	return nil
}

func (r *PostgresFindingsRepository) GetByID(ctx context.Context, id string) (*domain.AuditFinding, error) {
	query := `SELECT ` + findingColumns + `
		FROM audit_findings f
		LEFT JOIN equipment e ON e.id = f.equipment_id
		WHERE f.id = $1`
	f, err := scanFinding(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return f, nil
}

func (r *PostgresFindingsRepository) ListOpenByLaboratory(ctx context.Context, laboratoryID int64) ([]*domain.AuditFinding, error) {
	query := `SELECT ` + findingColumns + `
		FROM audit_findings f
		LEFT JOIN equipment e ON e.id = f.equipment_id
		WHERE f.laboratory_id = $1 AND f.status = 'open'
		ORDER BY ` + severityRankSQL + ` DESC, f.finding_date DESC, f.created_at DESC`
	return r.list(ctx, query, laboratoryID)
}

func (r *PostgresFindingsRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]*domain.AuditFinding, error) {
	query := `SELECT ` + findingColumns + `
		FROM audit_findings f
		LEFT JOIN equipment e ON e.id = f.equipment_id
		WHERE f.equipment_id = $1
		ORDER BY f.finding_date DESC, f.created_at DESC`
	return r.list(ctx, query, equipmentID)
}

func (r *PostgresFindingsRepository) Trends(ctx context.Context, laboratoryID int64) ([]domain.FindingTrend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT audit_test, severity, COUNT(*) AS cnt
		FROM audit_findings
		WHERE laboratory_id = $1
		GROUP BY audit_test, severity
		ORDER BY cnt DESC, audit_test, severity
	`, laboratoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get finding trends: %w", err)
	}
	defer rows.Close()

	out := []domain.FindingTrend{}
	for rows.Next() {
		var (
			t        domain.FindingTrend
			severity string
		)
		if err := rows.Scan(&t.AuditTest, &severity, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan finding trend: %w", err)
		}
		t.Severity = domain.Severity(severity)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate finding trends: %w", err)
	}
	return out, nil
}

func (r *PostgresFindingsRepository) Recurring(ctx context.Context, laboratoryID int64, minOpen int) ([]domain.RecurringEquipment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.equipment_id, COALESCE(e.code, ''), COUNT(*) AS cnt
		FROM audit_findings f
		LEFT JOIN equipment e ON e.id = f.equipment_id
		WHERE f.laboratory_id = $1 AND f.status = 'open'
		GROUP BY f.equipment_id, e.code
		HAVING COUNT(*) >= $2
		ORDER BY cnt DESC, f.equipment_id
	`, laboratoryID, minOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring equipment: %w", err)
	}
	defer rows.Close()

	out := []domain.RecurringEquipment{}
	for rows.Next() {
		var re domain.RecurringEquipment
		if err := rows.Scan(&re.EquipmentID, &re.EquipmentCode, &re.FindingCount); err != nil {
			return nil, fmt.Errorf("failed to scan recurring equipment: %w", err)
		}
		out = append(out, re)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring equipment: %w", err)
	}
	return out, nil
}

func (r *PostgresFindingsRepository) UpdateStatus(ctx context.Context, id string, status domain.FindingStatus, notes *string) (*domain.AuditFinding, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE audit_findings
		SET status = $2,
		    auditor_notes = COALESCE($3, auditor_notes),
		    updated_at = now()
		WHERE id = $1
	`, id, string(status), ptrArg(notes))
	if err != nil {
		return nil, fmt.Errorf("failed to update finding status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update finding status: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
