package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresSoftwareRepository software_installed and authorized_software
type PostgresSoftwareRepository struct {
	db *sql.DB
}

func NewPostgresSoftwareRepository(db *sql.DB) *PostgresSoftwareRepository {
	return &PostgresSoftwareRepository{db: db}
}

var _ SoftwareRepository = (*PostgresSoftwareRepository)(nil)

func (r *PostgresSoftwareRepository) LatestCaptureAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(captured_at)
		FROM software_installed
		WHERE equipment_id = $1 AND captured_at <= $2
	`, equipmentID, upTo).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest software capture: %w", err)
	}
	return nullTime(latest), nil
}

func (r *PostgresSoftwareRepository) RowsAtCapture(ctx context.Context, equipmentID int64, capturedAt time.Time) ([]*domain.SoftwareItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, equipment_id, captured_at, name, version, publisher,
		       installed_at, license_status, is_whitelisted, is_risk
		FROM software_installed
		WHERE equipment_id = $1 AND captured_at = $2
		ORDER BY name, id
	`, equipmentID, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to list software capture: %w", err)
	}
	defer rows.Close()

	var out []*domain.SoftwareItem
	for rows.Next() {
		var (
			s           domain.SoftwareItem
			installedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.EquipmentID, &s.CapturedAt, &s.Name, &s.Version, &s.Publisher,
			&installedAt, &s.LicenseStatus, &s.IsWhitelisted, &s.IsRisk); err != nil {
			return nil, fmt.Errorf("failed to scan software item: %w", err)
		}
		s.CapturedAt = s.CapturedAt.UTC()
		s.InstalledAt = nullTime(installedAt)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate software capture: %w", err)
	}
	return out, nil
}

func (r *PostgresSoftwareRepository) CountRisky(ctx context.Context, equipmentID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM software_installed WHERE equipment_id = $1 AND is_risk
	`, equipmentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count risky software: %w", err)
	}
	return n, nil
}

func (r *PostgresSoftwareRepository) CountRiskyAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM software_installed
		WHERE equipment_id = $1 AND is_risk
		  AND captured_at = (
			SELECT MAX(captured_at) FROM software_installed
			WHERE equipment_id = $1 AND captured_at <= $2
		  )
	`, equipmentID, upTo).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count risky software as of date: %w", err)
	}
	return n, nil
}

// SaveItems bulk-loads one capture with COPY inside a transaction.
func (r *PostgresSoftwareRepository) SaveItems(ctx context.Context, items []*domain.SoftwareItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("software_installed",
		"equipment_id", "captured_at", "name", "version", "publisher",
		"installed_at", "license_status", "is_whitelisted", "is_risk"))
	if err != nil {
		return fmt.Errorf("failed to prepare software copy: %w", err)
	}
	for _, s := range items {
		if _, err := stmt.ExecContext(ctx,
			s.EquipmentID, s.CapturedAt, s.Name, s.Version, s.Publisher,
			ptrArg(s.InstalledAt), s.LicenseStatus, s.IsWhitelisted, s.IsRisk,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy software item %q: %w", s.Name, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush software copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close software copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit software items: %w", err)
	}
	return nil
}

func (r *PostgresSoftwareRepository) ActiveWhitelist(ctx context.Context, laboratoryID int64) ([]*domain.AuthorizedSoftware, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, publisher, description, is_active, laboratory_id
		FROM authorized_software
		WHERE is_active AND (laboratory_id IS NULL OR laboratory_id = $1)
		ORDER BY id
	`, laboratoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized software: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuthorizedSoftware
	for rows.Next() {
		var (
			a     domain.AuthorizedSoftware
			labID sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Publisher, &a.Description, &a.IsActive, &labID); err != nil {
			return nil, fmt.Errorf("failed to scan authorized software: %w", err)
		}
		if labID.Valid {
			id := labID.Int64
			a.LaboratoryID = &id
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authorized software: %w", err)
	}
	return out, nil
}
