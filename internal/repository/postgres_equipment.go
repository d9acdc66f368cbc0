package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresEquipmentRepository equipment registry backed by Postgres
type PostgresEquipmentRepository struct {
	db *sql.DB
}

func NewPostgresEquipmentRepository(db *sql.DB) *PostgresEquipmentRepository {
	return &PostgresEquipmentRepository{db: db}
}

var _ EquipmentRepository = (*PostgresEquipmentRepository)(nil)

const equipmentColumns = `
	e.id, e.code, e.name, e.location, e.laboratory_id,
	e.is_active, e.last_connection, e.status`

func scanEquipment(row interface{ Scan(...any) error }) (*domain.Equipment, error) {
	var (
		e              domain.Equipment
		lastConnection sql.NullTime
		status         string
	)
	if err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Location, &e.LaboratoryID, &e.IsActive, &lastConnection, &status); err != nil {
		return nil, err
	}
	if lastConnection.Valid {
		t := lastConnection.Time.UTC()
		e.LastConnection = &t
	}
	e.Status = domain.EquipmentStatus(status)
	return &e, nil
}

func (r *PostgresEquipmentRepository) findOne(ctx context.Context, where string, arg any) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment e WHERE ` + where
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return e, nil
}

func (r *PostgresEquipmentRepository) FindActiveByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	return r.findOne(ctx, `e.id = $1 AND e.is_active`, id)
}

func (r *PostgresEquipmentRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Equipment, error) {
	return r.findOne(ctx, `e.code = $1 AND e.is_active`, code)
}

func (r *PostgresEquipmentRepository) FindByCode(ctx context.Context, code string) (*domain.Equipment, error) {
	return r.findOne(ctx, `e.code = $1`, code)
}

func (r *PostgresEquipmentRepository) FindAllActiveInLaboratory(ctx context.Context, laboratoryID int64) ([]*domain.Equipment, error) {
	query := `
		SELECT ` + equipmentColumns + `
		FROM equipment e
		JOIN laboratories l ON l.id = e.laboratory_id AND l.is_active
		WHERE e.laboratory_id = $1 AND e.is_active
		ORDER BY e.code
	`
	rows, err := r.db.QueryContext(ctx, query, laboratoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list laboratory equipment: %w", err)
	}
	defer rows.Close()

	var out []*domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate equipment: %w", err)
	}
	return out, nil
}

func (r *PostgresEquipmentRepository) UpdateSyncState(ctx context.Context, id int64, lastConnection time.Time, status *domain.EquipmentStatus) error {
	var statusArg any
	if status != nil {
		statusArg = string(*status)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE equipment
		SET last_connection = $2,
		    status = COALESCE($3::text, status),
		    updated_at = now()
		WHERE id = $1
	`, id, lastConnection, statusArg)
	if err != nil {
		return fmt.Errorf("failed to update equipment sync state: %w", err)
	}
	return nil
}

// PostgresLaboratoryRepository laboratories backed by Postgres
type PostgresLaboratoryRepository struct {
	db *sql.DB
}

func NewPostgresLaboratoryRepository(db *sql.DB) *PostgresLaboratoryRepository {
	return &PostgresLaboratoryRepository{db: db}
}

var _ LaboratoryRepository = (*PostgresLaboratoryRepository)(nil)

func (r *PostgresLaboratoryRepository) FindActiveByID(ctx context.Context, id int64) (*domain.Laboratory, error) {
	var l domain.Laboratory
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, responsible, responsible_email, is_active
		FROM laboratories
		WHERE id = $1 AND is_active
	`, id).Scan(&l.ID, &l.Name, &l.Location, &l.Responsible, &l.ResponsibleEmail, &l.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get laboratory: %w", err)
	}
	return &l, nil
}
