package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresHardwareSnapshotRepository hardware_snapshots
type PostgresHardwareSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresHardwareSnapshotRepository(db *sql.DB) *PostgresHardwareSnapshotRepository {
	return &PostgresHardwareSnapshotRepository{db: db}
}

var _ HardwareSnapshotRepository = (*PostgresHardwareSnapshotRepository)(nil)

func (r *PostgresHardwareSnapshotRepository) LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.HardwareSnapshot, error) {
	query := `
		SELECT
			id, equipment_id, captured_at,
			cpu_model, cpu_cores, cpu_frequency_ghz, cpu_usage_percent, cpu_temperature_c,
			ram_total_gb, ram_used_gb, ram_type, ram_frequency_mhz,
			disk_capacity_gb, disk_used_gb, disk_type, disk_model, disk_smart_status,
			brand, model, serial_number, manufacture_year, architecture,
			is_obsolete
		FROM hardware_snapshots
		WHERE equipment_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`
	var (
		h       domain.HardwareSnapshot
		cpuTemp sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, equipmentID, upTo).Scan(
		&h.ID, &h.EquipmentID, &h.CapturedAt,
		&h.CPUModel, &h.CPUCores, &h.CPUFrequencyGHz, &h.CPUUsagePercent, &cpuTemp,
		&h.RAMTotalGB, &h.RAMUsedGB, &h.RAMType, &h.RAMFrequencyMHz,
		&h.DiskCapacityGB, &h.DiskUsedGB, &h.DiskType, &h.DiskModel, &h.DiskSmartStatus,
		&h.Brand, &h.Model, &h.SerialNumber, &h.ManufactureYear, &h.Architecture,
		&h.IsObsolete,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hardware snapshot: %w", err)
	}
	h.CapturedAt = h.CapturedAt.UTC()
	h.CPUTemperatureC = nullFloat(cpuTemp)
	return &h, nil
}

func (r *PostgresHardwareSnapshotRepository) Save(ctx context.Context, h *domain.HardwareSnapshot) error {
	query := `
		INSERT INTO hardware_snapshots (
			equipment_id, captured_at,
			cpu_model, cpu_cores, cpu_frequency_ghz, cpu_usage_percent, cpu_temperature_c,
			ram_total_gb, ram_used_gb, ram_type, ram_frequency_mhz,
			disk_capacity_gb, disk_used_gb, disk_type, disk_model, disk_smart_status,
			brand, model, serial_number, manufacture_year, architecture,
			is_obsolete
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21,
			$22
		)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		h.EquipmentID, h.CapturedAt,
		h.CPUModel, h.CPUCores, h.CPUFrequencyGHz, h.CPUUsagePercent, ptrArg(h.CPUTemperatureC),
		h.RAMTotalGB, h.RAMUsedGB, h.RAMType, h.RAMFrequencyMHz,
		h.DiskCapacityGB, h.DiskUsedGB, h.DiskType, h.DiskModel, h.DiskSmartStatus,
		h.Brand, h.Model, h.SerialNumber, h.ManufactureYear, h.Architecture,
		h.IsObsolete,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to save hardware snapshot: %w", err)
	}
	return nil
}
