package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresPerformanceSnapshotRepository performance_snapshots
type PostgresPerformanceSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresPerformanceSnapshotRepository(db *sql.DB) *PostgresPerformanceSnapshotRepository {
	return &PostgresPerformanceSnapshotRepository{db: db}
}

var _ PerformanceSnapshotRepository = (*PostgresPerformanceSnapshotRepository)(nil)

func (r *PostgresPerformanceSnapshotRepository) LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.PerformanceSnapshot, error) {
	query := `
		SELECT
			id, equipment_id, captured_at, mode,
			cpu_usage_percent, cpu_temperature_c,
			ram_total_gb, ram_used_gb, ram_usage_percent,
			disk_total_gb, disk_used_gb, disk_usage_percent,
			disk_temperature_c, disk_read_speed_mbs, disk_write_speed_mbs,
			network_sent_mbs, network_received_mbs, network_adapter_name,
			uptime_seconds, last_boot_time,
			top_processes_by_cpu, top_processes_by_ram,
			has_cpu_alert, has_ram_alert, has_disk_alert, has_thermal_alert
		FROM performance_snapshots
		WHERE equipment_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`
	var (
		p                  domain.PerformanceSnapshot
		cpuTemp, diskTemp  sql.NullFloat64
		readMBs, writeMBs  sql.NullFloat64
		lastBoot           sql.NullTime
		topByCPU, topByRAM []byte
	)
	err := r.db.QueryRowContext(ctx, query, equipmentID, upTo).Scan(
		&p.ID, &p.EquipmentID, &p.CapturedAt, &p.Mode,
		&p.CPUUsagePercent, &cpuTemp,
		&p.RAMTotalGB, &p.RAMUsedGB, &p.RAMUsagePercent,
		&p.DiskTotalGB, &p.DiskUsedGB, &p.DiskUsagePercent,
		&diskTemp, &readMBs, &writeMBs,
		&p.NetworkSentMBs, &p.NetworkReceivedMBs, &p.NetworkAdapterName,
		&p.UptimeSeconds, &lastBoot,
		&topByCPU, &topByRAM,
		&p.HasCPUAlert, &p.HasRAMAlert, &p.HasDiskAlert, &p.HasThermalAlert,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get performance snapshot: %w", err)
	}
	p.CapturedAt = p.CapturedAt.UTC()
	p.CPUTemperatureC = nullFloat(cpuTemp)
	p.DiskTemperatureC = nullFloat(diskTemp)
	p.DiskReadSpeedMBs = nullFloat(readMBs)
	p.DiskWriteSpeedMBs = nullFloat(writeMBs)
	p.LastBootTime = nullTime(lastBoot)
	p.TopProcessesByCPU = rawOrNil(topByCPU)
	p.TopProcessesByRAM = rawOrNil(topByRAM)
	return &p, nil
}

func (r *PostgresPerformanceSnapshotRepository) Save(ctx context.Context, p *domain.PerformanceSnapshot) error {
	query := `
		INSERT INTO performance_snapshots (
			equipment_id, captured_at, mode,
			cpu_usage_percent, cpu_temperature_c,
			ram_total_gb, ram_used_gb, ram_usage_percent,
			disk_total_gb, disk_used_gb, disk_usage_percent,
			disk_temperature_c, disk_read_speed_mbs, disk_write_speed_mbs,
			network_sent_mbs, network_received_mbs, network_adapter_name,
			uptime_seconds, last_boot_time,
			top_processes_by_cpu, top_processes_by_ram,
			has_cpu_alert, has_ram_alert, has_disk_alert, has_thermal_alert
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18, $19,
			$20, $21,
			$22, $23, $24, $25
		)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		p.EquipmentID, p.CapturedAt, p.Mode,
		p.CPUUsagePercent, ptrArg(p.CPUTemperatureC),
		p.RAMTotalGB, p.RAMUsedGB, p.RAMUsagePercent,
		p.DiskTotalGB, p.DiskUsedGB, p.DiskUsagePercent,
		ptrArg(p.DiskTemperatureC), ptrArg(p.DiskReadSpeedMBs), ptrArg(p.DiskWriteSpeedMBs),
		p.NetworkSentMBs, p.NetworkReceivedMBs, p.NetworkAdapterName,
		p.UptimeSeconds, ptrArg(p.LastBootTime),
		nullableJSON(p.TopProcessesByCPU), nullableJSON(p.TopProcessesByRAM),
		p.HasCPUAlert, p.HasRAMAlert, p.HasDiskAlert, p.HasThermalAlert,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to save performance snapshot: %w", err)
	}
	return nil
}
