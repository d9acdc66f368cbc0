package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// PostgresSecuritySnapshotRepository security_snapshots
type PostgresSecuritySnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSecuritySnapshotRepository(db *sql.DB) *PostgresSecuritySnapshotRepository {
	return &PostgresSecuritySnapshotRepository{db: db}
}

var _ SecuritySnapshotRepository = (*PostgresSecuritySnapshotRepository)(nil)

func (r *PostgresSecuritySnapshotRepository) LatestAsOf(ctx context.Context, equipmentID int64, upTo time.Time) (*domain.SecuritySnapshot, error) {
	query := `
		SELECT
			id, equipment_id, captured_at,
			os_name, os_version, os_build, os_architecture,
			last_update_date, days_since_last_update, pending_updates_count, is_critical_update_pending,
			antivirus_installed, antivirus_enabled, antivirus_name, antivirus_version,
			antivirus_definitions_updated, antivirus_last_scan_date,
			firewall_enabled, firewall_domain_enabled, firewall_private_enabled, firewall_public_enabled,
			password_min_length, password_max_age_days, password_min_age_days,
			password_complexity_enabled, account_lockout_threshold,
			local_users, last_logged_user,
			uac_enabled, rdp_enabled, remote_registry_enabled,
			has_security_risk
		FROM security_snapshots
		WHERE equipment_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`
	var (
		s              domain.SecuritySnapshot
		lastUpdate     sql.NullTime
		daysSince      sql.NullInt64
		lastScan       sql.NullTime
		localUsersJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, equipmentID, upTo).Scan(
		&s.ID, &s.EquipmentID, &s.CapturedAt,
		&s.OSName, &s.OSVersion, &s.OSBuild, &s.OSArchitecture,
		&lastUpdate, &daysSince, &s.PendingUpdatesCount, &s.IsCriticalUpdatePending,
		&s.AntivirusInstalled, &s.AntivirusEnabled, &s.AntivirusName, &s.AntivirusVersion,
		&s.AntivirusDefinitionsUpdated, &lastScan,
		&s.FirewallEnabled, &s.FirewallDomainEnabled, &s.FirewallPrivateEnabled, &s.FirewallPublicEnabled,
		&s.PasswordMinLength, &s.PasswordMaxAgeDays, &s.PasswordMinAgeDays,
		&s.PasswordComplexityEnabled, &s.AccountLockoutThreshold,
		&localUsersJSON, &s.LastLoggedUser,
		&s.UACEnabled, &s.RDPEnabled, &s.RemoteRegistryEnabled,
		&s.HasSecurityRisk,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get security snapshot: %w", err)
	}
	s.CapturedAt = s.CapturedAt.UTC()
	s.LastUpdateDate = nullTime(lastUpdate)
	s.DaysSinceLastUpdate = nullInt(daysSince)
	s.AntivirusLastScanDate = nullTime(lastScan)
	s.LocalUsers = rawOrNil(localUsersJSON)
	return &s, nil
}

func (r *PostgresSecuritySnapshotRepository) Save(ctx context.Context, s *domain.SecuritySnapshot) error {
	query := `
		INSERT INTO security_snapshots (
			equipment_id, captured_at,
			os_name, os_version, os_build, os_architecture,
			last_update_date, days_since_last_update, pending_updates_count, is_critical_update_pending,
			antivirus_installed, antivirus_enabled, antivirus_name, antivirus_version,
			antivirus_definitions_updated, antivirus_last_scan_date,
			firewall_enabled, firewall_domain_enabled, firewall_private_enabled, firewall_public_enabled,
			password_min_length, password_max_age_days, password_min_age_days,
			password_complexity_enabled, account_lockout_threshold,
			local_users, last_logged_user,
			uac_enabled, rdp_enabled, remote_registry_enabled,
			has_security_risk
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16,
			$17, $18, $19, $20,
			$21, $22, $23,
			$24, $25,
			$26, $27,
			$28, $29, $30,
			$31
		)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		s.EquipmentID, s.CapturedAt,
		s.OSName, s.OSVersion, s.OSBuild, s.OSArchitecture,
		ptrArg(s.LastUpdateDate), ptrArg(s.DaysSinceLastUpdate), s.PendingUpdatesCount, s.IsCriticalUpdatePending,
		s.AntivirusInstalled, s.AntivirusEnabled, s.AntivirusName, s.AntivirusVersion,
		s.AntivirusDefinitionsUpdated, ptrArg(s.AntivirusLastScanDate),
		s.FirewallEnabled, s.FirewallDomainEnabled, s.FirewallPrivateEnabled, s.FirewallPublicEnabled,
		s.PasswordMinLength, s.PasswordMaxAgeDays, s.PasswordMinAgeDays,
		s.PasswordComplexityEnabled, s.AccountLockoutThreshold,
		nullableJSON(s.LocalUsers), s.LastLoggedUser,
		s.UACEnabled, s.RDPEnabled, s.RemoteRegistryEnabled,
		s.HasSecurityRisk,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to save security snapshot: %w", err)
	}
	return nil
}
