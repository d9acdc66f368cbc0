package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeviinASD/audi-back/internal/domain"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var equipmentCols = []string{"id", "code", "name", "location", "laboratory_id", "is_active", "last_connection", "status"}

func TestEquipment_FindActiveByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresEquipmentRepository(db)

	last := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM equipment e WHERE e.id = \$1 AND e.is_active`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(equipmentCols).
			AddRow(7, "LAB1-PC07", "PC 07", "Row 2", 1, true, last, "degraded"))

	e, err := repo.FindActiveByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "LAB1-PC07", e.Code)
	assert.Equal(t, domain.StatusDegraded, e.Status)
	require.NotNil(t, e.LastConnection)
	assert.True(t, last.Equal(*e.LastConnection))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipment_FindActiveByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresEquipmentRepository(db)

	mock.ExpectQuery(`FROM equipment e`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	e, err := repo.FindActiveByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipment_FindAllActiveInLaboratory(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresEquipmentRepository(db)

	mock.ExpectQuery(`JOIN laboratories l ON l.id = e.laboratory_id AND l.is_active`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(equipmentCols).
			AddRow(1, "A-01", "PC 1", "", 1, true, nil, "no-data").
			AddRow(2, "A-02", "PC 2", "", 1, true, nil, "operative"))

	list, err := repo.FindAllActiveInLaboratory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].LastConnection)
	assert.Equal(t, "A-02", list[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipment_UpdateSyncState_KeepsStatusWhenNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresEquipmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE equipment`).
		WithArgs(int64(3), now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSyncState(context.Background(), 3, now, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHardware_LatestAsOf_NullTemperature(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresHardwareSnapshotRepository(db)

	upTo := domain.EndOfUTCDay(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	captured := time.Date(2024, 3, 14, 22, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "equipment_id", "captured_at",
		"cpu_model", "cpu_cores", "cpu_frequency_ghz", "cpu_usage_percent", "cpu_temperature_c",
		"ram_total_gb", "ram_used_gb", "ram_type", "ram_frequency_mhz",
		"disk_capacity_gb", "disk_used_gb", "disk_type", "disk_model", "disk_smart_status",
		"brand", "model", "serial_number", "manufacture_year", "architecture",
		"is_obsolete",
	}
	mock.ExpectQuery(`FROM hardware_snapshots`).
		WithArgs(int64(5), upTo).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			11, 5, captured,
			"i5-8500", 6, 3.0, 12.5, nil,
			8.0, 3.2, "DDR4", 2666,
			256.0, 100.0, "SSD", "Samsung", "good",
			"Dell", "OptiPlex", "SN1", "2019", "x64",
			false,
		))

	h, err := repo.LatestAsOf(context.Background(), 5, upTo)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(11), h.ID)
	assert.Nil(t, h.CPUTemperatureC)
	assert.Equal(t, 8.0, h.RAMTotalGB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHardware_LatestAsOf_None(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresHardwareSnapshotRepository(db)

	mock.ExpectQuery(`FROM hardware_snapshots`).WillReturnError(sql.ErrNoRows)

	h, err := repo.LatestAsOf(context.Background(), 5, time.Now())
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestSecurity_Save_ReturnsID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSecuritySnapshotRepository(db)

	s := &domain.SecuritySnapshot{
		EquipmentID:      5,
		CapturedAt:       time.Now().UTC(),
		AntivirusEnabled: true,
		FirewallEnabled:  true,
	}
	mock.ExpectQuery(`INSERT INTO security_snapshots`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, repo.Save(context.Background(), s))
	assert.Equal(t, int64(42), s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftware_LatestCaptureAsOf_NoRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSoftwareRepository(db)

	mock.ExpectQuery(`SELECT MAX\(captured_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	latest, err := repo.LatestCaptureAsOf(context.Background(), 1, time.Now())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSoftware_SaveItems_UsesCopy(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSoftwareRepository(db)

	at := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	items := []*domain.SoftwareItem{
		{EquipmentID: 1, CapturedAt: at, Name: "Google Chrome", LicenseStatus: "free", IsWhitelisted: true},
		{EquipmentID: 1, CapturedAt: at, Name: "uTorrent", LicenseStatus: "unknown", IsRisk: true},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "software_installed"`)
	prep.ExpectExec().
		WithArgs(int64(1), at, "Google Chrome", "", "", nil, "free", true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(int64(1), at, "uTorrent", "", "", nil, "unknown", false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveItems(context.Background(), items))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftware_ActiveWhitelist_GlobalAndLabScoped(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSoftwareRepository(db)

	mock.ExpectQuery(`FROM authorized_software`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "publisher", "description", "is_active", "laboratory_id"}).
			AddRow(1, "Office", "Microsoft", "", true, nil).
			AddRow(2, "MATLAB", "MathWorks", "", true, 2))

	list, err := repo.ActiveWhitelist(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].LaboratoryID)
	require.NotNil(t, list[1].LaboratoryID)
	assert.Equal(t, int64(2), *list[1].LaboratoryID)
}

func TestFindings_CreateBatch_RollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresFindingsRepository(db)

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	findings := []*domain.AuditFinding{
		{ID: "f-1", EquipmentID: 1, LaboratoryID: 1, FindingDate: day, Title: "a", Severity: domain.SeverityHigh, Status: domain.FindingOpen, Source: domain.SourceManual},
		{ID: "f-2", EquipmentID: 2, LaboratoryID: 1, FindingDate: day, Title: "b", Severity: domain.SeverityLow, Status: domain.FindingOpen, Source: domain.SourceManual},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO audit_findings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(day, day))
	mock.ExpectQuery(`INSERT INTO audit_findings`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), findings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fk violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindings_UpdateStatus_Missing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresFindingsRepository(db)

	mock.ExpectExec(`UPDATE audit_findings`).
		WithArgs("nope", "resolved", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	f, err := repo.UpdateStatus(context.Background(), "nope", domain.FindingResolved, nil)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindings_Recurring(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresFindingsRepository(db)

	mock.ExpectQuery(`HAVING COUNT\(\*\) >= \$2`).
		WithArgs(int64(1), 3).
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "code", "cnt"}).
			AddRow(4, "A-04", 5).
			AddRow(2, "A-02", 3))

	list, err := repo.Recurring(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].FindingCount)
	assert.Equal(t, "A-02", list[1].EquipmentCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReports_GetByID_DecodesAnalysis(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresReportsRepository(db)

	created := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM ai_audit_reports WHERE id = \$1`).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "scope", "equipment_id", "laboratory_id", "audit_date",
			"sent_context", "analysis", "provider", "tokens_used", "created_at",
		}).AddRow(
			"r-1", "laboratory", nil, 1, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			[]byte(`{"laboratory":{"id":1}}`), []byte(`{"executiveSummary":"ok","criticalFindings":[]}`),
			"openai", 1200, created,
		))

	rep, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, domain.ScopeLaboratory, rep.Scope)
	assert.Nil(t, rep.EquipmentID)
	assert.Equal(t, "ok", rep.Analysis.ExecutiveSummary)
	assert.JSONEq(t, `{"laboratory":{"id":1}}`, string(rep.SentContext))
	assert.NoError(t, mock.ExpectationsWereMet())
}
