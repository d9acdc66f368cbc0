package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
)

type syncHarness struct {
	fleet  *fleet
	kv     *memoryKV
	events *recordingPublisher
	svc    AgentSyncService
}

func newSyncHarness(apiKey string) *syncHarness {
	f := newFleet()
	f.addLab(1, "Lab Redes")
	f.addEquipment(10, 1, "LAB01-PC01")
	f.software.PutAuthorized(&domain.AuthorizedSoftware{ID: 1, Name: "office", IsActive: true})

	kv := newMemoryKV()
	events := &recordingPublisher{}
	consolidator := NewDailyConsolidatorService(f.equipment, f.labs, f.snapshots(), ConsolidatorOptions{Cache: kv, CacheTTL: time.Minute}, zap.NewNop())
	svc := NewAgentSyncService(AgentSyncDeps{
		APIKey:      apiKey,
		Equipment:   f.equipment,
		Snapshots:   f.snapshots(),
		Invalidator: consolidator,
		Events:      events,
	}, zap.NewNop())
	return &syncHarness{fleet: f, kv: kv, events: events, svc: svc}
}

func fullSyncRequest() SyncRequest {
	return SyncRequest{
		EquipmentCode: "LAB01-PC01",
		Mode:          "full",
		Timestamp:     "2025-03-10T08:30:00Z",
		Hardware:      healthyHardware(0, utc("2025-03-10T08:30:00Z")),
		Software: []SoftwarePayload{
			{Name: "Microsoft Office 365", InstalledAt: "2020-01-01", LicenseStatus: "Licensed"},
			{Name: "uTorrent", InstalledAt: "2024-01-15"},
			{Name: "New Tool", InstalledAt: "2025-03-01T00:00:00Z", LicenseStatus: "weird"},
		},
		Security: healthySecurity(0, utc("2025-03-10T08:30:00Z")),
	}
}

func TestAgentSync_Authorize(t *testing.T) {
	h := newSyncHarness("s3cret")
	assert.True(t, h.svc.Authorize("s3cret"))
	assert.False(t, h.svc.Authorize("S3CRET"))
	assert.False(t, h.svc.Authorize(""))

	open := newSyncHarness("")
	assert.False(t, open.svc.Authorize(""))
	assert.False(t, open.svc.Authorize("anything"))
}

func TestAgentSync_FullSyncStoresSnapshots(t *testing.T) {
	h := newSyncHarness("k")
	ctx := context.Background()
	h.kv.data["audit:heatmap:1:2025-03-10:current"] = "{}"

	resp, err := h.svc.ProcessSync(ctx, fullSyncRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.EquipmentID)
	assert.Equal(t, 3, resp.SoftwareCount)
	assert.Equal(t, 1, resp.RiskySoftware)
	require.NotNil(t, resp.Status)
	assert.Equal(t, domain.StatusOperative, *resp.Status)

	at := utc("2025-03-10T08:30:00Z")
	hw, err := h.fleet.hardware.LatestAsOf(ctx, 10, at)
	require.NoError(t, err)
	require.NotNil(t, hw)
	assert.Equal(t, int64(10), hw.EquipmentID)

	items, err := h.fleet.software.RowsAtCapture(ctx, 10, at)
	require.NoError(t, err)
	require.Len(t, items, 3)
	byName := map[string]*domain.SoftwareItem{}
	for _, it := range items {
		byName[it.Name] = it
	}
	assert.True(t, byName["Microsoft Office 365"].IsWhitelisted)
	assert.False(t, byName["Microsoft Office 365"].IsRisk)
	assert.Equal(t, "licensed", byName["Microsoft Office 365"].LicenseStatus)
	assert.True(t, byName["uTorrent"].IsRisk)
	assert.False(t, byName["New Tool"].IsRisk)
	assert.Equal(t, "unknown", byName["New Tool"].LicenseStatus)

	eq, err := h.fleet.equipment.FindActiveByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOperative, eq.Status)
	require.NotNil(t, eq.LastConnection)
	assert.Equal(t, at, *eq.LastConnection)

	assert.Empty(t, h.kv.data)
	assert.Equal(t, []string{EventAgentSynced}, h.events.types())
}

func TestAgentSync_DerivesSecurityDays(t *testing.T) {
	h := newSyncHarness("k")
	req := fullSyncRequest()
	req.Security.DaysSinceLastUpdate = nil
	req.Security.LastUpdateDate = ptr(utc("2024-10-01T00:00:00Z"))

	resp, err := h.svc.ProcessSync(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.HasSecurityRisk)
	assert.Equal(t, domain.StatusDegraded, *resp.Status)

	sec, err := h.fleet.security.LatestAsOf(context.Background(), 10, utc("2025-03-11T00:00:00Z"))
	require.NoError(t, err)
	require.NotNil(t, sec.DaysSinceLastUpdate)
	assert.Equal(t, 160, *sec.DaysSinceLastUpdate)
}

func TestAgentSync_QuickSyncOnlyTouchesLastConnection(t *testing.T) {
	h := newSyncHarness("k")
	ctx := context.Background()

	resp, err := h.svc.ProcessSync(ctx, SyncRequest{EquipmentCode: "LAB01-PC01", Mode: "quick", Timestamp: "2025-03-10T09:00:00+02:00"})
	require.NoError(t, err)
	assert.Nil(t, resp.Status)

	eq, _ := h.fleet.equipment.FindActiveByID(ctx, 10)
	assert.Equal(t, domain.StatusNoData, eq.Status)
	assert.Equal(t, utc("2025-03-10T07:00:00Z"), *eq.LastConnection)

	hw, err := h.fleet.hardware.LatestAsOf(ctx, 10, utc("2025-12-31T00:00:00Z"))
	require.NoError(t, err)
	assert.Nil(t, hw)
}

func TestAgentSync_Validation(t *testing.T) {
	h := newSyncHarness("k")
	ctx := context.Background()

	cases := map[string]func(*SyncRequest){
		"bad mode":         func(r *SyncRequest) { r.Mode = "partial" },
		"bad timestamp":    func(r *SyncRequest) { r.Timestamp = "2025-03-10" },
		"missing code":     func(r *SyncRequest) { r.EquipmentCode = " " },
		"missing hardware": func(r *SyncRequest) { r.Hardware = nil },
		"missing software": func(r *SyncRequest) { r.Software = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := fullSyncRequest()
			mutate(&req)
			_, err := h.svc.ProcessSync(ctx, req)
			assert.True(t, errors.Is(err, domain.ErrInvalidRequest), err)
		})
	}

	req := fullSyncRequest()
	req.EquipmentCode = "LAB09-PC99"
	_, err := h.svc.ProcessSync(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestParseInstallDate(t *testing.T) {
	want := utc("2024-11-05T00:00:00Z")
	for _, in := range []string{"2024-11-05", "20241105", "2024-11-05T14:30:00-05:00"} {
		got := parseInstallDate(in)
		require.NotNil(t, got, in)
		assert.True(t, got.Equal(want), "%s -> %s", in, got)
	}
	assert.Nil(t, parseInstallDate(""))
	assert.Nil(t, parseInstallDate("05/11/2024"))
}
