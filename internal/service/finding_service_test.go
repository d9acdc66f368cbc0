package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
)

func newTestFindingService(f *fleet, events EventPublisher) FindingService {
	return NewFindingService(f.findings, f.equipment, FindingServiceOptions{RecurringMinFindings: 2, Events: events}, zap.NewNop())
}

func TestFindingService_CreateManualAndList(t *testing.T) {
	f := newFleet()
	f.addLab(1, "Lab Redes")
	f.addEquipment(10, 1, "LAB01-PC01")
	svc := newTestFindingService(f, nil)
	ctx := context.Background()

	created, err := svc.CreateManual(ctx, CreateFindingRequest{
		EquipmentID: 10,
		FindingDate: "2025-03-10",
		AuditTest:   "PS-HW-03",
		Title:       "  Disco con sectores defectuosos  ",
		Severity:    "HIGH",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceManual, created.Source)
	assert.Equal(t, domain.FindingOpen, created.Status)
	assert.Equal(t, domain.SeverityHigh, created.Severity)
	assert.Equal(t, "Disco con sectores defectuosos", created.Title)
	assert.Equal(t, int64(1), created.LaboratoryID)
	assert.Nil(t, created.AuditorNotes)

	open, err := svc.ListOpen(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "LAB01-PC01", open[0].EquipmentCode)

	none, err := svc.ListByEquipment(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFindingService_CreateManualValidation(t *testing.T) {
	f := newFleet()
	f.addLab(1, "Lab Redes")
	f.addEquipment(10, 1, "LAB01-PC01")
	svc := newTestFindingService(f, nil)
	ctx := context.Background()

	_, err := svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 10, Title: "x", Severity: "urgent"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 10, Title: "  ", Severity: "low"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 10, Title: "x", Severity: "low", FindingDate: "10/03/2025"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 77, Title: "x", Severity: "low"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	long := strings.Repeat("á", 150)
	created, err := svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 10, Title: long, Severity: "low"})
	require.NoError(t, err)
	assert.Equal(t, 100, len([]rune(created.Title)))
}

func TestFindingService_UpdateStatus(t *testing.T) {
	f := newFleet()
	f.addLab(1, "Lab Redes")
	f.addEquipment(10, 1, "LAB01-PC01")
	events := &recordingPublisher{}
	svc := newTestFindingService(f, events)
	ctx := context.Background()

	created, err := svc.CreateManual(ctx, CreateFindingRequest{EquipmentID: 10, Title: "Antivirus deshabilitado", Severity: "critical", AuditorNotes: "revisar"})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: created.ID, Status: "in-progress"})
	require.NoError(t, err)
	assert.Equal(t, domain.FindingInProgress, updated.Status)
	require.NotNil(t, updated.AuditorNotes)
	assert.Equal(t, "revisar", *updated.AuditorNotes)

	notes := "antivirus reinstalado"
	updated, err = svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: created.ID, Status: "resolved", AuditorNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.FindingResolved, updated.Status)
	assert.Equal(t, notes, *updated.AuditorNotes)

	// any transition is allowed, including reopening
	_, err = svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: created.ID, Status: "open"})
	require.NoError(t, err)

	assert.Equal(t, []string{EventFindingStatusChanged, EventFindingStatusChanged, EventFindingStatusChanged}, events.types())
	first := events.events[0].Payload.(map[string]any)
	assert.Equal(t, domain.FindingOpen, first["from"])
	assert.Equal(t, domain.FindingInProgress, first["to"])

	_, err = svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: created.ID, Status: "closed"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: "not-a-uuid", Status: "resolved"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.UpdateStatus(ctx, UpdateFindingStatusRequest{ID: "6f1c1c1e-9a57-4c43-8f0e-4b8f0f9b2a11", Status: "resolved"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFindingService_TrendsAndRecurring(t *testing.T) {
	f := newFleet()
	f.addLab(1, "Lab Redes")
	f.addEquipment(10, 1, "LAB01-PC01")
	f.addEquipment(11, 1, "LAB01-PC02")
	svc := newTestFindingService(f, nil)
	ctx := context.Background()

	for _, req := range []CreateFindingRequest{
		{EquipmentID: 10, AuditTest: "PS-SW-01", Title: "a", Severity: "high"},
		{EquipmentID: 10, AuditTest: "PS-SW-01", Title: "b", Severity: "high"},
		{EquipmentID: 11, AuditTest: "PS-HW-02", Title: "c", Severity: "low"},
	} {
		_, err := svc.CreateManual(ctx, req)
		require.NoError(t, err)
	}

	trends, err := svc.Trends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, domain.FindingTrend{AuditTest: "PS-SW-01", Severity: domain.SeverityHigh, Count: 2}, trends[0])

	// zero falls back to the configured minimum of 2
	recurring, err := svc.Recurring(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, recurring, 1)
	assert.Equal(t, "LAB01-PC01", recurring[0].EquipmentCode)

	recurring, err = svc.Recurring(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, recurring, 2)

	empty, err := svc.Trends(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
