package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHardwareObsolescence(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, (&HardwareSnapshot{ManufactureYear: "2018", RAMTotalGB: 16}).ComputeObsolescence(now))
	assert.False(t, (&HardwareSnapshot{ManufactureYear: "2019", RAMTotalGB: 16}).ComputeObsolescence(now))
	assert.True(t, (&HardwareSnapshot{ManufactureYear: "2024", RAMTotalGB: 2}).ComputeObsolescence(now))
	assert.False(t, (&HardwareSnapshot{ManufactureYear: "", RAMTotalGB: 8}).ComputeObsolescence(now))
	assert.False(t, (&HardwareSnapshot{ManufactureYear: "unknown", RAMTotalGB: 8}).ComputeObsolescence(now))
	// HDD alone is not obsolescence
	assert.False(t, (&HardwareSnapshot{ManufactureYear: "2022-05", RAMTotalGB: 8, DiskType: "HDD"}).ComputeObsolescence(now))
}

func TestSecurityRisk(t *testing.T) {
	safe := func() *SecuritySnapshot {
		return &SecuritySnapshot{
			AntivirusEnabled:          true,
			FirewallEnabled:           true,
			DaysSinceLastUpdate:       intp(10),
			PasswordMinLength:         10,
			PasswordComplexityEnabled: true,
			AccountLockoutThreshold:   5,
		}
	}
	assert.False(t, safe().ComputeSecurityRisk())

	mutations := map[string]func(s *SecuritySnapshot){
		"antivirus off":   func(s *SecuritySnapshot) { s.AntivirusEnabled = false },
		"firewall off":    func(s *SecuritySnapshot) { s.FirewallEnabled = false },
		"critical update": func(s *SecuritySnapshot) { s.IsCriticalUpdatePending = true },
		"stale updates":   func(s *SecuritySnapshot) { s.DaysSinceLastUpdate = intp(120) },
		"short password":  func(s *SecuritySnapshot) { s.PasswordMinLength = 6 },
		"no complexity":   func(s *SecuritySnapshot) { s.PasswordComplexityEnabled = false },
		"no lockout":      func(s *SecuritySnapshot) { s.AccountLockoutThreshold = 0 },
		"rdp exposed":     func(s *SecuritySnapshot) { s.RDPEnabled = true },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := safe()
			mutate(s)
			assert.True(t, s.ComputeSecurityRisk())
		})
	}
}

func TestSoftwareWhitelistAndRisk(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	whitelist := []*AuthorizedSoftware{
		{Name: "Python", IsActive: true},
		{Name: "Visual Studio", IsActive: true},
		{Name: "Steam", IsActive: false},
	}

	assert.True(t, IsWhitelistedBy("python 3.11.4", whitelist))
	assert.True(t, IsWhitelistedBy("Microsoft Visual Studio Code", whitelist))
	assert.False(t, IsWhitelistedBy("Steam Client", whitelist))
	assert.False(t, IsWhitelistedBy("uTorrent", whitelist))

	old := now.AddDate(0, 0, -121)
	recent := now.AddDate(0, 0, -30)

	assert.False(t, (&SoftwareItem{IsWhitelisted: true}).ComputeRisk(now))
	assert.True(t, (&SoftwareItem{InstalledAt: nil}).ComputeRisk(now))
	assert.True(t, (&SoftwareItem{InstalledAt: &old}).ComputeRisk(now))
	assert.False(t, (&SoftwareItem{InstalledAt: &recent}).ComputeRisk(now))

	// 120.5 days is 120 whole days, not yet risky; 121 days is.
	halfDayPast := now.Add(-(120*24 + 12) * time.Hour)
	exactly121 := now.Add(-121 * 24 * time.Hour)
	assert.False(t, (&SoftwareItem{InstalledAt: &halfDayPast}).ComputeRisk(now))
	assert.True(t, (&SoftwareItem{InstalledAt: &exactly121}).ComputeRisk(now))

	assert.Equal(t, "trial", NormalizeLicenseStatus(" Trial "))
	assert.Equal(t, "unknown", NormalizeLicenseStatus("pirated"))
}

func TestPerformanceDerived(t *testing.T) {
	p := &PerformanceSnapshot{
		CPUUsagePercent:  90,
		RAMTotalGB:       8,
		RAMUsedGB:        7.6,
		DiskTotalGB:      0,
		DiskUsedGB:       100,
		DiskTemperatureC: f64(56),
	}
	p.ApplyDerived()

	assert.True(t, p.HasCPUAlert)
	assert.InDelta(t, 95.0, p.RAMUsagePercent, 0.001)
	assert.True(t, p.HasRAMAlert)
	assert.Equal(t, 0.0, p.DiskUsagePercent)
	assert.False(t, p.HasDiskAlert)
	assert.True(t, p.HasThermalAlert)

	cool := &PerformanceSnapshot{CPUUsagePercent: 10, CPUTemperatureC: f64(70), DiskTemperatureC: f64(55)}
	cool.ApplyDerived()
	assert.False(t, cool.HasThermalAlert)
	assert.False(t, cool.HasCPUAlert)
}
