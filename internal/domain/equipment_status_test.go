package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func healthySecurity() *SecuritySnapshot {
	return &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: true, DaysSinceLastUpdate: intp(3)}
}

func TestCalculateStatus_NoData(t *testing.T) {
	assert.Equal(t, StatusNoData, CalculateStatus(nil, nil))
}

func TestCalculateStatus_Table(t *testing.T) {
	tests := []struct {
		name string
		hw   *HardwareSnapshot
		sec  *SecuritySnapshot
		want EquipmentStatus
	}{
		{"hot cpu and antivirus off stays critical", &HardwareSnapshot{CPUTemperatureC: f64(90)}, &SecuritySnapshot{AntivirusEnabled: false, FirewallEnabled: true}, StatusCritical},
		{"temperature 72 with 75% ram", &HardwareSnapshot{CPUTemperatureC: f64(72), RAMTotalGB: 8, RAMUsedGB: 6}, nil, StatusDegraded},
		{"disk failed", &HardwareSnapshot{DiskSmartStatus: "failed"}, healthySecurity(), StatusCritical},
		{"firewall off only", nil, &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: false}, StatusCritical},
		{"critical dominates degraded", &HardwareSnapshot{CPUTemperatureC: f64(75), RAMTotalGB: 8, RAMUsedGB: 7.9}, &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: false, IsCriticalUpdatePending: true}, StatusCritical},
		{"ram over 90%", &HardwareSnapshot{RAMTotalGB: 10, RAMUsedGB: 9.5}, nil, StatusDegraded},
		{"ram exactly 90% is fine", &HardwareSnapshot{RAMTotalGB: 10, RAMUsedGB: 9}, nil, StatusOperative},
		{"zero total ram ignored", &HardwareSnapshot{RAMTotalGB: 0, RAMUsedGB: 4}, nil, StatusOperative},
		{"critical update pending", nil, &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: true, IsCriticalUpdatePending: true}, StatusDegraded},
		{"91 days without updates", nil, &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: true, DaysSinceLastUpdate: intp(91)}, StatusDegraded},
		{"90 days without updates", nil, &SecuritySnapshot{AntivirusEnabled: true, FirewallEnabled: true, DaysSinceLastUpdate: intp(90)}, StatusOperative},
		{"nil temperature never triggers", &HardwareSnapshot{CPUTemperatureC: nil, RAMTotalGB: 8, RAMUsedGB: 2}, nil, StatusOperative},
		{"hardware only healthy", &HardwareSnapshot{CPUTemperatureC: f64(50), RAMTotalGB: 8, RAMUsedGB: 2}, nil, StatusOperative},
		{"temperature 85 is degraded not critical", &HardwareSnapshot{CPUTemperatureC: f64(85)}, nil, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateStatus(tt.hw, tt.sec))
		})
	}
}

func TestCompareStatus(t *testing.T) {
	all := []EquipmentStatus{StatusOperative, StatusDegraded, StatusCritical, StatusNoData}
	for _, cur := range all {
		assert.Equal(t, ChangeUnknown, CompareStatus(cur, StatusNoData))
		for _, prev := range all[:3] {
			got := CompareStatus(cur, prev)
			switch {
			case cur.Rank() == prev.Rank():
				assert.Equal(t, ChangeSame, got)
			case cur.Rank() < prev.Rank():
				assert.Equal(t, ChangeImproved, got)
			default:
				assert.Equal(t, ChangeWorsened, got)
			}
		}
	}
	assert.Equal(t, ChangeWorsened, CompareStatus(StatusNoData, StatusOperative))
	assert.Equal(t, ChangeImproved, CompareStatus(StatusOperative, StatusCritical))
}
