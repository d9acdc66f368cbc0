package domain

import (
	"encoding/json"
	"time"
)

// PerformanceSnapshot one performance reading reported by the agent.
type PerformanceSnapshot struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipmentId"`
	CapturedAt  time.Time `json:"capturedAt"`
	Mode        string    `json:"mode"`

	CPUUsagePercent float64  `json:"cpuUsagePercent"`
	CPUTemperatureC *float64 `json:"cpuTemperatureC"`

	RAMTotalGB      float64 `json:"ramTotalGB"`
	RAMUsedGB       float64 `json:"ramUsedGB"`
	RAMUsagePercent float64 `json:"ramUsagePercent"`

	DiskTotalGB       float64  `json:"diskTotalGB"`
	DiskUsedGB        float64  `json:"diskUsedGB"`
	DiskUsagePercent  float64  `json:"diskUsagePercent"`
	DiskTemperatureC  *float64 `json:"diskTemperatureC"`
	DiskReadSpeedMBs  *float64 `json:"diskReadSpeedMBs"`
	DiskWriteSpeedMBs *float64 `json:"diskWriteSpeedMBs"`

	NetworkSentMBs     float64 `json:"networkSentMBs"`
	NetworkReceivedMBs float64 `json:"networkReceivedMBs"`
	NetworkAdapterName string  `json:"networkAdapterName"`

	UptimeSeconds int64      `json:"uptimeSeconds"`
	LastBootTime  *time.Time `json:"lastBootTime"`

	// raw JSON lists of {pid, name, cpuPercent, ramMB, status}
	TopProcessesByCPU json.RawMessage `json:"topProcessesByCpu"`
	TopProcessesByRAM json.RawMessage `json:"topProcessesByRam"`

	HasCPUAlert     bool `json:"hasCpuAlert"`
	HasRAMAlert     bool `json:"hasRamAlert"`
	HasDiskAlert    bool `json:"hasDiskAlert"`
	HasThermalAlert bool `json:"hasThermalAlert"`
}

const (
	cpuAlertPercent   = 85.0
	ramAlertPercent   = 90.0
	diskAlertPercent  = 90.0
	cpuThermalAlertC  = 70.0
	diskThermalAlertC = 55.0
)

// ApplyDerived fills usage percentages and alert flags from the raw readings.
func (p *PerformanceSnapshot) ApplyDerived() {
	p.RAMUsagePercent = 0
	if p.RAMTotalGB > 0 {
		p.RAMUsagePercent = p.RAMUsedGB / p.RAMTotalGB * 100
	}
	p.DiskUsagePercent = 0
	if p.DiskTotalGB > 0 {
		p.DiskUsagePercent = p.DiskUsedGB / p.DiskTotalGB * 100
	}

	p.HasCPUAlert = p.CPUUsagePercent > cpuAlertPercent
	p.HasRAMAlert = p.RAMUsagePercent > ramAlertPercent
	p.HasDiskAlert = p.DiskUsagePercent > diskAlertPercent
	p.HasThermalAlert = (p.CPUTemperatureC != nil && *p.CPUTemperatureC > cpuThermalAlertC) ||
		(p.DiskTemperatureC != nil && *p.DiskTemperatureC > diskThermalAlertC)
}
