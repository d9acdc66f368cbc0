package domain

import (
	"strconv"
	"strings"
	"time"
)

// HardwareSnapshot one hardware reading reported by the agent.
type HardwareSnapshot struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipmentId"`
	CapturedAt  time.Time `json:"capturedAt"`

	CPUModel        string   `json:"cpuModel"`
	CPUCores        int      `json:"cpuCores"`
	CPUFrequencyGHz float64  `json:"cpuFrequencyGHz"`
	CPUUsagePercent float64  `json:"cpuUsagePercent"`
	CPUTemperatureC *float64 `json:"cpuTemperatureC"` // nil when the sensor is unavailable

	RAMTotalGB      float64 `json:"ramTotalGB"`
	RAMUsedGB       float64 `json:"ramUsedGB"`
	RAMType         string  `json:"ramType"`
	RAMFrequencyMHz int     `json:"ramFrequencyMHz"`

	DiskCapacityGB  float64 `json:"diskCapacityGB"`
	DiskUsedGB      float64 `json:"diskUsedGB"`
	DiskType        string  `json:"diskType"`        // HDD | SSD | NVMe
	DiskModel       string  `json:"diskModel"`
	DiskSmartStatus string  `json:"diskSmartStatus"` // good | warning | failed | unknown

	Brand           string `json:"brand"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serialNumber"`
	ManufactureYear string `json:"manufactureYear"`
	Architecture    string `json:"architecture"`

	IsObsolete bool `json:"isObsolete"`
}

const (
	obsoleteMaxAgeYears = 7
	obsoleteMinRAMGB    = 4.0
)

// ComputeObsolescence flags machines older than seven years (relative to now)
// or with less than 4 GB of RAM. Disk type is not a criterion.
func (h *HardwareSnapshot) ComputeObsolescence(now time.Time) bool {
	tooOld := false
	if y := strings.TrimSpace(h.ManufactureYear); len(y) >= 4 {
		if year, err := strconv.Atoi(y[:4]); err == nil {
			tooOld = now.Year()-year > obsoleteMaxAgeYears
		}
	}
	return tooOld || h.RAMTotalGB < obsoleteMinRAMGB
}
