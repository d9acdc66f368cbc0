package domain

// EquipmentStatus daily health status of a machine
type EquipmentStatus string

const (
	StatusOperative EquipmentStatus = "operative"
	StatusDegraded  EquipmentStatus = "degraded"
	StatusCritical  EquipmentStatus = "critical"
	StatusNoData    EquipmentStatus = "no-data"
)

// StatusChange day-over-day comparison
type StatusChange string

const (
	ChangeImproved StatusChange = "improved"
	ChangeSame     StatusChange = "same"
	ChangeWorsened StatusChange = "worsened"
	ChangeUnknown  StatusChange = "unknown"
)

const (
	criticalCPUTempC   = 85.0
	degradedCPUTempC   = 70.0
	degradedRAMRatio   = 0.90
	staleUpdateMaxDays = 90
	diskSmartFailed    = "failed"
)

// CalculateStatus derives the status from the hardware and security snapshots
// in effect at some instant. Either may be nil. Critical predicates are checked
// before degraded ones; the first match wins.
func CalculateStatus(hw *HardwareSnapshot, sec *SecuritySnapshot) EquipmentStatus {
	if hw == nil && sec == nil {
		return StatusNoData
	}

	if hw != nil {
		if hw.CPUTemperatureC != nil && *hw.CPUTemperatureC > criticalCPUTempC {
			return StatusCritical
		}
		if hw.DiskSmartStatus == diskSmartFailed {
			return StatusCritical
		}
	}
	if sec != nil && (!sec.AntivirusEnabled || !sec.FirewallEnabled) {
		return StatusCritical
	}

	if hw != nil {
		if hw.CPUTemperatureC != nil && *hw.CPUTemperatureC > degradedCPUTempC {
			return StatusDegraded
		}
		if hw.RAMTotalGB > 0 && hw.RAMUsedGB/hw.RAMTotalGB > degradedRAMRatio {
			return StatusDegraded
		}
	}
	if sec != nil {
		if sec.IsCriticalUpdatePending {
			return StatusDegraded
		}
		if sec.DaysSinceLastUpdate != nil && *sec.DaysSinceLastUpdate > staleUpdateMaxDays {
			return StatusDegraded
		}
	}

	return StatusOperative
}

// Rank position in operative < degraded < critical < no-data.
// Only meaningful for day-over-day comparison.
func (s EquipmentStatus) Rank() int {
	switch s {
	case StatusOperative:
		return 0
	case StatusDegraded:
		return 1
	case StatusCritical:
		return 2
	default:
		return 3
	}
}

// CompareStatus compares today's status with the previous day's.
func CompareStatus(current, previous EquipmentStatus) StatusChange {
	if previous == StatusNoData {
		return ChangeUnknown
	}
	switch {
	case current.Rank() < previous.Rank():
		return ChangeImproved
	case current.Rank() > previous.Rank():
		return ChangeWorsened
	default:
		return ChangeSame
	}
}
