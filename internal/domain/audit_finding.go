package domain

import "time"

// FindingStatus lifecycle state. Transitions are not restricted; only the value set is.
type FindingStatus string

const (
	FindingOpen         FindingStatus = "open"
	FindingInProgress   FindingStatus = "in-progress"
	FindingResolved     FindingStatus = "resolved"
	FindingAcceptedRisk FindingStatus = "accepted-risk"
)

func (s FindingStatus) Valid() bool {
	switch s {
	case FindingOpen, FindingInProgress, FindingResolved, FindingAcceptedRisk:
		return true
	}
	return false
}

// Severity finding severity
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Rank low=1 .. critical=4, 0 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// FindingSource who created the finding
type FindingSource string

const (
	SourceAIGenerated FindingSource = "ai-generated"
	SourceManual      FindingSource = "manual"
)

// AuditFinding audit observation with a remediation lifecycle. Never deleted.
type AuditFinding struct {
	ID             string        `json:"id"` // UUID
	EquipmentID    int64         `json:"equipmentId"`
	EquipmentCode  string        `json:"equipmentCode,omitempty"`
	LaboratoryID   int64         `json:"laboratoryId"`
	AIReportID     *string       `json:"aiReportId"`
	FindingDate    time.Time     `json:"findingDate"` // calendar date, UTC midnight
	AuditTest      string        `json:"auditTest"`   // e.g. "PS-SW-01"
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Severity       Severity      `json:"severity"`
	Recommendation string        `json:"recommendation"`
	Status         FindingStatus `json:"status"`
	Source         FindingSource `json:"source"`
	AuditorNotes   *string       `json:"auditorNotes"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// FindingTrend count of findings per (auditTest, severity)
type FindingTrend struct {
	AuditTest string   `json:"auditTest"`
	Severity  Severity `json:"severity"`
	Count     int      `json:"count"`
}

// RecurringEquipment machine with many open findings
type RecurringEquipment struct {
	EquipmentID   int64  `json:"equipmentId"`
	EquipmentCode string `json:"equipmentCode"`
	FindingCount  int    `json:"findingCount"`
}
