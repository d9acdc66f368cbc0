package domain

import (
	"strings"
	"time"
)

// SoftwareItem one installed application. A capture is the set of items
// sharing the same CapturedAt for an equipment.
type SoftwareItem struct {
	ID            int64      `json:"id"`
	EquipmentID   int64      `json:"equipmentId"`
	CapturedAt    time.Time  `json:"capturedAt"`
	Name          string     `json:"name"`
	Version       string     `json:"version"`
	Publisher     string     `json:"publisher"`
	InstalledAt   *time.Time `json:"installedAt"`
	LicenseStatus string     `json:"licenseStatus"` // licensed | unlicensed | trial | free | unknown
	IsWhitelisted bool       `json:"isWhitelisted"`
	IsRisk        bool       `json:"isRisk"`
}

// AuthorizedSoftware whitelist entry. Name is matched as a case-insensitive
// fragment of the installed item's name. A nil LaboratoryID applies everywhere.
type AuthorizedSoftware struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Publisher    string `json:"publisher"`
	Description  string `json:"description"`
	IsActive     bool   `json:"isActive"`
	LaboratoryID *int64 `json:"laboratoryId"`
}

var licenseStatuses = map[string]bool{
	"licensed": true, "unlicensed": true, "trial": true, "free": true, "unknown": true,
}

// NormalizeLicenseStatus falls back to "unknown" for anything unrecognised.
func NormalizeLicenseStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if licenseStatuses[s] {
		return s
	}
	return "unknown"
}

// softwareRiskAfterDays unauthorised software becomes a risk after ~4 months installed.
const softwareRiskAfterDays = 120

// IsWhitelistedBy reports whether any active whitelist entry matches name.
func IsWhitelistedBy(name string, whitelist []*AuthorizedSoftware) bool {
	nameLower := strings.ToLower(name)
	for _, entry := range whitelist {
		if entry == nil || !entry.IsActive || entry.Name == "" {
			continue
		}
		if strings.Contains(nameLower, strings.ToLower(entry.Name)) {
			return true
		}
	}
	return false
}

// ComputeRisk non-whitelisted items with no install date, or installed more
// than 120 whole days before now, are risky. Partial days are truncated.
func (s *SoftwareItem) ComputeRisk(now time.Time) bool {
	if s.IsWhitelisted {
		return false
	}
	if s.InstalledAt == nil {
		return true
	}
	wholeDays := int(now.Sub(*s.InstalledAt) / (24 * time.Hour))
	return wholeDays > softwareRiskAfterDays
}

// SoftwareCapture the latest capture group resolved for an instant.
type SoftwareCapture struct {
	CapturedAt *time.Time
	Items      []*SoftwareItem
	RiskyCount int
	TotalCount int
}
