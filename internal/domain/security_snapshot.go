package domain

import (
	"encoding/json"
	"time"
)

// SecuritySnapshot one security posture reading reported by the agent.
type SecuritySnapshot struct {
	ID          int64     `json:"id"`
	EquipmentID int64     `json:"equipmentId"`
	CapturedAt  time.Time `json:"capturedAt"`

	OSName         string `json:"osName"`
	OSVersion      string `json:"osVersion"`
	OSBuild        string `json:"osBuild"`
	OSArchitecture string `json:"osArchitecture"`

	LastUpdateDate          *time.Time `json:"lastUpdateDate"`
	DaysSinceLastUpdate     *int       `json:"daysSinceLastUpdate"`
	PendingUpdatesCount     int        `json:"pendingUpdatesCount"`
	IsCriticalUpdatePending bool       `json:"isCriticalUpdatePending"`

	AntivirusInstalled          bool       `json:"antivirusInstalled"`
	AntivirusEnabled            bool       `json:"antivirusEnabled"`
	AntivirusName               string     `json:"antivirusName"`
	AntivirusVersion            string     `json:"antivirusVersion"`
	AntivirusDefinitionsUpdated bool       `json:"antivirusDefinitionsUpdated"`
	AntivirusLastScanDate       *time.Time `json:"antivirusLastScanDate"`

	FirewallEnabled        bool `json:"firewallEnabled"`
	FirewallDomainEnabled  bool `json:"firewallDomainEnabled"`
	FirewallPrivateEnabled bool `json:"firewallPrivateEnabled"`
	FirewallPublicEnabled  bool `json:"firewallPublicEnabled"`

	PasswordMinLength         int  `json:"passwordMinLength"`
	PasswordMaxAgeDays        int  `json:"passwordMaxAgeDays"`
	PasswordMinAgeDays        int  `json:"passwordMinAgeDays"`
	PasswordComplexityEnabled bool `json:"passwordComplexityEnabled"`
	AccountLockoutThreshold   int  `json:"accountLockoutThreshold"`

	// LocalUsers raw JSON list of {username, isAdmin, isEnabled, lastLogin, passwordNeverExpires}
	LocalUsers     json.RawMessage `json:"localUsers"`
	LastLoggedUser string          `json:"lastLoggedUser"`

	UACEnabled            bool `json:"uacEnabled"`
	RDPEnabled            bool `json:"rdpEnabled"`
	RemoteRegistryEnabled bool `json:"remoteRegistryEnabled"`

	HasSecurityRisk bool `json:"hasSecurityRisk"`
}

const (
	weakPasswordMinLength = 8
)

// ComputeSecurityRisk any exposure that an auditor would report.
func (s *SecuritySnapshot) ComputeSecurityRisk() bool {
	longNoUpdate := s.DaysSinceLastUpdate != nil && *s.DaysSinceLastUpdate > staleUpdateMaxDays
	weakPassword := s.PasswordMinLength < weakPasswordMinLength || !s.PasswordComplexityEnabled

	return !s.AntivirusEnabled ||
		!s.FirewallEnabled ||
		s.IsCriticalUpdatePending ||
		longNoUpdate ||
		weakPassword ||
		s.AccountLockoutThreshold == 0 ||
		s.RDPEnabled
}
