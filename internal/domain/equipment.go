package domain

import "time"

// Equipment lab computer registered in the external registry.
// Only LastConnection and Status are written by this service (agent sync).
type Equipment struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"` // e.g. "LAB01-PC05", configured in the agent
	Name           string          `json:"name"`
	Location       string          `json:"location"`
	LaboratoryID   int64           `json:"laboratoryId"`
	IsActive       bool            `json:"isActive"`
	LastConnection *time.Time      `json:"lastConnection"`
	Status         EquipmentStatus `json:"status"`
}

// Laboratory computer lab
type Laboratory struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Location         string `json:"location"`
	Responsible      string `json:"responsible,omitempty"`
	ResponsibleEmail string `json:"responsibleEmail,omitempty"`
	IsActive         bool   `json:"isActive"`
}

// EquipmentRef compact equipment reference embedded in views.
type EquipmentRef struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (e *Equipment) Ref() EquipmentRef {
	return EquipmentRef{ID: e.ID, Code: e.Code, Name: e.Name, Location: e.Location}
}
