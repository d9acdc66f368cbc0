package domain

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"time"
)

// AnalysisScope target of an AI analysis
type AnalysisScope string

const (
	ScopeEquipment  AnalysisScope = "equipment"
	ScopeLaboratory AnalysisScope = "laboratory"
)

// AIFinding critical finding as returned by the provider
type AIFinding struct {
	EquipmentCode  string   `json:"equipmentCode"`
	Finding        string   `json:"finding"`
	AuditTest      string   `json:"auditTest"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// AnalysisResult structured audit analysis
type AnalysisResult struct {
	ExecutiveSummary           string      `json:"executiveSummary"`
	CriticalFindings           []AIFinding `json:"criticalFindings"`
	GeneralObservations        []string    `json:"generalObservations"`
	PositiveAspects            []string    `json:"positiveAspects"`
	PrioritizedRecommendations []string    `json:"prioritizedRecommendations"`
}

// AIAuditReport persisted analysis; immutable once created.
type AIAuditReport struct {
	ID           string          `json:"id"` // UUID
	Scope        AnalysisScope   `json:"scope"`
	EquipmentID  *int64          `json:"equipmentId"`
	LaboratoryID *int64          `json:"laboratoryId"`
	AuditDate    time.Time       `json:"auditDate"`
	SentContext  json.RawMessage `json:"sentContext"` // exact bytes sent to the provider
	Analysis     AnalysisResult  `json:"analysis"`
	Provider     string          `json:"provider"`
	TokensUsed   int             `json:"tokensUsed"`
	CreatedAt    time.Time       `json:"createdAt"`
}

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ParseAnalysis turns raw provider text into a validated AnalysisResult.
// An optional ``` / ```json fence is stripped first. Every failure is a *ParseError.
func ParseAnalysis(raw string) (*AnalysisResult, error) {
	text := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	var result AnalysisResult
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&result); err != nil {
		return nil, &ParseError{Reason: "response is not a JSON object", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Reason: "unexpected content after JSON object"}
	}

	if strings.TrimSpace(result.ExecutiveSummary) == "" {
		return nil, &ParseError{Reason: "executiveSummary is missing"}
	}
	for i := range result.CriticalFindings {
		f := &result.CriticalFindings[i]
		f.EquipmentCode = strings.TrimSpace(f.EquipmentCode)
		f.Severity = Severity(strings.ToLower(strings.TrimSpace(string(f.Severity))))
		if strings.TrimSpace(f.Finding) == "" {
			return nil, &ParseError{Reason: "critical finding without text"}
		}
		if !f.Severity.Valid() {
			return nil, &ParseError{Reason: "critical finding with invalid severity " + string(f.Severity)}
		}
	}

	if result.CriticalFindings == nil {
		result.CriticalFindings = []AIFinding{}
	}
	if result.GeneralObservations == nil {
		result.GeneralObservations = []string{}
	}
	if result.PositiveAspects == nil {
		result.PositiveAspects = []string{}
	}
	if result.PrioritizedRecommendations == nil {
		result.PrioritizedRecommendations = []string{}
	}
	return &result, nil
}
