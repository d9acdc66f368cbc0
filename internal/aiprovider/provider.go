package aiprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/KeviinASD/audi-back/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"

	// maxOutputTokens cap on the completion length requested from every provider.
	maxOutputTokens = 2000
)

// Completion raw model output plus the tokens billed for the call.
type Completion struct {
	Text       string
	TokensUsed int
}

// Provider a remote language model. Call sends one system prompt and one
// user message and returns the raw text; it never retries.
type Provider interface {
	Name() string
	Call(ctx context.Context, systemPrompt, userMessage string) (*Completion, error)
}

// ProviderError transport, authentication or non-2xx failure of a provider call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s provider error (status %d, %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == domain.ErrProvider
}

// errorEnvelope {"error":{"type":..,"message":..}}, shared by both vendors.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const maxErrorBodyRunes = 512

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func readProviderError(provider string, resp *resty.Response) *ProviderError {
	pe := &ProviderError{Provider: provider, StatusCode: resp.StatusCode()}
	var env errorEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error.Message != "" {
		pe.Type = env.Error.Type
		pe.Message = env.Error.Message
		return pe
	}
	body := truncateRunes(strings.TrimSpace(string(resp.Body())), maxErrorBodyRunes)
	if body == "" {
		body = resp.Status()
	}
	pe.Message = body
	return pe
}

// Registry explicit name -> provider map with a default entry.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry normalizes defaultName; names other than openai and claude
// fall back to openai.
func NewRegistry(defaultName string, providers ...Provider) *Registry {
	name := normalizeName(defaultName)
	if name != ProviderOpenAI && name != ProviderClaude {
		name = ProviderOpenAI
	}
	r := &Registry{providers: map[string]Provider{}, defaultName: name}
	for _, p := range providers {
		r.providers[normalizeName(p.Name())] = p
	}
	return r
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve the named provider, else the default one, else openai.
// Returns nil only when none of them is registered.
func (r *Registry) Resolve(name string) Provider {
	if p, ok := r.providers[normalizeName(name)]; ok {
		return p
	}
	if p, ok := r.providers[r.defaultName]; ok {
		return p
	}
	return r.providers[ProviderOpenAI]
}

func (r *Registry) DefaultName() string {
	return r.defaultName
}

func (r *Registry) Default() Provider {
	return r.Resolve(r.defaultName)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
