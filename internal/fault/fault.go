// Package fault defines the normalized record type for observed runtime
// failures and the category/severity taxonomy used for classification and
// severity gating.
package fault

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceType identifies which fault surface produced a record.
type SourceType string

const (
	// SourceLog marks faults observed at the error-level logging call.
	SourceLog SourceType = "log"
	// SourceUncaughtException marks panics recovered at a host boundary.
	SourceUncaughtException SourceType = "uncaughtException"
	// SourceUnhandledRejection marks task errors that no caller consumed.
	SourceUnhandledRejection SourceType = "unhandledRejection"
	// SourceNetworkFailure marks outbound requests that failed in transport
	// or returned status >= 400.
	SourceNetworkFailure SourceType = "networkFailure"
	// SourceAgentAction marks failures thrown by registered named actions.
	SourceAgentAction SourceType = "agentAction"
)

// Category classifies the root cause of a fault.
type Category string

const (
	CategoryAgentNative      Category = "agent-native"
	CategoryAPIIntegration   Category = "api-integration"
	CategoryNetworkError     Category = "network-error"
	CategoryDataError        Category = "data-error"
	CategoryHookError        Category = "hook-error"
	CategoryComponentError   Category = "component-error"
	CategoryPerformanceError Category = "performance-error"

	// CategoryUnclassified is the low-confidence fallback assigned when
	// classification itself fails. Records are never stored without a category.
	CategoryUnclassified Category = "UNCLASSIFIED"
)

// Severity indicates how disqualifying a fault is for gating purposes.
// Higher values are more severe.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name used in artifacts and config.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityLow, fmt.Errorf("unknown severity %q (expected low, medium, high, or critical)", name)
	}
}

// MarshalJSON serializes severities as their lowercase names.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the lowercase severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML serializes severities as their lowercase names.
func (s Severity) MarshalYAML() (any, error) {
	return s.String(), nil
}

// UnmarshalYAML parses the lowercase severity name.
func (s *Severity) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is the normalized form of one observed fault. A record is created the
// instant an interceptor observes a fault and is immutable afterwards, except
// for the one-time category/severity write performed during classification.
type Record struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Source    SourceType     `json:"sourceType"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Category  Category       `json:"category"`
	Severity  Severity       `json:"severity"`
}

// Filter selects records from a session log. Zero-value fields match
// everything; set fields are combined with AND.
type Filter struct {
	Severities  []Severity
	MinSeverity *Severity
	Categories  []Category
	Sources     []SourceType
	Since       time.Time
	Until       time.Time
}

// Matches reports whether the record satisfies every set predicate.
func (f Filter) Matches(r Record) bool {
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, r.Severity) {
		return false
	}
	if f.MinSeverity != nil && r.Severity < *f.MinSeverity {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, r.Category) {
		return false
	}
	if len(f.Sources) > 0 && !containsSource(f.Sources, r.Source) {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}

func containsSeverity(list []Severity, s Severity) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, c Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsSource(list []SourceType, s SourceType) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
