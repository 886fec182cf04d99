// Package notify publishes run outcomes to interested consumers. Publishing
// happens after artifact emission, never on the capture hot path.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// RunOutcome is the published summary of one scenario run.
type RunOutcome struct {
	Scenario    string         `json:"scenario"`
	SessionID   string         `json:"sessionId"`
	Passed      bool           `json:"passed"`
	TotalErrors int            `json:"totalErrors"`
	BySeverity  map[string]int `json:"bySeverity"`
	Violations  int            `json:"violations"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

// Publisher announces run outcomes.
type Publisher interface {
	PublishRunOutcome(outcome RunOutcome) error
	Close() error
}

// NATSPublisher publishes run outcomes to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// PublishRunOutcome publishes one run outcome as JSON.
func (p *NATSPublisher) PublishRunOutcome(outcome RunOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal run outcome: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish run outcome: %w", err)
	}
	slog.Debug("published run outcome",
		"scenario", outcome.Scenario,
		"session_id", outcome.SessionID,
		"passed", outcome.Passed)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
