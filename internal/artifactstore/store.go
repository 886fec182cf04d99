// Package artifactstore archives emitted report artifacts out of band. It is
// a harness-layer convenience: the capture core never touches it, and the
// capture hot path never blocks on it.
package artifactstore

import (
	"context"
	"time"
)

// Artifact is one rendered report tied to a capture session.
type Artifact struct {
	ID        int64
	SessionID string
	Scenario  string
	Format    string
	CreatedAt time.Time
	Content   []byte
	Metadata  map[string]string
}

// Store persists and retrieves report artifacts.
type Store interface {
	// Append archives a rendered artifact.
	Append(ctx context.Context, a Artifact) error

	// GetBySession retrieves all artifacts for one capture session.
	GetBySession(ctx context.Context, sessionID string) ([]Artifact, error)

	// GetRange retrieves artifacts created within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Artifact, error)

	// Sessions lists archived session IDs, most recent first.
	Sessions(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
