package model

import (
	"time"

	"github.com/google/uuid"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "SYSTEM"
	ActorTypeUser   ActorType = "USER"
	ActorTypeAPI    ActorType = "API"
)

// Actor identifies who (or what) caused an audited mutation.
type Actor struct {
	Type ActorType
	ID   string
}

// Target identifies the record an audit entry describes.
type Target struct {
	Type string
	ID   uuid.UUID
}

// AuditEntry is one immutable, strictly ordered link in the
// hash-chained audit log. EntryHash is computed over PreviousHash and
// every other field except SequenceNum and EntryHash itself; the
// chain's integrity is verified by pkg/audit, which owns the hashing
// algorithm.
type AuditEntry struct {
	ID            uuid.UUID
	SequenceNum   int64
	Timestamp     time.Time
	EventType     string
	Actor         Actor
	Target        Target
	Payload       map[string]any
	PreviousHash  string
	EntryHash     string
}
