package domain

import (
	"encoding/json"
	"time"
)

// DomainEvent is one append-only entry of the domain audit trail.
type DomainEvent struct {
	EventUID      string         `json:"event_uid"`
	Domain        string         `json:"domain"`
	AggregateType string         `json:"aggregate_type"`
	AggregateUID  string         `json:"aggregate_uid"`
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DomainSnapshot captures the full state of a primary aggregate after a mutation.
// Versions increase by one per aggregate.
type DomainSnapshot struct {
	SnapshotUID   string          `json:"snapshot_uid"`
	Domain        string          `json:"domain"`
	AggregateType string          `json:"aggregate_type"`
	AggregateUID  string          `json:"aggregate_uid"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EventFilter narrows ListDomainEvents. Empty fields match everything.
type EventFilter struct {
	AggregateType string
	AggregateUID  string
	Limit         int
}
