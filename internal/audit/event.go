// Package audit provides the asynchronous audit trail pipeline. Entity
// mutations are published to a Redis stream and drained into the audit_log
// table by a background worker, so writes never block on audit persistence.
package audit

import (
	"errors"
	"fmt"
)

// Actions recorded in the audit trail.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is the compressed audit record format for the Redis stream.
type Event struct {
	EntityName string         `json:"en"`
	EntityID   string         `json:"eid"`
	Action     string         `json:"a"`
	ActorID    string         `json:"uid,omitempty"`
	OccurredAt int64          `json:"t"` // Unix milliseconds
	Details    map[string]any `json:"d,omitempty"`
}

// Validate checks that an event carries the minimum required fields.
func Validate(ev Event) error {
	if ev.EntityName == "" {
		return errors.New("audit event missing entity name")
	}
	if ev.EntityID == "" {
		return errors.New("audit event missing entity id")
	}
	switch ev.Action {
	case ActionCreate, ActionUpdate, ActionDelete:
	default:
		return fmt.Errorf("audit event has unknown action %q", ev.Action)
	}
	if ev.OccurredAt <= 0 {
		return errors.New("audit event missing occurrence time")
	}
	return nil
}
