package models

import "time"

// Alert statuses
const (
	AlertActive   = "active"
	AlertResolved = "resolved"
)

// EmergencyAlert is raised by staff about a child inside the venue
type EmergencyAlert struct {
	ID         int64      `json:"id"`
	ChildID    int64      `json:"child_id"`
	ChildName  string     `json:"child_name,omitempty"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	OperatorID int64      `json:"operator_id"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
