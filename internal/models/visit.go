package models

import "time"

// VisitState is the lifecycle position of a visit
type VisitState string

const (
	VisitPending VisitState = "pending"
	VisitActive  VisitState = "active"
	VisitClosed  VisitState = "closed"
)

// Visit is one QR token and the play session it authorizes
type Visit struct {
	ID        int64      `json:"id"`
	ChildID   int64      `json:"child_id"`
	Token     string     `json:"token"`
	IsActive  bool       `json:"is_active"`
	IsFree    bool       `json:"is_free"`
	EntryTime *time.Time `json:"entry_time,omitempty"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// State reports where the visit is in the pending -> active -> closed lifecycle
func (v *Visit) State() VisitState {
	switch {
	case v.ExitTime != nil:
		return VisitClosed
	case v.EntryTime != nil:
		return VisitActive
	default:
		return VisitPending
	}
}

// IsExpired reports whether a pending token can no longer be used to enter.
// Entered visits never expire through the token; they are closed by checkout or cleanup.
func (v *Visit) IsExpired(now time.Time) bool {
	return v.State() == VisitPending && !now.Before(v.ExpiresAt)
}

// Duration is the time spent inside so far, or in total once the visit is closed
func (v *Visit) Duration(now time.Time) time.Duration {
	if v.EntryTime == nil {
		return 0
	}
	end := now
	if v.ExitTime != nil {
		end = *v.ExitTime
	}
	if end.Before(*v.EntryTime) {
		return 0
	}
	return end.Sub(*v.EntryTime)
}

// ScanAction tells the scanner what a token can be used for right now
type ScanAction string

const (
	ActionCheckIn  ScanAction = "check_in"
	ActionCheckOut ScanAction = "check_out"
	ActionNone     ScanAction = "none"
)

// NextAction maps the visit state to the scanner action
func (v *Visit) NextAction() ScanAction {
	switch v.State() {
	case VisitPending:
		return ActionCheckIn
	case VisitActive:
		return ActionCheckOut
	default:
		return ActionNone
	}
}

// VisitWithChild joins a visit with the child it belongs to
type VisitWithChild struct {
	Visit
	Child ChildProfile `json:"child"`
}
