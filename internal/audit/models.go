package audit

import "time"

// Action names an audited event.
type Action string

const (
	ActionDeveloperCreated Action = "developer_created"
	ActionDeveloperUpdated Action = "developer_updated"
	ActionDeveloperDeleted Action = "developer_deleted"
	ActionUserCreated      Action = "user_created"
	ActionLoginSucceeded   Action = "login_succeeded"
	ActionLoginFailed      Action = "login_failed"
	ActionLoginLocked      Action = "login_locked"
	ActionLogout           Action = "logout"
)

// Event is emitted from services to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    string
	SessionID string
	Action    Action
	Subject   string
	RequestID string
}
