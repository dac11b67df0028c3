package audit

import "time"

// Action describes what was done.
type Action string

const (
	ActionThemeCreated  Action = "theme_created"
	ActionThemeDeleted  Action = "theme_deleted"
	ActionThemeImported Action = "theme_imported"
	ActionThemeUnlocked Action = "theme_unlocked"
	ActionForkCreated   Action = "fork_created"
	ActionForkUpdated   Action = "fork_updated"
	ActionExported      Action = "theme_exported"
)

// SystemActor is recorded for writes not made on behalf of a user.
const SystemActor = "system"

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Action    Action    `json:"action"`
	ThemeID   string    `json:"theme_id,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}
