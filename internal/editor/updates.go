package editor

import "github.com/ziadkadry99/themestudio/internal/selection"

// UpdateKind names what changed in a session.
type UpdateKind string

const (
	UpdateDocument   UpdateKind = "document"
	UpdateTranscript UpdateKind = "transcript"
	UpdateBusy       UpdateKind = "busy"
	UpdateSelection  UpdateKind = "selection"
	UpdateSaved      UpdateKind = "saved"
	UpdateSaveFailed UpdateKind = "save_failed"
)

// Update is one change pushed to session subscribers. Only the fields that
// belong to Kind are set.
type Update struct {
	Kind      UpdateKind         `json:"type"`
	Markup    string             `json:"markup,omitempty"`
	Dirty     bool               `json:"dirty,omitempty"`
	Entry     *Entry             `json:"entry,omitempty"`
	Busy      bool               `json:"busy"`
	State     string             `json:"state,omitempty"`
	Selection *selection.Context `json:"selection,omitempty"`
	Created   bool               `json:"created,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	SessionID   string             `json:"session_id"`
	ThemeID     string             `json:"theme_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	IsFork      bool               `json:"is_fork"`
	Markup      string             `json:"markup"`
	Dirty       bool               `json:"dirty"`
	Busy        bool               `json:"busy"`
	State       string             `json:"state"`
	Selection   *selection.Context `json:"selection,omitempty"`
	Transcript  []Entry            `json:"transcript"`
	Version     uint64             `json:"version"`
}
