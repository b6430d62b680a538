// Package plugin discovers and runs the external programs that react to
// tracker events, such as speaking feedback aloud or raising a notification.
package plugin

import (
	"encoding/json"
	"slices"
)

// Tracker events a plugin action can be bound to.
const (
	EventRepComplete = "rep_complete"
	EventRepInvalid  = "rep_invalid"
	EventFault       = "fault"
	EventFeedback    = "feedback"
)

// Events lists every bindable event.
func Events() []string {
	return []string{EventRepComplete, EventRepInvalid, EventFault, EventFeedback}
}

// IsEvent reports whether name is a bindable event.
func IsEvent(name string) bool {
	return slices.Contains(Events(), name)
}

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action   string `json:"action"`
	Event    string `json:"event"`
	Exercise string `json:"exercise,omitempty"`
	// MessageID is the feedback catalog ID; Text is its rendered form.
	MessageID string          `json:"message_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Severity  string          `json:"severity,omitempty"`
	Reps      int             `json:"reps"`
	Fault     string          `json:"fault,omitempty"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
