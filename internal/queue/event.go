// Package queue defines message payloads exchanged over the message broker.
package queue

// ShowCallCommittedEvent is published after a show-call action commits.
// It carries enough context for downstream consumers to log, notify, or
// feed analytics without querying the primary database.  Delivery is
// best-effort and happens outside the commit: the persisted state is
// authoritative whether or not the broker is reachable.
type ShowCallCommittedEvent struct {
	RunsheetID   uint64  `json:"runsheet_id"`
	RunsheetName string  `json:"runsheet_name"`
	CueID        *uint64 `json:"cue_id,omitempty"`
	CueTitle     string  `json:"cue_title,omitempty"`
	Action       string  `json:"action"`
	Status       string  `json:"status"`
	ActorID      string  `json:"actor_id"`
	ActorName    string  `json:"actor_name"`
	Notes        string  `json:"notes,omitempty"`
	CalledAt     string  `json:"called_at"`
}
