package models

// HistoryRecord is one persisted job outcome.
type HistoryRecord struct {
	ID         string       `json:"id"`
	ActionID   int          `json:"action_id"`
	DeviceID   string       `json:"device_id"`
	Kind       EnvelopeKind `json:"kind,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  int64        `json:"started_at"`
	FinishedAt int64        `json:"finished_at"`
}

// JobResult is what a finished job reports back to the state owner.
type JobResult struct {
	JobID    string    `json:"job_id"`
	ActionID int       `json:"action_id"`
	DeviceID string    `json:"device_id"`
	Envelope *Envelope `json:"envelope,omitempty"`
	Parsed   string    `json:"parsed,omitempty"`
	Error    string    `json:"error,omitempty"`
}
