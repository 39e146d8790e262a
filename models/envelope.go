package models

// Query tells the output parser which dump produced an info envelope.
type Query string

const (
	QueryNone    Query = ""
	QueryVersion Query = "version"
	QueryBattery Query = "battery"
	QueryFocus   Query = "focus"
)

// EnvelopeKind distinguishes display data from status messages.
type EnvelopeKind string

const (
	KindInfo   EnvelopeKind = "info"
	KindAction EnvelopeKind = "action"
)

// Envelope is the normalized result of one dispatched action.
// Info envelopes carry raw captured text in Data; action envelopes carry a
// short status line in Message.
type Envelope struct {
	Kind    EnvelopeKind `json:"kind"`
	Message string       `json:"message,omitempty"`
	Data    string       `json:"data,omitempty"`
	Title   string       `json:"title,omitempty"`
	Query   Query        `json:"query,omitempty"`
}

// Info builds an info envelope.
func Info(title string, query Query, data string) *Envelope {
	return &Envelope{Kind: KindInfo, Title: title, Query: query, Data: data}
}

// Status builds an action envelope.
func Status(msg string) *Envelope {
	return &Envelope{Kind: KindAction, Message: msg}
}
