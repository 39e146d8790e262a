// Package registry maps known tablet serials to human-readable descriptions.
package registry

import (
	"sync/atomic"

	"adbdeck/models"
)

// UnknownTitle is the mirroring window title for unregistered serials.
const UnknownTitle = "(unknown)"

// Entry describes one known device.
type Entry struct {
	Description string `yaml:"description" json:"description"`
	Title       string `yaml:"title" json:"title"` // mirroring window title
}

// Defaults is the fleet the tool ships with.
var Defaults = map[string]Entry{
	"5200b937431d4639": {Description: "T583/prod/무한9671", Title: "(T583/prod)"},
	"5200e504ba849645": {Description: "T583/stg/무한6027", Title: "(T583/stg)"},
	"R9TR90HQ6GL":      {Description: "T500/stg/무한8721", Title: "(T500/stg)"},
	"WJD06AR03662":     {Description: "MPAD1/stg", Title: "(MPAD1/stg)"},
	"WJD09ANF00170":    {Description: "MPAD2/stg", Title: "(MPAD2/stg)"},
}

// Registry is safe for concurrent use. Replace swaps the whole table.
type Registry struct {
	entries atomic.Pointer[map[string]Entry]
}

// New returns a registry holding Defaults merged with extra.
func New(extra map[string]Entry) *Registry {
	r := &Registry{}
	r.Replace(extra)
	return r
}

// Replace installs Defaults merged with extra; extra wins on conflicts.
func (r *Registry) Replace(extra map[string]Entry) {
	m := make(map[string]Entry, len(Defaults)+len(extra))
	for id, e := range Defaults {
		m[id] = e
	}
	for id, e := range extra {
		m[id] = e
	}
	r.entries.Store(&m)
}

func (r *Registry) lookup(id string) (Entry, bool) {
	e, ok := (*r.entries.Load())[id]
	return e, ok
}

// Label returns the registered description, or models.UnknownLabel.
func (r *Registry) Label(id string) string {
	if e, ok := r.lookup(id); ok && e.Description != "" {
		return e.Description
	}
	return models.UnknownLabel
}

// Title returns the short window title used when mirroring id.
func (r *Registry) Title(id string) string {
	if e, ok := r.lookup(id); ok && e.Title != "" {
		return e.Title
	}
	return UnknownTitle
}

// Len reports the number of registered serials.
func (r *Registry) Len() int {
	return len(*r.entries.Load())
}
