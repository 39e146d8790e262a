package models

// UnknownLabel is reported for serials missing from the registry.
const UnknownLabel = "unknown"

// Device is one row of the connected-device enumeration, annotated from the
// registry. It is re-derived on every scan.
type Device struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}
