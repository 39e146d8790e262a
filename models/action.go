package models

// Mode selects how the command runner executes an action's command.
type Mode string

const (
	ModeCapture       Mode = "capture"         // block and return merged output
	ModeCaptureToFile Mode = "capture-to-file" // block and write merged output to a host file
	ModeInteractive   Mode = "interactive"     // open a terminal, return immediately
	ModeDetached      Mode = "detached"        // start, never wait, never report
	ModeComposite     Mode = "composite"       // fan out over every connected device
)

// Action is one entry of the compiled-in action catalog.
type Action struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Title          string `json:"title"`
	Mode           Mode   `json:"mode"`
	RequiresDevice bool   `json:"requires_device"`
	RequiresParam  bool   `json:"requires_param"`
	Param          string `json:"param,omitempty"` // which ActionParams field is consulted
	Query          Query  `json:"query,omitempty"`
}

// ActionParams carries the free-form parameters an action may consume.
type ActionParams struct {
	Package  string `json:"package,omitempty"`
	Tag      string `json:"tag,omitempty"`
	APKPath  string `json:"apk_path,omitempty"`
	Intent   string `json:"intent,omitempty"`
	SavePath string `json:"save_path,omitempty"`
}

// ActionRequest is the body of POST /api/actions/:id.
type ActionRequest struct {
	DeviceID string `json:"device_id,omitempty"`
	ActionParams
}
