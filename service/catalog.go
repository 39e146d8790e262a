package service

import (
	"sort"

	"adbdeck/models"
)

// Action identifiers. The numbers are the ones operators already know from
// the tool's buttons and scripts.
const (
	ActionLauncherVersion   = 0
	ActionMirror            = 1
	ActionBack              = 2
	ActionHome              = 3
	ActionSleep             = 4
	ActionLogcat            = 5
	ActionBattery           = 6
	ActionShell             = 7
	ActionMirrorAll         = 8
	ActionSleepAll          = 9
	ActionDeleteApp         = 10
	ActionInstall           = 11
	ActionCapturePermission = 12
	ActionAppVersion        = 13
	ActionBroadcast         = 14
	ActionTopApp            = 15
	ActionSaveLog           = 55
	ActionClearDebugApp     = 100
	ActionScreenshot        = 200
)

// Parameter names, matching the JSON fields of models.ActionParams.
const (
	ParamPackage  = "package"
	ParamTag      = "tag"
	ParamAPKPath  = "apk_path"
	ParamIntent   = "intent"
	ParamSavePath = "save_path"
)

var catalog = []models.Action{
	{ID: ActionLauncherVersion, Name: "launcher-version", Title: "Launcher Version", Mode: models.ModeCapture, RequiresDevice: true, Query: models.QueryVersion},
	{ID: ActionMirror, Name: "mirror", Title: "Scrcpy", Mode: models.ModeInteractive, RequiresDevice: true},
	{ID: ActionBack, Name: "back", Title: "Back", Mode: models.ModeDetached, RequiresDevice: true},
	{ID: ActionHome, Name: "home", Title: "Home", Mode: models.ModeDetached, RequiresDevice: true},
	{ID: ActionSleep, Name: "sleep", Title: "Screen Off", Mode: models.ModeDetached, RequiresDevice: true},
	{ID: ActionLogcat, Name: "logcat", Title: "Logcat", Mode: models.ModeInteractive, RequiresDevice: true, Param: ParamTag},
	{ID: ActionBattery, Name: "battery", Title: "Battery Info", Mode: models.ModeCapture, RequiresDevice: true, Query: models.QueryBattery},
	{ID: ActionShell, Name: "shell", Title: "ADB Shell", Mode: models.ModeInteractive, RequiresDevice: true},
	{ID: ActionMirrorAll, Name: "mirror-all", Title: "Scrcpy (all devices)", Mode: models.ModeComposite},
	{ID: ActionSleepAll, Name: "sleep-all", Title: "Screen Off (all devices)", Mode: models.ModeComposite},
	{ID: ActionDeleteApp, Name: "delete-app", Title: "Delete App", Mode: models.ModeDetached, RequiresDevice: true, RequiresParam: true, Param: ParamPackage},
	{ID: ActionInstall, Name: "install", Title: "Install App", Mode: models.ModeInteractive, RequiresDevice: true, RequiresParam: true, Param: ParamAPKPath},
	{ID: ActionCapturePermission, Name: "capture-permission", Title: "Screen Capture Permission", Mode: models.ModeDetached, RequiresDevice: true},
	{ID: ActionAppVersion, Name: "app-version", Title: "App Version", Mode: models.ModeCapture, RequiresDevice: true, RequiresParam: true, Param: ParamPackage, Query: models.QueryVersion},
	{ID: ActionBroadcast, Name: "broadcast", Title: "Send Broadcast", Mode: models.ModeInteractive, RequiresDevice: true, RequiresParam: true, Param: ParamIntent},
	{ID: ActionTopApp, Name: "top-app", Title: "Top App", Mode: models.ModeCapture, RequiresDevice: true, Query: models.QueryFocus},
	{ID: ActionSaveLog, Name: "save-log", Title: "Save Log", Mode: models.ModeCaptureToFile, RequiresDevice: true, RequiresParam: true, Param: ParamSavePath},
	{ID: ActionClearDebugApp, Name: "clear-debug-app", Title: "Clear Debug App", Mode: models.ModeInteractive, RequiresDevice: true},
	{ID: ActionScreenshot, Name: "screenshot", Title: "Screenshot", Mode: models.ModeCapture, RequiresDevice: true},
}

var (
	byID   = make(map[int]models.Action, len(catalog))
	byName = make(map[string]models.Action, len(catalog))
)

func init() {
	for _, a := range catalog {
		byID[a.ID] = a
		byName[a.Name] = a
	}
}

// Catalog returns every action ordered by identifier.
func Catalog() []models.Action {
	out := append([]models.Action(nil), catalog...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupAction finds an action by identifier.
func LookupAction(id int) (models.Action, bool) {
	a, ok := byID[id]
	return a, ok
}

// LookupActionName finds an action by its name.
func LookupActionName(name string) (models.Action, bool) {
	a, ok := byName[name]
	return a, ok
}

// paramValue returns the parameter named by the action, if any.
func paramValue(a models.Action, p models.ActionParams) string {
	switch a.Param {
	case ParamPackage:
		return p.Package
	case ParamTag:
		if p.Tag != "" {
			return p.Tag
		}
		return p.Package
	case ParamAPKPath:
		return p.APKPath
	case ParamIntent:
		return p.Intent
	case ParamSavePath:
		return p.SavePath
	}
	return ""
}
