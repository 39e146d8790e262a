package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/config"
	"adbdeck/models"
	"adbdeck/registry"
)

const (
	mirrorMaxSize = 1024

	focusChangeAction = "android.intent.action.ACTION_APPLICATION_FOCUS_CHANGE"
	screenshotLayout  = "20060102_150405"
)

// DispatchOptions are the fleet-specific names the actions target.
type DispatchOptions struct {
	Launcher      config.LauncherConfig
	Installer     config.InstallerConfig
	ScreenshotDir string
}

// OptionsFromConfig extracts the dispatcher options from cfg.
func OptionsFromConfig(cfg *config.Config) DispatchOptions {
	return DispatchOptions{
		Launcher:      cfg.Launcher,
		Installer:     cfg.Installer,
		ScreenshotDir: cfg.ScreenshotDir,
	}
}

type handler func(ctx context.Context, deviceID string, p models.ActionParams) (*models.Envelope, error)

// ActionDispatcher maps action identifiers to concrete tool invocations and
// normalizes their outcome into an envelope.
type ActionDispatcher struct {
	client   *adb.ADBClient
	registry *registry.Registry
	opts     DispatchOptions
	now      func() time.Time
	log      zerolog.Logger
	handlers map[int]handler
}

func NewActionDispatcher(client *adb.ADBClient, reg *registry.Registry, opts DispatchOptions, log zerolog.Logger) *ActionDispatcher {
	d := &ActionDispatcher{
		client:   client,
		registry: reg,
		opts:     opts,
		now:      time.Now,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
	d.handlers = map[int]handler{
		ActionLauncherVersion:   d.launcherVersion,
		ActionMirror:            d.mirror,
		ActionBack:              d.keyEvent(adb.KeyBack, "Back pressed"),
		ActionHome:              d.keyEvent(adb.KeyHome, "Home pressed"),
		ActionSleep:             d.keyEvent(adb.KeySleep, "Screen off sent"),
		ActionLogcat:            d.logcat,
		ActionSaveLog:           d.saveLog,
		ActionBattery:           d.battery,
		ActionShell:             d.shell,
		ActionMirrorAll:         d.mirrorAll,
		ActionSleepAll:          d.sleepAll,
		ActionDeleteApp:         d.deleteApp,
		ActionInstall:           d.install,
		ActionCapturePermission: d.capturePermission,
		ActionAppVersion:        d.appVersion,
		ActionBroadcast:         d.broadcast,
		ActionTopApp:            d.topApp,
		ActionClearDebugApp:     d.clearDebugApp,
		ActionScreenshot:        d.screenshot,
	}
	return d
}

// Check validates the preconditions of an action without running anything.
func (d *ActionDispatcher) Check(actionID int, deviceID string, p models.ActionParams) error {
	a, ok := LookupAction(actionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAction, actionID)
	}
	if a.RequiresDevice {
		if deviceID == "" {
			return ErrNoDevice
		}
		if err := adb.ValidateDeviceID(deviceID); err != nil {
			return err
		}
	}
	if a.RequiresParam && strings.TrimSpace(paramValue(a, p)) == "" {
		return fmt.Errorf("%w: %s requires %s", ErrMissingParam, a.Name, a.Param)
	}
	return nil
}

// Execute runs one action against deviceID. A non-nil error means the
// action was not attempted; whatever the tool did is reported through the
// envelope instead.
func (d *ActionDispatcher) Execute(ctx context.Context, actionID int, deviceID string, p models.ActionParams) (*models.Envelope, error) {
	if err := d.Check(actionID, deviceID, p); err != nil {
		return nil, err
	}
	h, ok := d.handlers[actionID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, actionID)
	}
	d.log.Debug().Int("action", actionID).Str("device", deviceID).Msg("dispatch")
	return h(ctx, deviceID, p)
}

func (d *ActionDispatcher) versionOf(ctx context.Context, deviceID, pkg, title string) (*models.Envelope, error) {
	cmd, err := d.client.DumpsysPackageCmd(deviceID, pkg)
	if err != nil {
		return nil, err
	}
	out := adb.FilterLines(d.client.Runner().Capture(ctx, cmd), "versionName", "versionCode")
	return models.Info(title, models.QueryVersion, out), nil
}

func (d *ActionDispatcher) launcherVersion(ctx context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	return d.versionOf(ctx, id, d.opts.Launcher.Package, "Launcher Version")
}

func (d *ActionDispatcher) appVersion(ctx context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	return d.versionOf(ctx, id, p.Package, "App Version")
}

func (d *ActionDispatcher) battery(ctx context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.BatteryCmd(id)
	if err != nil {
		return nil, err
	}
	return models.Info("Battery Info", models.QueryBattery, d.client.Runner().Capture(ctx, cmd)), nil
}

func (d *ActionDispatcher) topApp(ctx context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.FocusCmd(id)
	if err != nil {
		return nil, err
	}
	return models.Info("Top App", models.QueryFocus, d.client.Runner().Capture(ctx, cmd)), nil
}

func (d *ActionDispatcher) mirror(_ context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	rotation := 0
	cmd, err := d.client.MirrorCmd(id, adb.MirrorOptions{
		Title:    d.registry.Title(id),
		MaxSize:  mirrorMaxSize,
		Rotation: &rotation,
	})
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "Scrcpy")
	return models.Status("Scrcpy started"), nil
}

func (d *ActionDispatcher) keyEvent(key, msg string) handler {
	return func(_ context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
		cmd, err := d.client.KeyEventCmd(id, key)
		if err != nil {
			return nil, err
		}
		d.client.Runner().Detached(cmd)
		return models.Status(msg), nil
	}
}

func (d *ActionDispatcher) logcat(_ context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	tag := p.Tag
	if tag == "" {
		tag = p.Package
	}
	cmd, err := d.client.LogcatCmd(id, tag)
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "Logcat")
	return models.Status("Logcat opened"), nil
}

// saveLog reports success whether or not the dump worked; the runner logs
// the failure.
func (d *ActionDispatcher) saveLog(ctx context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	if err := adb.ValidatePath(p.SavePath); err != nil {
		return nil, err
	}
	cmd, err := d.client.LogcatDumpCmd(id)
	if err != nil {
		return nil, err
	}
	_ = d.client.Runner().CaptureTo(ctx, cmd, p.SavePath)
	return models.Status("Log saved: " + p.SavePath), nil
}

func (d *ActionDispatcher) shell(_ context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.ShellCmd(id)
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "ADB Shell")
	return models.Status("ADB shell opened"), nil
}

// mirrorAll opens one window per connected device, one after the other.
// Individual launch failures are only logged.
func (d *ActionDispatcher) mirrorAll(ctx context.Context, _ string, _ models.ActionParams) (*models.Envelope, error) {
	rows := d.client.Devices(ctx)
	for _, row := range rows {
		cmd, err := d.client.MirrorCmd(row.Serial, adb.MirrorOptions{MaxSize: mirrorMaxSize})
		if err != nil {
			d.log.Warn().Err(err).Str("device", row.Serial).Msg("skipping device")
			continue
		}
		d.client.Runner().Interactive(cmd, "Scrcpy "+row.Serial)
	}
	return models.Status(fmt.Sprintf("Scrcpy started on all devices (%d)", len(rows))), nil
}

func (d *ActionDispatcher) sleepAll(ctx context.Context, _ string, _ models.ActionParams) (*models.Envelope, error) {
	rows := d.client.Devices(ctx)
	for _, row := range rows {
		cmd, err := d.client.KeyEventCmd(row.Serial, adb.KeySleep)
		if err != nil {
			d.log.Warn().Err(err).Str("device", row.Serial).Msg("skipping device")
			continue
		}
		d.client.Runner().Detached(cmd)
	}
	return models.Status(fmt.Sprintf("Screen off sent to all devices (%d)", len(rows))), nil
}

// deleteApp asks the fleet installer to remove a package. The broadcast is
// fire-and-forget, so the message only claims the request was sent.
func (d *ActionDispatcher) deleteApp(_ context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	if err := adb.ValidatePackage(p.Package); err != nil {
		return nil, err
	}
	in := d.opts.Installer
	cmd, err := d.client.BroadcastCmd(id, adb.Broadcast{
		Component: in.Component,
		Action:    in.DeleteAction,
		Extras:    []adb.Extra{{Key: in.PackageExtra, Value: p.Package}},
	})
	if err != nil {
		return nil, err
	}
	d.client.Runner().Detached(cmd)
	return models.Status("App delete requested: " + p.Package), nil
}

func (d *ActionDispatcher) install(_ context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.InstallCmd(id, p.APKPath)
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "Install App")
	return models.Status("Install started"), nil
}

func (d *ActionDispatcher) capturePermission(_ context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	l := d.opts.Launcher
	cmd, err := d.client.BroadcastCmd(id, adb.Broadcast{
		Component: l.FocusReceiver,
		Action:    focusChangeAction,
		Extras: []adb.Extra{
			{Key: "application_focus_component_name", Value: l.CaptureComponent},
			{Key: "application_focus_status", Value: "gained"},
		},
	})
	if err != nil {
		return nil, err
	}
	d.client.Runner().Detached(cmd)
	return models.Status("Screen capture permission broadcast sent"), nil
}

func (d *ActionDispatcher) broadcast(_ context.Context, id string, p models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.BroadcastCmd(id, adb.Broadcast{Action: p.Intent})
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "Send Broadcast")
	return models.Status("Broadcast sent"), nil
}

func (d *ActionDispatcher) clearDebugApp(_ context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	cmd, err := d.client.ClearDebugAppCmd(id)
	if err != nil {
		return nil, err
	}
	d.client.Runner().Interactive(cmd, "Clear Debug App")
	return models.Status("Debug app cleared"), nil
}

// screenshot captures on the device, pulls the image and removes the
// scratch file. The three steps are not checked; the message names the
// intended file either way.
func (d *ActionDispatcher) screenshot(ctx context.Context, id string, _ models.ActionParams) (*models.Envelope, error) {
	name := fmt.Sprintf("screenshot_%s_%s.png", strings.ReplaceAll(id, ":", "-"), d.now().Format(screenshotLayout))
	local := filepath.Join(d.opts.ScreenshotDir, name)

	capture, err := d.client.ScreencapCmd(id, adb.ScreenTempPath)
	if err != nil {
		return nil, err
	}
	pull, err := d.client.PullCmd(id, adb.ScreenTempPath, local)
	if err != nil {
		return nil, err
	}
	remove, err := d.client.RemoveCmd(id, adb.ScreenTempPath)
	if err != nil {
		return nil, err
	}

	r := d.client.Runner()
	r.Capture(ctx, capture)
	r.Capture(ctx, pull)
	r.Capture(ctx, remove)
	return models.Status("Screenshot saved: " + local), nil
}
