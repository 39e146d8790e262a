package adb

import (
	"context"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	"adbdeck/models"
)

// Remote path used as scratch space by the screenshot sequence.
const ScreenTempPath = "/sdcard/temp_screen.png"

// Key event names accepted by "input keyevent".
const (
	KeyBack  = "KEYCODE_BACK"
	KeyHome  = "KEYCODE_HOME"
	KeySleep = "KEYCODE_SLEEP"
)

// MirrorOptions are the scrcpy display constraints.
type MirrorOptions struct {
	Title    string // empty means no --window-title
	MaxSize  int
	Rotation *int
}

// Broadcast describes an "am broadcast" invocation.
type Broadcast struct {
	Component string // -n, optional
	Action    string // -a
	Extras    []Extra
}

// Extra is one "--es key value" string extra.
type Extra struct {
	Key, Value string
}

// ADBClient builds adb/scrcpy commands and runs the discovery helpers.
// Builders validate every argument before it reaches a command line.
type ADBClient struct {
	ADBPath    string
	ScrcpyPath string
	runner     *Runner
	log        zerolog.Logger
}

// NewADBClient resolves both tools from bundleDir (or PATH).
func NewADBClient(runner *Runner, bundleDir string, log zerolog.Logger) *ADBClient {
	return &ADBClient{
		ADBPath:    Locate("adb", bundleDir),
		ScrcpyPath: Locate("scrcpy", bundleDir),
		runner:     runner,
		log:        log.With().Str("component", "adb").Logger(),
	}
}

// Runner exposes the runner the client executes through.
func (c *ADBClient) Runner() *Runner { return c.runner }

func (c *ADBClient) adb(args ...string) Command {
	return Command{Path: c.ADBPath, Args: args}
}

func (c *ADBClient) onDevice(id string, args ...string) (Command, error) {
	if err := ValidateDeviceID(id); err != nil {
		return Command{}, err
	}
	return c.adb(append([]string{"-s", id}, args...)...), nil
}

// DevicesCmd is "adb devices".
func (c *ADBClient) DevicesCmd() Command {
	return c.adb("devices")
}

// DumpsysPackageCmd is "dumpsys package <pkg>".
func (c *ADBClient) DumpsysPackageCmd(id, pkg string) (Command, error) {
	if err := ValidatePackage(pkg); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "shell", "dumpsys", "package", pkg)
}

// PMDumpCmd is "pm dump <pkg>".
func (c *ADBClient) PMDumpCmd(id, pkg string) (Command, error) {
	if err := ValidatePackage(pkg); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "shell", "pm", "dump", pkg)
}

// ListPackagesCmd is "pm list packages".
func (c *ADBClient) ListPackagesCmd(id string) (Command, error) {
	return c.onDevice(id, "shell", "pm", "list", "packages")
}

// KeyEventCmd injects a key event.
func (c *ADBClient) KeyEventCmd(id, key string) (Command, error) {
	return c.onDevice(id, "shell", "input", "keyevent", key)
}

// BatteryCmd is "dumpsys battery".
func (c *ADBClient) BatteryCmd(id string) (Command, error) {
	return c.onDevice(id, "shell", "dumpsys", "battery")
}

// FocusCmd dumps the focused window lines. The pipe runs on the device.
func (c *ADBClient) FocusCmd(id string) (Command, error) {
	return c.onDevice(id, "shell", "dumpsys window windows | grep -E 'mCurrentFocus|mFocusedApp'")
}

// ShellCmd opens an interactive device shell.
func (c *ADBClient) ShellCmd(id string) (Command, error) {
	return c.onDevice(id, "shell")
}

// LogcatCmd streams the log, optionally silencing every tag but one.
func (c *ADBClient) LogcatCmd(id, tag string) (Command, error) {
	if tag == "" {
		return c.onDevice(id, "logcat")
	}
	if err := ValidateTag(tag); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "logcat", tag+":*", "*:s")
}

// LogcatDumpCmd dumps the log buffer and exits.
func (c *ADBClient) LogcatDumpCmd(id string) (Command, error) {
	return c.onDevice(id, "logcat", "-d")
}

// InstallCmd installs a local APK.
func (c *ADBClient) InstallCmd(id, apk string) (Command, error) {
	if err := ValidatePath(apk); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "install", apk)
}

// BroadcastCmd renders an "am broadcast". Extra values are quoted for the
// device shell.
func (c *ADBClient) BroadcastCmd(id string, b Broadcast) (Command, error) {
	args := []string{"shell", "am", "broadcast"}
	if b.Component != "" {
		if err := ValidateComponent(b.Component); err != nil {
			return Command{}, err
		}
		args = append(args, "-n", b.Component)
	}
	if err := ValidateIntentAction(b.Action); err != nil {
		return Command{}, err
	}
	args = append(args, "-a", b.Action)
	for _, e := range b.Extras {
		if err := ValidateIntentAction(e.Key); err != nil {
			return Command{}, err
		}
		args = append(args, "--es", e.Key, remoteQuote(e.Value))
	}
	return c.onDevice(id, args...)
}

// ClearDebugAppCmd resets the debug-app setting.
func (c *ADBClient) ClearDebugAppCmd(id string) (Command, error) {
	return c.onDevice(id, "shell", "am", "clear-debug-app")
}

// ScreencapCmd captures the screen to a device path.
func (c *ADBClient) ScreencapCmd(id, remote string) (Command, error) {
	if err := ValidatePath(remote); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "shell", "screencap", "-p", remoteQuote(remote))
}

// PullCmd copies a device file to the host.
func (c *ADBClient) PullCmd(id, remote, local string) (Command, error) {
	if err := ValidatePath(remote); err != nil {
		return Command{}, err
	}
	if err := ValidatePath(local); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "pull", remote, local)
}

// RemoveCmd deletes a device file.
func (c *ADBClient) RemoveCmd(id, remote string) (Command, error) {
	if err := ValidatePath(remote); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "shell", "rm", remoteQuote(remote))
}

// ListDirCmd is "ls -F <dir>/".
func (c *ADBClient) ListDirCmd(id, dir string) (Command, error) {
	if err := ValidatePath(dir); err != nil {
		return Command{}, err
	}
	if dir[len(dir)-1] != '/' {
		dir += "/"
	}
	return c.onDevice(id, "shell", "ls", "-F", remoteQuote(dir))
}

// MkdirCmd is "mkdir -p <dir>".
func (c *ADBClient) MkdirCmd(id, dir string) (Command, error) {
	if err := ValidatePath(dir); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "shell", "mkdir", "-p", remoteQuote(dir))
}

// PushCmd copies a host file to the device.
func (c *ADBClient) PushCmd(id, local, remote string) (Command, error) {
	if err := ValidatePath(local); err != nil {
		return Command{}, err
	}
	if err := ValidatePath(remote); err != nil {
		return Command{}, err
	}
	return c.onDevice(id, "push", local, remote)
}

// MirrorCmd starts scrcpy for one device.
func (c *ADBClient) MirrorCmd(id string, opts MirrorOptions) (Command, error) {
	if err := ValidateDeviceID(id); err != nil {
		return Command{}, err
	}
	args := []string{"-s", id, "-S"}
	if opts.Title != "" {
		args = append(args, "--window-title", opts.Title)
	}
	args = append(args, "--disable-screensaver")
	if opts.MaxSize > 0 {
		args = append(args, "--max-size", fmt.Sprint(opts.MaxSize))
	}
	args = append(args, "--always-on-top", "-t")
	if opts.Rotation != nil {
		args = append(args, "--rotation", fmt.Sprint(*opts.Rotation))
	}
	return Command{Path: c.ScrcpyPath, Args: args}, nil
}

// Devices enumerates connected devices in the "device" state.
func (c *ADBClient) Devices(ctx context.Context) []DeviceRow {
	return ParseDevices(c.runner.Capture(ctx, c.DevicesCmd()))
}

// Packages lists installed packages with placeholder display names.
func (c *ADBClient) Packages(ctx context.Context, id string) ([]models.Package, error) {
	cmd, err := c.ListPackagesCmd(id)
	if err != nil {
		return nil, err
	}
	return ParsePackages(c.runner.Capture(ctx, cmd)), nil
}

// AppLabel looks up the real application label. ok is false when the dump
// has none.
func (c *ADBClient) AppLabel(ctx context.Context, id, pkg string) (label string, ok bool, err error) {
	cmd, err := c.PMDumpCmd(id, pkg)
	if err != nil {
		return "", false, err
	}
	label, ok = ParseAppLabel(c.runner.Capture(ctx, cmd))
	return label, ok, nil
}

// AppDetails reads the detail record of one package.
func (c *ADBClient) AppDetails(ctx context.Context, id, pkg string) (models.AppDetails, error) {
	cmd, err := c.PMDumpCmd(id, pkg)
	if err != nil {
		return models.AppDetails{}, err
	}
	return ParseAppDetails(pkg, c.runner.Capture(ctx, cmd)), nil
}

// ListDir lists a remote directory.
func (c *ADBClient) ListDir(ctx context.Context, id, dir string) ([]models.DirEntry, error) {
	cmd, err := c.ListDirCmd(id, path.Clean("/"+dir))
	if err != nil {
		return nil, err
	}
	return ParseDirListing(c.runner.Capture(ctx, cmd)), nil
}

// Mkdir creates a remote directory and its parents. Creating an existing
// directory is not an error.
func (c *ADBClient) Mkdir(ctx context.Context, id, dir string) error {
	cmd, err := c.MkdirCmd(id, dir)
	if err != nil {
		return err
	}
	c.runner.Capture(ctx, cmd)
	return nil
}

// Push copies one local file and returns adb's report. Batching is the
// caller's business.
func (c *ADBClient) Push(ctx context.Context, id, local, remote string) (string, error) {
	cmd, err := c.PushCmd(id, local, remote)
	if err != nil {
		return "", err
	}
	out, err := c.runner.CaptureErr(ctx, cmd)
	if err != nil {
		return out, fmt.Errorf("push %s: %w", local, err)
	}
	return out, nil
}
