package adb

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrInvalidArg is wrapped by every validation failure of a command argument.
var ErrInvalidArg = errors.New("invalid argument")

var (
	// USB serials ("R9TR90HQ6GL", "emulator-5554"), tcp ("192.168.1.100:5555"),
	// mDNS ("adb-xxxx._adb-tls-connect._tcp.").
	deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)
	// Java-style dotted identifiers: package names and intent actions.
	dottedPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)
	// Component names, "pkg/.Receiver" or "pkg/pkg.Receiver".
	componentPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*/\.?[A-Za-z][A-Za-z0-9_.$]*$`)
	tagPattern       = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

// Command is one external tool invocation. It is executed as an argv, never
// through a host shell; String renders it for terminals and logs.
type Command struct {
	Path string
	Args []string
	// RawCmdLine, when set, replaces Go's argument quoting on Windows.
	RawCmdLine string
}

// Argv returns Path followed by Args.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the command as a POSIX shell line.
func (c Command) String() string {
	return shellquote.Join(c.Argv()...)
}

// WindowsString renders the command for cmd.exe.
func (c Command) WindowsString() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, a := range c.Argv() {
		parts = append(parts, windowsQuote(a))
	}
	return strings.Join(parts, " ")
}

// windowsQuote wraps s in double quotes when cmd.exe would split or
// interpret it. cmd.exe has no escape for '"' inside a quoted word and
// expands %VAR% even there, so arguments carrying '"' are rejected by the
// validators and a literal %NAME% in a path is expanded by the terminal.
func windowsQuote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"&|<>^()%!") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ValidateDeviceID rejects serials that could smuggle shell syntax.
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: device ID cannot be empty", ErrInvalidArg)
	}
	if len(id) > 256 {
		return fmt.Errorf("%w: device ID too long (max 256 characters)", ErrInvalidArg)
	}
	if !deviceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: device ID %q contains illegal characters", ErrInvalidArg, id)
	}
	return nil
}

// ValidatePackage accepts dotted Java identifiers such as package names.
func ValidatePackage(name string) error {
	if !dottedPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not a valid package name", ErrInvalidArg, name)
	}
	return nil
}

// ValidateIntentAction accepts dotted intent action names.
func ValidateIntentAction(action string) error {
	if !dottedPattern.MatchString(action) {
		return fmt.Errorf("%w: %q is not a valid intent action", ErrInvalidArg, action)
	}
	return nil
}

// ValidateComponent accepts "package/class" component names.
func ValidateComponent(c string) error {
	if !componentPattern.MatchString(c) {
		return fmt.Errorf("%w: %q is not a valid component name", ErrInvalidArg, c)
	}
	return nil
}

// ValidateTag accepts logcat tags.
func ValidateTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q is not a valid logcat tag", ErrInvalidArg, tag)
	}
	return nil
}

// ValidatePath rejects empty paths and paths that would break line-oriented
// tool output.
func ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidArg)
	}
	if strings.ContainsAny(p, "\x00\n\r") {
		return fmt.Errorf("%w: path %q contains control characters", ErrInvalidArg, p)
	}
	// Not a legal Windows file name character, and not quotable for cmd.exe.
	if strings.ContainsRune(p, '"') {
		return fmt.Errorf("%w: path %q contains a double quote", ErrInvalidArg, p)
	}
	return nil
}

// remoteQuote quotes a single argument for the device-side shell that
// "adb shell" hands its joined arguments to.
func remoteQuote(s string) string {
	return shellquote.Join(s)
}
