package adb

import (
	"os"
	"path/filepath"
	"runtime"
)

// BundleDirName is the directory next to the executable that may hold
// bundled copies of adb and scrcpy.
const BundleDirName = "exec"

// ExeName appends the platform executable suffix to a tool name.
func ExeName(tool, goos string) string {
	if goos == "windows" {
		return tool + ".exe"
	}
	return tool
}

// Locate resolves a tool, preferring bundleDir/<tool>. When the bundled copy
// is missing the bare name is returned and resolution is left to PATH at exec
// time; a missing tool only surfaces when the runner fails to start it.
func Locate(tool, bundleDir string) string {
	return locate(tool, bundleDir, runtime.GOOS)
}

func locate(tool, bundleDir, goos string) string {
	exe := ExeName(tool, goos)
	if bundleDir == "" {
		return exe
	}
	p := filepath.Join(bundleDir, exe)
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return exe
}

// DefaultBundleDir is BundleDirName next to the running executable.
func DefaultBundleDir() string {
	exe, err := os.Executable()
	if err != nil {
		return BundleDirName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), BundleDirName)
}
