package adb

import "strings"

// terminalCommand wraps c in the host's "open a new terminal" mechanism.
func terminalCommand(goos string, c Command, title string) Command {
	switch goos {
	case "windows":
		// start treats its first quoted argument as the window title, so the
		// line is handed to cmd.exe verbatim instead of through Go's quoting.
		line := `cmd /c start "` + strings.ReplaceAll(title, `"`, "") + `" cmd /k ` + c.WindowsString()
		return Command{
			Path:       "cmd",
			Args:       []string{"/c", "start", title, "cmd", "/k", c.WindowsString()},
			RawCmdLine: line,
		}
	case "darwin":
		return Command{
			Path: "osascript",
			Args: []string{"-e", appleScript(c.String())},
		}
	default:
		return Command{
			Path: "x-terminal-emulator",
			Args: []string{"-T", title, "-e", "bash", "-c", c.String() + "; exec bash"},
		}
	}
}

func appleScript(line string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(line)
	return "tell application \"Terminal\"\n" +
		"\tdo script \"" + escaped + "\"\n" +
		"\tactivate\n" +
		"end tell"
}
