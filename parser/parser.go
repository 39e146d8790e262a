// Package parser turns raw adb dump text into short human-readable summaries.
//
// Every function here is a pure projection of text to text. A dump that
// contains nothing recognizable falls back to the trimmed raw text; nothing
// ever returns an error.
package parser

import (
	"regexp"
	"strings"

	"adbdeck/models"
)

var (
	versionNameRe = regexp.MustCompile(`versionName=(\S+)`)
	versionCodeRe = regexp.MustCompile(`versionCode=(\d+)`)
	// mCurrentFocus=Window{... u0 com.pkg/.Activity}
	focusRe = regexp.MustCompile(`u0\s+([^\s/]+)/\.?([^\s}]+)`)
)

// Parse summarizes raw according to the query that produced it.
func Parse(raw string, q models.Query, loc Locale) string {
	l := labelsFor(loc)
	if strings.TrimSpace(raw) == "" {
		return l.noInfo
	}

	var (
		out string
		ok  bool
	)
	switch q {
	case models.QueryVersion:
		out, ok = Version(raw, loc)
	case models.QueryBattery:
		out, ok = Battery(raw, loc)
	case models.QueryFocus:
		out, ok = Focus(raw, loc)
	}
	if !ok {
		return strings.TrimSpace(raw)
	}
	return out
}

// Version extracts the first versionName and versionCode.
func Version(raw string, loc Locale) (string, bool) {
	l := labelsFor(loc)
	var lines []string
	if m := versionNameRe.FindStringSubmatch(raw); m != nil {
		lines = append(lines, l.versionName+": "+m[1])
	}
	if m := versionCodeRe.FindStringSubmatch(raw); m != nil {
		lines = append(lines, l.versionCode+": "+m[1])
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// Battery reports level, AC charging state and, only when true, USB power.
func Battery(raw string, loc Locale) (string, bool) {
	l := labelsFor(loc)
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "level:"):
			lines = append(lines, l.battery+": "+fieldValue(line)+"%")
		case strings.HasPrefix(line, "AC powered:"):
			lines = append(lines, l.charging+": "+l.yesNo(fieldValue(line) == "true"))
		case strings.HasPrefix(line, "USB powered:"):
			if fieldValue(line) == "true" {
				lines = append(lines, l.usb+": "+l.yes)
			}
		}
	}
	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

// Focus extracts the package/activity pair of the focused window.
func Focus(raw string, loc Locale) (string, bool) {
	l := labelsFor(loc)
	m := focusRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return l.pkg + ": " + m[1] + "\n" + l.activity + ": " + m[2], true
}

func fieldValue(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}
