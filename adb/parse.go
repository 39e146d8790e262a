package adb

import (
	"sort"
	"strings"

	"adbdeck/models"
)

// DeviceRow is one line of "adb devices" output.
type DeviceRow struct {
	Serial string
	State  string
}

// ParseDevices keeps the rows whose state column is "device". The header
// line, daemon start-up chatter and blank lines are skipped.
func ParseDevices(output string) []DeviceRow {
	var rows []DeviceRow
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" {
			continue
		}
		rows = append(rows, DeviceRow{Serial: fields[0], State: fields[1]})
	}
	return rows
}

// ParsePackages reads "package:<name>" lines. DisplayName is the last dot
// segment; the result is sorted case-insensitively by it.
func ParsePackages(output string) []models.Package {
	var pkgs []models.Package
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		name, ok := strings.CutPrefix(line, "package:")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pkgs = append(pkgs, models.Package{Name: name, DisplayName: models.ShortName(name)})
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		return strings.ToLower(pkgs[i].DisplayName) < strings.ToLower(pkgs[j].DisplayName)
	})
	return pkgs
}

// after returns the trimmed text following key on the first line containing it.
func after(lines []string, key string) (string, bool) {
	for _, line := range lines {
		if _, v, ok := strings.Cut(line, key); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func dumpLines(dump string) []string {
	lines := strings.Split(dump, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

// ParseAppLabel finds applicationLabel= in a package dump.
func ParseAppLabel(dump string) (string, bool) {
	label, ok := after(dumpLines(dump), "applicationLabel=")
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// ParseAppDetails extracts the first value of each known key from a package
// dump. Missing fields hold models.NotFound; a missing label falls back to
// the package's short name.
func ParseAppDetails(pkg, dump string) models.AppDetails {
	lines := dumpLines(dump)
	field := func(key string) string {
		if v, ok := after(lines, key); ok && v != "" {
			return v
		}
		return models.NotFound
	}

	d := models.AppDetails{
		Package:     pkg,
		Name:        field("applicationLabel="),
		VersionName: field("versionName="),
		VersionCode: field("versionCode="),
		InstallDate: field("firstInstallTime="),
		UpdateDate:  field("lastUpdateTime="),
		DataDir:     field("dataDir="),
		APKPath:     field("codePath="),
	}
	// "versionCode=310 minSdk=24 targetSdk=30"
	if f := strings.Fields(d.VersionCode); len(f) > 0 {
		d.VersionCode = f[0]
	}
	if d.Name == models.NotFound {
		d.Name = models.ShortName(pkg)
	}
	return d
}

// ParseDirListing reads "ls -F" output: a trailing '/' marks a directory,
// '@' a link, '*' an executable file. The marker is stripped. Directories
// sort first, then everything by name.
func ParseDirListing(output string) []models.DirEntry {
	var entries []models.DirEntry
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e := models.DirEntry{Name: line, Type: models.EntryFile}
		switch line[len(line)-1] {
		case '/':
			e = models.DirEntry{Name: line[:len(line)-1], Type: models.EntryDir}
		case '@':
			e = models.DirEntry{Name: line[:len(line)-1], Type: models.EntryLink}
		case '*':
			e = models.DirEntry{Name: line[:len(line)-1], Type: models.EntryFile}
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Type == models.EntryDir, entries[j].Type == models.EntryDir
		if di != dj {
			return di
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// FilterLines keeps the lines containing any of the words, like
// "findstr \"a b\"" on the host.
func FilterLines(text string, words ...string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		for _, w := range words {
			if strings.Contains(line, w) {
				kept = append(kept, strings.TrimRight(line, "\r"))
				break
			}
		}
	}
	return strings.Join(kept, "\n")
}
