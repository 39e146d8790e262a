package models

import "strings"

// NotFound marks an app detail field the package dump did not contain.
const NotFound = "N/A"

// Package is an installed application. DisplayName starts as the last dot
// segment of Name and may later be replaced by the real application label.
type Package struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ShortName returns the last dot-separated segment of a package name.
func ShortName(pkg string) string {
	if i := strings.LastIndexByte(pkg, '.'); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

// AppDetails is the detail record extracted from a package dump.
type AppDetails struct {
	Package     string `json:"package"`
	Name        string `json:"name"`
	VersionName string `json:"version_name"`
	VersionCode string `json:"version_code"`
	InstallDate string `json:"install_date"`
	UpdateDate  string `json:"update_date"`
	DataDir     string `json:"data_dir"`
	APKPath     string `json:"apk_path"`
}

// LabelUpdate reports a real application label for a package row.
type LabelUpdate struct {
	DeviceID string `json:"device_id"`
	Package  string `json:"package"`
	Label    string `json:"label"`
}
