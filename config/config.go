package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"adbdeck/registry"
)

// Config is the on-disk configuration of adbdeck.
type Config struct {
	Listen         string        `yaml:"listen"`
	ToolDir        string        `yaml:"tool_dir,omitempty"` // bundled adb/scrcpy; default exec/ next to the binary
	DataDir        string        `yaml:"data_dir"`
	LogDir         string        `yaml:"log_dir,omitempty"`
	LogLevel       string        `yaml:"log_level"`
	Locale         string        `yaml:"locale"`
	ScreenshotDir  string        `yaml:"screenshot_dir"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"` // 0 = wait forever
	LabelWorkers   int           `yaml:"label_workers"`
	WatchDevices   bool          `yaml:"watch_devices"`

	Launcher  LauncherConfig            `yaml:"launcher"`
	Installer InstallerConfig           `yaml:"installer"`
	Devices   map[string]registry.Entry `yaml:"devices,omitempty"`

	path string
}

// LauncherConfig names the fleet launcher app.
type LauncherConfig struct {
	Package string `yaml:"package"`
	// FocusReceiver receives the capture-permission focus broadcast.
	FocusReceiver string `yaml:"focus_receiver"`
	// CaptureComponent is announced as the focused component.
	CaptureComponent string `yaml:"capture_component"`
}

// InstallerConfig names the companion installer that performs deletions.
type InstallerConfig struct {
	Component    string `yaml:"component"`
	DeleteAction string `yaml:"delete_action"`
	PackageExtra string `yaml:"package_extra"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		DataDir:       "./data",
		LogLevel:      "info",
		Locale:        "en",
		ScreenshotDir: ".",
		LabelWorkers:  5,
		WatchDevices:  true,
		Launcher: LauncherConfig{
			Package:          "com.wjthinkbig.mlauncher2",
			FocusReceiver:    "com.wjthinkbig.mlauncher2/com.wjthinkbig.mlauncher2.broadcast.TopActivityRecevier",
			CaptureComponent: "com.rsupport.rs.activity.rsupport.sec",
		},
		Installer: InstallerConfig{
			Component:    "com.wjthinkbig.minstaller2m/com.wjthinkbig.minstaller2.receiver.InstallIfReceiver",
			DeleteAction: "com.wjthinkbig.minstaller2.ACT_APP_DELETE",
			PackageExtra: "APP_PACKAGE_ID",
		},
	}
}

// Candidates are the config locations tried when no path is given.
func Candidates() []string {
	var c []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		c = append(c, filepath.Join(xdg, "adbdeck", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		c = append(c, filepath.Join(home, ".config", "adbdeck", "config.yaml"))
	}
	return append(c, "config.yaml")
}

// Load reads path, or the first existing candidate when path is empty.
// With no file at all the defaults are used. Environment overrides apply
// last.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.path = path
	}
	cfg.applyEnv()

	if cfg.LabelWorkers <= 0 {
		cfg.LabelWorkers = 5
	}
	return cfg, nil
}

// Path is the file the config was loaded from, or "".
func (c *Config) Path() string { return c.path }

// DatabasePath is the sqlite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "adbdeck.db")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ADBDECK_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("ADBDECK_TOOL_DIR"); v != "" {
		c.ToolDir = v
	}
	if v := os.Getenv("ADBDECK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("ADBDECK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ADBDECK_LOCALE"); v != "" {
		c.Locale = v
	}
	if v := os.Getenv("ADBDECK_LABEL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LabelWorkers = n
		}
	}
}
