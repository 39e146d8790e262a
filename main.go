package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"adbdeck/config"
	"adbdeck/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "adbdeck",
	Short: "Operator console for a fleet of Android tablets",
	Long: `adbdeck drives adb and scrcpy against connected tablets: quick actions
such as mirroring, key events, logcat and screenshots, package inspection
and file transfer. It runs one-shot from the command line or as a local
HTTP/websocket service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logCloser, err = logging.Init(logging.Config{
			Level:      cfg.LogLevel,
			Dir:        cfg.LogDir,
			MaxSizeMB:  10,
			MaxBackups: 5,
		})
		if err != nil {
			return err
		}
		if cfg.Path() != "" {
			logging.Logger.Debug().Str("path", cfg.Path()).Msg("config loaded")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/adbdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(appCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
