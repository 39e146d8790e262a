package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adbdeck/models"
	"adbdeck/service"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the available device actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return printJSON(os.Stdout, service.Catalog())
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODE\tPARAM\tTITLE")
		for _, a := range service.Catalog() {
			param := a.Param
			if a.RequiresParam {
				param += " (required)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Mode, param, a.Title)
		}
		return w.Flush()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <action>",
	Short: "Run one action against a device",
	Long: `Run one action, given by identifier or name (see "adbdeck actions").

Without --device the first connected device is used. Actions that open a
terminal or fire a key event return as soon as the process has started.

Examples:
  adbdeck run battery -s R9TR90HQ6GL
  adbdeck run app-version --package com.android.settings
  adbdeck run 55 --save-path logcat.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, ok := lookupAction(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", service.ErrUnknownAction, args[0])
		}
		flags := cmd.Flags()
		deviceID, _ := flags.GetString("device")
		jsonOut, _ := flags.GetBool("json")
		var p models.ActionParams
		p.Package, _ = flags.GetString("package")
		p.Tag, _ = flags.GetString("tag")
		p.APKPath, _ = flags.GetString("apk")
		p.Intent, _ = flags.GetString("intent")
		p.SavePath, _ = flags.GetString("save-path")

		a := newApp(cfg)
		defer a.Close()

		ctx := cmd.Context()
		if action.RequiresDevice {
			id, err := a.resolveDevice(ctx, deviceID)
			if err != nil {
				return err
			}
			deviceID = id
		}

		var history *service.HistoryStore
		if db, err := a.openDB(); err != nil {
			a.log.Warn().Err(err).Msg("history disabled")
		} else {
			history = service.NewHistoryStore(db)
		}
		jobs := service.NewJobs(a.dispatcher(), nil, history, a.locale(), a.log)
		res, err := jobs.Run(ctx, action.ID, deviceID, p)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(os.Stdout, res)
		}
		if res.Error != "" {
			return fmt.Errorf("%s failed: %s", action.Name, res.Error)
		}
		env := res.Envelope
		if env.Kind == models.KindInfo {
			fmt.Printf("[%s]\n%s\n", env.Title, res.Parsed)
			return nil
		}
		fmt.Println(env.Message)
		return nil
	},
}

func lookupAction(s string) (models.Action, bool) {
	if id, err := strconv.Atoi(s); err == nil {
		return service.LookupAction(id)
	}
	return service.LookupActionName(s)
}

func init() {
	actionsCmd.Flags().Bool("json", false, "Output as JSON")

	f := runCmd.Flags()
	f.StringP("device", "s", "", "device serial (default: first connected device)")
	f.StringP("package", "p", "", "package name")
	f.String("tag", "", "logcat tag filter")
	f.String("apk", "", "local APK to install")
	f.String("intent", "", "broadcast intent action")
	f.String("save-path", "", "local file for the saved log")
	f.Bool("json", false, "Output the full result as JSON")
}
