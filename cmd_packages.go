package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adbdeck/service"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		deviceID, _ := flags.GetString("device")
		labels, _ := flags.GetBool("labels")
		filter, _ := flags.GetString("filter")
		jsonOut, _ := flags.GetBool("json")

		a := newApp(cfg)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.resolveDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		pkgs, err := a.client.Packages(ctx, id)
		if err != nil {
			return err
		}
		if filter != "" {
			f := strings.ToLower(filter)
			kept := pkgs[:0]
			for _, p := range pkgs {
				if strings.Contains(strings.ToLower(p.Name), f) || strings.Contains(strings.ToLower(p.DisplayName), f) {
					kept = append(kept, p)
				}
			}
			pkgs = kept
		}

		if labels && len(pkgs) > 0 {
			var cache *service.LabelCache
			if db, err := a.openDB(); err == nil {
				cache = service.NewLabelCache(db)
			}
			e := service.NewEnricher(a.client, cache, a.cfg.LabelWorkers, a.log)
			if err := e.EnrichInPlace(ctx, id, pkgs); err != nil {
				return err
			}
		}

		if jsonOut {
			return printJSON(os.Stdout, pkgs)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPACKAGE")
		for _, p := range pkgs {
			fmt.Fprintf(w, "%s\t%s\n", p.DisplayName, p.Name)
		}
		fmt.Fprintf(w, "\n%d packages\n", len(pkgs))
		return w.Flush()
	},
}

var appCmd = &cobra.Command{
	Use:   "app <package>",
	Short: "Show the details of one installed package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, _ := cmd.Flags().GetString("device")
		jsonOut, _ := cmd.Flags().GetBool("json")

		a := newApp(cfg)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.resolveDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		d, err := a.client.AppDetails(ctx, id, args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(os.Stdout, d)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Name\t%s\n", d.Name)
		fmt.Fprintf(w, "Package\t%s\n", d.Package)
		fmt.Fprintf(w, "Version\t%s (%s)\n", d.VersionName, d.VersionCode)
		fmt.Fprintf(w, "Installed\t%s\n", d.InstallDate)
		fmt.Fprintf(w, "Updated\t%s\n", d.UpdateDate)
		fmt.Fprintf(w, "Data dir\t%s\n", d.DataDir)
		fmt.Fprintf(w, "APK\t%s\n", d.APKPath)
		return w.Flush()
	},
}

func init() {
	packagesCmd.Flags().StringP("device", "s", "", "device serial (default: first connected device)")
	packagesCmd.Flags().Bool("labels", false, "look up real application labels")
	packagesCmd.Flags().StringP("filter", "f", "", "only packages whose name contains this text")
	packagesCmd.Flags().Bool("json", false, "Output as JSON")

	appCmd.Flags().StringP("device", "s", "", "device serial (default: first connected device)")
	appCmd.Flags().Bool("json", false, "Output as JSON")
}
