package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adbdeck/models"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices with their registry labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")
		a := newApp(cfg)
		defer a.Close()

		var devices []models.Device
		for _, row := range a.client.Devices(cmd.Context()) {
			devices = append(devices, models.Device{
				ID:     row.Serial,
				Label:  a.registry.Label(row.Serial),
				Status: row.State,
			})
		}
		if jsonOut {
			if devices == nil {
				devices = []models.Device{}
			}
			return printJSON(os.Stdout, devices)
		}
		if len(devices) == 0 {
			fmt.Println("No devices connected")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERIAL\tLABEL\tTITLE")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, a.registry.Title(d.ID))
		}
		return w.Flush()
	},
}

func init() {
	devicesCmd.Flags().Bool("json", false, "Output as JSON")
}
