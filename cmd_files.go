package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adbdeck/models"
	"adbdeck/service"
)

var lsCmd = &cobra.Command{
	Use:   "ls [remote-dir]",
	Short: "List a directory on the device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "/sdcard"
		if len(args) == 1 {
			dir = args[0]
		}
		deviceID, _ := cmd.Flags().GetString("device")
		jsonOut, _ := cmd.Flags().GetBool("json")

		a := newApp(cfg)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.resolveDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		entries, err := a.client.ListDir(ctx, id, dir)
		if err != nil {
			return err
		}
		if jsonOut {
			if entries == nil {
				entries = []models.DirEntry{}
			}
			return printJSON(os.Stdout, entries)
		}
		for _, e := range entries {
			switch e.Type {
			case models.EntryDir:
				fmt.Println(e.Name + "/")
			case models.EntryLink:
				fmt.Println(e.Name + "@")
			default:
				fmt.Println(e.Name)
			}
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <remote-dir>",
	Short: "Create a directory (and parents) on the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, _ := cmd.Flags().GetString("device")
		a := newApp(cfg)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.resolveDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		return a.client.Mkdir(ctx, id, args[0])
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <local-file>... --to <remote-dir>",
	Short: "Copy local files to the device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, _ := cmd.Flags().GetString("device")
		remote, _ := cmd.Flags().GetString("to")
		a := newApp(cfg)
		defer a.Close()
		ctx := cmd.Context()

		id, err := a.resolveDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		failed := 0
		for i, r := range service.PushFiles(ctx, a.client, id, args, remote) {
			fmt.Printf("[%d/%d] %s\n", i+1, len(args), r.LocalPath)
			if r.Output != "" {
				fmt.Println("  " + r.Output)
			}
			if r.Error != "" {
				failed++
				fmt.Fprintln(os.Stderr, "  error:", r.Error)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{lsCmd, mkdirCmd, pushCmd} {
		c.Flags().StringP("device", "s", "", "device serial (default: first connected device)")
	}
	lsCmd.Flags().Bool("json", false, "Output as JSON")
	pushCmd.Flags().String("to", "/sdcard/Download", "remote directory")
}
