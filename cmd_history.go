package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"adbdeck/service"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently run actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")

		a := newApp(cfg)
		defer a.Close()
		db, err := a.openDB()
		if err != nil {
			return err
		}
		recs, err := service.NewHistoryStore(db).Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(os.Stdout, recs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINISHED\tACTION\tDEVICE\tRESULT")
		for _, r := range recs {
			name := fmt.Sprint(r.ActionID)
			if act, ok := service.LookupAction(r.ActionID); ok {
				name = act.Name
			}
			result := r.Message
			if r.Error != "" {
				result = "error: " + r.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				time.Unix(r.FinishedAt, 0).Format("2006-01-02 15:04:05"), name, r.DeviceID, result)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of records")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}
