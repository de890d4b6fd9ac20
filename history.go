package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/grblstream/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show status reports from a recording (--record)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RecordPath == "" {
			return fmt.Errorf("no recording: set --record")
		}
		db, err := history.Open(cfg.RecordPath)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		reports, err := db.Reports(historyLimit)
		if err != nil {
			return err
		}
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			keys := make([]string, 0, len(r.Fields))
			for k := range r.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(out, "%s %s", r.Timestamp.Local().Format(time.StampMilli), r.State)
			for _, k := range keys {
				fmt.Fprintf(out, " %s:%s", k, r.Fields[k])
			}
			fmt.Fprintln(out)
		}

		counts, err := db.StateCounts()
		if err != nil {
			return err
		}
		states := make([]string, 0, len(counts))
		for s := range counts {
			states = append(states, s)
		}
		sort.Strings(states)
		for _, s := range states {
			fmt.Fprintf(out, "%-10s %d\n", s, counts[s])
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of reports to show")
}
