package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railjobs/app"
	"github.com/kilianp07/railjobs/core/cyclelog"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/pkg/export"
)

var listIdleCmd = &cobra.Command{
	Use:   "list-idle",
	Short: "List the cars on the idle list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CAR\tTYPE\tCONSIST\tSTATUS\tCARGO")
			for _, c := range svc.World.Snapshot() {
				status, _ := svc.Classify(c.ID)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Consist, status, c.Cargo)
			}
			return tw.Flush()
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <car-id>",
	Short: "Print the reassign status of a car",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			status, err := svc.Classify(model.CarID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

var (
	historySince   time.Duration
	historyCar     string
	historyAborted bool
	historyStation string
	historyFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the cycle log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			q := cyclelog.Query{
				CarID:       model.CarID(historyCar),
				Station:     model.StationID(historyStation),
				AbortedOnly: historyAborted,
			}
			if historySince > 0 {
				q.Start = time.Now().Add(-historySince)
			}
			recs, err := svc.History(cmd.Context(), q)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), historyFormat, recs)
		})
	},
}

func init() {
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only cycles newer than this")
	historyCmd.Flags().StringVar(&historyCar, "car", "", "only cycles touching this car")
	historyCmd.Flags().BoolVar(&historyAborted, "aborted", false, "only aborted cycles")
	historyCmd.Flags().StringVar(&historyStation, "station", "", "only cycles touching this station")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "json", "output format (json or csv)")
	rootCmd.AddCommand(listIdleCmd, classifyCmd, historyCmd)
}
