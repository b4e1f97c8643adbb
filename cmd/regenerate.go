package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railjobs/app"
	"github.com/kilianp07/railjobs/core/model"
)

var (
	seed   int64
	ignore []string
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Reassign every idle car now, ignoring the observer distance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			ids := make([]model.CarID, len(ignore))
			for i, id := range ignore {
				ids[i] = model.CarID(id)
			}
			res, err := svc.Regenerate(cmd.Context(), seed, ids)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cycle seed %d: %d tasks, %d cars assigned, %d cars deleted\n",
				res.Seed, len(res.Tasks), len(res.Consumed), len(res.Deleted))
			for _, d := range res.Dropped {
				fmt.Fprintf(out, "  left idle at %q (%s): %v\n", d.Station, d.Reason(), model.CarIDs(d.Cars))
			}
			return nil
		})
	},
}

var regenerateConsistCmd = &cobra.Command{
	Use:   "regenerate-consist <car-id>",
	Short: "Reassign the consist of one car",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *app.Service) error {
			cars, err := svc.RegenerateConsist(cmd.Context(), model.CarID(args[0]), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %d cars: %v\n", len(cars), model.CarIDs(cars))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{regenerateCmd, regenerateConsistCmd} {
		c.Flags().Int64Var(&seed, "seed", 0, "replay a cycle with this seed")
		rootCmd.AddCommand(c)
	}
	regenerateCmd.Flags().StringSliceVar(&ignore, "ignore", nil, "skip the consists of these cars")
}
