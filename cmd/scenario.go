package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railjobs/core/reassign"
	"github.com/kilianp07/railjobs/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file>...",
	Short: "Replay scenario files against fresh simulated worlds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			res, err := scenarios.Run(cmd.Context(), sc, reassign.Config{})
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			diffs := scenarios.Check(sc, res)
			if len(diffs) == 0 {
				fmt.Fprintf(out, "ok   %s (%d cycles)\n", sc.Name, len(res.Results))
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s\n", sc.Name)
			for _, d := range diffs {
				fmt.Fprintf(out, "     %s\n", d)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
