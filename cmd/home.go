package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Print the fused home feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		defer warnInvalidAuth(agg)

		r := agg.Home(cmd.Context(), nil)
		reportStatus(r.Status, r.ErroredSource)
		for _, section := range r.Sections {
			fmt.Printf("\n== %s [%s] ==\n", section.Title, section.Source)
			printApps(section.Apps)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(homeCmd)
}
