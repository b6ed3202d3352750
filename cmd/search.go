package cmd

import (
	"strings"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every enabled source",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, _ := cmd.Flags().GetInt("pages")
		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		defer warnInvalidAuth(agg)

		query := strings.Join(args, " ")
		session, r := agg.Search(cmd.Context(), query, func(partial fused.SearchResult) {
			utils.Log.Debugf("search %q: %d results so far", query, len(partial.Apps))
		})
		for i := 1; i < pages && r.HasMore; i++ {
			r = session.LoadMore(cmd.Context())
		}
		reportStatus(r.Status, r.ErroredSource)
		printApps(r.Apps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("pages", 1, "Number of GPlay result pages to load")
}
