package cmd

import (
	"github.com/applounge/lounge/pkg/fused"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse <category-id>",
	Short: "Page through the apps of one category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := parseSourceFlag(cmd)
		if err != nil {
			return err
		}
		pages, _ := cmd.Flags().GetInt("pages")
		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		defer warnInvalidAuth(agg)

		category := fused.Category{ID: args[0], Source: src}
		if src == fused.SourceGPlay {
			// GPlay pages through stream bundles, addressed by browse URL.
			r := agg.Categories(cmd.Context(), fused.CategoryApplication)
			games := agg.Categories(cmd.Context(), fused.CategoryGame)
			for _, c := range append(r.Categories, games.Categories...) {
				if c.Source == src && c.ID == args[0] {
					category = c
					break
				}
			}
		}

		session, err := agg.Browse(category)
		if err != nil {
			return err
		}
		r := session.Current()
		for i := 0; i < pages && (i == 0 || r.HasMore); i++ {
			r = session.LoadMore(cmd.Context())
			reportStatus(r.Status, src.String())
			if !r.Status.IsOK() {
				break
			}
		}
		printApps(r.Apps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringP("source", "s", "", "Source of the category: gplay, open or pwa")
	browseCmd.Flags().Int("pages", 1, "Number of pages to load")
}
