package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List app or game categories of every enabled source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawType, _ := cmd.Flags().GetString("type")
		categoryType, err := fused.ParseCategoryType(rawType)
		if err != nil {
			return err
		}
		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		defer warnInvalidAuth(agg)

		r := agg.Categories(cmd.Context(), categoryType)
		reportStatus(r.Status, r.ErroredSource)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSOURCE\t")
		for _, c := range r.Categories {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", c.ID, c.Title, c.Source)
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().StringP("type", "t", "app", "Category type: app or game")
}
