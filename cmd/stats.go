package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the stored home feed.",
	Long:  "Prints statistics about the stored home feed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPathRaw, _ := cmd.Flags().GetString("dbpath")
		db, err := openExistingDB(dbPathRaw)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "SOURCE\tSECTIONS\tAPPS\t")

		var totalSections, totalApps int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.Source, s.SectionCount, s.AppCount)
			totalSections += s.SectionCount
			totalApps += s.AppCount
		}

		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", totalSections, totalApps)

		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lounge/lounge.sqlite)")
}
