package cmd

import (
	"context"
	"fmt"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/storage"
	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent home feed changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPathRaw, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openExistingDB(dbPathRaw)
		if err != nil {
			return err
		}
		defer db.Close()
		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			printChange(c)
		}
		return nil
	},
}

func printChange(c storage.Change) {
	ts := c.OccurredAt.Format("2006-01-02 15:04:05")
	fmt.Printf("%s  %-7s  %-11s  %s  %s  %s\n", ts, c.ChangeType, c.Source, utils.Truncate(c.Section, 30), c.PackageName, c.VersionName)
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lounge/lounge.sqlite)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
