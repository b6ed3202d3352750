package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/feedsync"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/storage"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Snapshot the home feed on a schedule and print what changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule == "" {
			schedule = viper.GetString("watch.schedule")
		}
		dbPathRaw, _ := cmd.Flags().GetString("dbpath")
		dbPath, err := utils.GetAbsDBPath(dbPathRaw)
		if err != nil {
			return err
		}

		lock, err := utils.NewDBLock(dbPath)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		run := func(ctx context.Context) {
			runSync(ctx, agg, db)
			warnInvalidAuth(agg)
		}

		if once {
			run(cmd.Context())
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := cron.New()
		if _, err := c.AddFunc(schedule, func() { run(ctx) }); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}
		utils.Log.Infof("Watching home feed (%s), database %s", schedule, dbPath)
		run(ctx)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func runSync(ctx context.Context, agg *fused.Aggregator, db *storage.DB) {
	result, err := feedsync.Sync(ctx, feedsync.Config{
		Aggregator: agg,
		DB:         db,
		Log:        utils.Log,
		OnSectionDone: func(key storage.SectionKey, changes []storage.Change, isFirstRun bool) {
			if isFirstRun {
				return
			}
			for _, c := range changes {
				printChange(c)
			}
		},
	})
	if err != nil {
		utils.Log.Errorf("Sync failed: %v", err)
		return
	}
	if result.IsFirstRun {
		utils.Log.Infof("Stored %d sections", len(result.Sections))
	}
	if !result.IsFirstRun {
		for _, c := range result.RemovedChanges {
			printChange(c)
		}
	}
	for _, e := range result.Errors {
		utils.Log.Warnf("Sync: %v", e)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("schedule", "", "Cron schedule (default from watch.schedule, e.g. \"@every 1h\")")
	watchCmd.Flags().Bool("once", false, "Sync once and exit")
	watchCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lounge/lounge.sqlite)")
}
