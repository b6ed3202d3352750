package cmd

import (
	"github.com/applounge/lounge/internal/server"
	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fused catalog over a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")
		dbPathRaw, _ := cmd.Flags().GetString("dbpath")

		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}

		dbPath, err := utils.GetAbsDBPath(dbPathRaw)
		if err != nil {
			return err
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		go func() {
			for src := range agg.InvalidAuth() {
				utils.Log.Warnf("%s rejected the configured credentials", src)
			}
		}()

		s := server.New(agg, db, viper.GetString("server.username"), viper.GetString("server.password"), sessionTTL)
		return s.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("session-ttl", server.DefaultSessionTTL, "Idle time after which search and browse sessions expire")
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lounge/lounge.sqlite)")
}
