package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show one app; for GPlay the id is the package name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := parseSourceFlag(cmd)
		if err != nil {
			return err
		}
		withDownload, _ := cmd.Flags().GetBool("download")
		agg, err := buildAggregator(cmd)
		if err != nil {
			return err
		}
		defer warnInvalidAuth(agg)

		app, status := agg.AppDetails(cmd.Context(), src, args[0])
		if !status.IsOK() {
			return fmt.Errorf("%s %s: %s", src, args[0], status)
		}
		fmt.Printf("%s (%s)\n", app.Name, app.PackageName)
		fmt.Printf("  author:      %s\n", app.Author)
		fmt.Printf("  version:     %s (%d)\n", app.VersionName, app.VersionCode)
		fmt.Printf("  source:      %s\n", app.SourceLabel)
		fmt.Printf("  filter:      %s\n", app.FilterLevel)
		fmt.Printf("  status:      %s\n", app.Status)
		if app.Category != "" {
			fmt.Printf("  category:    %s\n", app.Category)
		}
		if len(app.Permissions) > 0 {
			fmt.Printf("  permissions: %s\n", strings.Join(app.Permissions, ", "))
		}
		if len(app.Trackers) > 0 {
			fmt.Printf("  trackers:    %s\n", strings.Join(app.Trackers, ", "))
		}
		if app.ShortDescription != "" {
			fmt.Printf("\n%s\n", app.ShortDescription)
		}

		if withDownload {
			urls, status := agg.DownloadURLs(cmd.Context(), app)
			if !status.IsOK() {
				return fmt.Errorf("download urls: %s", status)
			}
			for _, u := range urls {
				fmt.Println(u)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detailsCmd)
	detailsCmd.Flags().StringP("source", "s", "", "Source of the app: gplay, open or pwa")
	detailsCmd.Flags().Bool("download", false, "Also resolve download URLs")
}
