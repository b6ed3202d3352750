package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/applounge/lounge/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	 _
	| | ___  _   _ _ __   __ _  ___
	| |/ _ \| | | | '_ \ / _' |/ _ \
	| | (_) | |_| | | | | (_| |  __/
	|_|\___/ \__,_|_| |_|\__, |\___|
	                     |___/
`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lounge",
	Short: "Browse GPlay, open source and PWA catalogs as one.",
	Long: LOGO + `lounge fuses the Google Play gateway, the CleanAPK open source catalog and the
CleanAPK PWA catalog into one de-duplicated home feed, search and category browser.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lounge.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy for the GPlay gateway (Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().Bool("demo", false, "Use the built-in demo catalogs instead of the network")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".lounge")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("lounge")
	viper.AutomaticEnv()

	viper.SetDefault("sources.gplay", true)
	viper.SetDefault("sources.opensource", true)
	viper.SetDefault("sources.pwa", true)
	viper.SetDefault("gplay.url", "")
	viper.SetDefault("gplay.email", "")
	viper.SetDefault("gplay.token", "")
	viper.SetDefault("cleanapk.url", "")
	viper.SetDefault("cleanapk.rps", 5.0)
	viper.SetDefault("fusion.timeout", "10s")
	viper.SetDefault("fusion.lookup_concurrency", 5)
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("watch.schedule", "@every 1h")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".lounge.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
