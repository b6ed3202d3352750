package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/sources/cleanapk"
	"github.com/applounge/lounge/pkg/sources/demo"
	"github.com/applounge/lounge/pkg/sources/gplay"
	"github.com/applounge/lounge/pkg/whttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// viperPreferences re-reads the sources.* keys on every call, so a changed config
// file takes effect without a restart.
type viperPreferences struct{}

func (viperPreferences) EnabledSources() fused.SourceSet {
	var set fused.SourceSet
	if viper.GetBool("sources.gplay") {
		set = set.Add(fused.SourceGPlay)
	}
	if viper.GetBool("sources.opensource") {
		set = set.Add(fused.SourceOpen)
	}
	if viper.GetBool("sources.pwa") {
		set = set.Add(fused.SourcePWA)
	}
	return set
}

func gplayAuth() *fused.AuthData {
	email, token := viper.GetString("gplay.email"), viper.GetString("gplay.token")
	if email == "" || token == "" {
		return nil
	}
	return &fused.AuthData{Email: email, Token: token}
}

// buildAggregator wires the configured backends, or the demo catalogs with --demo.
func buildAggregator(cmd *cobra.Command) (*fused.Aggregator, error) {
	cfg := fused.Config{
		Preferences:       viperPreferences{},
		Auth:              gplayAuth,
		Timeout:           viper.GetDuration("fusion.timeout"),
		LookupConcurrency: viper.GetInt("fusion.lookup_concurrency"),
		Log:               utils.Log,
	}

	useDemo, _ := cmd.Flags().GetBool("demo")
	if useDemo {
		cfg.PlayStore = demo.NewPlayStore()
		cfg.OpenSource = demo.NewOpenSource()
		cfg.PWA = demo.NewPWA()
		cfg.Preferences = fused.StaticPreferences(fused.NewSourceSet(fused.SourceGPlay, fused.SourceOpen, fused.SourcePWA))
		cfg.Auth = func() *fused.AuthData { return &fused.AuthData{Email: "demo@example.com", Token: "demo"} }
		return fused.New(cfg)
	}

	proxy, _ := cmd.Flags().GetString("proxy")
	if proxy != "" {
		if err := whttp.SetupProxy(proxy); err != nil {
			return nil, err
		}
	}

	if gplayURL := viper.GetString("gplay.url"); gplayURL != "" {
		cfg.PlayStore = gplay.NewClient(gplayURL, gplayAuth, nil, whttp.GetDefaultClient())
	} else {
		utils.Log.Debug("GPlay gateway not configured (gplay.url), skipping GPlay")
	}

	opts := cleanapk.Options{
		BaseURL: viper.GetString("cleanapk.url"),
		RPS:     viper.GetFloat64("cleanapk.rps"),
		Timeout: cfg.Timeout,
	}
	cfg.OpenSource = cleanapk.NewClient(cleanapk.KindOpenSource, opts)
	cfg.PWA = cleanapk.NewClient(cleanapk.KindPWA, opts)

	return fused.New(cfg)
}

// warnInvalidAuth reports a pending credentials rejection, if any.
func warnInvalidAuth(agg *fused.Aggregator) {
	select {
	case src := <-agg.InvalidAuth():
		utils.Log.Warnf("%s rejected the configured credentials; check gplay.email and gplay.token", src)
	default:
	}
}

func reportStatus(status fused.ResultStatus, erroredSource string) {
	if !status.IsOK() {
		utils.Log.Warnf("%s: %s", erroredSource, status)
	}
}

func printApps(apps []fused.Application) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tNAME\tSOURCE\tVERSION\tFILTER\t")
	for _, app := range apps {
		if app.IsPlaceholder {
			fmt.Fprintln(w, "…\t(more results available)\t\t\t\t")
			continue
		}
		label := app.SourceLabel
		if app.IsGplayReplaced {
			label += " (replaces GPlay)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", app.PackageName, utils.Truncate(app.Name, 40), label, app.VersionName, app.FilterLevel)
	}
	w.Flush()
}

func parseSourceFlag(cmd *cobra.Command) (fused.Source, error) {
	raw, _ := cmd.Flags().GetString("source")
	if strings.TrimSpace(raw) == "" {
		return fused.SourceGPlay, fmt.Errorf("please provide a source via --source (gplay, open, pwa)")
	}
	return fused.ParseSource(raw)
}
