package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/sources/demo"
)

func main() {
	// Usage: go run *.go -q music -pages 2

	query := flag.String("q", "music", "Search query")
	pages := flag.Int("pages", 2, "Number of GPlay pages to load")
	flag.Parse()

	// Swap the demo backends for gplay.NewClient / cleanapk.NewClient to hit the network.
	agg, err := fused.New(fused.Config{
		PlayStore:   demo.NewPlayStore(),
		OpenSource:  demo.NewOpenSource(),
		PWA:         demo.NewPWA(),
		Preferences: fused.StaticPreferences(fused.NewSourceSet(fused.SourceGPlay, fused.SourceOpen, fused.SourcePWA)),
		Auth:        func() *fused.AuthData { return &fused.AuthData{Email: "demo@example.com", Token: "demo"} },
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	session, r := agg.Search(context.Background(), *query, func(partial fused.SearchResult) {
		fmt.Printf("... %d results so far\n", len(partial.Apps))
	})
	for i := 1; i < *pages && r.HasMore; i++ {
		r = session.LoadMore(context.Background())
	}

	for _, app := range r.Apps {
		if app.IsPlaceholder {
			fmt.Println("(more results available)")
			continue
		}
		fmt.Println(app.PackageName, app.SourceLabel, app.FilterLevel)
	}
}
