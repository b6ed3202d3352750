package demo

import (
	"context"
	"testing"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregator(t *testing.T) *fused.Aggregator {
	agg, err := fused.New(fused.Config{
		PlayStore:   NewPlayStore(),
		OpenSource:  NewOpenSource(),
		PWA:         NewPWA(),
		Preferences: fused.StaticPreferences(fused.NewSourceSet(fused.SourceGPlay, fused.SourceOpen, fused.SourcePWA)),
		Auth:        func() *fused.AuthData { return &fused.AuthData{Email: "demo@example.com", Token: "demo"} },
	})
	require.NoError(t, err)
	return agg
}

func names(apps []fused.Application) []string {
	var out []string
	for _, app := range apps {
		if !app.IsPlaceholder {
			out = append(out, app.PackageName)
		}
	}
	return out
}

func TestDemoSearch(t *testing.T) {
	agg := newAggregator(t)

	session, r := agg.Search(context.Background(), "music", nil)
	assert.Equal(t, []string{"org.videolan.vlc", "de.danoeh.antennapod", "com.spotify.music", "com.example.regionlocked"}, names(r.Apps))
	assert.True(t, r.HasMore)
	assert.True(t, r.Apps[len(r.Apps)-1].IsPlaceholder)
	assert.Equal(t, fused.FilterUI, r.Apps[3].FilterLevel, "restricted app without a build")

	r = session.LoadMore(context.Background())
	assert.Len(t, r.Apps, 4)
	assert.False(t, r.HasMore)
}

func TestDemoBrowseGPlayCategory(t *testing.T) {
	agg := newAggregator(t)
	session, err := agg.Browse(fused.Category{ID: "music", BrowseURL: "bundle/music", Source: fused.SourceGPlay})
	require.NoError(t, err)

	var r fused.BrowseResult
	for i := 0; i < 20; i++ {
		r = session.LoadMore(context.Background())
		require.True(t, r.Status.IsOK(), r.Status.String())
		if !r.HasMore {
			break
		}
	}
	assert.False(t, r.HasMore)
	assert.ElementsMatch(t, []string{"com.spotify.music", "com.example.regionlocked", "org.videolan.vlc", "de.danoeh.antennapod"}, names(r.Apps))
}

func TestDemoBrowseOpenCategory(t *testing.T) {
	agg := newAggregator(t)
	session, err := agg.Browse(fused.Category{ID: "communication", Source: fused.SourceOpen})
	require.NoError(t, err)

	r := session.LoadMore(context.Background())
	assert.Equal(t, []string{"org.telegram.messenger", "org.thoughtcrime.securesms"}, names(r.Apps))
	assert.False(t, r.HasMore)
}

func TestDemoCategories(t *testing.T) {
	agg := newAggregator(t)
	r := agg.Categories(context.Background(), fused.CategoryGame)
	require.True(t, r.Status.IsOK())
	for _, c := range r.Categories {
		assert.Equal(t, fused.CategoryGame, c.Type)
	}
	assert.Len(t, r.Categories, 4, "puzzle and adventure from GPlay and Open Source")
}

func TestDemoHome(t *testing.T) {
	agg := newAggregator(t)
	r := agg.Home(context.Background(), nil)
	require.True(t, r.Status.IsOK())
	assert.Equal(t, fused.SourceGPlay, r.Sections[0].Source)
	assert.Equal(t, fused.SourcePWA, r.Sections[len(r.Sections)-1].Source)
}
