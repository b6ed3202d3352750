package fused

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamFixture() *fakePlayStore {
	a, b, c, d, e := gplayApp("com.a"), gplayApp("com.b"), gplayApp("com.c"), gplayApp("com.d"), gplayApp("com.e")
	return &fakePlayStore{
		bundles: map[string]StreamBundle{
			"cat": {
				Clusters: []StreamCluster{
					{Title: "Top", Apps: []Application{a, b}, NextPageURL: "top-2"},
					{Title: "New", Apps: []Application{c}},
				},
				NextPageURL: "cat-2",
			},
			"cat-2": {Clusters: []StreamCluster{{Title: "More", Apps: []Application{e}}}},
		},
		clusters: map[string]StreamCluster{
			"top-2": {Title: "Top", Apps: []Application{b, d}},
		},
	}
}

func TestStreamCursorWalk(t *testing.T) {
	ctx := context.Background()
	ps := streamFixture()
	c := NewStreamCursor(ps, "cat")
	require.True(t, c.HasMore())

	steps := []struct {
		want    []string
		hasMore bool
	}{
		{[]string{"com.a", "com.b"}, true},                             // first bundle, first cluster
		{[]string{"com.a", "com.b", "com.d"}, true},                    // cluster continuation, com.b deduplicated
		{[]string{"com.a", "com.b", "com.d", "com.c"}, true},           // next cluster of the bundle
		{[]string{"com.a", "com.b", "com.d", "com.c", "com.e"}, false}, // next bundle
		{[]string{"com.a", "com.b", "com.d", "com.c", "com.e"}, false}, // exhausted
	}
	for i, step := range steps {
		apps, status := c.Next(ctx)
		require.True(t, status.IsOK(), "step %d: %v", i, status)
		assert.Equal(t, step.want, packages(apps), "step %d", i)
		assert.Equal(t, step.hasMore, c.HasMore(), "step %d", i)
	}

	assert.Equal(t, 2, ps.Calls("bundle"))
	assert.Equal(t, 1, ps.Calls("cluster"))

	// Terminal state issues no network call.
	apps, status := c.Next(ctx)
	assert.True(t, status.IsOK())
	assert.Len(t, apps, 5)
	assert.Equal(t, 2, ps.Calls("bundle"))
	assert.Equal(t, 1, ps.Calls("cluster"))
}

func TestStreamCursorBackfillsClusterWithoutContinuation(t *testing.T) {
	ps := &fakePlayStore{
		bundles: map[string]StreamBundle{
			"cat": {Clusters: []StreamCluster{{Title: "Top", BrowseURL: "top", Apps: []Application{gplayApp("com.a")}}}},
		},
		clusters: map[string]StreamCluster{
			"top":   {Apps: []Application{gplayApp("com.b")}, NextPageURL: "top-2"},
			"top-2": {Apps: []Application{gplayApp("com.c")}},
		},
	}
	c := NewStreamCursor(ps, "cat")

	apps, _ := c.Next(context.Background())
	assert.Equal(t, []string{"com.a", "com.b"}, packages(apps))
	assert.True(t, c.HasMore())

	apps, _ = c.Next(context.Background())
	assert.Equal(t, []string{"com.a", "com.b", "com.c"}, packages(apps))
	assert.False(t, c.HasMore())
}

func TestStreamCursorFailureKeepsPosition(t *testing.T) {
	fixture := streamFixture()
	failures := 1
	ps := &fakePlayStore{
		bundleFunc: func(ctx context.Context, url string) (StreamBundle, error) {
			if failures > 0 {
				failures--
				return StreamBundle{}, errors.New("502 bad gateway")
			}
			return fixture.bundles[url], nil
		},
	}
	c := NewStreamCursor(ps, "cat")

	apps, status := c.Next(context.Background())
	assert.Equal(t, ResultUnknown, status.Kind)
	assert.Empty(t, apps)
	assert.True(t, c.HasMore())

	apps, status = c.Next(context.Background())
	assert.True(t, status.IsOK())
	assert.Equal(t, []string{"com.a", "com.b"}, packages(apps))
}

func TestStreamCursorEmptyBrowseURL(t *testing.T) {
	ps := &fakePlayStore{}
	c := NewStreamCursor(ps, "")
	assert.False(t, c.HasMore())
	apps, status := c.Next(context.Background())
	assert.True(t, status.IsOK())
	assert.Empty(t, apps)
	assert.Zero(t, ps.Calls("bundle"))
}

func TestBrowseSessionSkipsPagesWithoutNewApps(t *testing.T) {
	open := &fakeCatalog{pages: map[int]AppPage{
		1: {Apps: []Application{openApp("org.a"), openApp("org.b")}, Page: 1, Pages: 3},
		2: {Apps: []Application{openApp("org.a"), openApp("org.b")}, Page: 2, Pages: 3},
		3: {Apps: []Application{openApp("org.c")}, Page: 3, Pages: 3},
	}}
	agg := newTestAggregator(t, Config{OpenSource: open})

	session, err := agg.Browse(Category{ID: "tools", Source: SourceOpen})
	require.NoError(t, err)

	r := session.LoadMore(context.Background())
	assert.Equal(t, []string{"org.a", "org.b"}, packages(r.Apps))
	assert.True(t, r.HasMore)

	r = session.LoadMore(context.Background())
	assert.Equal(t, []string{"org.a", "org.b", "org.c"}, packages(r.Apps))
	assert.False(t, r.HasMore)
	assert.Equal(t, 3, open.Calls("category"))

	r = session.LoadMore(context.Background())
	assert.Len(t, r.Apps, 3)
	assert.Equal(t, 3, open.Calls("category"))
}

func TestBrowseUnavailableAndDisabled(t *testing.T) {
	agg := newTestAggregator(t, Config{
		OpenSource:  &fakeCatalog{},
		Preferences: StaticPreferences(NewSourceSet(SourceGPlay)),
	})

	_, err := agg.Browse(Category{ID: "x", Source: SourcePWA})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = agg.Browse(Category{ID: "x", Source: SourceOpen})
	assert.ErrorIs(t, err, ErrSourceDisabled)
}
