package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "lounge.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func app(pkg, version string) fused.Application {
	return fused.Application{ID: "id-" + pkg, PackageName: pkg, Name: pkg, VersionName: version, SourceLabel: "GPlay"}
}

func changeTypes(changes []Change) map[string]string {
	out := make(map[string]string, len(changes))
	for _, c := range changes {
		out[c.PackageName] = c.ChangeType
	}
	return out
}

func TestUpsertSectionTracksChanges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	home := fused.Home{Title: "Top", Source: fused.SourceGPlay, Apps: []fused.Application{app("a.b", "1"), app("c.d", "1"), fused.Placeholder()}}
	changes, err := db.UpsertSection(ctx, 0, home)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.b": ChangeAdded, "c.d": ChangeAdded}, changeTypes(changes))

	changes, err = db.UpsertSection(ctx, 0, home)
	require.NoError(t, err)
	assert.Empty(t, changes, "identical snapshot")

	home.Apps = []fused.Application{app("a.b", "2"), app("e.f", "1")}
	changes, err = db.UpsertSection(ctx, 0, home)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.b": ChangeUpdated, "e.f": ChangeAdded, "c.d": ChangeRemoved}, changeTypes(changes))
}

func TestUpsertSectionRefusesWipe(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertSection(ctx, 0, fused.Home{Title: "Top", Source: fused.SourceOpen, Apps: []fused.Application{app("a.b", "1")}})
	require.NoError(t, err)

	_, err = db.UpsertSection(ctx, 0, fused.Home{Title: "Top", Source: fused.SourceOpen})
	assert.True(t, errors.Is(err, ErrAbortingFeedWipe))

	n, err := db.SectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadHomeOrdersBySourceThenPosition(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	sections := []fused.Home{
		{Title: "PWAs", Source: fused.SourcePWA, Apps: []fused.Application{app("p.one", "1")}},
		{Title: "Discover", Source: fused.SourceOpen, Apps: []fused.Application{app("o.two", "1"), app("o.one", "1")}},
		{Title: "Top", Source: fused.SourceGPlay, Apps: []fused.Application{app("g.one", "1")}},
		{Title: "Popular", Source: fused.SourceOpen, Apps: []fused.Application{app("o.three", "1")}},
	}
	for i, s := range sections {
		_, err := db.UpsertSection(ctx, i, s)
		require.NoError(t, err)
	}

	home, err := db.LoadHome(ctx)
	require.NoError(t, err)
	require.Len(t, home, 4)
	assert.Equal(t, "Top", home[0].Title)
	assert.Equal(t, "Discover", home[1].Title)
	assert.Equal(t, "Popular", home[2].Title)
	assert.Equal(t, "PWAs", home[3].Title)
	assert.Equal(t, fused.SourceOpen, home[1].Source)
	require.Len(t, home[1].Apps, 2)
	assert.Equal(t, "o.two", home[1].Apps[0].PackageName)
	assert.Equal(t, "o.one", home[1].Apps[1].PackageName)
}

func TestSyncSectionsRemovesDroppedSections(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	keep := fused.Home{Title: "Top", Source: fused.SourceGPlay, Apps: []fused.Application{app("a.b", "1")}}
	drop := fused.Home{Title: "Old", Source: fused.SourceGPlay, Apps: []fused.Application{app("x.y", "1"), app("z.w", "1")}}
	for i, s := range []fused.Home{keep, drop} {
		_, err := db.UpsertSection(ctx, i, s)
		require.NoError(t, err)
	}

	changes, err := db.SyncSections(ctx, []SectionKey{KeyOf(keep)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x.y": ChangeRemoved, "z.w": ChangeRemoved}, changeTypes(changes))
	for _, c := range changes {
		assert.Equal(t, "Old", c.Section)
	}

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, SourceStats{Source: "GPlay", SectionCount: 1, AppCount: 1}, stats[0])
}

func TestChangeLogNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.LogChanges(ctx, []Change{
		{Source: "GPlay", Section: "Top", PackageName: "a.b", ChangeType: ChangeAdded},
		{Source: "GPlay", Section: "Top", PackageName: "c.d", VersionName: "2.0", ChangeType: ChangeUpdated},
	}))
	require.NoError(t, db.LogChanges(ctx, nil))

	changes, err := db.ListRecentChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "c.d", changes[0].PackageName)
	assert.Equal(t, "2.0", changes[0].VersionName)
	assert.False(t, changes[0].OccurredAt.IsZero())
	assert.Equal(t, "a.b", changes[1].PackageName)

	changes, err = db.ListRecentChanges(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestIgnoredPackages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.IgnorePackage(ctx, "a.b"))
	require.NoError(t, db.IgnorePackage(ctx, "a.b"))
	require.NoError(t, db.IgnorePackage(ctx, "c.d"))
	require.NoError(t, db.UnignorePackage(ctx, "c.d"))

	ignored, err := db.IgnoredPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a.b": true}, ignored)
}

func TestSectionKeyString(t *testing.T) {
	k := KeyOf(fused.Home{Title: "Top", Source: fused.SourceOpen})
	assert.Equal(t, "Open Source|Top", k.String())
}
