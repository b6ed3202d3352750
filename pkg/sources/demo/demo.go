// Package demo provides offline, deterministic catalogs. Package names overlap across
// the three sources so de-duplication and open source replacement are visible.
package demo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/applounge/lounge/pkg/fused"
)

type entry struct {
	pkg, name, author, category string
	game                        bool
	gplay, open                 bool
	restricted, paid            bool
}

var catalog = []entry{
	{pkg: "org.mozilla.firefox", name: "Firefox", author: "Mozilla", category: "internet", gplay: true, open: true},
	{pkg: "org.telegram.messenger", name: "Telegram", author: "Telegram FZ-LLC", category: "communication", gplay: true, open: true},
	{pkg: "com.whatsapp", name: "WhatsApp", author: "WhatsApp LLC", category: "communication", gplay: true},
	{pkg: "org.thoughtcrime.securesms", name: "Signal", author: "Signal Foundation", category: "communication", gplay: true, open: true},
	{pkg: "com.spotify.music", name: "Spotify", author: "Spotify AB", category: "music", gplay: true},
	{pkg: "com.example.regionlocked", name: "Region Radio", author: "Example Media", category: "music", gplay: true, restricted: true},
	{pkg: "com.example.prolauncher", name: "Pro Launcher", author: "Example Apps", category: "tools", gplay: true, paid: true},
	{pkg: "org.fdroid.fdroid", name: "F-Droid", author: "F-Droid", category: "system", open: true},
	{pkg: "net.osmand.plus", name: "OsmAnd~", author: "OsmAnd", category: "maps", gplay: true, open: true},
	{pkg: "org.videolan.vlc", name: "VLC", author: "VideoLAN", category: "music", gplay: true, open: true},
	{pkg: "com.google.android.apps.maps", name: "Google Maps", author: "Google LLC", category: "maps", gplay: true},
	{pkg: "de.danoeh.antennapod", name: "AntennaPod", author: "AntennaPod", category: "music", gplay: true, open: true},
	{pkg: "org.tuxpaint", name: "Tux Paint", author: "Tux Paint", category: "puzzle", game: true, open: true},
	{pkg: "com.king.candycrushsaga", name: "Candy Crush Saga", author: "King", category: "puzzle", game: true, gplay: true},
	{pkg: "org.shattered.pixeldungeon", name: "Shattered Pixel Dungeon", author: "Evan Debenham", category: "adventure", game: true, gplay: true, open: true},
	{pkg: "com.mojang.minecraftpe", name: "Minecraft", author: "Mojang", category: "adventure", game: true, gplay: true, paid: true},
}

var pwas = []struct{ pkg, name, url, category string }{
	{"app.squoosh", "Squoosh", "https://squoosh.app/", "tools"},
	{"app.excalidraw", "Excalidraw", "https://excalidraw.com/", "tools"},
	{"io.pinafore", "Pinafore", "https://pinafore.social/", "communication"},
	{"uk.co.bbc.weather", "BBC Weather", "https://www.bbc.co.uk/weather", "weather"},
}

var categoryTitles = map[string]string{
	"internet": "Internet", "communication": "Communication", "music": "Music & Audio",
	"tools": "Tools", "system": "System", "maps": "Maps & Navigation", "puzzle": "Puzzle",
	"adventure": "Adventure", "weather": "Weather",
}

const (
	searchPageSize   = 3
	categoryPageSize = 2
)

func (e entry) app(origin fused.Origin) fused.Application {
	app := fused.Application{
		ID:           e.pkg,
		PackageName:  e.pkg,
		Name:         e.name,
		Author:       e.author,
		Description:  e.name + " by " + e.author + ".",
		VersionCode:  int64(100 + len(e.pkg)),
		VersionName:  "1." + strconv.Itoa(len(e.name)),
		OriginalSize: int64(1_000_000 * (1 + len(e.name)%7)),
		IsFree:       !e.paid,
		Category:     e.category,
		Origin:       origin,
		Type:         fused.TypeNative,
		Restricted:   e.restricted && origin == fused.OriginGPlay,
	}
	if e.paid {
		app.Price = "4,99 €"
		app.OfferType = 1
	}
	if origin == fused.OriginGPlay {
		app.SourceLabel = fused.SourceGPlay.String()
	} else {
		app.ID = "cleanapk-" + e.pkg
		app.SourceLabel = fused.SourceOpen.String()
		app.PrivacyScore = 10 - len(e.name)%4
	}
	return app
}

func matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func categoryList(ids []string, source fused.Source, t fused.CategoryType, browse func(string) string) []fused.Category {
	sort.Strings(ids)
	out := make([]fused.Category, 0, len(ids))
	for _, id := range ids {
		c := fused.Category{ID: id, Title: categoryTitles[id], Source: source, Type: t}
		if browse != nil {
			c.BrowseURL = browse(id)
		}
		out = append(out, c)
	}
	return out
}

func uniqueCategories(entries []entry, pick func(entry) bool, t fused.CategoryType) []string {
	seen := map[string]bool{}
	var ids []string
	for _, e := range entries {
		if !pick(e) || e.game != (t == fused.CategoryGame) || seen[e.category] {
			continue
		}
		seen[e.category] = true
		ids = append(ids, e.category)
	}
	return ids
}

func notFound(what string) error {
	return fmt.Errorf("demo %s: %w", what, fused.ErrNotFound)
}
