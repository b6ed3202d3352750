package cleanapk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fdroidApp = `{
  "_id": "5b4f1a",
  "name": "F-Droid",
  "package_name": "org.fdroid.fdroid",
  "author": "F-Droid",
  "description": "<p>The <b>F-Droid</b> client. Browse apps.</p><ul><li>Free</li><li>Open</li></ul>",
  "icon_image_path": "icons/fdroid.png",
  "other_images_path": ["shots/1.png", "https://cdn.example/2.png"],
  "latest_version_code": 1019050,
  "latest_version_number": "1.19.0",
  "exodus_score": 10,
  "perms": ["INTERNET"],
  "trackers": [],
  "category": "system",
  "ratings": {"usageQualityScore": 4.2}
}`

func newServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/apps", r.URL.Path)
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		switch q.Get("action") {
		case "search":
			if q.Get("type") == "any" {
				assert.Equal(t, "1", q.Get("exodus"))
			}
			if q.Get("by") == "package_name" && q.Get("keyword") != "org.fdroid.fdroid" {
				w.Write([]byte(`{"success": true, "apps": []}`))
				return
			}
			w.Write([]byte(`{"success": true, "apps": [` + fdroidApp + `, {"name": "no package"}]}`))
		case "list_home":
			w.Write([]byte(`{"success": true, "home": {"popular_apps": [` + fdroidApp + `], "top_updated_apps": [], "discover": [` + fdroidApp + `]}}`))
		case "list_cat":
			w.Write([]byte(`{"success": true, "apps": ["system", "internet"], "games": ["puzzle"], "translations": {"system": "System", "puzzle": "Puzzle"}}`))
		case "list_apps":
			assert.Equal(t, "2", q.Get("page"))
			w.Write([]byte(`{"success": true, "pages": 3, "apps": [` + fdroidApp + `]}`))
		case "download":
			w.Write([]byte(`{"success": true, "download_data": {"download_link": "https://dl/fdroid.apk", "version": "1.19.0"}}`))
		case "app_detail":
			w.Write([]byte(`{"success": false}`))
		case "list_pwa":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func newTestClient(srv *httptest.Server, kind Kind) *Client {
	return NewClient(kind, Options{BaseURL: srv.URL + "/v2"})
}

func TestSearchMapsApps(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	apps, err := newTestClient(srv, KindOpenSource).Search(context.Background(), "fdroid")
	require.NoError(t, err)
	require.Len(t, apps, 1)

	app := apps[0]
	assert.Equal(t, "5b4f1a", app.ID)
	assert.Equal(t, fused.OriginCleanAPK, app.Origin)
	assert.Equal(t, fused.TypeNative, app.Type)
	assert.Equal(t, "Open Source", app.SourceLabel)
	assert.Equal(t, srv.URL+"/v2/media/icons/fdroid.png", app.IconURL)
	assert.Equal(t, []string{srv.URL + "/v2/media/shots/1.png", "https://cdn.example/2.png"}, app.ScreenshotURLs)
	assert.Equal(t, "The F-Droid client. Browse apps.\nFree\nOpen", app.Description)
	assert.Equal(t, "The F-Droid client.", app.ShortDescription)
	assert.Equal(t, 10, app.PrivacyScore)
	assert.True(t, app.IsFree)
}

func TestAppByPackage(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newTestClient(srv, KindOpenSource)

	app, err := c.AppByPackage(context.Background(), "org.fdroid.fdroid")
	require.NoError(t, err)
	assert.Equal(t, "org.fdroid.fdroid", app.PackageName)

	_, err = c.AppByPackage(context.Background(), "com.unknown")
	assert.True(t, errors.Is(err, fused.ErrNotFound))
}

func TestHomeSkipsEmptySections(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	home, err := newTestClient(srv, KindPWA).Home(context.Background())
	require.NoError(t, err)
	require.Len(t, home, 2)
	assert.Equal(t, "Popular apps", home[0].Title)
	assert.Equal(t, "Discover", home[1].Title)
	assert.Equal(t, fused.SourcePWA, home[0].Source)
	assert.Equal(t, fused.TypePWA, home[0].Apps[0].Type)
}

func TestCategories(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newTestClient(srv, KindOpenSource)

	apps, err := c.Categories(context.Background(), fused.CategoryApplication)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "System", apps[0].Title)
	assert.Equal(t, "internet", apps[1].Title, "untranslated ids keep their id")

	games, err := c.Categories(context.Background(), fused.CategoryGame)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, fused.CategoryGame, games[0].Type)
}

func TestAppsByCategoryAndDownload(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := newTestClient(srv, KindOpenSource)

	page, err := c.AppsByCategory(context.Background(), "system", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Apps, 1)

	info, err := c.DownloadInfo(context.Background(), "5b4f1a", "")
	require.NoError(t, err)
	assert.Equal(t, "https://dl/fdroid.apk", info.URL)
}

func TestUnsuccessfulBody(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	_, err := newTestClient(srv, KindOpenSource).AppDetails(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not successful")
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.co.uk", registrableDomain("https://app.example.co.uk/start"))
	assert.Equal(t, "squoosh.app", registrableDomain("https://squoosh.app"))
	assert.Equal(t, "", registrableDomain("not a url"))
}
