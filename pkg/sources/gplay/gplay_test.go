package gplay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/whttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "apps": [
    {"packageName": "com.example.maps", "displayName": "Maps", "developerName": "Example",
     "versionCode": 42, "size": 1024, "isFree": true, "rating": 4.5, "restricted": true,
     "screenshots": ["https://img/1", "https://img/2"],
     "description": "<b>Offline</b> maps<script>alert(1)</script>"},
    {"displayName": "broken entry"},
    {"packageName": "com.example.paid", "displayName": "Paid", "isFree": false, "price": "2,99 €"}
  ],
  "next": "token-2"
}`

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "user@example.com", r.Header.Get("X-Gplay-Email"))
		assert.Equal(t, "maps", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/details", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pkg") {
		case "com.revoked":
			w.WriteHeader(http.StatusUnauthorized)
		case "com.broken":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("<html><title>Maintenance</title></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/bundle", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nextPageUrl": "bundle-2", "clusters": [
			{"title": "Top", "browseUrl": "top", "apps": [{"packageName": "com.a"}]},
			{"title": "New", "nextPageUrl": "new-2", "apps": []}
		]}`))
	})
	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "game", r.URL.Query().Get("type"))
		w.Write([]byte(`{"categories": [{"title": "Puzzle", "browseUrl": "cat/puzzle"}]}`))
	})
	mux.HandleFunc("/purchase", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("vc"))
		w.Write([]byte(`{"files": [{"name": "base.apk", "url": "https://dl/base.apk", "size": 10}]}`))
	})
	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	auth := func() *fused.AuthData { return &fused.AuthData{Email: "user@example.com", Token: "secret"} }
	status := fused.StatusFunc(func(pkg string, _ int64) fused.Status {
		if pkg == "com.example.maps" {
			return fused.StatusInstalled
		}
		return fused.StatusUnavailable
	})
	return NewClient(srv.URL+"/", auth, status, whttp.NewClient(0, time.Second))
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	page, err := newTestClient(srv).Search(context.Background(), "maps", "")
	require.NoError(t, err)
	require.Len(t, page.Apps, 2, "entries without package name are skipped")
	assert.Equal(t, "token-2", page.Continuation)

	maps := page.Apps[0]
	assert.Equal(t, "com.example.maps", maps.ID)
	assert.Equal(t, int64(42), maps.VersionCode)
	assert.True(t, maps.Restricted)
	assert.Equal(t, fused.OriginGPlay, maps.Origin)
	assert.Equal(t, fused.StatusInstalled, maps.Status)
	assert.Equal(t, "GPlay", maps.SourceLabel)
	assert.Len(t, maps.ScreenshotURLs, 2)
	assert.Equal(t, "<b>Offline</b> maps", maps.Description)
	assert.Equal(t, "2,99 €", page.Apps[1].Price)
}

func TestDetailsErrors(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := newTestClient(srv)

	_, err := c.AppDetails(context.Background(), "com.missing")
	assert.True(t, errors.Is(err, fused.ErrNotFound))

	_, err = c.AppDetails(context.Background(), "com.revoked")
	assert.True(t, errors.Is(err, fused.ErrInvalidAuth))

	_, err = c.AppDetails(context.Background(), "com.broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Maintenance")
}

func TestBundleAndCategories(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := newTestClient(srv)

	bundle, err := c.Bundle(context.Background(), "cat/puzzle")
	require.NoError(t, err)
	assert.True(t, bundle.HasNext())
	require.Len(t, bundle.Clusters, 2)
	assert.Equal(t, "top", bundle.Clusters[0].BrowseURL)
	assert.False(t, bundle.Clusters[0].HasNext())
	assert.True(t, bundle.Clusters[1].HasNext())

	cats, err := c.Categories(context.Background(), fused.CategoryGame)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "cat/puzzle", cats[0].ID)
	assert.Equal(t, fused.CategoryGame, cats[0].Type)

	files, err := c.DownloadInfo(context.Background(), "com.example.maps", 42, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://dl/base.apk", files[0].URL)
}
