package demo

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/applounge/lounge/pkg/fused"
)

// PlayStore is an in-memory fused.PlayStore.
type PlayStore struct{}

func NewPlayStore() *PlayStore { return &PlayStore{} }

func (p *PlayStore) entries(pick func(entry) bool) []fused.Application {
	var out []fused.Application
	for _, e := range catalog {
		if e.gplay && (pick == nil || pick(e)) {
			out = append(out, e.app(fused.OriginGPlay))
		}
	}
	return out
}

func (p *PlayStore) Home(ctx context.Context) ([]fused.Home, error) {
	all := p.entries(func(e entry) bool { return !e.game })
	return []fused.Home{
		{Title: "Top charts", Source: fused.SourceGPlay, Apps: all[:6]},
		{Title: "Editors' choice", Source: fused.SourceGPlay, Apps: p.entries(func(e entry) bool { return e.open })},
		{Title: "Top games", Source: fused.SourceGPlay, Apps: p.entries(func(e entry) bool { return e.game })},
	}, nil
}

// Search pages through matches searchPageSize at a time; the continuation is the offset.
func (p *PlayStore) Search(ctx context.Context, query, continuation string) (fused.SearchPage, error) {
	found := p.entries(func(e entry) bool { return matches(query, e.name, e.pkg, e.category) })
	offset := 0
	if continuation != "" {
		n, err := strconv.Atoi(continuation)
		if err != nil || n < 0 {
			return fused.SearchPage{}, errors.New("demo: bad continuation " + continuation)
		}
		offset = n
	}
	if offset >= len(found) {
		return fused.SearchPage{Apps: []fused.Application{}}, nil
	}
	end := offset + searchPageSize
	page := fused.SearchPage{}
	if end < len(found) {
		page.Continuation = strconv.Itoa(end)
	} else {
		end = len(found)
	}
	page.Apps = found[offset:end]
	return page, nil
}

func (p *PlayStore) AppDetails(ctx context.Context, packageName string) (fused.Application, error) {
	for _, e := range catalog {
		if e.gplay && e.pkg == packageName {
			app := e.app(fused.OriginGPlay)
			if e.restricted {
				// listed, but no build is served in this region
				app.OriginalSize = 0
			}
			return app, nil
		}
	}
	return fused.Application{}, notFound("gplay app " + packageName)
}

func (p *PlayStore) DownloadInfo(ctx context.Context, packageName string, versionCode int64, offerType int) ([]fused.DownloadFile, error) {
	app, err := p.AppDetails(ctx, packageName)
	if err != nil {
		return nil, err
	}
	if !app.IsFree {
		return nil, errors.New("demo: purchase required for " + packageName)
	}
	return []fused.DownloadFile{{
		Name: packageName + ".apk",
		URL:  "https://demo.invalid/gplay/" + packageName + "/" + strconv.FormatInt(versionCode, 10) + ".apk",
		Size: app.OriginalSize,
	}}, nil
}

func (p *PlayStore) Categories(ctx context.Context, categoryType fused.CategoryType) ([]fused.Category, error) {
	ids := uniqueCategories(catalog, func(e entry) bool { return e.gplay }, categoryType)
	return categoryList(ids, fused.SourceGPlay, categoryType, func(id string) string { return "bundle/" + id }), nil
}

func (p *PlayStore) inCategory(id string) []fused.Application {
	return p.entries(func(e entry) bool { return e.category == id })
}

// Bundle serves two bundles per category. The first has a cluster with a continuation
// and one that must be fetched through its browse URL; the second repeats everything.
func (p *PlayStore) Bundle(ctx context.Context, url string) (fused.StreamBundle, error) {
	parts := strings.Split(url, "/")
	if len(parts) < 2 || parts[0] != "bundle" {
		return fused.StreamBundle{}, notFound("bundle " + url)
	}
	apps := p.inCategory(parts[1])
	if len(apps) == 0 {
		return fused.StreamBundle{}, notFound("bundle " + url)
	}
	if len(parts) == 3 && parts[2] == "more" {
		return fused.StreamBundle{Clusters: []fused.StreamCluster{{Title: "More", Apps: apps}}}, nil
	}

	top := fused.StreamCluster{Title: "Top", Apps: apps[:1]}
	if len(apps) > 1 {
		top.NextPageURL = clusterURL(parts[1], 1)
	}
	return fused.StreamBundle{
		Clusters: []fused.StreamCluster{
			top,
			{Title: "Recommended", BrowseURL: clusterURL(parts[1], 0), Apps: apps[:1]},
		},
		NextPageURL: "bundle/" + parts[1] + "/more",
	}, nil
}

// Cluster serves cluster/<category>/<n>: the n-th app with a link to the next.
func (p *PlayStore) Cluster(ctx context.Context, url string) (fused.StreamCluster, error) {
	parts := strings.Split(url, "/")
	if len(parts) != 3 || parts[0] != "cluster" {
		return fused.StreamCluster{}, notFound("cluster " + url)
	}
	n, err := strconv.Atoi(parts[2])
	apps := p.inCategory(parts[1])
	if err != nil || n < 0 || n >= len(apps) {
		return fused.StreamCluster{}, notFound("cluster " + url)
	}
	c := fused.StreamCluster{Title: categoryTitles[parts[1]], Apps: apps[n : n+1]}
	if n+1 < len(apps) {
		c.NextPageURL = clusterURL(parts[1], n+1)
	}
	return c, nil
}

func clusterURL(category string, n int) string {
	return "cluster/" + category + "/" + strconv.Itoa(n)
}
