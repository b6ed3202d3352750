package demo

import (
	"context"
	"strings"

	"github.com/applounge/lounge/pkg/fused"
)

// Catalog is an in-memory fused.Catalog serving either the open source or the PWA set.
type Catalog struct {
	source fused.Source
	apps   []fused.Application
}

func NewOpenSource() *Catalog {
	c := &Catalog{source: fused.SourceOpen}
	for _, e := range catalog {
		if e.open {
			c.apps = append(c.apps, e.app(fused.OriginCleanAPK))
		}
	}
	return c
}

func NewPWA() *Catalog {
	c := &Catalog{source: fused.SourcePWA}
	for _, p := range pwas {
		host := strings.TrimPrefix(strings.TrimPrefix(p.url, "https://"), "www.")
		c.apps = append(c.apps, fused.Application{
			ID:          "pwa-" + p.pkg,
			PackageName: p.pkg,
			Name:        p.name,
			Author:      strings.SplitN(host, "/", 2)[0],
			URL:         p.url,
			IsFree:      true,
			Category:    p.category,
			Origin:      fused.OriginCleanAPK,
			Type:        fused.TypePWA,
			SourceLabel: fused.SourcePWA.String(),
		})
	}
	return c
}

func (c *Catalog) Home(ctx context.Context) ([]fused.Home, error) {
	n := len(c.apps)
	return []fused.Home{
		{Title: "Popular apps", Source: c.source, Apps: c.apps[:n/2+1]},
		{Title: "Discover", Source: c.source, Apps: c.apps[n/2:]},
	}, nil
}

func (c *Catalog) Search(ctx context.Context, keyword string) ([]fused.Application, error) {
	out := []fused.Application{}
	for _, app := range c.apps {
		if matches(keyword, app.Name, app.PackageName, app.Category) {
			out = append(out, app)
		}
	}
	return out, nil
}

func (c *Catalog) AppByPackage(ctx context.Context, packageName string) (fused.Application, error) {
	for _, app := range c.apps {
		if app.PackageName == packageName {
			return app, nil
		}
	}
	return fused.Application{}, notFound(c.source.String() + " package " + packageName)
}

func (c *Catalog) Categories(ctx context.Context, categoryType fused.CategoryType) ([]fused.Category, error) {
	seen := map[string]bool{}
	var ids []string
	for _, app := range c.apps {
		if seen[app.Category] || isGame(app.Category) != (categoryType == fused.CategoryGame) {
			continue
		}
		seen[app.Category] = true
		ids = append(ids, app.Category)
	}
	return categoryList(ids, c.source, categoryType, nil), nil
}

// AppsByCategory pages categoryPageSize apps at a time; pages are 1-based.
func (c *Catalog) AppsByCategory(ctx context.Context, category string, page int) (fused.AppPage, error) {
	var in []fused.Application
	for _, app := range c.apps {
		if app.Category == category {
			in = append(in, app)
		}
	}
	pages := (len(in) + categoryPageSize - 1) / categoryPageSize
	if page < 1 || page > pages {
		return fused.AppPage{Apps: []fused.Application{}, Page: page, Pages: pages}, nil
	}
	start := (page - 1) * categoryPageSize
	end := start + categoryPageSize
	if end > len(in) {
		end = len(in)
	}
	return fused.AppPage{Apps: in[start:end], Page: page, Pages: pages}, nil
}

func (c *Catalog) AppDetails(ctx context.Context, id string) (fused.Application, error) {
	for _, app := range c.apps {
		if app.ID == id {
			return app, nil
		}
	}
	return fused.Application{}, notFound(c.source.String() + " app " + id)
}

func (c *Catalog) DownloadInfo(ctx context.Context, id, version string) (fused.DownloadInfo, error) {
	app, err := c.AppDetails(ctx, id)
	if err != nil {
		return fused.DownloadInfo{}, err
	}
	if version == "" {
		version = app.VersionName
	}
	url := "https://demo.invalid/cleanapk/" + app.PackageName + "-" + version + ".apk"
	if app.Type == fused.TypePWA {
		url = app.URL
	}
	return fused.DownloadInfo{URL: url, Version: version, VersionCode: app.VersionCode}, nil
}

func isGame(category string) bool {
	return category == "puzzle" || category == "adventure"
}
