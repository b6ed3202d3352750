// Package gplay talks to a Google-Play-compatible JSON gateway and adapts its answers
// to the fused model.
package gplay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/whttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
)

// descriptions are gateway HTML rendered as-is by clients
var sanitizer = bluemonday.UGCPolicy()

// Client implements fused.PlayStore.
type Client struct {
	baseURL string
	auth    func() *fused.AuthData
	status  fused.StatusProvider
	http    *retryablehttp.Client
}

// NewClient builds a gateway client. auth is read on every request so refreshed
// credentials are picked up; status may be nil.
func NewClient(baseURL string, auth func() *fused.AuthData, status fused.StatusProvider, httpClient *retryablehttp.Client) *Client {
	if auth == nil {
		auth = func() *fused.AuthData { return nil }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		status:  status,
		http:    httpClient,
	}
}

// get performs one gateway call and maps transport-level failures.
func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req := &whttp.Req{Method: http.MethodGet, URL: u}
	if auth := c.auth(); auth != nil {
		req.Headers = append(req.Headers,
			whttp.Header{Name: "Authorization", Value: "Bearer " + auth.Token},
			whttp.Header{Name: "X-Gplay-Email", Value: auth.Email},
		)
	}

	res, err := whttp.SendHTTPRequest(ctx, req, c.http)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("gplay %s: %w", path, err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return gjson.Result{}, fmt.Errorf("gplay %s: %w", path, fused.ErrInvalidAuth)
	case res.StatusCode == http.StatusNotFound:
		return gjson.Result{}, fmt.Errorf("gplay %s: %w", path, fused.ErrNotFound)
	case res.IsHTML():
		return gjson.Result{}, fmt.Errorf("gplay %s: backend error page %q (status %d)", path, res.HTTPTitle, res.StatusCode)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return gjson.Result{}, fmt.Errorf("gplay %s: unexpected status %d", path, res.StatusCode)
	}
	if !gjson.ValidBytes(res.Body) {
		return gjson.Result{}, fmt.Errorf("gplay %s: invalid JSON body", path)
	}
	return gjson.ParseBytes(res.Body), nil
}

func (c *Client) Home(ctx context.Context) ([]fused.Home, error) {
	body, err := c.get(ctx, "/home", nil)
	if err != nil {
		return nil, err
	}
	var sections []fused.Home
	body.Get("sections").ForEach(func(_, s gjson.Result) bool {
		sections = append(sections, fused.Home{
			Title:  s.Get("title").String(),
			Source: fused.SourceGPlay,
			Apps:   c.apps(s.Get("apps")),
		})
		return true
	})
	return sections, nil
}

func (c *Client) Search(ctx context.Context, query, continuation string) (fused.SearchPage, error) {
	q := url.Values{"q": {query}}
	if continuation != "" {
		q.Set("next", continuation)
	}
	body, err := c.get(ctx, "/search", q)
	if err != nil {
		return fused.SearchPage{}, err
	}
	return fused.SearchPage{
		Apps:         c.apps(body.Get("apps")),
		Continuation: body.Get("next").String(),
	}, nil
}

func (c *Client) AppDetails(ctx context.Context, packageName string) (fused.Application, error) {
	body, err := c.get(ctx, "/details", url.Values{"pkg": {packageName}})
	if err != nil {
		return fused.Application{}, err
	}
	app, ok := c.app(body)
	if !ok {
		return fused.Application{}, fmt.Errorf("gplay details %s: %w", packageName, fused.ErrNotFound)
	}
	return app, nil
}

// DownloadInfo asks the gateway to "purchase" the given build, which for free apps
// returns the delivery files.
func (c *Client) DownloadInfo(ctx context.Context, packageName string, versionCode int64, offerType int) ([]fused.DownloadFile, error) {
	body, err := c.get(ctx, "/purchase", url.Values{
		"pkg": {packageName},
		"vc":  {strconv.FormatInt(versionCode, 10)},
		"ot":  {strconv.Itoa(offerType)},
	})
	if err != nil {
		return nil, err
	}
	var files []fused.DownloadFile
	body.Get("files").ForEach(func(_, f gjson.Result) bool {
		files = append(files, fused.DownloadFile{
			Name: f.Get("name").String(),
			URL:  f.Get("url").String(),
			Size: f.Get("size").Int(),
		})
		return true
	})
	if len(files) == 0 {
		return nil, fmt.Errorf("gplay purchase %s: no files delivered", packageName)
	}
	return files, nil
}

func (c *Client) Categories(ctx context.Context, categoryType fused.CategoryType) ([]fused.Category, error) {
	body, err := c.get(ctx, "/categories", url.Values{"type": {categoryType.String()}})
	if err != nil {
		return nil, err
	}
	var categories []fused.Category
	body.Get("categories").ForEach(func(_, cat gjson.Result) bool {
		browseURL := cat.Get("browseUrl").String()
		id := cat.Get("id").String()
		if id == "" {
			id = browseURL
		}
		categories = append(categories, fused.Category{
			ID:        id,
			Title:     cat.Get("title").String(),
			BrowseURL: browseURL,
			ImageURL:  cat.Get("imageUrl").String(),
			Source:    fused.SourceGPlay,
			Type:      categoryType,
		})
		return true
	})
	return categories, nil
}

func (c *Client) Bundle(ctx context.Context, bundleURL string) (fused.StreamBundle, error) {
	body, err := c.get(ctx, "/bundle", url.Values{"url": {bundleURL}})
	if err != nil {
		return fused.StreamBundle{}, err
	}
	bundle := fused.StreamBundle{NextPageURL: body.Get("nextPageUrl").String()}
	body.Get("clusters").ForEach(func(_, cl gjson.Result) bool {
		bundle.Clusters = append(bundle.Clusters, c.cluster(cl))
		return true
	})
	return bundle, nil
}

func (c *Client) Cluster(ctx context.Context, clusterURL string) (fused.StreamCluster, error) {
	body, err := c.get(ctx, "/cluster", url.Values{"url": {clusterURL}})
	if err != nil {
		return fused.StreamCluster{}, err
	}
	return c.cluster(body), nil
}

func (c *Client) cluster(cl gjson.Result) fused.StreamCluster {
	return fused.StreamCluster{
		Title:       cl.Get("title").String(),
		BrowseURL:   cl.Get("browseUrl").String(),
		NextPageURL: cl.Get("nextPageUrl").String(),
		Apps:        c.apps(cl.Get("apps")),
	}
}

// apps maps a JSON array, skipping entries without a package name.
func (c *Client) apps(list gjson.Result) []fused.Application {
	apps := []fused.Application{}
	list.ForEach(func(_, item gjson.Result) bool {
		if app, ok := c.app(item); ok {
			apps = append(apps, app)
		} else {
			utils.Log.Debugf("gplay: skipping item without package name: %s", utils.Truncate(item.Raw, 80))
		}
		return true
	})
	return apps
}

func (c *Client) app(item gjson.Result) (fused.Application, bool) {
	pkg := strings.TrimSpace(item.Get("packageName").String())
	if pkg == "" {
		return fused.Application{}, false
	}
	app := fused.Application{
		ID:               pkg,
		PackageName:      pkg,
		Name:             item.Get("displayName").String(),
		Author:           item.Get("developerName").String(),
		Description:      sanitizer.Sanitize(item.Get("description").String()),
		ShortDescription: item.Get("shortDescription").String(),
		IconURL:          item.Get("iconUrl").String(),
		ScreenshotURLs:   stringList(item.Get("screenshots")),
		VersionCode:      item.Get("versionCode").Int(),
		VersionName:      item.Get("versionName").String(),
		OriginalSize:     item.Get("size").Int(),
		IsFree:           item.Get("isFree").Bool(),
		Price:            item.Get("price").String(),
		OfferType:        int(item.Get("offerType").Int()),
		Rating:           item.Get("rating").Float(),
		Permissions:      stringList(item.Get("permissions")),
		Category:         item.Get("category").String(),
		Restricted:       item.Get("restricted").Bool(),
		Origin:           fused.OriginGPlay,
		Type:             fused.TypeNative,
		SourceLabel:      fused.SourceGPlay.String(),
	}
	if c.status != nil {
		app.Status = c.status.Status(app.PackageName, app.VersionCode)
	}
	return app, true
}

func stringList(list gjson.Result) []string {
	var out []string
	list.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}
