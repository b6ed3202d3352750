// Package cleanapk is the client for the CleanAPK v2 REST catalog. One Client serves
// either the open source (native) catalog or the PWA catalog.
package cleanapk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/applounge/lounge/internal/utils"
	"github.com/applounge/lounge/pkg/fused"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.cleanapk.org/v2/"

// Kind selects which catalog a Client queries.
type Kind int

const (
	KindOpenSource Kind = iota
	KindPWA
)

func (k Kind) apiType() string {
	if k == KindPWA {
		return "pwa"
	}
	return "any"
}

func (k Kind) source() fused.Source {
	if k == KindPWA {
		return fused.SourcePWA
	}
	return fused.SourceOpen
}

// Home section keys, in the order they are shown.
var homeSections = []struct{ key, title string }{
	{"top_updated_apps", "Top updated apps"},
	{"top_updated_games", "Top updated games"},
	{"popular_apps", "Popular apps"},
	{"popular_games", "Popular games"},
	{"popular_apps_in_last_24_hours", "Popular apps in last 24 hours"},
	{"popular_games_in_last_24_hours", "Popular games in last 24 hours"},
	{"discover", "Discover"},
}

type Options struct {
	BaseURL string
	// RPS caps the request rate; zero means unlimited.
	RPS     float64
	Timeout time.Duration
	Status  fused.StatusProvider
}

// Client implements fused.Catalog.
type Client struct {
	kind     Kind
	resty    *resty.Client
	limiter  *rate.Limiter
	mediaURL string
	status   fused.StatusProvider
	pageSize int
}

func NewClient(kind Kind, opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/") + "/"
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	r := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "lounge/1.0").
		SetHeader("Accept", "application/json")

	return &Client{
		kind:     kind,
		resty:    r,
		limiter:  limiter,
		mediaURL: base + "media/",
		status:   opts.Status,
		pageSize: 20,
	}
}

// list calls apps?action=... and returns the parsed body once success is true.
func (c *Client) list(ctx context.Context, params map[string]string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}
	action := params["action"]
	res, err := c.resty.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("type", c.kind.apiType()).
		Get("apps")
	if err != nil {
		return gjson.Result{}, fmt.Errorf("cleanapk %s: %w", action, err)
	}
	if res.IsError() {
		return gjson.Result{}, fmt.Errorf("cleanapk %s: unexpected status %d", action, res.StatusCode())
	}
	body := res.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("cleanapk %s: invalid JSON body", action)
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.Get("success").Bool() {
		return gjson.Result{}, fmt.Errorf("cleanapk %s: request not successful", action)
	}
	return parsed, nil
}

func (c *Client) Home(ctx context.Context) ([]fused.Home, error) {
	body, err := c.list(ctx, map[string]string{"action": "list_home"})
	if err != nil {
		return nil, err
	}
	var sections []fused.Home
	for _, s := range homeSections {
		apps := c.apps(body.Get("home." + s.key))
		if len(apps) == 0 {
			continue
		}
		sections = append(sections, fused.Home{Title: s.title, Source: c.kind.source(), Apps: apps})
	}
	return sections, nil
}

func (c *Client) Search(ctx context.Context, keyword string) ([]fused.Application, error) {
	body, err := c.list(ctx, c.searchParams(keyword, "name"))
	if err != nil {
		return nil, err
	}
	return c.apps(body.Get("apps")), nil
}

// AppByPackage is an exact package name search; no match is fused.ErrNotFound.
func (c *Client) AppByPackage(ctx context.Context, packageName string) (fused.Application, error) {
	body, err := c.list(ctx, c.searchParams(packageName, "package_name"))
	if err != nil {
		return fused.Application{}, err
	}
	for _, app := range c.apps(body.Get("apps")) {
		if app.PackageName == packageName {
			return app, nil
		}
	}
	return fused.Application{}, fmt.Errorf("cleanapk package %s: %w", packageName, fused.ErrNotFound)
}

func (c *Client) searchParams(keyword, by string) map[string]string {
	params := map[string]string{
		"action":  "search",
		"keyword": keyword,
		"by":      by,
		"source":  "any",
		"nres":    strconv.Itoa(c.pageSize),
		"page":    "1",
	}
	if c.kind == KindOpenSource {
		params["exodus"] = "1"
	}
	return params
}

// Categories reads the category id lists and their display titles.
func (c *Client) Categories(ctx context.Context, categoryType fused.CategoryType) ([]fused.Category, error) {
	body, err := c.list(ctx, map[string]string{"action": "list_cat"})
	if err != nil {
		return nil, err
	}
	key := "apps"
	if categoryType == fused.CategoryGame {
		key = "games"
	}
	translations := body.Get("translations")
	var categories []fused.Category
	body.Get(key).ForEach(func(_, id gjson.Result) bool {
		title := translations.Get(gjsonEscape(id.String())).String()
		if title == "" {
			title = id.String()
		}
		categories = append(categories, fused.Category{
			ID:     id.String(),
			Title:  title,
			Source: c.kind.source(),
			Type:   categoryType,
		})
		return true
	})
	return categories, nil
}

// AppsByCategory lists one page (1-based) of a category.
func (c *Client) AppsByCategory(ctx context.Context, category string, page int) (fused.AppPage, error) {
	body, err := c.list(ctx, map[string]string{
		"action":   "list_apps",
		"category": category,
		"page":     strconv.Itoa(page),
		"nres":     strconv.Itoa(c.pageSize),
		"source":   "any",
	})
	if err != nil {
		return fused.AppPage{}, err
	}
	pages := int(body.Get("pages").Int())
	if pages == 0 {
		pages = page
	}
	return fused.AppPage{Apps: c.apps(body.Get("apps")), Page: page, Pages: pages}, nil
}

func (c *Client) AppDetails(ctx context.Context, id string) (fused.Application, error) {
	body, err := c.list(ctx, map[string]string{"action": "app_detail", "id": id})
	if err != nil {
		return fused.Application{}, err
	}
	app, ok := c.app(body.Get("app"))
	if !ok {
		return fused.Application{}, fmt.Errorf("cleanapk app %s: %w", id, fused.ErrNotFound)
	}
	return app, nil
}

func (c *Client) DownloadInfo(ctx context.Context, id, version string) (fused.DownloadInfo, error) {
	params := map[string]string{"action": "download", "app_id": id}
	if version != "" {
		params["version"] = version
	}
	body, err := c.list(ctx, params)
	if err != nil {
		return fused.DownloadInfo{}, err
	}
	data := body.Get("download_data")
	info := fused.DownloadInfo{
		URL:         data.Get("download_link").String(),
		Version:     data.Get("version").String(),
		VersionCode: data.Get("version_code").Int(),
		SHA1:        data.Get("sha1").String(),
	}
	if info.URL == "" {
		return fused.DownloadInfo{}, fmt.Errorf("cleanapk download %s: no download link", id)
	}
	return info, nil
}

func (c *Client) apps(list gjson.Result) []fused.Application {
	apps := []fused.Application{}
	list.ForEach(func(_, item gjson.Result) bool {
		if app, ok := c.app(item); ok {
			apps = append(apps, app)
		} else {
			utils.Log.Debugf("cleanapk: skipping item without package name: %s", utils.Truncate(item.Raw, 80))
		}
		return true
	})
	return apps
}

func (c *Client) app(item gjson.Result) (fused.Application, bool) {
	pkg := strings.TrimSpace(item.Get("package_name").String())
	if pkg == "" {
		return fused.Application{}, false
	}
	appType := fused.TypeNative
	if c.kind == KindPWA || item.Get("is_pwa").Bool() {
		appType = fused.TypePWA
	}

	app := fused.Application{
		ID:           item.Get("_id").String(),
		PackageName:  pkg,
		Name:         item.Get("name").String(),
		Author:       item.Get("author").String(),
		Description:  htmlToText(item.Get("description").String()),
		IconURL:      c.media(item.Get("icon_image_path").String()),
		VersionCode:  item.Get("latest_version_code").Int(),
		VersionName:  item.Get("latest_version_number").String(),
		IsFree:       true,
		Rating:       item.Get("ratings.usageQualityScore").Float(),
		PrivacyScore: int(item.Get("exodus_score").Int()),
		Permissions:  stringList(item.Get("perms")),
		Trackers:     stringList(item.Get("trackers")),
		Category:     item.Get("category").String(),
		URL:          item.Get("url").String(),
		Origin:       fused.OriginCleanAPK,
		Type:         appType,
		SourceLabel:  c.kind.source().String(),
	}
	item.Get("other_images_path").ForEach(func(_, p gjson.Result) bool {
		app.ScreenshotURLs = append(app.ScreenshotURLs, c.media(p.String()))
		return true
	})
	if app.ID == "" {
		app.ID = pkg
	}
	if app.ShortDescription == "" {
		app.ShortDescription = firstSentence(app.Description)
	}
	if app.Type == fused.TypePWA && app.Author == "" {
		app.Author = registrableDomain(app.URL)
	}
	if c.status != nil {
		app.Status = c.status.Status(app.PackageName, app.VersionCode)
	}
	return app, true
}

// media resolves a relative media path against the API's media root.
func (c *Client) media(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.mediaURL + strings.TrimLeft(path, "/")
}

// htmlToText flattens an HTML description into plain paragraphs.
func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	var parts []string
	blocks := doc.Find("p, li, h1, h2, h3, h4")
	if blocks.Length() == 0 {
		return collapse(doc.Text())
	}
	blocks.Each(func(_ int, sel *goquery.Selection) {
		if text := collapse(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func firstSentence(s string) string {
	line := strings.SplitN(s, "\n", 2)[0]
	if i := strings.Index(line, ". "); i > 0 {
		line = line[:i+1]
	}
	return utils.Truncate(line, 120)
}

// registrableDomain returns eTLD+1 of a URL (app.example.co.uk -> example.co.uk).
func registrableDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return u.Hostname()
	}
	return domain
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

// gjsonEscape escapes path metacharacters so a category id can be used as a key.
func gjsonEscape(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
