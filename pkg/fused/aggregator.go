package fused

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultLookupConcurrency = 5
	DefaultMaxEmptyPages     = 10
)

// Config wires backends and policy into an Aggregator. Any of the three backends may be
// nil; a nil backend behaves as if the source were permanently disabled.
type Config struct {
	PlayStore  PlayStore
	OpenSource Catalog
	PWA        Catalog

	Preferences Preferences
	Status      StatusProvider
	// Auth returns the current Play Store credentials, or nil when signed out.
	Auth func() *AuthData

	Timeout           time.Duration `validate:"gt=0"`
	LookupConcurrency int           `validate:"gte=1,lte=32"`
	MaxEmptyPages     int           `validate:"gte=0,lte=100"`

	Log Logger
}

// strategy is one row of the source dispatch table.
type strategy struct {
	source     Source
	home       func(ctx context.Context) ([]Home, error)
	search     func(ctx context.Context, query, continuation string) (SearchPage, error)
	lookup     func(ctx context.Context, packageName string) (Application, error)
	categories func(ctx context.Context, categoryType CategoryType) ([]Category, error)
	details    func(ctx context.Context, id string) (Application, error)
	pager      func(category Category) pager
}

// Aggregator fans requests out to the enabled sources and folds their answers into
// one de-duplicated, consistently ordered result.
type Aggregator struct {
	strategies        map[Source]*strategy
	playStore         PlayStore
	openSource        Catalog
	pwa               Catalog
	prefs             Preferences
	status            StatusProvider
	auth              func() *AuthData
	filter            *FilterEngine
	timeout           time.Duration
	lookupConcurrency int
	maxEmptyPages     int
	log               Logger
	invalidAuth       chan Source
}

var validate = validator.New()

// New validates cfg, fills defaults and builds the dispatch table.
func New(cfg Config) (*Aggregator, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LookupConcurrency == 0 {
		cfg.LookupConcurrency = DefaultLookupConcurrency
	}
	if cfg.MaxEmptyPages == 0 {
		cfg.MaxEmptyPages = DefaultMaxEmptyPages
	}
	if cfg.Preferences == nil {
		return nil, errors.New("invalid aggregator config: preferences are required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid aggregator config: %w", err)
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	if cfg.Auth == nil {
		cfg.Auth = func() *AuthData { return nil }
	}

	a := &Aggregator{
		strategies:        make(map[Source]*strategy),
		playStore:         cfg.PlayStore,
		openSource:        cfg.OpenSource,
		pwa:               cfg.PWA,
		prefs:             cfg.Preferences,
		status:            cfg.Status,
		auth:              cfg.Auth,
		timeout:           cfg.Timeout,
		lookupConcurrency: cfg.LookupConcurrency,
		maxEmptyPages:     cfg.MaxEmptyPages,
		log:               cfg.Log,
		invalidAuth:       make(chan Source, 1),
	}

	if cfg.PlayStore != nil {
		a.filter = NewFilterEngine(timedProber{probe: cfg.PlayStore, timeout: cfg.Timeout})
		a.strategies[SourceGPlay] = a.playStoreStrategy(cfg.PlayStore)
	} else {
		a.filter = NewFilterEngine(nil)
	}
	if cfg.OpenSource != nil {
		a.strategies[SourceOpen] = a.catalogStrategy(SourceOpen, cfg.OpenSource, true)
	}
	if cfg.PWA != nil {
		a.strategies[SourcePWA] = a.catalogStrategy(SourcePWA, cfg.PWA, false)
	}
	return a, nil
}

func (a *Aggregator) playStoreStrategy(ps PlayStore) *strategy {
	return &strategy{
		source:     SourceGPlay,
		home:       ps.Home,
		search:     ps.Search,
		lookup:     ps.AppDetails,
		categories: ps.Categories,
		details:    ps.AppDetails,
		pager: func(category Category) pager {
			c := NewStreamCursor(ps, category.BrowseURL)
			c.timeout = a.timeout
			c.filter = a.filterFunc()
			return c
		},
	}
}

func (a *Aggregator) catalogStrategy(src Source, cat Catalog, packageLookup bool) *strategy {
	st := &strategy{
		source: src,
		home:   cat.Home,
		search: func(ctx context.Context, query, _ string) (SearchPage, error) {
			apps, err := cat.Search(ctx, query)
			return SearchPage{Apps: apps}, err
		},
		categories: cat.Categories,
		details:    cat.AppDetails,
		pager: func(category Category) pager {
			return &pageCursor{
				source:   src,
				category: category.ID,
				fetch:    cat.AppsByCategory,
				timeout:  a.timeout,
				filter:   a.filterFunc(),
				apps:     []Application{},
				seen:     make(map[string]bool),
			}
		},
	}
	if packageLookup {
		st.lookup = cat.AppByPackage
	}
	return st
}

// InvalidAuth delivers the source whose backend rejected the credentials. Sends are
// non-blocking; a signal is dropped if one is already pending.
func (a *Aggregator) InvalidAuth() <-chan Source {
	return a.invalidAuth
}

// enabled returns the dispatch rows for the sources the user currently enables.
func (a *Aggregator) enabled() []*strategy {
	var out []*strategy
	for _, src := range a.prefs.EnabledSources().Sources() {
		st, ok := a.strategies[src]
		if !ok {
			a.log.Debugf("%s is enabled but has no backend configured", src)
			continue
		}
		out = append(out, st)
	}
	return out
}

func (a *Aggregator) filterFunc() func(context.Context, []Application) []Application {
	return func(ctx context.Context, apps []Application) []Application {
		return a.filter.Apply(ctx, apps, a.auth())
	}
}

// call runs one backend operation through Run and records its outcome.
func call[T any](ctx context.Context, a *Aggregator, src Source, op string, fn func(context.Context) (T, error)) (T, ResultStatus) {
	start := time.Now()
	v, status := Run(ctx, a.timeout, fn)
	record(src, op, start, status)
	if !status.IsOK() {
		switch {
		case errors.Is(status.Err, ErrNotFound):
			a.log.Debugf("%s %s: not found", src, op)
		case errors.Is(status.Err, ErrInvalidAuth):
			a.log.Warnf("%s %s: credentials rejected", src, op)
			a.signalInvalidAuth(src)
		default:
			a.log.Warnf("%s %s failed: %v", src, op, status)
		}
	}
	return v, status
}

func record(src Source, op string, start time.Time, status ResultStatus) {
	sourceFetchDuration.WithLabelValues(src.String(), op).Observe(time.Since(start).Seconds())
	sourceFetchTotal.WithLabelValues(src.String(), op, status.Kind.String()).Inc()
}

func (a *Aggregator) signalInvalidAuth(src Source) {
	select {
	case a.invalidAuth <- src:
	default:
	}
}

type sourceResult[T any] struct {
	source Source
	value  T
	status ResultStatus
}

// fanOut starts fn for every strategy at once. The returned channel yields exactly one
// result per strategy, in completion order; receiving len(sts) values joins every fetch.
func fanOut[T any](ctx context.Context, a *Aggregator, sts []*strategy, op string, fn func(*strategy) func(context.Context) (T, error)) <-chan sourceResult[T] {
	results := make(chan sourceResult[T], len(sts))
	for _, st := range sts {
		go func(st *strategy) {
			v, status := call(ctx, a, st.source, op, fn(st))
			results <- sourceResult[T]{source: st.source, value: v, status: status}
		}(st)
	}
	return results
}

// CategoriesResult carries the merged category list and the last failing source, if any.
type CategoriesResult struct {
	Categories    []Category   `json:"categories"`
	ErroredSource string       `json:"errored_source,omitempty"`
	Status        ResultStatus `json:"status"`
}

// Categories lists categories of one type from every enabled source, sorted by title.
func (a *Aggregator) Categories(ctx context.Context, categoryType CategoryType) CategoriesResult {
	enabled := a.enabled()
	results := fanOut(ctx, a, enabled, "categories", func(st *strategy) func(context.Context) ([]Category, error) {
		return func(ctx context.Context) ([]Category, error) { return st.categories(ctx, categoryType) }
	})
	bySource := make(map[Source]sourceResult[[]Category], len(enabled))
	for range enabled {
		r := <-results
		bySource[r.source] = r
	}

	var tracker statusTracker
	categories := []Category{}
	for _, st := range enabled {
		r := bySource[st.source]
		tracker.observe(r.source, r.status)
		for _, c := range r.value {
			if c.Type != categoryType {
				continue
			}
			c.Source = r.source
			categories = append(categories, c)
		}
	}
	sortCategories(categories)
	return CategoriesResult{Categories: categories, ErroredSource: tracker.source, Status: tracker.status}
}

// HomeResult is one emission of the home feed.
type HomeResult struct {
	Sections      []Home       `json:"sections"`
	Status        ResultStatus `json:"status"`
	ErroredSource string       `json:"errored_source,omitempty"`
}

// Home builds the sectioned home feed. Sources are fetched concurrently; onUpdate
// (optional) receives the partial feed as soon as any source answers. Every emission
// lists the sections answered so far in the order GPlay, Open Source, PWA. Sections
// left without visible apps are dropped.
func (a *Aggregator) Home(ctx context.Context, onUpdate func(HomeResult)) HomeResult {
	enabled := a.enabled()
	results := fanOut(ctx, a, enabled, "home", func(st *strategy) func(context.Context) ([]Home, error) {
		return st.home
	})

	auth := a.auth()
	answered := make(map[Source]sourceResult[[]Home], len(enabled))
	out := HomeResult{Sections: []Home{}, Status: OK()}
	for range enabled {
		r := <-results
		var sections []Home
		for _, section := range r.value {
			apps := a.filter.Apply(ctx, withoutPlaceholders(section.Apps), auth)
			apps = mergeUnique(nil, make(map[string]bool), apps)
			if len(apps) == 0 {
				continue
			}
			sections = append(sections, Home{Title: section.Title, Source: r.source, Apps: apps})
		}
		r.value = sections
		answered[r.source] = r

		out = homeSnapshot(enabled, answered)
		if onUpdate != nil {
			onUpdate(out)
		}
	}
	return out
}

// homeSnapshot assembles the sections answered so far in fixed source order.
func homeSnapshot(order []*strategy, answered map[Source]sourceResult[[]Home]) HomeResult {
	var tracker statusTracker
	sections := []Home{}
	for _, st := range order {
		r, ok := answered[st.source]
		if !ok {
			continue
		}
		tracker.observe(r.source, r.status)
		sections = append(sections, r.value...)
	}
	return HomeResult{Sections: sections, Status: tracker.status, ErroredSource: tracker.source}
}

// AppDetails fetches one app from the given source with its filter level set.
// For GPlay the id is the package name.
func (a *Aggregator) AppDetails(ctx context.Context, src Source, id string) (Application, ResultStatus) {
	st, ok := a.strategies[src]
	if !ok {
		return Application{}, Unknown(fmt.Errorf("%s: %w", src, ErrSourceUnavailable))
	}
	app, status := call(ctx, a, src, "details", func(ctx context.Context) (Application, error) {
		return st.details(ctx, id)
	})
	if !status.IsOK() {
		return Application{}, status
	}
	app.FilterLevel = a.filter.FilterLevel(ctx, app, a.auth())
	if a.status != nil {
		app.Status = a.status.Status(app.PackageName, app.VersionCode)
	}
	return app, OK()
}

// DownloadURLs resolves where the app's current build can be fetched.
func (a *Aggregator) DownloadURLs(ctx context.Context, app Application) ([]string, ResultStatus) {
	if app.IsPlaceholder {
		return nil, Unknown(ErrNotFound)
	}
	switch {
	case app.Origin == OriginGPlay && a.playStore != nil:
		files, status := call(ctx, a, SourceGPlay, "download", func(ctx context.Context) ([]DownloadFile, error) {
			return a.playStore.DownloadInfo(ctx, app.PackageName, app.VersionCode, app.OfferType)
		})
		if !status.IsOK() {
			return nil, status
		}
		urls := make([]string, 0, len(files))
		for _, f := range files {
			urls = append(urls, f.URL)
		}
		return urls, OK()
	case app.Origin == OriginCleanAPK:
		src, cat := SourceOpen, a.openSource
		if app.Type == TypePWA {
			src, cat = SourcePWA, a.pwa
		}
		if cat == nil {
			return nil, Unknown(fmt.Errorf("%s: %w", src, ErrSourceUnavailable))
		}
		info, status := call(ctx, a, src, "download", func(ctx context.Context) (DownloadInfo, error) {
			return cat.DownloadInfo(ctx, app.ID, app.VersionName)
		})
		if !status.IsOK() {
			return nil, status
		}
		return []string{info.URL}, OK()
	}
	return nil, Unknown(fmt.Errorf("%s: %w", SourceGPlay, ErrSourceUnavailable))
}

// timedProber bounds each filter probe by the aggregator timeout.
type timedProber struct {
	probe   Prober
	timeout time.Duration
}

func (p timedProber) AppDetails(ctx context.Context, packageName string) (Application, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.probe.AppDetails(ctx, packageName)
}

func (p timedProber) DownloadInfo(ctx context.Context, packageName string, versionCode int64, offerType int) ([]DownloadFile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.probe.DownloadInfo(ctx, packageName, versionCode, offerType)
}
