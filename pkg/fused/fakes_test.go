package fused

import (
	"context"
	"sync"
)

// fakePlayStore answers from static data; any *Func field overrides the default.
type fakePlayStore struct {
	mu    sync.Mutex
	calls map[string]int

	home       []Home
	search     map[string]SearchPage // keyed by continuation
	details    map[string]Application
	categories []Category
	bundles    map[string]StreamBundle
	clusters   map[string]StreamCluster

	homeFunc     func(ctx context.Context) ([]Home, error)
	detailsFunc  func(ctx context.Context, pkg string) (Application, error)
	downloadFunc func(ctx context.Context, pkg string, vc int64, offerType int) ([]DownloadFile, error)
	bundleFunc   func(ctx context.Context, url string) (StreamBundle, error)
	clusterFunc  func(ctx context.Context, url string) (StreamCluster, error)
	categoryFunc func(ctx context.Context, t CategoryType) ([]Category, error)
	searchFunc   func(ctx context.Context, query, continuation string) (SearchPage, error)
	searchErr    error
}

func (f *fakePlayStore) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakePlayStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePlayStore) Home(ctx context.Context) ([]Home, error) {
	f.count("home")
	if f.homeFunc != nil {
		return f.homeFunc(ctx)
	}
	return f.home, nil
}

func (f *fakePlayStore) Search(ctx context.Context, query, continuation string) (SearchPage, error) {
	f.count("search")
	if f.searchFunc != nil {
		return f.searchFunc(ctx, query, continuation)
	}
	if f.searchErr != nil {
		return SearchPage{}, f.searchErr
	}
	return f.search[continuation], nil
}

func (f *fakePlayStore) AppDetails(ctx context.Context, pkg string) (Application, error) {
	f.count("details")
	if f.detailsFunc != nil {
		return f.detailsFunc(ctx, pkg)
	}
	app, ok := f.details[pkg]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (f *fakePlayStore) DownloadInfo(ctx context.Context, pkg string, vc int64, offerType int) ([]DownloadFile, error) {
	f.count("download")
	if f.downloadFunc != nil {
		return f.downloadFunc(ctx, pkg, vc, offerType)
	}
	return []DownloadFile{{Name: pkg + ".apk", URL: "https://dl.example/" + pkg}}, nil
}

func (f *fakePlayStore) Categories(ctx context.Context, t CategoryType) ([]Category, error) {
	f.count("categories")
	if f.categoryFunc != nil {
		return f.categoryFunc(ctx, t)
	}
	return f.categories, nil
}

func (f *fakePlayStore) Bundle(ctx context.Context, url string) (StreamBundle, error) {
	f.count("bundle")
	if f.bundleFunc != nil {
		return f.bundleFunc(ctx, url)
	}
	return f.bundles[url], nil
}

func (f *fakePlayStore) Cluster(ctx context.Context, url string) (StreamCluster, error) {
	f.count("cluster")
	if f.clusterFunc != nil {
		return f.clusterFunc(ctx, url)
	}
	return f.clusters[url], nil
}

type fakeCatalog struct {
	mu    sync.Mutex
	calls map[string]int

	home       []Home
	homeErr    error
	results    []Application
	searchErr  error
	byPackage  map[string]Application
	categories []Category
	catErr     error
	pages      map[int]AppPage

	homeFunc   func(ctx context.Context) ([]Home, error)
	searchFunc func(ctx context.Context, keyword string) ([]Application, error)
}

func (f *fakeCatalog) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *fakeCatalog) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCatalog) Home(ctx context.Context) ([]Home, error) {
	f.count("home")
	if f.homeFunc != nil {
		return f.homeFunc(ctx)
	}
	return f.home, f.homeErr
}

func (f *fakeCatalog) Search(ctx context.Context, keyword string) ([]Application, error) {
	f.count("search")
	if f.searchFunc != nil {
		return f.searchFunc(ctx, keyword)
	}
	return f.results, f.searchErr
}

func (f *fakeCatalog) AppByPackage(ctx context.Context, pkg string) (Application, error) {
	f.count("lookup")
	app, ok := f.byPackage[pkg]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (f *fakeCatalog) Categories(ctx context.Context, t CategoryType) ([]Category, error) {
	f.count("categories")
	return f.categories, f.catErr
}

func (f *fakeCatalog) AppsByCategory(ctx context.Context, category string, page int) (AppPage, error) {
	f.count("category")
	return f.pages[page], nil
}

func (f *fakeCatalog) AppDetails(ctx context.Context, id string) (Application, error) {
	f.count("details")
	for _, app := range f.byPackage {
		if app.ID == id {
			return app, nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeCatalog) DownloadInfo(ctx context.Context, id, version string) (DownloadInfo, error) {
	f.count("download")
	return DownloadInfo{URL: "https://cleanapk.example/" + id, Version: version}, nil
}

func gplayApp(pkg string) Application {
	return Application{ID: pkg, PackageName: pkg, Name: pkg, IsFree: true, Origin: OriginGPlay, Type: TypeNative, OriginalSize: 1000}
}

func openApp(pkg string) Application {
	return Application{ID: "id-" + pkg, PackageName: pkg, Name: pkg, IsFree: true, Origin: OriginCleanAPK, Type: TypeNative}
}

func pwaApp(pkg string) Application {
	return Application{ID: "pwa-" + pkg, PackageName: pkg, Name: pkg, IsFree: true, Origin: OriginCleanAPK, Type: TypePWA}
}

func packages(apps []Application) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		if app.IsPlaceholder {
			out = append(out, "<placeholder>")
			continue
		}
		out = append(out, app.PackageName)
	}
	return out
}

func newTestAggregator(t testingT, cfg Config) *Aggregator {
	if cfg.Preferences == nil {
		cfg.Preferences = StaticPreferences(NewSourceSet(SourceGPlay, SourceOpen, SourcePWA))
	}
	if cfg.Auth == nil {
		cfg.Auth = func() *AuthData { return &AuthData{Email: "user@example.com", Token: "token"} }
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

type testingT interface {
	Fatalf(format string, args ...interface{})
}
