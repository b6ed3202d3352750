package fused

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pager walks one category's paginated listing and accumulates a de-duplicated list.
type pager interface {
	Next(ctx context.Context) ([]Application, ResultStatus)
	HasMore() bool
	Apps() []Application
}

// ClusterSource is the part of the Play Store backend a StreamCursor reads.
type ClusterSource interface {
	Bundle(ctx context.Context, url string) (StreamBundle, error)
	Cluster(ctx context.Context, url string) (StreamCluster, error)
}

// StreamCursor walks Bundle -> Cluster -> Cluster ... and Bundle -> Bundle ... for one
// category browsing session. It is owned by a single caller and is not safe for
// concurrent use; BrowseSession serializes access when sharing is needed.
type StreamCursor struct {
	src     ClusterSource
	timeout time.Duration
	filter  func(context.Context, []Application) []Application

	bundle         StreamBundle
	clusterPointer int
	hasNextCluster bool
	nextClusterURL string
	hasNextBundle  bool
	nextBundleURL  string

	apps []Application
	seen map[string]bool
}

// NewStreamCursor starts in the "nothing loaded" position: the first Next fetches the
// bundle behind browseURL.
func NewStreamCursor(src ClusterSource, browseURL string) *StreamCursor {
	return &StreamCursor{
		src:           src,
		timeout:       DefaultTimeout,
		hasNextBundle: browseURL != "",
		nextBundleURL: browseURL,
		apps:          []Application{},
		seen:          make(map[string]bool),
	}
}

// Apps returns the accumulated list. Callers must not modify it.
func (c *StreamCursor) Apps() []Application { return c.apps }

// HasMore reports whether any pagination pointer is left.
func (c *StreamCursor) HasMore() bool {
	return c.hasNextCluster || c.clusterPointer+1 < len(c.bundle.Clusters) || c.hasNextBundle
}

// Next advances one step and returns the accumulated list. Once every pointer is
// exhausted it returns the last list without touching the network. A failed fetch
// leaves the position unchanged.
func (c *StreamCursor) Next(ctx context.Context) ([]Application, ResultStatus) {
	switch {
	case c.hasNextCluster:
		cluster, status := c.fetchCluster(ctx, c.nextClusterURL)
		if !status.IsOK() {
			return c.apps, status
		}
		c.fold(ctx, cluster)
		return c.apps, OK()

	case c.clusterPointer < len(c.bundle.Clusters):
		c.clusterPointer++
		if c.clusterPointer < len(c.bundle.Clusters) {
			c.fold(ctx, c.adjustedFirstCluster(ctx, c.clusterPointer))
			return c.apps, OK()
		}
		if !c.hasNextBundle {
			return c.apps, OK()
		}
		return c.nextBundle(ctx)

	case c.hasNextBundle:
		return c.nextBundle(ctx)
	}
	return c.apps, OK()
}

func (c *StreamCursor) nextBundle(ctx context.Context) ([]Application, ResultStatus) {
	start := time.Now()
	bundle, status := Run(ctx, c.timeout, func(ctx context.Context) (StreamBundle, error) {
		return c.src.Bundle(ctx, c.nextBundleURL)
	})
	record(SourceGPlay, "bundle", start, status)
	if !status.IsOK() {
		return c.apps, status
	}
	c.bundle = bundle
	c.clusterPointer = 0
	c.hasNextBundle = bundle.HasNext()
	c.nextBundleURL = bundle.NextPageURL
	c.hasNextCluster = false
	c.nextClusterURL = ""
	if len(bundle.Clusters) > 0 {
		c.fold(ctx, c.adjustedFirstCluster(ctx, 0))
	}
	return c.apps, OK()
}

func (c *StreamCursor) fetchCluster(ctx context.Context, url string) (StreamCluster, ResultStatus) {
	start := time.Now()
	cluster, status := Run(ctx, c.timeout, func(ctx context.Context) (StreamCluster, error) {
		return c.src.Cluster(ctx, url)
	})
	record(SourceGPlay, "cluster", start, status)
	return cluster, status
}

// adjustedFirstCluster returns the cluster at index i of the current bundle. A cluster
// embedded in a bundle may come without its continuation; in that case it is fetched
// again through its browse URL, which carries one. If that fails the raw cluster is used.
func (c *StreamCursor) adjustedFirstCluster(ctx context.Context, i int) StreamCluster {
	raw := c.bundle.Clusters[i]
	if raw.HasNext() || raw.BrowseURL == "" {
		return raw
	}
	fetched, status := c.fetchCluster(ctx, raw.BrowseURL)
	if !status.IsOK() {
		return raw
	}
	if fetched.Title == "" {
		fetched.Title = raw.Title
	}
	fetched.Apps = append(append([]Application{}, raw.Apps...), fetched.Apps...)
	return fetched
}

// fold replaces the running list with its union with the cluster's apps. Backend pages
// overlap, so this is never a plain concatenation.
func (c *StreamCursor) fold(ctx context.Context, cluster StreamCluster) {
	apps := cluster.Apps
	if c.filter != nil {
		apps = c.filter(ctx, apps)
	}
	c.apps = mergeUnique(c.apps, c.seen, apps)
	c.hasNextCluster = cluster.HasNext()
	c.nextClusterURL = cluster.NextPageURL
}

// pageCursor pages through a CleanAPK category listing.
type pageCursor struct {
	source   Source
	category string
	fetch    func(ctx context.Context, category string, page int) (AppPage, error)
	timeout  time.Duration
	filter   func(context.Context, []Application) []Application

	page  int
	pages int
	done  bool
	apps  []Application
	seen  map[string]bool
}

func (p *pageCursor) Apps() []Application { return p.apps }

func (p *pageCursor) HasMore() bool { return !p.done }

func (p *pageCursor) Next(ctx context.Context) ([]Application, ResultStatus) {
	if p.done {
		return p.apps, OK()
	}
	start := time.Now()
	page, status := Run(ctx, p.timeout, func(ctx context.Context) (AppPage, error) {
		return p.fetch(ctx, p.category, p.page+1)
	})
	record(p.source, "category", start, status)
	if !status.IsOK() {
		return p.apps, status
	}
	p.page++
	p.pages = page.Pages
	p.done = p.page >= p.pages
	apps := page.Apps
	if p.filter != nil {
		apps = p.filter(ctx, apps)
	}
	p.apps = mergeUnique(p.apps, p.seen, apps)
	return p.apps, OK()
}

// BrowseResult is what one LoadMore call hands back to a renderer.
type BrowseResult struct {
	Apps    []Application `json:"apps"`
	HasMore bool          `json:"has_more"`
	Status  ResultStatus  `json:"status"`
}

// BrowseSession is one category browsing session. LoadMore calls are serialized.
type BrowseSession struct {
	mu            sync.Mutex
	category      Category
	pager         pager
	maxEmptyPages int
}

// Browse opens a browsing session for a category of an enabled source.
func (a *Aggregator) Browse(category Category) (*BrowseSession, error) {
	st, ok := a.strategies[category.Source]
	if !ok {
		return nil, fmt.Errorf("%s: %w", category.Source, ErrSourceUnavailable)
	}
	if !a.prefs.EnabledSources().Has(category.Source) {
		return nil, fmt.Errorf("%s: %w", category.Source, ErrSourceDisabled)
	}
	return &BrowseSession{
		category:      category,
		pager:         st.pager(category),
		maxEmptyPages: a.maxEmptyPages,
	}, nil
}

func (s *BrowseSession) Category() Category { return s.category }

// LoadMore fetches the next page. When a page adds nothing new (every item was already
// listed) and more pages exist, the next page is requested right away, since a
// renderer whose list did not grow will not ask again.
func (s *BrowseSession) LoadMore(ctx context.Context) BrowseResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.pager.Apps())
	apps, status := s.pager.Next(ctx)
	for i := 0; status.IsOK() && len(apps) == before && s.pager.HasMore() && i < s.maxEmptyPages; i++ {
		apps, status = s.pager.Next(ctx)
	}
	return BrowseResult{Apps: apps, HasMore: s.pager.HasMore(), Status: status}
}

// Current returns the accumulated list without fetching.
func (s *BrowseSession) Current() BrowseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BrowseResult{Apps: s.pager.Apps(), HasMore: s.pager.HasMore(), Status: OK()}
}
