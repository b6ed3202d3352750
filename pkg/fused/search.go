package fused

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/applounge/lounge/internal/utils"
)

// SearchResult is one emission of a search: the merged list, and whether more
// Play Store pages may follow.
type SearchResult struct {
	Apps          []Application `json:"apps"`
	HasMore       bool          `json:"has_more"`
	Status        ResultStatus  `json:"status"`
	ErroredSource string        `json:"errored_source,omitempty"`
}

// SearchSession holds the merged list of one query and the Play Store continuation
// needed to extend it. LoadMore calls are serialized.
type SearchSession struct {
	mu    sync.Mutex
	agg   *Aggregator
	query string

	gplay        *strategy
	continuation string
	gplayHasMore bool

	merged  []Application
	seen    map[string]bool
	tracker statusTracker
}

// searchOrder is the order keyword results are folded in.
var searchOrder = []Source{SourceOpen, SourcePWA, SourceGPlay}

// Search queries every enabled source and merges the answers by package name.
//
// A package-name shaped query is first looked up exactly on GPlay and the open source
// catalog in parallel; an open source match is shown in preference to a GPlay match.
// Keyword results are merged as each source answers; every emission lists them in the
// order Open Source, PWA, GPlay, skipping packages already listed. GPlay hits that the
// open source catalog also carries are replaced by the open source entry. onUpdate
// (optional) receives every intermediate result.
func (a *Aggregator) Search(ctx context.Context, query string, onUpdate func(SearchResult)) (*SearchSession, SearchResult) {
	s := &SearchSession{
		agg:    a,
		query:  strings.TrimSpace(query),
		merged: []Application{},
		seen:   make(map[string]bool),
	}
	emit := func() SearchResult {
		r := s.result()
		if onUpdate != nil {
			onUpdate(r)
		}
		return r
	}
	if s.query == "" {
		return s, s.result()
	}

	enabled := a.enabled()
	bySource := make(map[Source]*strategy, len(enabled))
	for _, st := range enabled {
		bySource[st.source] = st
	}
	if st, ok := bySource[SourceGPlay]; ok {
		s.gplay = st
		s.gplayHasMore = true
	}
	auth := a.auth()

	var lookupHits []Application
	if utils.IsPackageName(s.query) {
		if hit, ok := s.packageLookup(ctx, bySource); ok {
			lookupHits = a.filter.Apply(ctx, []Application{hit}, auth)
			s.rebuild(lookupHits, s.tracker, nil, nil)
			emit()
		}
	}
	lookupTracker := s.tracker

	var ordered []*strategy
	for _, src := range searchOrder {
		if st, ok := bySource[src]; ok {
			ordered = append(ordered, st)
		}
	}
	results := fanOut(ctx, a, ordered, "search", func(st *strategy) func(context.Context) (SearchPage, error) {
		return func(ctx context.Context) (SearchPage, error) { return st.search(ctx, s.query, "") }
	})

	answered := make(map[Source]sourceResult[SearchPage], len(ordered))
	last := s.result()
	for range ordered {
		r := <-results
		r.value.Apps = s.prepare(ctx, r, auth)
		answered[r.source] = r
		s.rebuild(lookupHits, lookupTracker, ordered, answered)
		last = emit()
	}
	return s, last
}

// packageLookup runs the exact lookups. The open source hit always wins over the GPlay
// hit. This preference is a provisional product rule and is kept as is.
func (s *SearchSession) packageLookup(ctx context.Context, bySource map[Source]*strategy) (Application, bool) {
	var lookups []*strategy
	for _, src := range []Source{SourceGPlay, SourceOpen} {
		if st, ok := bySource[src]; ok && st.lookup != nil {
			lookups = append(lookups, st)
		}
	}
	results := fanOut(ctx, s.agg, lookups, "lookup", func(st *strategy) func(context.Context) (Application, error) {
		return func(ctx context.Context) (Application, error) { return st.lookup(ctx, s.query) }
	})

	hits := make(map[Source]Application)
	for range lookups {
		r := <-results
		if errors.Is(r.status.Err, ErrNotFound) {
			continue
		}
		s.tracker.observe(r.source, r.status)
		if r.status.IsOK() && r.value.Key() != "" {
			hits[r.source] = r.value
		}
	}
	if hit, ok := hits[SourceOpen]; ok {
		return hit, true
	}
	hit, ok := hits[SourceGPlay]
	return hit, ok
}

// prepare filters one source's page. GPlay hits not listed yet are swapped for their
// open source equivalent, and the GPlay continuation is recorded.
func (s *SearchSession) prepare(ctx context.Context, r sourceResult[SearchPage], auth *AuthData) []Application {
	apps := withoutPlaceholders(r.value.Apps)
	if r.source == SourceGPlay {
		s.continuation = r.value.Continuation
		s.gplayHasMore = r.status.IsOK() && s.continuation != ""
		apps = s.agg.replaceWithOpenSource(ctx, apps, s.seen)
	}
	return s.agg.filter.Apply(ctx, apps, auth)
}

// rebuild re-merges the exact match and every answered page in search order, so an
// emission keeps a stable order whichever source answered first.
func (s *SearchSession) rebuild(base []Application, tracker statusTracker, order []*strategy, answered map[Source]sourceResult[SearchPage]) {
	s.seen = make(map[string]bool)
	s.merged = mergeUnique(nil, s.seen, base)
	s.tracker = tracker
	for _, st := range order {
		r, ok := answered[st.source]
		if !ok {
			continue
		}
		s.tracker.observe(r.source, r.status)
		s.merged = mergeUnique(s.merged, s.seen, r.value.Apps)
	}
}

func (s *SearchSession) fold(ctx context.Context, r sourceResult[SearchPage], auth *AuthData) {
	s.tracker.observe(r.source, r.status)
	s.merged = mergeUnique(s.merged, s.seen, s.prepare(ctx, r, auth))
}

// result snapshots the merged list; a single placeholder closes it while GPlay may
// still have pages.
func (s *SearchSession) result() SearchResult {
	apps := make([]Application, 0, len(s.merged)+1)
	apps = append(apps, s.merged...)
	hasMore := s.gplay != nil && s.gplayHasMore
	if hasMore {
		apps = append(apps, Placeholder())
	}
	return SearchResult{
		Apps:          apps,
		HasMore:       hasMore,
		Status:        s.tracker.status,
		ErroredSource: s.tracker.source,
	}
}

// Query returns the normalized query of the session.
func (s *SearchSession) Query() string { return s.query }

// LoadMore fetches the next GPlay page. Without a continuation it returns the current
// result and issues no call.
func (s *SearchSession) LoadMore(ctx context.Context) SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gplay == nil || !s.gplayHasMore {
		return s.result()
	}
	s.tracker = statusTracker{}
	continuation := s.continuation
	page, status := call(ctx, s.agg, SourceGPlay, "search", func(ctx context.Context) (SearchPage, error) {
		return s.gplay.search(ctx, s.query, continuation)
	})
	if !status.IsOK() {
		// keep the continuation so a later call can retry the same page
		s.tracker.observe(SourceGPlay, status)
		return s.result()
	}
	s.fold(ctx, sourceResult[SearchPage]{source: SourceGPlay, value: page, status: status}, s.agg.auth())
	return s.result()
}

// replaceWithOpenSource swaps GPlay hits for their open source equivalent when the open
// source catalog carries the same package. Lookups run on a bounded worker pool; a
// failed or empty lookup keeps the GPlay hit.
func (a *Aggregator) replaceWithOpenSource(ctx context.Context, apps []Application, seen map[string]bool) []Application {
	st, ok := a.strategies[SourceOpen]
	if !ok || st.lookup == nil || len(apps) == 0 {
		return apps
	}
	out := make([]Application, len(apps))
	copy(out, apps)

	indexes := make(chan int, len(out))
	for i, app := range out {
		if key := app.Key(); key != "" && !seen[key] {
			indexes <- i
		}
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < a.lookupConcurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				pkg := out[i].PackageName
				hit, status := call(ctx, a, SourceOpen, "replace", func(ctx context.Context) (Application, error) {
					return st.lookup(ctx, pkg)
				})
				if status.IsOK() && hit.Key() == out[i].Key() {
					hit.IsGplayReplaced = true
					out[i] = hit
				}
			}
		}()
	}
	wg.Wait()
	return out
}
