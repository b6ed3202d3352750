// Package feedsync snapshots the fused home feed into the local database and
// reports which apps entered, changed in, or left each section since the last run.
package feedsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/applounge/lounge/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Home is the part of the aggregator a sync needs.
type Home interface {
	Home(ctx context.Context, onUpdate func(fused.HomeResult)) fused.HomeResult
}

// Config holds everything Sync needs.
type Config struct {
	Aggregator  Home
	DB          *storage.DB
	Concurrency int    // defaults to 4 if <= 0
	Log         Logger // optional; nil = no logging

	// OnSectionDone is called per section after its upsert, from worker goroutines.
	OnSectionDone func(key storage.SectionKey, changes []storage.Change, isFirstRun bool)
}

// Result holds the outcome of one sync.
type Result struct {
	Sections       []storage.SectionKey
	SectionChanges []storage.Change
	RemovedChanges []storage.Change // from SyncSections
	IsFirstRun     bool
	Unchanged      bool
	Errors         []error // non-fatal errors
}

// Changes returns every change of the run, per-section changes first.
func (r *Result) Changes() []storage.Change {
	out := make([]storage.Change, 0, len(r.SectionChanges)+len(r.RemovedChanges))
	out = append(out, r.SectionChanges...)
	return append(out, r.RemovedChanges...)
}

// minStoredSections is the stored section count above which an empty feed is
// treated as an outage instead of a real change.
const minStoredSections = 3

// Sync fetches the home feed, upserts every section concurrently and removes sections
// that disappeared. Sources that returned no sections keep their stored sections.
func Sync(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	if cfg.Aggregator == nil || cfg.DB == nil {
		return nil, errors.New("feedsync: aggregator and database are required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	db := cfg.DB
	result := &Result{}

	storedCount, err := db.SectionCount(ctx)
	if err != nil {
		log.Warnf("Could not count stored sections: %v", err)
	} else {
		result.IsFirstRun = storedCount == 0
	}

	ignored, err := db.IgnoredPackages(ctx)
	if err != nil {
		log.Warnf("Could not load ignored packages: %v", err)
		ignored = make(map[string]bool)
	}

	home := cfg.Aggregator.Home(ctx, nil)
	if !home.Status.IsOK() {
		err := fmt.Errorf("%s: %s", home.ErroredSource, home.Status)
		if len(home.Sections) == 0 {
			return nil, err
		}
		log.Warnf("Home feed partially failed: %v", err)
		result.Errors = append(result.Errors, err)
	}
	sections := withoutIgnored(home.Sections, ignored)

	stored, err := db.LoadHome(ctx)
	if err != nil {
		log.Warnf("Could not load stored feed: %v", err)
	} else if !fused.IsHomeUpdated(sections, stored) {
		log.Debugf("Home feed unchanged, %d sections", len(sections))
		result.Unchanged = true
		for _, s := range sections {
			result.Sections = append(result.Sections, storage.KeyOf(s))
		}
		return result, nil
	}

	if len(sections) == 0 && storedCount > minStoredSections {
		log.Errorf("Home feed returned 0 sections, but database has %d. Aborting sync to prevent data loss.", storedCount)
		return result, nil
	}

	if result.IsFirstRun && len(sections) > 0 {
		log.Infof("First sync, populating database with %d sections...", len(sections))
	}

	keys, failed, changes, errs := upsertConcurrently(ctx, db, sections, result.IsFirstRun, concurrency, log, cfg.OnSectionDone)
	result.Sections = keys
	result.SectionChanges = changes
	result.Errors = append(result.Errors, errs...)

	// a section whose upsert failed still exists upstream; keep its stored rows
	keep := append(append([]storage.SectionKey{}, keys...), failed...)
	fetched := make(map[fused.Source]bool)
	for _, s := range sections {
		fetched[s.Source] = true
	}
	for _, s := range stored {
		if !fetched[s.Source] {
			keep = append(keep, storage.KeyOf(s))
		}
	}
	removed, err := db.SyncSections(ctx, keep)
	if err != nil {
		log.Warnf("Failed to sync removed sections: %v", err)
		result.Errors = append(result.Errors, err)
	}
	result.RemovedChanges = removed

	if !result.IsFirstRun {
		if err := db.LogChanges(ctx, removed); err != nil {
			log.Warnf("Could not log removed section changes: %v", err)
		}
	}
	return result, nil
}

func withoutIgnored(sections []fused.Home, ignored map[string]bool) []fused.Home {
	if len(ignored) == 0 {
		return sections
	}
	out := make([]fused.Home, 0, len(sections))
	for _, s := range sections {
		apps := make([]fused.Application, 0, len(s.Apps))
		for _, app := range s.Apps {
			if !ignored[app.PackageName] {
				apps = append(apps, app)
			}
		}
		if len(apps) > 0 {
			out = append(out, fused.Home{Title: s.Title, Source: s.Source, Apps: apps})
		}
	}
	return out
}

type sectionJob struct {
	pos     int
	section fused.Home
}

// upsertConcurrently stores sections using a worker pool. Sections that failed with
// anything other than a refused wipe are returned in failed instead of keys.
func upsertConcurrently(
	ctx context.Context,
	db *storage.DB,
	sections []fused.Home,
	isFirstRun bool,
	concurrency int,
	log Logger,
	onDone func(storage.SectionKey, []storage.Change, bool),
) (keys, failed []storage.SectionKey, allChanges []storage.Change, allErrors []error) {
	if len(sections) == 0 {
		return []storage.SectionKey{}, nil, nil, nil
	}

	jobs := make(chan sectionJob, len(sections))

	var mu sync.Mutex
	keys = make([]storage.SectionKey, 0, len(sections))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				key := storage.KeyOf(job.section)
				changes, err := upsertOne(ctx, db, job, isFirstRun, log)
				if err != nil {
					mu.Lock()
					failed = append(failed, key)
					allErrors = append(allErrors, err)
					mu.Unlock()
					continue
				}

				mu.Lock()
				keys = append(keys, key)
				allChanges = append(allChanges, changes...)
				mu.Unlock()

				if onDone != nil {
					onDone(key, changes, isFirstRun)
				}
			}
		}()
	}

	for pos, s := range sections {
		jobs <- sectionJob{pos: pos, section: s}
	}
	close(jobs)
	wg.Wait()

	return keys, failed, allChanges, allErrors
}

func upsertOne(ctx context.Context, db *storage.DB, job sectionJob, isFirstRun bool, log Logger) ([]storage.Change, error) {
	key := storage.KeyOf(job.section)
	changes, err := db.UpsertSection(ctx, job.pos, job.section)
	if err != nil {
		if errors.Is(err, storage.ErrAbortingFeedWipe) {
			log.Warnf("Section %s came back empty. Skipping update.", key)
			return nil, nil
		}
		log.Warnf("Database error for section %s: %v", key, err)
		return nil, err
	}
	if !isFirstRun {
		if err := db.LogChanges(ctx, changes); err != nil {
			log.Warnf("Could not log changes for section %s: %v", key, err)
		}
	}
	return changes, nil
}
