package fused

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Source tags the catalog an item or category came from.
type Source int

const (
	SourceGPlay Source = iota
	SourceOpen
	SourcePWA
)

// allSources is the fixed order used whenever sources are folded or reported.
var allSources = []Source{SourceGPlay, SourceOpen, SourcePWA}

func (s Source) String() string {
	switch s {
	case SourceGPlay:
		return "GPlay"
	case SourceOpen:
		return "Open Source"
	case SourcePWA:
		return "PWA"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ParseSource accepts labels as well as short CLI names (gplay, open, pwa).
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gplay", "google", "play":
		return SourceGPlay, nil
	case "open", "opensource", "open source", "open-source", "fdroid":
		return SourceOpen, nil
	case "pwa", "web":
		return SourcePWA, nil
	}
	return SourceGPlay, fmt.Errorf("unknown source %q", s)
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, err := ParseSource(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SourceSet is a subset of {GPlay, Open Source, PWA}.
type SourceSet uint8

func NewSourceSet(sources ...Source) SourceSet {
	var set SourceSet
	for _, s := range sources {
		set = set.Add(s)
	}
	return set
}

func (set SourceSet) Add(s Source) SourceSet { return set | 1<<uint(s) }

func (set SourceSet) Has(s Source) bool { return set&(1<<uint(s)) != 0 }

// Sources lists members in the fixed source order.
func (set SourceSet) Sources() []Source {
	var out []Source
	for _, s := range allSources {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Preferences tells the aggregator which sources the user enabled.
// It is read on every call.
type Preferences interface {
	EnabledSources() SourceSet
}

// StaticPreferences is a fixed source selection.
type StaticPreferences SourceSet

func (p StaticPreferences) EnabledSources() SourceSet { return SourceSet(p) }

// AuthData carries Play Store gateway credentials.
type AuthData struct {
	Email string
	Token string
}

// PlayStore is the Google-Play-compatible backend, already adapted to the fused model.
type PlayStore interface {
	Home(ctx context.Context) ([]Home, error)
	Search(ctx context.Context, query, continuation string) (SearchPage, error)
	AppDetails(ctx context.Context, packageName string) (Application, error)
	DownloadInfo(ctx context.Context, packageName string, versionCode int64, offerType int) ([]DownloadFile, error)
	Categories(ctx context.Context, categoryType CategoryType) ([]Category, error)
	Bundle(ctx context.Context, url string) (StreamBundle, error)
	Cluster(ctx context.Context, url string) (StreamCluster, error)
}

// Catalog is a CleanAPK-style REST catalog (open source or PWA), already adapted.
type Catalog interface {
	Home(ctx context.Context) ([]Home, error)
	Search(ctx context.Context, keyword string) ([]Application, error)
	AppByPackage(ctx context.Context, packageName string) (Application, error)
	Categories(ctx context.Context, categoryType CategoryType) ([]Category, error)
	AppsByCategory(ctx context.Context, category string, page int) (AppPage, error)
	AppDetails(ctx context.Context, id string) (Application, error)
	DownloadInfo(ctx context.Context, id, version string) (DownloadInfo, error)
}

// StatusProvider reports the live installation state of a package.
type StatusProvider interface {
	Status(packageName string, versionCode int64) Status
}

// StatusFunc adapts a function to StatusProvider.
type StatusFunc func(packageName string, versionCode int64) Status

func (f StatusFunc) Status(packageName string, versionCode int64) Status {
	return f(packageName, versionCode)
}

// Logger abstracts logging so callers can pass logrus or anything with the same methods.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
