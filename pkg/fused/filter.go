package fused

import (
	"context"
	"strings"
)

// FilterLevel decides whether and how an app is shown.
type FilterLevel int

const (
	// FilterNone shows the app.
	FilterNone FilterLevel = iota
	// FilterUI shows the app but marks it unavailable for purchase or download.
	FilterUI
	// FilterData hides the app; the backend does not expose it at all.
	FilterData
	// FilterUnknown means the level cannot be determined (e.g. no credentials).
	FilterUnknown
)

func (l FilterLevel) String() string {
	switch l {
	case FilterNone:
		return "NONE"
	case FilterUI:
		return "UI"
	case FilterData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Prober is the subset of the Play Store backend the filter engine probes.
type Prober interface {
	AppDetails(ctx context.Context, packageName string) (Application, error)
	DownloadInfo(ctx context.Context, packageName string, versionCode int64, offerType int) ([]DownloadFile, error)
}

// FilterEngine computes per-app visibility. Only region-restricted Play Store apps
// cause network probes.
type FilterEngine struct {
	probe Prober
}

func NewFilterEngine(probe Prober) *FilterEngine {
	return &FilterEngine{probe: probe}
}

// FilterLevel evaluates the decision table in order; the first match wins.
func (e *FilterEngine) FilterLevel(ctx context.Context, app Application, auth *AuthData) FilterLevel {
	if strings.TrimSpace(app.PackageName) == "" {
		return FilterUnknown
	}
	if !app.IsFree && strings.TrimSpace(app.Price) == "" {
		return FilterUI
	}
	if app.Origin != OriginGPlay {
		return FilterNone
	}
	if !app.Restricted {
		return FilterNone
	}
	if auth == nil || e == nil || e.probe == nil {
		return FilterUnknown
	}

	details, err := e.probe.AppDetails(ctx, app.PackageName)
	if err != nil {
		return FilterData
	}
	if details.OriginalSize == 0 {
		return FilterUI
	}
	if _, err := e.probe.DownloadInfo(ctx, app.PackageName, details.VersionCode, details.OfferType); err != nil {
		return FilterUI
	}
	return FilterNone
}

// Apply sets FilterLevel on every app and drops the ones at FilterData.
// Placeholders pass through untouched.
func (e *FilterEngine) Apply(ctx context.Context, apps []Application, auth *AuthData) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if app.IsPlaceholder {
			out = append(out, app)
			continue
		}
		app.FilterLevel = e.FilterLevel(ctx, app, auth)
		if app.FilterLevel == FilterData {
			continue
		}
		out = append(out, app)
	}
	return out
}
