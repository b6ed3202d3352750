package fused

import (
	"reflect"
	"strings"
)

// Origin identifies which backend family produced an Application.
type Origin int

const (
	OriginGPlay Origin = iota
	OriginCleanAPK
)

func (o Origin) String() string {
	switch o {
	case OriginGPlay:
		return "GPLAY"
	case OriginCleanAPK:
		return "CLEANAPK"
	default:
		return "UNKNOWN"
	}
}

// AppType distinguishes installable packages from progressive web apps.
type AppType int

const (
	TypeNative AppType = iota
	TypePWA
)

func (t AppType) String() string {
	if t == TypePWA {
		return "PWA"
	}
	return "NATIVE"
}

// Status is the installation state of an app on the device.
type Status int

const (
	StatusUnavailable Status = iota
	StatusInstalled
	StatusUpdatable
	StatusQueued
	StatusAwaiting
	StatusDownloading
	StatusDownloaded
	StatusInstalling
	StatusBlocked
	StatusInstallationIssue
)

var statusNames = map[Status]string{
	StatusUnavailable:       "UNAVAILABLE",
	StatusInstalled:         "INSTALLED",
	StatusUpdatable:         "UPDATABLE",
	StatusQueued:            "QUEUED",
	StatusAwaiting:          "AWAITING",
	StatusDownloading:       "DOWNLOADING",
	StatusDownloaded:        "DOWNLOADED",
	StatusInstalling:        "INSTALLING",
	StatusBlocked:           "BLOCKED",
	StatusInstallationIssue: "INSTALLATION_ISSUE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNAVAILABLE"
}

// Application is the canonical app record every source adapter produces.
type Application struct {
	ID               string   `json:"id"`
	PackageName      string   `json:"package_name"`
	Name             string   `json:"name"`
	Author           string   `json:"author"`
	Description      string   `json:"description,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	IconURL          string   `json:"icon_url,omitempty"`
	ScreenshotURLs   []string `json:"screenshot_urls,omitempty"`
	VersionCode      int64    `json:"version_code"`
	VersionName      string   `json:"version_name,omitempty"`
	OriginalSize     int64    `json:"original_size"`
	IsFree           bool     `json:"is_free"`
	Price            string   `json:"price,omitempty"`
	OfferType        int      `json:"offer_type"`
	Rating           float64  `json:"rating"`
	PrivacyScore     int      `json:"privacy_score"`
	Permissions      []string `json:"permissions,omitempty"`
	Trackers         []string `json:"trackers,omitempty"`
	Category         string   `json:"category,omitempty"`
	URL              string   `json:"url,omitempty"`

	Origin          Origin      `json:"origin"`
	Type            AppType     `json:"type"`
	Status          Status      `json:"status"`
	FilterLevel     FilterLevel `json:"filter_level"`
	Restricted      bool        `json:"restricted"`
	IsGplayReplaced bool        `json:"is_gplay_replaced"`
	IsPlaceholder   bool        `json:"is_placeholder"`
	SourceLabel     string      `json:"source"`
}

// Placeholder returns the sentinel entry that tells a renderer more results are loading.
// It carries no payload.
func Placeholder() Application {
	return Application{IsPlaceholder: true}
}

// Key is the identity used for de-duplication inside a merged result set.
func (a Application) Key() string {
	return strings.TrimSpace(a.PackageName)
}

// Equal reports full structural equality.
func (a Application) Equal(b Application) bool {
	return reflect.DeepEqual(a, b)
}

// mergeUnique appends every non-placeholder app from add whose key is not yet in seen.
// It returns a fresh slice; base is never modified.
func mergeUnique(base []Application, seen map[string]bool, add []Application) []Application {
	out := make([]Application, 0, len(base)+len(add))
	out = append(out, base...)
	for _, app := range add {
		if app.IsPlaceholder {
			continue
		}
		key := app.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, app)
	}
	return out
}

// withoutPlaceholders drops every sentinel entry.
func withoutPlaceholders(apps []Application) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if !app.IsPlaceholder {
			out = append(out, app)
		}
	}
	return out
}
