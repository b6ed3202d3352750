package fused

import (
	"fmt"
	"sort"
	"strings"
)

// CategoryType selects application or game categories.
type CategoryType int

const (
	CategoryApplication CategoryType = iota
	CategoryGame
)

func (t CategoryType) String() string {
	if t == CategoryGame {
		return "game"
	}
	return "app"
}

// ParseCategoryType accepts "app", "application", "game" and "games".
func ParseCategoryType(s string) (CategoryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "app", "apps", "application", "applications":
		return CategoryApplication, nil
	case "game", "games":
		return CategoryGame, nil
	}
	return CategoryApplication, fmt.Errorf("unknown category type %q", s)
}

type Category struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	BrowseURL string       `json:"browse_url,omitempty"`
	ImageURL  string       `json:"image_url,omitempty"`
	Icon      string       `json:"icon,omitempty"`
	Source    Source       `json:"source"`
	Type      CategoryType `json:"type"`
}

// sortCategories orders by title, case-insensitively. Equal titles from
// different sources are all kept.
func sortCategories(categories []Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		return strings.ToLower(categories[i].Title) < strings.ToLower(categories[j].Title)
	})
}

// Home is one titled section of the home screen feed.
type Home struct {
	Title  string        `json:"title"`
	Source Source        `json:"source"`
	Apps   []Application `json:"apps"`
}

// StreamCluster is one page of apps inside a Play Store stream bundle.
type StreamCluster struct {
	Title       string        `json:"title"`
	BrowseURL   string        `json:"browse_url,omitempty"`
	NextPageURL string        `json:"next_page_url,omitempty"`
	Apps        []Application `json:"apps"`
}

func (c StreamCluster) HasNext() bool { return c.NextPageURL != "" }

// StreamBundle groups clusters and may point at a following bundle.
type StreamBundle struct {
	Clusters    []StreamCluster `json:"clusters"`
	NextPageURL string          `json:"next_page_url,omitempty"`
}

func (b StreamBundle) HasNext() bool { return b.NextPageURL != "" }

// SearchPage is one page of Play Store search results.
type SearchPage struct {
	Apps         []Application
	Continuation string
}

// AppPage is one page of a CleanAPK category listing.
type AppPage struct {
	Apps  []Application
	Page  int
	Pages int
}

// DownloadFile describes one file of a Play Store delivery.
type DownloadFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// DownloadInfo describes where a CleanAPK build can be fetched.
type DownloadInfo struct {
	URL         string `json:"url"`
	Version     string `json:"version"`
	VersionCode int64  `json:"version_code"`
	SHA1        string `json:"sha1,omitempty"`
}
