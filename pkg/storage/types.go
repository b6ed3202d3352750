package storage

import "time"

const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// Change is one app entering, changing in, or leaving a home section.
type Change struct {
	OccurredAt time.Time `json:"occurred_at"`

	Source  string `json:"source"`
	Section string `json:"section"`

	PackageName string `json:"package_name"`
	Name        string `json:"name,omitempty"`
	VersionName string `json:"version_name,omitempty"`
	ChangeType  string `json:"change_type"` // added | updated | removed
}

// SourceStats summarizes the stored feed of one source.
type SourceStats struct {
	Source       string `json:"source"`
	SectionCount int    `json:"sections"`
	AppCount     int    `json:"apps"`
}
