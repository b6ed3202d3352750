package fused

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsListUpdated(t *testing.T) {
	a, b := gplayApp("com.a"), gplayApp("com.b")

	assert.False(t, IsListUpdated(nil, nil))
	assert.False(t, IsListUpdated([]Application{a, b}, []Application{a, b}))
	assert.True(t, IsListUpdated([]Application{a}, []Application{a, b}), "size change")

	renamed := b
	renamed.Name = "B renamed"
	assert.True(t, IsListUpdated([]Application{a, renamed}, []Application{a, b}))
}

func TestIsListUpdatedDuplicateIDs(t *testing.T) {
	a, b := gplayApp("com.a"), gplayApp("com.b")
	assert.True(t, IsListUpdated([]Application{a, a}, []Application{a, b}))
	assert.True(t, IsListUpdated([]Application{a, b}, []Application{a, a}))
	assert.False(t, IsListUpdated([]Application{a, a}, []Application{a, a}))
}

func TestIsHomeUpdated(t *testing.T) {
	section := Home{Title: "Top", Source: SourceGPlay, Apps: []Application{gplayApp("com.a")}}
	same := Home{Title: "Top", Source: SourceGPlay, Apps: []Application{gplayApp("com.a")}}
	retitled := Home{Title: "Popular", Source: SourceGPlay, Apps: section.Apps}

	assert.False(t, IsHomeUpdated([]Home{section}, []Home{same}))
	assert.True(t, IsHomeUpdated([]Home{section}, []Home{retitled}))
	assert.True(t, IsHomeUpdated([]Home{section}, nil))
}

func TestIsInstallStatusChanged(t *testing.T) {
	installed := gplayApp("com.a")
	installed.Status = StatusInstalled
	broken := gplayApp("com.b")
	broken.Status = StatusInstallationIssue

	live := map[string]Status{"com.a": StatusInstalled, "com.b": StatusUnavailable}
	provider := StatusFunc(func(pkg string, _ int64) Status { return live[pkg] })

	assert.False(t, IsInstallStatusChanged([]Application{installed, broken, Placeholder()}, provider))

	live["com.a"] = StatusUpdatable
	assert.True(t, IsInstallStatusChanged([]Application{installed, broken}, provider))
	assert.False(t, IsInstallStatusChanged([]Application{installed}, nil))
}
