package storage

import (
	"fmt"

	"github.com/applounge/lounge/pkg/fused"
)

// SectionKey identifies a stored home section.
type SectionKey struct {
	Source string
	Title  string
}

func KeyOf(home fused.Home) SectionKey {
	return SectionKey{Source: home.Source.String(), Title: home.Title}
}

func (k SectionKey) String() string {
	return fmt.Sprintf("%s|%s", k.Source, k.Title)
}
