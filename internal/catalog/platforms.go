package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPlatforms are the automation platforms the marketplace lists.
var DefaultPlatforms = []string{"n8n", "Make", "Zapier", "Voiceflow", "RelevanceAI", "Other"}

// PlatformSet matches platform names case-insensitively and returns their
// canonical spelling.
type PlatformSet struct {
	names     []string
	canonical map[string]string
}

// NewPlatformSet builds a set from names, keeping the first spelling seen.
func NewPlatformSet(names []string) *PlatformSet {
	set := &PlatformSet{canonical: make(map[string]string, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := foldKey(name)
		if _, exists := set.canonical[key]; exists {
			continue
		}
		set.canonical[key] = name
		set.names = append(set.names, name)
	}
	return set
}

// Canonical returns the stored spelling of name.
func (s *PlatformSet) Canonical(name string) (string, bool) {
	canonical, ok := s.canonical[foldKey(name)]
	return canonical, ok
}

// Names lists the canonical names in registration order.
func (s *PlatformSet) Names() []string {
	return append([]string(nil), s.names...)
}

func foldKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
