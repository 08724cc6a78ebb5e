package domain

import "strings"

// Kind names one importable catalog entity set.
type Kind string

const (
	KindTemplates  Kind = "templates"
	KindPlatforms  Kind = "platforms"
	KindCategories Kind = "categories"
	KindTools      Kind = "tools"
	KindAgents     Kind = "agents"
)

// AllKinds lists every kind in a stable order.
func AllKinds() []Kind {
	return []Kind{KindTemplates, KindPlatforms, KindCategories, KindTools, KindAgents}
}

// ParseKind normalizes a kind token taken from a URL or CLI argument.
func ParseKind(raw string) (Kind, bool) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range AllKinds() {
		if kind == candidate {
			return kind, true
		}
	}
	return "", false
}

func (k Kind) String() string {
	return string(k)
}
