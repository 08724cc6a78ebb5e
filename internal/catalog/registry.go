// Package catalog declares the importable catalog kinds: how each one is keyed,
// which columns it carries, how those columns are validated, and which store
// persists it. Import code looks kinds up here instead of branching on them.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/repository"
)

// ErrUnknownKind is returned for kinds that were never registered.
var ErrUnknownKind = errors.New("unknown import kind")

// ColumnType controls how a raw cell is coerced before storage.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnInteger  ColumnType = "integer"
	ColumnFloat    ColumnType = "float"
	ColumnList     ColumnType = "list"
	ColumnPlatform ColumnType = "platform"
)

// Column describes one content column of a kind.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
	// Rules is a validator tag applied to non-empty coerced values.
	Rules   string
	Default any
	Example string
	Help    string
}

// Entry is the registry record for a kind.
type Entry struct {
	Kind             domain.Kind
	Table            string
	IdentifierColumn string
	TitleColumn      string
	Columns          []Column
	Store            repository.RecordStore
}

// RequiredFields lists required columns in declaration order.
func (e Entry) RequiredFields() []string {
	var required []string
	for _, column := range e.Columns {
		if column.Required {
			required = append(required, column.Name)
		}
	}
	return required
}

// TableSpec is the storage layout handed to store factories.
func (e Entry) TableSpec() repository.Table {
	columns := make([]string, len(e.Columns))
	for i, column := range e.Columns {
		columns[i] = column.Name
	}
	return repository.Table{
		Kind:      e.Kind,
		Name:      e.Table,
		KeyColumn: e.IdentifierColumn,
		Columns:   columns,
	}
}

// Headers returns the full upload header for the kind.
func (e Entry) Headers() []string {
	headers := []string{"action", e.IdentifierColumn}
	for _, column := range e.Columns {
		headers = append(headers, column.Name)
	}
	return headers
}

// Registry maps kinds to their entries.
type Registry struct {
	entries   map[domain.Kind]Entry
	platforms *PlatformSet
	validate  *validator.Validate
}

// Option customizes a Registry.
type Option func(*Registry)

// WithPlatforms replaces the recognized platform names.
func WithPlatforms(names []string) Option {
	return func(r *Registry) {
		if len(names) > 0 {
			r.platforms = NewPlatformSet(names)
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	registry := &Registry{
		entries:   make(map[domain.Kind]Entry),
		platforms: NewPlatformSet(DefaultPlatforms),
		validate:  validator.New(),
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Register adds entry, replacing any previous entry for the same kind.
func (r *Registry) Register(entry Entry) error {
	if entry.Kind == "" {
		return errors.New("entry kind is required")
	}
	if entry.IdentifierColumn == "" {
		return fmt.Errorf("%s: identifier column is required", entry.Kind)
	}
	if entry.Store == nil {
		return fmt.Errorf("%s: store is required", entry.Kind)
	}
	seen := map[string]bool{"action": true, entry.IdentifierColumn: true}
	for _, column := range entry.Columns {
		if seen[column.Name] {
			return fmt.Errorf("%s: duplicate column %q", entry.Kind, column.Name)
		}
		seen[column.Name] = true
	}
	r.entries[entry.Kind] = entry
	return nil
}

// Lookup returns the entry for kind.
func (r *Registry) Lookup(kind domain.Kind) (Entry, error) {
	entry, ok := r.entries[kind]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return entry, nil
}

// Kinds lists registered kinds sorted by name.
func (r *Registry) Kinds() []domain.Kind {
	kinds := make([]domain.Kind, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Platforms exposes the recognized platform set.
func (r *Registry) Platforms() *PlatformSet {
	return r.platforms
}

// NewStandardRegistry registers the five marketplace kinds, binding each
// to a store built by stores.
func NewStandardRegistry(stores repository.StoreFactory, opts ...Option) (*Registry, error) {
	registry := NewRegistry(opts...)
	for _, entry := range StandardEntries() {
		entry.Store = stores(entry.TableSpec())
		if err := registry.Register(entry); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// StandardEntries returns the marketplace kinds without stores attached.
func StandardEntries() []Entry {
	return []Entry{
		{
			Kind:             domain.KindTemplates,
			Table:            "templates",
			IdentifierColumn: "slug",
			TitleColumn:      "title",
			Columns: []Column{
				{Name: "title", Type: ColumnText, Required: true, Example: "Demo One", Help: "display title"},
				{Name: "platform", Type: ColumnPlatform, Required: true, Example: "n8n", Help: "n8n, Make, Zapier, Voiceflow, RelevanceAI or Other"},
				{Name: "description", Type: ColumnText, Example: "Posts new leads to Slack"},
				{Name: "author_name", Type: ColumnText, Example: "Community"},
				{Name: "author_email", Type: ColumnText, Rules: "email", Example: "author@example.com"},
				{Name: "tutorial_url", Type: ColumnText, Rules: "http_url", Example: "https://youtube.com/watch?v=demo"},
				{Name: "preview_image_url", Type: ColumnText, Rules: "http_url"},
				{Name: "download_url", Type: ColumnText, Rules: "http_url"},
				{Name: "json_url", Type: ColumnText, Rules: "http_url"},
				{Name: "language", Type: ColumnText, Default: "pt-BR", Example: "pt-BR"},
				{Name: "status", Type: ColumnText, Rules: "oneof=draft published archived", Default: "draft", Example: "published"},
				{Name: "rating_avg", Type: ColumnFloat, Rules: "gte=0,lte=5", Example: "4.5"},
				{Name: "downloads_count", Type: ColumnInteger, Rules: "gte=0", Default: int64(0), Example: "10"},
				{Name: "tags", Type: ColumnText},
				{Name: "notes", Type: ColumnText},
				{Name: "external_id", Type: ColumnText},
				{Name: "categories", Type: ColumnList, Example: "marketing|sales", Help: "category keys separated by |"},
				{Name: "tools", Type: ColumnList, Example: "openai|slack", Help: "tool keys separated by |"},
			},
		},
		{
			Kind:             domain.KindPlatforms,
			Table:            "platforms",
			IdentifierColumn: "key",
			TitleColumn:      "name",
			Columns: []Column{
				{Name: "name", Type: ColumnText, Required: true, Example: "n8n"},
				{Name: "description", Type: ColumnText},
				{Name: "website_url", Type: ColumnText, Rules: "http_url", Example: "https://n8n.io"},
			},
		},
		{
			Kind:             domain.KindCategories,
			Table:            "categories",
			IdentifierColumn: "key",
			TitleColumn:      "name",
			Columns: []Column{
				{Name: "name", Type: ColumnText, Required: true, Example: "Marketing"},
				{Name: "description", Type: ColumnText, Example: "Automations for digital marketing"},
			},
		},
		{
			Kind:             domain.KindTools,
			Table:            "tools",
			IdentifierColumn: "key",
			TitleColumn:      "name",
			Columns: []Column{
				{Name: "name", Type: ColumnText, Required: true, Example: "OpenAI"},
				{Name: "icon_url", Type: ColumnText, Rules: "http_url"},
			},
		},
		{
			Kind:             domain.KindAgents,
			Table:            "agents",
			IdentifierColumn: "slug",
			TitleColumn:      "name",
			Columns: []Column{
				{Name: "name", Type: ColumnText, Required: true, Example: "Support Agent"},
				{Name: "description", Type: ColumnText},
				{Name: "platform", Type: ColumnPlatform, Example: "Voiceflow"},
				{Name: "tags", Type: ColumnList, Example: "support|chat"},
				{Name: "tutorial_url", Type: ColumnText, Rules: "http_url"},
			},
		},
	}
}
