package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/repository"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	registry, err := NewStandardRegistry(repository.MemoryStores(), opts...)
	require.NoError(t, err)
	return registry
}

func templateRow(values map[string]string) domain.ImportRow {
	return domain.ImportRow{LineNumber: 1, Action: domain.ActionUpsert, Identifier: values["slug"], Values: values}
}

func TestFieldsCoercesTemplateColumns(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	fields, err := registry.Fields(entry, templateRow(map[string]string{
		"action":          "upsert",
		"slug":            "demo-1",
		"title":           "Demo One",
		"platform":        "N8N",
		"categories":      "marketing|sales",
		"tools":           "",
		"downloads_count": "10",
		"rating_avg":      "4,5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Demo One", fields["title"])
	assert.Equal(t, "n8n", fields["platform"])
	assert.Equal(t, []string{"marketing", "sales"}, fields["categories"])
	assert.Equal(t, []string{}, fields["tools"])
	assert.Equal(t, int64(10), fields["downloads_count"])
	assert.InDelta(t, 4.5, fields["rating_avg"], 0.0001)
	assert.NotContains(t, fields, "slug")
	assert.NotContains(t, fields, "description", "columns absent from the header stay untouched")
}

func TestFieldsReportsFirstMissingRequired(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	_, err = registry.Fields(entry, templateRow(map[string]string{
		"slug":     "demo-1",
		"title":    "",
		"platform": "",
	}))
	require.Error(t, err)
	assert.Equal(t, "title is required", err.Error())

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "title", fieldErr.Field)
}

func TestFieldsRejectsUnknownPlatform(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	_, err = registry.Fields(entry, templateRow(map[string]string{
		"slug":     "demo-1",
		"title":    "Demo",
		"platform": "foo",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `platform "foo" is not a recognized platform`)
}

func TestFieldsValidatesTypedColumns(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	tests := []struct {
		name   string
		column string
		value  string
		want   string
	}{
		{name: "url", column: "tutorial_url", value: "youtube.com/x", want: "tutorial_url"},
		{name: "email", column: "author_email", value: "not-an-email", want: "valid email"},
		{name: "enum", column: "status", value: "live", want: "draft, published, archived"},
		{name: "rating range", column: "rating_avg", value: "7", want: "<= 5"},
		{name: "negative downloads", column: "downloads_count", value: "-1", want: ">= 0"},
		{name: "integer", column: "downloads_count", value: "many", want: "unable to coerce"},
		{name: "integer overflow", column: "downloads_count", value: "1e19", want: `"1e19" is out of range`},
		{name: "integer just past int64", column: "downloads_count", value: "9.3e18", want: "is out of range"},
		{name: "integer digits past int64", column: "downloads_count", value: "99999999999999999999", want: "is out of range"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.Fields(entry, templateRow(map[string]string{
				"slug":     "demo-1",
				"title":    "Demo",
				"platform": "Make",
				tc.column:  tc.value,
			}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.True(t, strings.HasPrefix(err.Error(), tc.column), "message should name the column: %s", err)
		})
	}
}

func TestFieldsEmptyOptionalUsesDefault(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	fields, err := registry.Fields(entry, templateRow(map[string]string{
		"slug":     "demo-1",
		"title":    "Demo",
		"platform": "Zapier",
		"status":   "",
		"notes":    "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "draft", fields["status"])
	assert.Nil(t, fields["notes"])
}

func TestWithDefaultsFillsMissingColumns(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindTemplates)
	require.NoError(t, err)

	filled := entry.WithDefaults(map[string]any{"title": "Demo", "platform": "n8n"})

	assert.Equal(t, "pt-BR", filled["language"])
	assert.Equal(t, "draft", filled["status"])
	assert.Equal(t, int64(0), filled["downloads_count"])
	assert.Equal(t, []string{}, filled["categories"])
	assert.Nil(t, filled["description"])
	assert.Len(t, filled, len(entry.Columns))
}

func TestAgentPlatformIsOptional(t *testing.T) {
	registry := newTestRegistry(t)
	entry, err := registry.Lookup(domain.KindAgents)
	require.NoError(t, err)

	fields, err := registry.Fields(entry, domain.ImportRow{
		Identifier: "support-agent",
		Values:     map[string]string{"slug": "support-agent", "name": "Support", "platform": "", "tags": "a|b"},
	})
	require.NoError(t, err)
	assert.Nil(t, fields["platform"])
	assert.Equal(t, []string{"a", "b"}, fields["tags"])
}
