package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/flowlib/internal/domain"
)

func TestParseRowsCSV(t *testing.T) {
	data := "\xEF\xBB\xBFAction, Slug ,Title,Platform\n" +
		"UPSERT,demo-1,Demo One,n8n\n" +
		",,,\n" +
		"delete,old-one,,\n"

	rows, err := ParseRows("templates.csv", []byte(data), "slug")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].LineNumber)
	assert.Equal(t, domain.ActionUpsert, rows[0].Action)
	assert.Equal(t, "demo-1", rows[0].Identifier)
	assert.Equal(t, "Demo One", rows[0].Value("title"))
	assert.True(t, rows[0].Has("platform"))
	assert.False(t, rows[0].Has("description"))

	assert.Equal(t, 3, rows[1].LineNumber, "blank rows still count towards line numbers")
	assert.Equal(t, domain.ActionDelete, rows[1].Action)
	assert.Equal(t, "", rows[1].Value("title"))
}

func TestParseRowsCountsEmptyLines(t *testing.T) {
	data := "action,slug,title\n\nupsert,demo-1,Demo\n\n\nupsert,demo-2,Other\n"

	rows, err := ParseRows("templates.csv", []byte(data), "slug")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].LineNumber)
	assert.Equal(t, 5, rows[1].LineNumber)
}

func TestParseRowsKeepsGoingPastUnreadableRows(t *testing.T) {
	data := "action,slug,title,platform\n" +
		"upsert,good-1,Good One,n8n\n" +
		"upsert,bad-1,He said \"hi\",n8n\n" +
		"upsert,good-2,Good Two,n8n\n" +
		"upsert,bad-2,\"never closed,n8n\n"

	rows, err := ParseRows("templates.csv", []byte(data), "slug")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "good-1", rows[0].Identifier)
	assert.Empty(t, rows[0].ParseError)

	assert.Equal(t, 2, rows[1].LineNumber)
	assert.Equal(t, `unreadable row: bare " in non-quoted-field`, rows[1].ParseError)
	assert.Empty(t, rows[1].Values)

	assert.Equal(t, 3, rows[2].LineNumber)
	assert.Equal(t, "Good Two", rows[2].Value("title"))

	assert.Equal(t, 4, rows[3].LineNumber)
	assert.Contains(t, rows[3].ParseError, "unreadable row:")
}

func TestParseRowsShortRecordsPadWithEmpty(t *testing.T) {
	rows, err := ParseRows("tools.csv", []byte("action,key,name,icon_url\nupsert,openai\n"), "key")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Has("icon_url"))
	assert.Equal(t, "", rows[0].Value("name"))
}

func TestParseRowsInputFatalErrors(t *testing.T) {
	tests := []struct {
		name      string
		fileName  string
		payload   []byte
		malformed bool
		target    error
	}{
		{name: "empty file", fileName: "a.csv", payload: nil, malformed: true},
		{name: "only blank lines", fileName: "a.csv", payload: []byte("\n , \n"), malformed: true},
		{name: "invalid utf8", fileName: "a.csv", payload: []byte("action,slug\nupsert,\xff\xfe\n"), malformed: true},
		{name: "unreadable header", fileName: "a.csv", payload: []byte("\"action,slug\nupsert,demo\n"), malformed: true},
		{name: "unsupported extension", fileName: "a.json", payload: []byte("{}"), target: ErrUnsupportedFormat},
		{name: "no extension", fileName: "upload", payload: []byte("a,b"), target: ErrUnsupportedFormat},
		{name: "corrupt xlsx", fileName: "a.xlsx", payload: []byte("not a zip"), malformed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRows(tc.fileName, tc.payload, "slug")
			require.Error(t, err)
			if tc.malformed {
				assert.True(t, IsMalformed(err), "expected MalformedInputError, got %v", err)
			}
			if tc.target != nil {
				assert.True(t, errors.Is(err, tc.target), "expected %v, got %v", tc.target, err)
			}
		})
	}
}

func TestParseRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"action", "key", "name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"upsert", "marketing", "Marketing"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"upsert", "sales", "Sales"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"upsert", "ops", "Ops"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseRows("categories.XLSX", buf.Bytes(), "key")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "marketing", rows[0].Identifier)
	assert.Equal(t, "Sales", rows[1].Value("name"))
	assert.Equal(t, 2, rows[1].LineNumber)
	assert.Equal(t, 4, rows[2].LineNumber)
}
