package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/flowlib/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ParseRows turns an upload into ordered import rows. The file extension
// selects the decoder (.csv or .xlsx). Row level problems are left for the
// classifier; only an unreadable table fails here.
func ParseRows(fileName string, payload []byte, identifierColumn string) ([]domain.ImportRow, error) {
	if len(payload) == 0 {
		return nil, malformed("file is empty", nil)
	}

	records, err := parseRecords(fileName, payload)
	if err != nil {
		return nil, err
	}
	return buildRows(records, identifierColumn)
}

// sourceRecord is one table row and the 1-based physical line it starts on.
// err is set when the row itself could not be decoded.
type sourceRecord struct {
	line   int
	fields []string
	err    error
}

func parseRecords(fileName string, payload []byte) ([]sourceRecord, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s (expected .csv or .xlsx)", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]sourceRecord, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	if !utf8.Valid(payload) {
		return nil, malformed("file is not valid UTF-8 text", nil)
	}

	csvReader := csv.NewReader(bufio.NewReader(bytes.NewReader(payload)))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records := []sourceRecord{}
	for {
		fields, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		// The reader resumes after the offending record, so a bad row only costs itself.
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			records = append(records, sourceRecord{line: parseErr.StartLine, err: parseErr.Err})
			continue
		}
		if err != nil {
			return nil, malformed("failed to read csv", err)
		}
		line, _ := csvReader.FieldPos(0)
		records = append(records, sourceRecord{line: line, fields: fields})
	}
	return records, nil
}

func parseExcel(payload []byte) ([]sourceRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, malformed("failed to open xlsx", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, malformed("excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, malformed("failed to read rows from xlsx", err)
	}
	records := make([]sourceRecord, 0, len(rows))
	for idx, row := range rows {
		for _, cell := range row {
			if !utf8.ValidString(cell) {
				return nil, malformed("xlsx contains invalid UTF-8 text", nil)
			}
		}
		records = append(records, sourceRecord{line: idx + 1, fields: row})
	}
	return records, nil
}

// buildRows maps records positionally onto the first non-empty line.
// Line numbers are physical lines after the header, so skipped blank lines
// still count and CSV and XLSX copies of a sheet number rows alike.
func buildRows(records []sourceRecord, identifierColumn string) ([]domain.ImportRow, error) {
	headerIndex := -1
	for idx, record := range records {
		if record.err != nil {
			return nil, malformed("failed to read header", record.err)
		}
		if !isBlank(record.fields) {
			headerIndex = idx
			break
		}
	}
	if headerIndex < 0 {
		return nil, malformed("header row is missing", nil)
	}

	header := records[headerIndex]
	headers := normalizeHeaders(header.fields)

	rows := []domain.ImportRow{}
	for _, record := range records[headerIndex+1:] {
		lineNumber := record.line - header.line
		if record.err != nil {
			rows = append(rows, domain.ImportRow{
				LineNumber: lineNumber,
				ParseError: fmt.Sprintf("unreadable row: %v", record.err),
			})
			continue
		}
		if isBlank(record.fields) {
			continue
		}

		values := make(map[string]string, len(headers))
		for col, name := range headers {
			if name == "" {
				continue
			}
			if _, seen := values[name]; seen {
				continue
			}
			var cell string
			if col < len(record.fields) {
				cell = strings.TrimSpace(record.fields[col])
			}
			values[name] = cell
		}

		rows = append(rows, domain.ImportRow{
			LineNumber: lineNumber,
			Action:     domain.Action(strings.ToLower(values["action"])),
			Identifier: values[identifierColumn],
			Values:     values,
		})
	}

	return rows, nil
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = strings.ReplaceAll(name, " ", "_")
		headers[idx] = name
	}
	return headers
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// IsMalformed reports whether err is an input-fatal parsing failure.
func IsMalformed(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}
