package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultSheetTimeout  = 20 * time.Second
	defaultSheetMaxBytes = 10 << 20
)

// SheetFetcher downloads the CSV export of a public Google Sheet.
type SheetFetcher struct {
	client   *http.Client
	maxBytes int64
}

// SheetOption customizes a SheetFetcher.
type SheetOption func(*SheetFetcher)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) SheetOption {
	return func(f *SheetFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithSheetTimeout bounds a single download.
func WithSheetTimeout(timeout time.Duration) SheetOption {
	return func(f *SheetFetcher) {
		if timeout > 0 {
			f.client.Timeout = timeout
		}
	}
}

// WithSheetMaxBytes caps the accepted export size.
func WithSheetMaxBytes(limit int64) SheetOption {
	return func(f *SheetFetcher) {
		if limit > 0 {
			f.maxBytes = limit
		}
	}
}

// NewSheetFetcher creates a fetcher with a 20s timeout and a 10MB cap.
func NewSheetFetcher(opts ...SheetOption) *SheetFetcher {
	fetcher := &SheetFetcher{
		client:   &http.Client{Timeout: defaultSheetTimeout},
		maxBytes: defaultSheetMaxBytes,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// SheetExportURL rewrites a Google Sheets link into its CSV export URL,
// keeping the selected tab (gid) when the link carries one.
func SheetExportURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSheetURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidSheetURL)
	}
	if !strings.EqualFold(parsed.Hostname(), "docs.google.com") {
		return "", fmt.Errorf("%w: host %q is not docs.google.com", ErrInvalidSheetURL, parsed.Hostname())
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 3 || segments[0] != "spreadsheets" || segments[1] != "d" || segments[2] == "" {
		return "", fmt.Errorf("%w: path must look like /spreadsheets/d/<id>", ErrInvalidSheetURL)
	}
	sheetID := segments[2]

	gid := parsed.Query().Get("gid")
	if gid == "" && parsed.Fragment != "" {
		if fragment, err := url.ParseQuery(parsed.Fragment); err == nil {
			gid = fragment.Get("gid")
		}
	}

	export := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", url.PathEscape(sheetID))
	if gid != "" {
		export += "&gid=" + url.QueryEscape(gid)
	}
	return export, nil
}

// Fetch downloads the export for a sheet link.
func (f *SheetFetcher) Fetch(ctx context.Context, sheetURL string) ([]byte, error) {
	exportURL, err := SheetExportURL(sheetURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetFetch, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: export returned status %d (is the sheet shared publicly?)", ErrSheetFetch, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetFetch, err)
	}
	if int64(len(payload)) > f.maxBytes {
		return nil, fmt.Errorf("%w: export exceeds %d bytes", ErrSheetFetch, f.maxBytes)
	}
	return payload, nil
}
