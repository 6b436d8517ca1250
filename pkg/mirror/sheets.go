package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// The mirror sheet layout: Timestamp, Title, Content, Synced.
const sheetRange = "A:D"

// SheetsMirror implements Mirror against the Google Sheets v4 REST API.
//
// Authentication is a bearer token obtained out of band (OAuth device flow
// or a service account); this client only attaches it. A 401 or 403 from
// the API surfaces as ErrAuth so callers can prompt for re-authentication.
type SheetsMirror struct {
	spreadsheetID string
	token         string
	baseURL       string
	client        *http.Client
}

// SheetsOptions configures a SheetsMirror.
type SheetsOptions struct {
	// SpreadsheetID identifies the sheet to mirror to. Required.
	SpreadsheetID string

	// Token is the OAuth bearer token. Required.
	Token string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// Timeout for each API request. Defaults to 30s.
	Timeout time.Duration
}

// NewSheetsMirror creates a mirror for the given spreadsheet.
func NewSheetsMirror(opts SheetsOptions) (*SheetsMirror, error) {
	if opts.SpreadsheetID == "" {
		return nil, ErrNotConfigured
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://sheets.googleapis.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &SheetsMirror{
		spreadsheetID: opts.SpreadsheetID,
		token:         opts.Token,
		baseURL:       opts.BaseURL,
		client:        &http.Client{Timeout: opts.Timeout},
	}, nil
}

// valuesResponse is the Sheets API response for a values.get call.
type valuesResponse struct {
	Values [][]string `json:"values"`
}

// valuesPayload is the request body for append and update calls.
type valuesPayload struct {
	Values [][]string `json:"values"`
}

// Rows fetches all data rows from the sheet, skipping the header row.
// The synced column accepts ✓, true, or yes, case-insensitively.
func (s *SheetsMirror) Rows(ctx context.Context) ([]Row, error) {
	url := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		s.baseURL, s.spreadsheetID, sheetRange)

	body, err := s.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp valuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode sheet values: %w", err)
	}

	if len(resp.Values) <= 1 {
		return nil, nil // Empty or header-only sheet
	}

	rows := make([]Row, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		rows = append(rows, Row{
			Index:     i + 2, // 1-indexed plus header row
			Timestamp: cell(raw, 0),
			Title:     cell(raw, 1),
			Content:   cell(raw, 2),
			Synced:    parseSynced(cell(raw, 3)),
		})
	}
	return rows, nil
}

// Append adds a new row at the bottom of the sheet. The row is written
// with the synced marker already set: the caller only appends thoughts the
// graph already holds.
func (s *SheetsMirror) Append(ctx context.Context, title, content string, timestamp time.Time) error {
	url := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		s.baseURL, s.spreadsheetID, sheetRange)

	payload := valuesPayload{
		Values: [][]string{{timestamp.UTC().Format(time.RFC3339), title, content, "✓"}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal append payload: %w", err)
	}

	_, err = s.do(ctx, http.MethodPost, url, body)
	return err
}

// MarkSynced writes the synced marker into column D of the given row.
func (s *SheetsMirror) MarkSynced(ctx context.Context, rowIndex int) error {
	if rowIndex < 2 {
		return fmt.Errorf("invalid row index %d: data rows start at 2", rowIndex)
	}

	url := fmt.Sprintf("%s/v4/spreadsheets/%s/values/D%d?valueInputOption=USER_ENTERED",
		s.baseURL, s.spreadsheetID, rowIndex)

	payload := valuesPayload{Values: [][]string{{"✓"}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal update payload: %w", err)
	}

	_, err = s.do(ctx, http.MethodPut, url, body)
	return err
}

// do executes one authenticated API request and maps failures onto the
// package sentinel errors.
func (s *SheetsMirror) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: sheets returned %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sheets returned %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// cell safely reads a column from a possibly short row.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseSynced interprets the synced marker column.
func parseSynced(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "✓", "true", "yes":
		return true
	}
	return false
}
