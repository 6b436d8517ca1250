package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetsMirrorRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/A:D", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(valuesResponse{Values: [][]string{
			{"Timestamp", "Title", "Content", "Synced"},
			{"2025-06-01T10:00:00Z", "First", "body one", "✓"},
			{"2025-06-02T11:00:00Z", "Second", "body two", ""},
			{"2025-06-03T12:00:00Z", "Short row"}, // missing columns
		}})
	}))
	defer server.Close()

	m, err := NewSheetsMirror(SheetsOptions{
		SpreadsheetID: "sheet-1",
		Token:         "tok",
		BaseURL:       server.URL,
	})
	require.NoError(t, err)

	rows, err := m.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Index, "data rows start after the header")
	assert.Equal(t, "First", rows[0].Title)
	assert.True(t, rows[0].Synced)

	assert.Equal(t, 3, rows[1].Index)
	assert.False(t, rows[1].Synced)

	assert.Equal(t, "Short row", rows[2].Title)
	assert.Empty(t, rows[2].Content)
	assert.False(t, rows[2].Synced)
}

func TestSheetsMirrorRowsEmptySheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(valuesResponse{Values: [][]string{
			{"Timestamp", "Title", "Content", "Synced"},
		}})
	}))
	defer server.Close()

	m, err := NewSheetsMirror(SheetsOptions{SpreadsheetID: "s", Token: "t", BaseURL: server.URL})
	require.NoError(t, err)

	rows, err := m.Rows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheetsMirrorAppend(t *testing.T) {
	var captured valuesPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/A:D:append", r.URL.Path)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	m, err := NewSheetsMirror(SheetsOptions{SpreadsheetID: "sheet-1", Token: "t", BaseURL: server.URL})
	require.NoError(t, err)

	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, m.Append(context.Background(), "New idea", "some content", ts))

	require.Len(t, captured.Values, 1)
	row := captured.Values[0]
	require.Len(t, row, 4)
	assert.Equal(t, "2025-06-01T09:30:00Z", row[0])
	assert.Equal(t, "New idea", row[1])
	assert.Equal(t, "some content", row[2])
	assert.Equal(t, "✓", row[3], "app-appended rows are born synced")
}

func TestSheetsMirrorMarkSynced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/D7", r.URL.Path)

		var payload valuesPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, [][]string{{"✓"}}, payload.Values)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	m, err := NewSheetsMirror(SheetsOptions{SpreadsheetID: "sheet-1", Token: "t", BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, m.MarkSynced(context.Background(), 7))
	assert.Error(t, m.MarkSynced(context.Background(), 1), "header row is not markable")
}

func TestSheetsMirrorAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	m, err := NewSheetsMirror(SheetsOptions{SpreadsheetID: "s", Token: "stale", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = m.Rows(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestSheetsMirrorNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	m, err := NewSheetsMirror(SheetsOptions{SpreadsheetID: "s", Token: "t", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = m.Rows(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSheetsMirrorRequiresSpreadsheetID(t *testing.T) {
	_, err := NewSheetsMirror(SheetsOptions{Token: "t"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseSynced(t *testing.T) {
	assert.True(t, parseSynced("✓"))
	assert.True(t, parseSynced("TRUE"))
	assert.True(t, parseSynced(" yes "))
	assert.False(t, parseSynced(""))
	assert.False(t, parseSynced("no"))
	assert.False(t, parseSynced("0"))
}

func TestMemoryMirror(t *testing.T) {
	m := NewMemoryMirror()
	ctx := context.Background()

	m.Seed([]Row{
		{Title: "seeded", Content: "from phone", Synced: false},
	})

	rows, err := m.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Index)

	require.NoError(t, m.MarkSynced(ctx, 2))
	rows, _ = m.Rows(ctx)
	assert.True(t, rows[0].Synced)

	require.NoError(t, m.Append(ctx, "from app", "body", time.Now()))
	rows, _ = m.Rows(ctx)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].Synced)

	m.FailWith = ErrNetwork
	_, err = m.Rows(ctx)
	assert.ErrorIs(t, err, ErrNetwork)
}
