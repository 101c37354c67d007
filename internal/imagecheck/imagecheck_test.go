package imagecheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipstream/internal/model"
)

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Content-Length", "1024")
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png; charset=binary")
		case "/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck_ValidImage(t *testing.T) {
	srv := newImageServer(t)
	c := New(2, 5*time.Second)

	check := c.Check(context.Background(), model.Shipment{ID: "SHP-1", ImageURL: srv.URL + "/ok.jpg"})

	assert.True(t, check.Valid)
	assert.Equal(t, http.StatusOK, check.StatusCode)
	assert.Equal(t, "image/jpeg", check.ContentType)
	assert.Empty(t, check.Error)
}

func TestCheck_ContentTypeWithParams(t *testing.T) {
	srv := newImageServer(t)
	c := New(2, 5*time.Second)

	check := c.Check(context.Background(), model.Shipment{ID: "SHP-1", ImageURL: srv.URL + "/ok.png"})

	assert.True(t, check.Valid)
	assert.Equal(t, "image/png", check.ContentType)
}

func TestCheck_NotFound(t *testing.T) {
	srv := newImageServer(t)
	c := New(2, 5*time.Second)

	check := c.Check(context.Background(), model.Shipment{ID: "SHP-1", ImageURL: srv.URL + "/missing.jpg"})

	assert.False(t, check.Valid)
	assert.Equal(t, http.StatusNotFound, check.StatusCode)
	assert.Contains(t, check.Error, "unexpected status 404")
}

func TestCheck_WrongContentType(t *testing.T) {
	srv := newImageServer(t)
	c := New(2, 5*time.Second)

	check := c.Check(context.Background(), model.Shipment{ID: "SHP-1", ImageURL: srv.URL + "/page.html"})

	assert.False(t, check.Valid)
	assert.Contains(t, check.Error, "unsupported content type")
}

func TestCheck_Unreachable(t *testing.T) {
	c := New(2, time.Second)

	check := c.Check(context.Background(), model.Shipment{ID: "SHP-1", ImageURL: "http://127.0.0.1:1/x.jpg"})

	assert.False(t, check.Valid)
	assert.Contains(t, check.Error, "request failed")
}

func TestCheckAll(t *testing.T) {
	srv := newImageServer(t)
	c := New(3, 5*time.Second)

	shipments := []model.Shipment{
		{ID: "SHP-1", ImageURL: srv.URL + "/ok.jpg"},
		{ID: "SHP-2"},
		{ID: "SHP-3", ImageURL: srv.URL + "/missing.jpg"},
		{ID: "SHP-4", ImageURL: srv.URL + "/ok.jpg"},
	}

	checks, err := c.CheckAll(context.Background(), shipments)
	require.NoError(t, err)
	require.Len(t, checks, 3)

	assert.Equal(t, "SHP-1", checks[0].ShipmentID)
	assert.Equal(t, "SHP-3", checks[1].ShipmentID)
	assert.Equal(t, "SHP-4", checks[2].ShipmentID)
	assert.True(t, checks[0].Valid)
	assert.False(t, checks[1].Valid)
	assert.True(t, checks[2].Valid)
}

func TestSummarize(t *testing.T) {
	checks := []model.URLCheck{
		{ShipmentID: "SHP-1", Valid: true},
		{ShipmentID: "SHP-2", Valid: true},
		{ShipmentID: "SHP-3", StatusCode: 404, Error: "unexpected status 404"},
		{ShipmentID: "SHP-4", Error: "request failed: dial tcp"},
	}

	stats := Summarize(checks)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Valid)
	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 50.0, stats.ValidPercent)
	assert.Equal(t, 1, stats.ErrorsByType["status_404"])
	assert.Equal(t, 1, stats.ErrorsByType["request_failed"])
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.ValidPercent)
}
