package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficlens/internal/dashboard"
	"trafficlens/internal/selection"
	"trafficlens/internal/sessions"
	"trafficlens/internal/testsupport"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	march := testsupport.Month(2024, time.March)
	ds := testsupport.NewDataset().
		AddDevice("A", "Windows", "Chrome").
		AddDevice("B", "Linux", "Firefox").
		AddEvents("A", march, "https://www.linkedin.com", 2).
		AddEvents("B", march, "", 1)

	ctx, err := dashboard.NewContext(ds.EventTable(), ds.DeviceTable(), dashboard.Options{Threshold: 0})
	require.NoError(t, err)

	logger := testsupport.GetLogger()
	srv := NewServer(ServerConfig{
		AppName:  "trafficlens-test",
		Logger:   logger,
		Sessions: sessions.NewStore(ctx, time.Minute, logger),
	})
	srv.Get("/_health", HealthIndexAction)
	srv.Get("/api/v1/domains", DomainsIndexAction)
	srv.Post("/api/v1/sessions", SessionCreateAction)
	srv.Get("/api/v1/sessions/:id", SessionShowAction)
	srv.Delete("/api/v1/sessions/:id", SessionDeleteAction)
	srv.Put("/api/v1/sessions/:id/selections/:facet", SelectionUpdateAction)
	srv.Post("/api/v1/sessions/:id/clicks/:facet", BarClickAction)
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

type sessionBody struct {
	ID         string              `json:"id"`
	Selections map[string][]string `json:"selections"`
	Views      struct {
		SiteChart struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"site_chart"`
		OSChart struct {
			Facet string `json:"facet"`
			Rows  []struct {
				Name  string `json:"name"`
				Count int64  `json:"count"`
			} `json:"rows"`
		} `json:"os_chart"`
		BrowserChart struct {
			Facet string `json:"facet"`
			Rows  []struct {
				Name  string `json:"name"`
				Count int64  `json:"count"`
			} `json:"rows"`
		} `json:"browser_chart"`
	} `json:"views"`
	Recomputed []string `json:"recomputed"`
}

func createSession(t *testing.T, srv *Server) sessionBody {
	t.Helper()
	status, data := doRequest(t, srv, fiber.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, fiber.StatusCreated, status, string(data))

	var body sessionBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestHealthIndexAction(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv)

	status, data := doRequest(t, srv, fiber.MethodGet, "/_health", nil)
	require.Equal(t, fiber.StatusOK, status)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)
}

func TestDomainsIndexAction(t *testing.T) {
	srv := newTestServer(t)

	status, data := doRequest(t, srv, fiber.MethodGet, "/api/v1/domains", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{
		"sites": ["LinkedIn", "Other"],
		"os_types": ["Linux", "Windows"],
		"browsers": ["Chrome", "Firefox"],
		"threshold": 0
	}`, string(data))
}

func TestSessionCreateAction(t *testing.T) {
	srv := newTestServer(t)
	body := createSession(t, srv)

	assert.NotEmpty(t, body.ID)
	assert.Equal(t, []string{"Linux", "Windows"}, body.Selections["os_types"])
	assert.Equal(t, []string{"month", "LinkedIn", "Other"}, body.Views.SiteChart.Columns)
	assert.Equal(t, [][]any{{"2024-03", float64(2), float64(1)}}, body.Views.SiteChart.Rows)
	assert.Equal(t, "os_types", body.Views.OSChart.Facet)
	assert.Equal(t, "browsers", body.Views.BrowserChart.Facet)
}

func TestBarClickAction(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv).ID
	path := fmt.Sprintf("/api/v1/sessions/%s/clicks/os_types", id)

	status, data := doRequest(t, srv, fiber.MethodPost, path, ClickRequest{Value: "Linux"})
	require.Equal(t, fiber.StatusOK, status, string(data))

	var body sessionBody
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []string{"site_chart", "browser_chart"}, body.Recomputed)
	assert.Equal(t, []string{"Linux"}, body.Selections["os_types"])
	assert.Equal(t, [][]any{{"2024-03", float64(0), float64(1)}}, body.Views.SiteChart.Rows)
	require.Len(t, body.Views.BrowserChart.Rows, 1)
	assert.Equal(t, "Firefox", body.Views.BrowserChart.Rows[0].Name)

	// Second click on the only selected bar restores everything.
	status, data = doRequest(t, srv, fiber.MethodPost, path, ClickRequest{Value: "Linux"})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []string{"Linux", "Windows"}, body.Selections["os_types"])
}

func TestSelectionUpdateAction(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv).ID

	status, data := doRequest(t, srv, fiber.MethodPut,
		fmt.Sprintf("/api/v1/sessions/%s/selections/browsers", id),
		SelectionRequest{Values: []string{"Chrome"}})
	require.Equal(t, fiber.StatusOK, status, string(data))

	var body sessionBody
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []string{"site_chart", "os_chart"}, body.Recomputed)
	assert.Equal(t, [][]any{{"2024-03", float64(2), float64(0)}}, body.Views.SiteChart.Rows)
}

func TestSelectionUpdateActionRejections(t *testing.T) {
	tests := []struct {
		name   string
		facet  string
		values []string
		status int
	}{
		{name: "empty selection", facet: "sites", values: []string{}, status: fiber.StatusUnprocessableEntity},
		{name: "unknown value", facet: "os_types", values: []string{"Linux", "Plan9"}, status: fiber.StatusUnprocessableEntity},
		{name: "unknown facet", facet: "devices", values: []string{"x"}, status: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			created := createSession(t, srv)

			status, data := doRequest(t, srv, fiber.MethodPut,
				fmt.Sprintf("/api/v1/sessions/%s/selections/%s", created.ID, tt.facet),
				SelectionRequest{Values: tt.values})
			assert.Equal(t, tt.status, status, string(data))

			var errBody ErrorResponse
			require.NoError(t, json.Unmarshal(data, &errBody))
			assert.NotEmpty(t, errBody.Error)

			// State is unchanged.
			status, data = doRequest(t, srv, fiber.MethodGet, "/api/v1/sessions/"+created.ID, nil)
			require.Equal(t, fiber.StatusOK, status)
			var after sessionBody
			require.NoError(t, json.Unmarshal(data, &after))
			assert.Equal(t, created.Selections, after.Selections)
			assert.Equal(t, created.Views, after.Views)
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doRequest(t, srv, fiber.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, srv, fiber.MethodPost, "/api/v1/sessions/nope/clicks/sites", ClickRequest{Value: "Other"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, srv, fiber.MethodDelete, "/api/v1/sessions/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSessionDeleteAction(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv).ID

	status, _ := doRequest(t, srv, fiber.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Equal(t, 0, srv.Sessions().Len())
}

func TestInvalidBody(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv).ID

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/sessions/"+id+"/clicks/sites", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{sessions.ErrSessionNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrap: %w", selection.ErrUnknownFacet), fiber.StatusNotFound},
		{selection.ErrEmptySelection, fiber.StatusUnprocessableEntity},
		{&selection.UnknownValueError{Facet: selection.Sites, Value: "x"}, fiber.StatusUnprocessableEntity},
		{fiber.NewError(fiber.StatusBadRequest, "bad"), fiber.StatusBadRequest},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))
		})
	}
}
