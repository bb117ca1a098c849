package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := NewServer(engine.NewService(memory.NewStore()), Config{})
	s.SetStaticFS(fstest.MapFS{
		"index.html": {Data: []byte("<html>pathlord</html>")},
		"app.js":     {Data: []byte("console.log('hi')")},
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}

func TestGraphLifecycle(t *testing.T) {
	ts := newTestServer(t)

	for _, name := range []string{"A", "B", "C"} {
		resp, body := do(t, ts, "POST", "/api/nodes", `{"name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		var n graph.Node
		require.NoError(t, json.Unmarshal(body, &n))
		assert.Equal(t, name, n.Name)
		assert.NotEmpty(t, n.ID)
	}

	for _, e := range []string{
		`{"fromNode":"A","toNode":"B","weight":3}`,
		`{"fromNode":"B","toNode":"C","weight":4}`,
		`{"fromNode":"A","toNode":"C","weight":10}`,
	} {
		resp, body := do(t, ts, "POST", "/api/edges", e)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := do(t, ts, "GET", "/api/edges", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var edges []map[string]any
	require.NoError(t, json.Unmarshal(body, &edges))
	require.Len(t, edges, 3)
	assert.Equal(t, "A", edges[0]["fromNodeName"])
	assert.Equal(t, "B", edges[0]["toNodeName"])

	resp, body = do(t, ts, "POST", "/api/dijkstra", `{"startNode":"A","endNode":"C"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res graph.PathResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, []string{"A", "B", "C"}, res.Path)
	assert.Equal(t, 7.0, res.TotalWeight)

	resp, body = do(t, ts, "POST", "/api/dijkstra", `{"startNode":"C","endNode":"A"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no_path", decodeError(t, body).Error)

	resp, body = do(t, ts, "GET", "/api/results", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []graph.PathResult
	require.NoError(t, json.Unmarshal(body, &results))
	assert.Len(t, results, 1)

	resp, body = do(t, ts, "DELETE", "/api/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"cleared"}`, string(body))

	resp, body = do(t, ts, "GET", "/api/nodes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, "POST", "/api/nodes", `{"name":"A"}`)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"invalid json", "POST", "/api/nodes", `{"name":`, http.StatusBadRequest, "validation"},
		{"missing name", "POST", "/api/nodes", `{}`, http.StatusBadRequest, "validation"},
		{"duplicate name", "POST", "/api/nodes", `{"name":"A"}`, http.StatusConflict, "conflict"},
		{"missing weight", "POST", "/api/edges", `{"fromNode":"A","toNode":"A"}`, http.StatusBadRequest, "validation"},
		{"zero weight", "POST", "/api/edges", `{"fromNode":"A","toNode":"A","weight":0}`, http.StatusBadRequest, "validation"},
		{"negative weight", "POST", "/api/edges", `{"fromNode":"A","toNode":"A","weight":-1}`, http.StatusBadRequest, "validation"},
		{"unknown endpoint", "POST", "/api/edges", `{"fromNode":"A","toNode":"Z","weight":1}`, http.StatusNotFound, "not_found"},
		{"unknown path node", "POST", "/api/dijkstra", `{"startNode":"A","endNode":"Z"}`, http.StatusNotFound, "not_found"},
		{"empty path node", "POST", "/api/dijkstra", `{"startNode":"","endNode":"A"}`, http.StatusBadRequest, "validation"},
		{"bad limit", "GET", "/api/results?limit=abc", "", http.StatusBadRequest, "validation"},
		{"negative limit", "GET", "/api/results?limit=-1", "", http.StatusBadRequest, "validation"},
		{"unknown api route", "GET", "/api/nope", "", http.StatusNotFound, "not_found"},
		{"wrong method", "PUT", "/api/nodes", `{}`, http.StatusMethodNotAllowed, "method_not_allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			assert.Equal(t, tt.wantKind, decodeError(t, body).Error)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestValidationMessageUsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&ShortestPathRequest{})
	require.Error(t, err)
	assert.True(t, graph.IsValidation(err))
	assert.Contains(t, err.Error(), "startNode is required")
	assert.Contains(t, err.Error(), "endNode is required")
}

func TestResultsLimit(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, "POST", "/api/nodes", `{"name":"A"}`)
	for i := 0; i < 3; i++ {
		resp, _ := do(t, ts, "POST", "/api/dijkstra", `{"startNode":"A","endNode":"A"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	_, body := do(t, ts, "GET", "/api/results?limit=2", "")
	var results []graph.PathResult
	require.NoError(t, json.Unmarshal(body, &results))
	assert.Len(t, results, 2)
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, "GET", "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pathlord")

	resp, body = do(t, ts, "GET", "/app.js", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, string(body), "console.log")

	// Unknown paths fall back to the SPA shell.
	resp, body = do(t, ts, "GET", "/some/client/route", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pathlord")
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, ts, "GET", "/api/nodes", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, "POST", "/api/nodes", `{"name":"A"}`)

	resp, body := do(t, ts, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pathlord_graph_mutations_total")
}

// stubService fails every call with err, or panics when err is nil and
// panicking is set.
type stubService struct {
	err     error
	panic   bool
	results []graph.PathResult
}

func (s stubService) AddNode(context.Context, string) (graph.Node, error) {
	if s.panic {
		panic("kaboom")
	}
	return graph.Node{}, s.err
}
func (s stubService) AddEdge(context.Context, string, string, float64) (graph.EdgeView, error) {
	return graph.EdgeView{}, s.err
}
func (s stubService) ListNodes(context.Context) ([]graph.Node, error)     { return nil, s.err }
func (s stubService) ListEdges(context.Context) ([]graph.EdgeView, error) { return nil, s.err }
func (s stubService) ComputeShortestPath(context.Context, string, string) (graph.PathResult, error) {
	return graph.PathResult{}, s.err
}
func (s stubService) ListResults(context.Context, int) ([]graph.PathResult, error) {
	return s.results, s.err
}
func (s stubService) ClearGraph(context.Context) error { return s.err }
func (s stubService) Ping(context.Context) error       { return s.err }

func TestStorageFailures(t *testing.T) {
	svc := stubService{err: graph.NewStorageError("snapshot", errors.New("disk gone"))}
	ts := httptest.NewServer(NewServer(svc, Config{}).Handler())
	defer ts.Close()

	resp, body := do(t, ts, "DELETE", "/api/graph", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "storage", e.Error)
	assert.NotContains(t, e.Message, "disk gone")

	resp, body = do(t, ts, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "degraded", status.Status)
}

func TestUntypedErrorIsInternal(t *testing.T) {
	ts := httptest.NewServer(NewServer(stubService{err: errors.New("weird")}, Config{}).Handler())
	defer ts.Close()

	resp, body := do(t, ts, "GET", "/api/nodes", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", decodeError(t, body).Error)
}

func TestUnencodableResponseIsInternal(t *testing.T) {
	svc := stubService{results: []graph.PathResult{{ID: "r1", Path: []string{"A", "B"}, TotalWeight: math.Inf(1)}}}
	ts := httptest.NewServer(NewServer(svc, Config{}).Handler())
	defer ts.Close()

	resp, body := do(t, ts, "GET", "/api/results", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", decodeError(t, body).Error)
}

func TestOverflowingPathIsNoPath(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"A", "B", "C"} {
		resp, body := do(t, ts, "POST", "/api/nodes", `{"name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	for _, edge := range []string{
		`{"fromNode":"A","toNode":"B","weight":1.7e308}`,
		`{"fromNode":"B","toNode":"C","weight":1.7e308}`,
	} {
		resp, body := do(t, ts, "POST", "/api/edges", edge)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := do(t, ts, "POST", "/api/dijkstra", `{"startNode":"A","endNode":"C"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
	assert.Equal(t, "no_path", decodeError(t, body).Error)

	resp, body = do(t, ts, "GET", "/api/results", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []graph.PathResult
	require.NoError(t, json.Unmarshal(body, &results), string(body))
	assert.Empty(t, results)
}

func TestPanicRecovery(t *testing.T) {
	ts := httptest.NewServer(NewServer(stubService{panic: true}, Config{}).Handler())
	defer ts.Close()

	resp, body := do(t, ts, "POST", "/api/nodes", `{"name":"A"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", decodeError(t, body).Error)
}

func TestHealthOK(t *testing.T) {
	ts := newTestServer(t)
	resp, body := do(t, ts, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/nodes", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSecureHeaders(t *testing.T) {
	// Create a handler that just returns 200 OK
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap it with our middleware
	secureHandler := withSecureHeaders(handler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	secureHandler.ServeHTTP(w, req)

	expectedHeaders := map[string]string{
		"Content-Security-Policy":   "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;",
		"Strict-Transport-Security": "max-age=63072000; includeSubDomains",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Referrer-Policy":           "no-referrer",
		"X-XSS-Protection":          "1; mode=block",
	}

	for key, expected := range expectedHeaders {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("Header %s: expected %q, got %q", key, expected, got)
		}
	}
}
