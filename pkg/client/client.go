package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// DefaultEndpoint is used when NewClient is given an empty endpoint.
const DefaultEndpoint = "http://127.0.0.1:8090"

// Client is the pathlord SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
	attempts int
}

// NewClient creates a new pathlord client.
// endpoint defaults to DefaultEndpoint if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff:  DefaultBackoff(),
		attempts: 3,
	}
}

// WithRetry sets how many times idempotent reads are attempted and the wait
// between attempts. attempts <= 1 disables retries.
func (c *Client) WithRetry(attempts int, strategy BackoffStrategy) *Client {
	c.attempts = attempts
	c.backoff = strategy
	return c
}

// Endpoint returns the daemon base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// AddNode creates a node.
func (c *Client) AddNode(ctx context.Context, name string) (graph.Node, error) {
	var node graph.Node
	err := c.send(ctx, http.MethodPost, "/api/nodes", createNodeRequest{Name: name}, http.StatusCreated, &node)
	return node, err
}

// AddEdge creates a directed edge between two named nodes.
func (c *Client) AddEdge(ctx context.Context, fromName, toName string, weight float64) (graph.EdgeView, error) {
	var edge graph.EdgeView
	req := createEdgeRequest{FromNode: fromName, ToNode: toName, Weight: weight}
	err := c.send(ctx, http.MethodPost, "/api/edges", req, http.StatusCreated, &edge)
	return edge, err
}

// ListNodes fetches every node in creation order.
func (c *Client) ListNodes(ctx context.Context) ([]graph.Node, error) {
	var nodes []graph.Node
	err := c.get(ctx, "/api/nodes", &nodes)
	return nodes, err
}

// ListEdges fetches every edge with endpoint names.
func (c *Client) ListEdges(ctx context.Context) ([]graph.EdgeView, error) {
	var edges []graph.EdgeView
	err := c.get(ctx, "/api/edges", &edges)
	return edges, err
}

// ShortestPath asks the daemon for the shortest path from start to end. The
// daemon records successful results.
func (c *Client) ShortestPath(ctx context.Context, start, end string) (graph.PathResult, error) {
	var res graph.PathResult
	req := shortestPathRequest{StartNode: start, EndNode: end}
	err := c.send(ctx, http.MethodPost, "/api/dijkstra", req, http.StatusOK, &res)
	return res, err
}

// ListResults fetches recorded results, most recent first. limit <= 0
// fetches all.
func (c *Client) ListResults(ctx context.Context, limit int) ([]graph.PathResult, error) {
	path := "/api/results"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var results []graph.PathResult
	err := c.get(ctx, path, &results)
	return results, err
}

// ClearGraph removes every node, edge and result.
func (c *Client) ClearGraph(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/api/graph", nil, http.StatusOK, nil)
}

// Ping checks the health of the daemon. A degraded daemon returns its
// status together with an error.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, fmt.Errorf("failed to decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("daemon %s: %s", status.Status, status.Error)
	}
	return status, nil
}

// get performs an idempotent GET, retrying network errors and 5xx responses.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry(ctx, c.attempts, c.backoff, func() (bool, error) {
		err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, out)
		return isRetryable(err), err
	})
}

// send performs a single non-idempotent request.
func (c *Client) send(ctx context.Context, method, path string, body any, want int, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	return c.do(ctx, method, path, payload, want, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, want int, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-success responses the daemon did not
// describe with a typed error body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "daemon unreachable: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// decodeError turns an error response into a *graph.Error when the body
// carries a known kind, so graph.IsNotFound and friends work client-side.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		if kind, ok := kindFromWire(body.Error); ok {
			return &graph.Error{Kind: kind, Message: body.Message, Cause: &StatusError{StatusCode: resp.StatusCode, Body: body.Error}}
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func kindFromWire(s string) (graph.Kind, bool) {
	switch s {
	case "validation":
		return graph.KindValidation, true
	case "not_found":
		return graph.KindNotFound, true
	case "no_path":
		return graph.KindNoPath, true
	case "conflict":
		return graph.KindConflict, true
	case "storage":
		return graph.KindStorage, true
	}
	return "", false
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return false
}
