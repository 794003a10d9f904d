package inspectsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"inspectline/internal/domain"
	"inspectline/internal/inspection"
)

// Client is a minimal Inspectline HTTP API client. It satisfies
// inspection.Gateway and inspection.Directory.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

var (
	_ inspection.Gateway   = (*Client)(nil)
	_ inspection.Directory = (*Client)(nil)
)

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/api",
		Timeout:  10 * time.Second,
	}
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error) {
	var resp []domain.Mission
	err := c.do(ctx, http.MethodGet, "inspections?kind="+url.QueryEscape(string(kind)), nil, &resp)
	return resp, err
}

func (c *Client) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	var resp domain.Mission
	err := c.do(ctx, http.MethodGet, "inspections/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SyncMissions asks the server to create the missing missions of kind.
func (c *Client) SyncMissions(ctx context.Context, kind domain.Kind) (domain.SyncResult, error) {
	spec, err := inspection.SpecFor(kind)
	if err != nil {
		return domain.SyncResult{}, err
	}
	var resp domain.SyncResult
	err = c.do(ctx, http.MethodPost, spec.SyncPath, nil, &resp)
	return resp, err
}

// SyncAll runs SyncMissions for every kind concurrently.
func (c *Client) SyncAll(ctx context.Context, kinds ...domain.Kind) (map[domain.Kind]domain.SyncResult, error) {
	if len(kinds) == 0 {
		kinds = domain.Kinds
	}
	var mu sync.Mutex
	out := make(map[domain.Kind]domain.SyncResult, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			res, err := c.SyncMissions(gctx, kind)
			if err != nil {
				return fmt.Errorf("sync %s: %w", kind, err)
			}
			mu.Lock()
			out[kind] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveMission(ctx context.Context, m domain.Mission) (domain.SaveResult, error) {
	if m.Tasks == nil {
		m.Tasks = []domain.Task{}
	}
	var resp domain.SaveResult
	err := c.do(ctx, http.MethodPost, "inspections", m, &resp)
	return resp, err
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var resp []domain.Order
	err := c.do(ctx, http.MethodGet, "orders", nil, &resp)
	return resp, err
}

// PutOrder creates or replaces an order by id.
func (c *Client) PutOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	var resp domain.Order
	err := c.do(ctx, http.MethodPut, "orders/"+url.PathEscape(o.ID), o, &resp)
	return resp, err
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "orders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListUnits(ctx context.Context) ([]domain.Unit, error) {
	var resp []domain.Unit
	err := c.do(ctx, http.MethodGet, "units", nil, &resp)
	return resp, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor, evtType string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("after", cursor)
	}
	if evtType != "" {
		q.Set("type", evtType)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
