package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inspectline/internal/config"
	"inspectline/internal/domain"
	"inspectline/internal/engine"
	"inspectline/internal/inspection"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

type webhookDispatcher struct {
	engine   engine.Engine
	webhooks []config.WebhookConfig
	client   *http.Client
	log      zerolog.Logger
	mu       sync.Mutex
	cursors  map[int]int64
}

// startWebhookDispatcher returns nil when no webhook is configured.
func startWebhookDispatcher(e engine.Engine, log zerolog.Logger, interval time.Duration) *inspection.Poller {
	if e.Config == nil || len(e.Config.Webhooks) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = defaultWebhookInterval
	}
	d := &webhookDispatcher{
		engine:   e,
		webhooks: e.Config.Webhooks,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		log:      log.With().Str("cmp", "webhooks").Logger(),
		cursors:  make(map[int]int64),
	}
	// Cursors start at the current end of the log so only new events go out.
	d.primeCursors(context.Background())
	return inspection.StartPoller(context.Background(), interval, d.dispatchAll, d.log)
}

func (d *webhookDispatcher) primeCursors(ctx context.Context) {
	latest, err := d.engine.Repo.LatestEventID(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("init cursor failed")
		latest = 0
	}
	d.mu.Lock()
	for i := range d.webhooks {
		d.cursors[i] = latest
	}
	d.mu.Unlock()
}

func (d *webhookDispatcher) dispatchAll(ctx context.Context) error {
	for i, hook := range d.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		if err := d.dispatchWebhook(ctx, i, hook); err != nil {
			d.log.Warn().Err(err).Str("url", hook.URL).Msg("delivery failed")
		}
	}
	return nil
}

func (d *webhookDispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.WebhookConfig) error {
	cursor := d.cursorFor(idx)
	evts, err := d.engine.Repo.EventsAfter(ctx, defaultWebhookBatch, cursor, "")
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	filter := newEventFilter(hook.Events)
	for _, evt := range evts {
		if filter.match(evt.Type) {
			// The cursor stays put on failure so the event is retried next tick.
			if err := d.postEvent(ctx, hook, evt); err != nil {
				return err
			}
		}
		d.setCursor(idx, evt.ID)
	}
	return nil
}

func (d *webhookDispatcher) cursorFor(idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursors[idx]
}

func (d *webhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

type webhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	Site       string          `json:"site,omitempty"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
	PayloadRaw string          `json:"payload_raw,omitempty"`
}

func (d *webhookDispatcher) postEvent(ctx context.Context, hook config.WebhookConfig, evt domain.Event) error {
	payload := json.RawMessage("{}")
	var raw string
	if evt.Payload != "" {
		if json.Valid([]byte(evt.Payload)) {
			payload = json.RawMessage(evt.Payload)
		} else {
			raw = evt.Payload
		}
	}
	body := webhookEvent{
		ID:         evt.ID,
		Type:       evt.Type,
		Site:       d.engine.Config.Site.Name,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		TS:         evt.TS,
		Payload:    payload,
		PayloadRaw: raw,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	client := d.client
	if timeout != d.client.Timeout {
		client = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Inspectline-Event", evt.Type)
	req.Header.Set("X-Inspectline-Delivery", fmt.Sprintf("%d", evt.ID))
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Inspectline-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	d.log.Debug().Int64("event", evt.ID).Str("type", evt.Type).Str("url", hook.URL).Msg("delivered")
	return nil
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(types []string) eventFilter {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		if key := strings.TrimSpace(t); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
