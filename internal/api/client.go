package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"outloud/internal/progress"
	"outloud/internal/speech"
)

// Client talks to a running daemon's HTTP API. The CLI uses it for every
// command except serve.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient builds a client for the daemon at baseURL (host:port or full URL).
func NewClient(baseURL string) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	httpClient := resty.New().
		SetBaseURL(trimmed).
		SetTimeout(30 * time.Second)
	return &Client{http: httpClient, baseURL: trimmed}
}

func decodeError(resp *resty.Response) error {
	var payload errorResponse
	if err := json.Unmarshal(resp.Body(), &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status())
}

// Status fetches the daemon's stage counters.
func (c *Client) Status(ctx context.Context) (map[string]int, error) {
	var payload struct {
		Stages map[string]int `json:"stages"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&payload).Get("/api/status")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return payload.Stages, nil
}

// List fetches items, optionally filtered by stage names.
func (c *Client) List(ctx context.Context, stages ...string) ([]Item, error) {
	var payload struct {
		Items []Item `json:"items"`
	}
	req := c.http.R().SetContext(ctx).SetResult(&payload)
	if len(stages) > 0 {
		req.SetQueryParam("stage", strings.Join(stages, ","))
	}
	resp, err := req.Get("/api/items")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return payload.Items, nil
}

// Get fetches one item.
func (c *Client) Get(ctx context.Context, id int64) (*Item, error) {
	var item Item
	resp, err := c.http.R().SetContext(ctx).SetResult(&item).Get(fmt.Sprintf("/api/items/%d", id))
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return &item, nil
}

// AddURL queues a web article.
func (c *Client) AddURL(ctx context.Context, pageURL, voice string, cleanup bool) (*Item, error) {
	return c.create(ctx, createItemRequest{URL: pageURL, Voice: voice, Cleanup: cleanup})
}

// AddText queues pasted text.
func (c *Client) AddText(ctx context.Context, title, text, voice string, cleanup bool) (*Item, error) {
	return c.create(ctx, createItemRequest{Title: title, Text: text, Voice: voice, Cleanup: cleanup})
}

func (c *Client) create(ctx context.Context, req createItemRequest) (*Item, error) {
	var item Item
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&item).
		Post("/api/items")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return &item, nil
}

// Upload sends a local document to the daemon's uploads inbox.
func (c *Client) Upload(ctx context.Context, path, voice string, cleanup bool) (*Item, error) {
	var item Item
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{
			"voice":   voice,
			"cleanup": fmt.Sprintf("%t", cleanup),
		}).
		SetResult(&item).
		Post("/api/upload")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return &item, nil
}

func (c *Client) command(ctx context.Context, id int64, action string, body any) (*Item, error) {
	var item Item
	req := c.http.R().SetContext(ctx).SetResult(&item)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(fmt.Sprintf("/api/items/%d/%s", id, action))
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return &item, nil
}

// Retry requeues a failed item.
func (c *Client) Retry(ctx context.Context, id int64) (*Item, error) {
	return c.command(ctx, id, "retry", nil)
}

// Reclean sends a finished item back through cleanup.
func (c *Client) Reclean(ctx context.Context, id int64) (*Item, error) {
	return c.command(ctx, id, "clean", nil)
}

// Regenerate re-synthesizes audio, optionally with a different voice.
func (c *Client) Regenerate(ctx context.Context, id int64, voice string) (*Item, error) {
	return c.command(ctx, id, "regenerate", regenerateRequest{Voice: voice})
}

// Complete flags an item as listened.
func (c *Client) Complete(ctx context.Context, id int64) (*Item, error) {
	return c.command(ctx, id, "complete", nil)
}

// Uncomplete clears the listened flag.
func (c *Client) Uncomplete(ctx context.Context, id int64) (*Item, error) {
	return c.command(ctx, id, "uncomplete", nil)
}

// Cancel stops an in-flight run.
func (c *Client) Cancel(ctx context.Context, id int64) error {
	resp, err := c.http.R().SetContext(ctx).Post(fmt.Sprintf("/api/items/%d/cancel", id))
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	return nil
}

// Delete removes an item and its artifacts.
func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, err := c.http.R().SetContext(ctx).Delete(fmt.Sprintf("/api/items/%d", id))
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	return nil
}

// Voices fetches the narrator catalog.
func (c *Client) Voices(ctx context.Context) ([]speech.Voice, error) {
	var payload struct {
		Voices []speech.Voice `json:"voices"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&payload).Get("/api/voices")
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return payload.Voices, nil
}

// Preview fetches a short audio sample for a voice.
func (c *Client) Preview(ctx context.Context, voice string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get(fmt.Sprintf("/api/voices/%s/preview", voice))
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return resp.Body(), nil
}

// Follow streams progress events for an item over a websocket, invoking fn
// for each event until a terminal event arrives or ctx ends.
func (c *Client) Follow(ctx context.Context, id int64, fn func(progress.Event)) error {
	wsURL, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = fmt.Sprintf("/api/items/%d/progress", id)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("progress stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var evt progress.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("progress stream: %w", err)
		}
		fn(evt)
		if evt.Terminal {
			return nil
		}
	}
}
