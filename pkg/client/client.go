package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scoutcursos/cursos/pkg/domain"
)

// TokenSource supplies the bearer token stamped on outgoing requests.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a fixed bearer token.
type StaticToken string

// AccessToken returns the token itself.
func (t StaticToken) AccessToken() string { return string(t) }

// Client is the course-management API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// New creates a new API client. tokens may be nil.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTokenSource replaces the token source. Call it before issuing requests.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// Login exchanges credentials for an access/refresh token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	var res domain.LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/login/", body, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &res, nil
}

// List fetches every record of a resource collection. Both bare arrays and
// paginated {"results": [...]} envelopes are accepted.
func (c *Client) List(ctx context.Context, res domain.Resource) ([]domain.Record, error) {
	var raw json.RawMessage
	if err := c.get(ctx, res.Path, &raw); err != nil {
		return nil, fmt.Errorf("client.List %s: %w", res.Name, err)
	}

	items, err := splitCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("client.List %s: %w", res.Name, err)
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		rec, err := domain.RecordFromWire(item, res.IDField)
		if err != nil {
			return nil, fmt.Errorf("client.List %s: %w", res.Name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create posts a new record and returns it with its server-assigned id.
func (c *Client) Create(ctx context.Context, res domain.Resource, fields domain.Fields) (domain.Record, error) {
	var raw json.RawMessage
	if err := c.post(ctx, res.Path, fields, &raw); err != nil {
		return domain.Record{}, fmt.Errorf("client.Create %s: %w", res.Name, err)
	}
	rec, err := domain.RecordFromWire(raw, res.IDField)
	if err != nil {
		return domain.Record{}, fmt.Errorf("client.Create %s: %w", res.Name, err)
	}
	return rec, nil
}

// Update replaces a record. A response without a body echoes the request.
func (c *Client) Update(ctx context.Context, res domain.Resource, id int64, fields domain.Fields) (domain.Record, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodPut, res.ItemPath(id), fields, &raw); err != nil {
		return domain.Record{}, fmt.Errorf("client.Update %s: %w", res.Name, err)
	}
	if len(raw) == 0 {
		rec := domain.RecordFromFields(fields, res.IDField)
		rec.ID = id
		return rec, nil
	}
	rec, err := domain.RecordFromWire(raw, res.IDField)
	if err != nil {
		return domain.Record{}, fmt.Errorf("client.Update %s: %w", res.Name, err)
	}
	if rec.ID == 0 {
		rec.ID = id
	}
	return rec, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, res domain.Resource, id int64) error {
	if err := c.doRequest(ctx, http.MethodDelete, res.ItemPath(id), nil, nil); err != nil {
		return fmt.Errorf("client.Delete %s: %w", res.Name, err)
	}
	return nil
}

func splitCollection(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var page struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		return page.Results, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return items, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", &NetworkError{Err: err})
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
			if apiErr.Detail != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Detail}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}
