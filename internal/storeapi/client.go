package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerVisitorID     = "X-Visitor-Id"
	headerSessionID     = "X-Session-Id"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	contentTypeJSON     = "application/json"
	defaultTimeout      = 10 * time.Second
	maxResponseBytes    = 4 << 20
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	BearerToken() string
}

// Identity tags requests with the browser visitor and session ids.
type Identity struct {
	VisitorID string
	SessionID string
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client forwards storefront requests to the commerce REST API without altering payloads.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	identity   Identity
}

// New returns a Client for the API rooted at cfg.BaseURL (for example https://shop.example.com/api).
func New(cfg Config) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: base url is empty", ErrInvalidClientConfig)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", ErrInvalidClientConfig, cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: trimmed, httpClient: httpClient}, nil
}

// As returns a copy of the client that authenticates with tokens and tags requests with identity.
func (client *Client) As(tokens TokenSource, identity Identity) *Client {
	scoped := *client
	scoped.tokens = tokens
	scoped.identity = identity
	return &scoped
}

func (client *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return client.do(ctx, http.MethodGet, path, query, nil, out)
}

func (client *Client) post(ctx context.Context, path string, body any, out any) error {
	return client.do(ctx, http.MethodPost, path, nil, body, out)
}

func (client *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	endpoint := client.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("storeapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("storeapi: build %s %s: %w", method, path, err)
	}
	request.Header.Set(headerAccept, contentTypeJSON)
	if body != nil {
		request.Header.Set(headerContentType, contentTypeJSON)
	}
	client.decorate(request)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("storeapi: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("storeapi: read %s %s: %w", method, path, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return decodeAPIError(response.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := decodeData(payload, out); err != nil {
		return fmt.Errorf("storeapi: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (client *Client) decorate(request *http.Request) {
	if client.tokens != nil {
		if token := strings.TrimSpace(client.tokens.BearerToken()); token != "" {
			request.Header.Set(headerAuthorization, "Bearer "+token)
		}
	}
	if client.identity.VisitorID != "" {
		request.Header.Set(headerVisitorID, client.identity.VisitorID)
	}
	if client.identity.SessionID != "" {
		request.Header.Set(headerSessionID, client.identity.SessionID)
	}
}

// decodeData unwraps a {"data": ...} envelope when present.
func decodeData(payload []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(payload, out)
}

func segment(value string) string {
	return url.PathEscape(strings.TrimSpace(value))
}
