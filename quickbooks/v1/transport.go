package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"timedock.com/timedock/retry"
)

// minorVersion is pinned for wire compatibility; every call carries it.
const minorVersion = "65"

type Response struct {
	Data []byte
}

// Transport handles low-level HTTP against one company realm: bearer auth,
// the pinned minorversion parameter and error classification.
type Transport struct {
	BaseURL    string
	RealmID    string
	AuthToken  string
	HTTPClient *retry.Client
}

func NewTransport(baseURL, realmID, token string) *Transport {
	return &Transport{
		BaseURL:    baseURL,
		RealmID:    realmID,
		AuthToken:  token,
		HTTPClient: retry.NewClient(),
	}
}

// buildURL resolves a resource path under the realm with query params.
func (t *Transport) buildURL(path string, query map[string]string) string {
	u, _ := url.Parse(fmt.Sprintf("%s/v3/company/%s%s", t.BaseURL, t.RealmID, path))
	q := u.Query()
	q.Set("minorversion", minorVersion)
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (t *Transport) do(req *http.Request) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	if t.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AuthToken)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	if resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return &Response{Data: body}, nil
}

// Get sends a GET request under the realm path.
func (t *Transport) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.buildURL(path, query), nil)
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

// Post sends a POST request with a JSON body under the realm path.
func (t *Transport) Post(ctx context.Context, path string, data any, query map[string]string) (*Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.buildURL(path, query), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

// Query runs a read-only query expression (the API's SQL-like filter
// string) and returns the decoded result envelope. The server is not asked
// to filter beyond what the expression states; finer filtering happens
// client-side.
func (t *Transport) Query(ctx context.Context, expression string) (*QueryResponse, error) {
	resp, err := t.Get(ctx, "/query", map[string]string{"query": expression})
	if err != nil {
		return nil, err
	}

	var env queryEnvelope
	if err := json.Unmarshal(resp.Data, &env); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &env.QueryResponse, nil
}
