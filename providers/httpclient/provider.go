// Package httpclient implements the wascc:httpclient capability provider:
// an outbound HTTP round trip on behalf of an actor, authenticated with an
// OAuth2 client-credentials flow.
//
// It's a thin struct wrapping an HTTP client, constructed once at
// registration and reused for every call, with request/response shapes as
// small JSON structs and errors wrapped with fmt.Errorf("...: %w", ...) at
// each call site.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

var _ plugin.Provider = (*Provider)(nil)

// CapabilityID is the address this provider registers under.
const CapabilityID = "wascc:httpclient"

const opRequest = "request"

const configSchema = `{
	"type": "object",
	"properties": {
		"token_url": {"type": "string"},
		"client_id": {"type": "string"},
		"client_secret": {"type": "string"},
		"scopes": {"type": "array", "items": {"type": "string"}},
		"timeout": {"type": "string"}
	},
	"required": ["token_url", "client_id", "client_secret"]
}`

// Request is the JSON payload an actor sends for the "request" operation.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// Response is the JSON payload returned for a successful "request" call.
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
}

// Config configures a Provider's client-credentials flow and HTTP client.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Provider implements the wascc:httpclient capability. It never calls
// Dispatch — httpclient has no reason to call back into an actor — but
// still honors Configure for API symmetry with every other provider.
type Provider struct {
	client *http.Client
}

// New builds a Provider whose outbound requests are authenticated via
// cfg's OAuth2 client-credentials flow. The returned *http.Client
// transparently fetches and refreshes the access token; the capability's
// HandleCall never touches a raw token.
func New(cfg Config) *Provider {
	ccCfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := ccCfg.Client(context.Background())
	client.Timeout = timeout
	return &Provider{client: client}
}

func init() {
	plugin.RegisterFactory("httpclient", newFromSettings)
}

func newFromSettings(settings map[string]any) (plugin.Provider, error) {
	tokenURL, _ := settings["token_url"].(string)
	clientID, _ := settings["client_id"].(string)
	clientSecret, _ := settings["client_secret"].(string)
	if tokenURL == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("httpclient: token_url, client_id, and client_secret are required")
	}

	var scopes []string
	if raw, ok := settings["scopes"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
	}

	var timeout time.Duration
	if s, ok := settings["timeout"].(string); ok && s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("httpclient: invalid timeout %q: %w", s, err)
		}
		timeout = d
	}

	return New(Config{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		Timeout:      timeout,
	}), nil
}

func (p *Provider) Configure(_ plugin.Dispatcher) error {
	return nil
}

func (p *Provider) HandleCall(_ string, operation string, msg []byte) ([]byte, error) {
	if operation != opRequest {
		return nil, fmt.Errorf("wascc:httpclient: unsupported operation %q", operation)
	}

	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("wascc:httpclient: decode request: %w", err)
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	httpReq, err := http.NewRequest(req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("wascc:httpclient: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("wascc:httpclient: round trip: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wascc:httpclient: read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return json.Marshal(Response{StatusCode: resp.StatusCode, Headers: headers, Body: body})
}

func (p *Provider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{
		ID:           CapabilityID,
		Name:         "HTTP Client",
		Version:      "0.1.0",
		SupportedOps: []string{opRequest},
		ConfigSchema: configSchema,
	}
}

func (p *Provider) Shutdown() error {
	return nil
}
