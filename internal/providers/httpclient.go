// Package providers contains reusable enricher implementations: an HTTP
// client for external data APIs, a declarative client-backed enricher, and
// an in-memory lookup enricher for first-party data.
//
// Provider clients here do exactly one call per invocation. Retries, rate
// limits and circuit breaking are applied by the resiliency guard that
// wraps every provider, so stacking them again at this layer would double
// the policies.
package providers

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

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
)

// AuthConfig supports the common API authentication methods
type AuthConfig struct {
	Type         string            `json:"type"` // basic, bearer, api_key, custom
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	Token        string            `json:"token"`
	APIKey       string            `json:"api_key"`
	APIKeyHeader string            `json:"api_key_header"`
	CustomAuth   map[string]string `json:"custom_auth"`
}

// HTTPConfig describes how to call one external data API
type HTTPConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout time.Duration     `json:"timeout"`
	Auth    *AuthConfig       `json:"auth"`
	// Templates substitute {{.param}} placeholders from request parameters.
	URLTemplate    string            `json:"url_template"`
	BodyTemplate   string            `json:"body_template"`
	HeaderTemplate map[string]string `json:"header_template"`
}

// HTTPClient calls an external data API and decodes its JSON response
type HTTPClient struct {
	config *HTTPConfig
	client *http.Client
}

// NewHTTPClient creates a provider client for the given API
func NewHTTPClient(config *HTTPConfig) (*HTTPClient, error) {
	if config == nil {
		return nil, errors.ConfigError("http provider config is required")
	}
	if config.URL == "" && config.URLTemplate == "" {
		return nil, errors.ConfigError("http provider needs a url or url_template")
	}
	if config.Method == "" {
		config.Method = http.MethodGet
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Call performs one request against the API with the given parameters
func (c *HTTPClient) Call(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	requestURL, err := c.buildURL(params)
	if err != nil {
		return nil, err
	}

	body, err := c.buildBody(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, c.config.Method, requestURL, body)
	if err != nil {
		return nil, errors.ProviderError("building request", err, false)
	}

	c.addHeaders(req, params)
	if err := c.addAuthentication(req); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.TimeoutError("provider call")
		}
		return nil, errors.ProviderError("calling provider", err, true)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ProviderError("reading provider response", err, true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode)
	}

	var decoded interface{}
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return nil, errors.ProviderError("decoding provider response", err, false)
	}
	return decoded, nil
}

// Probe verifies the API is reachable with a HEAD request to the base URL
func (c *HTTPClient) Probe(ctx context.Context) error {
	probeURL := c.config.URL
	if probeURL == "" {
		// Templated-only endpoints fall back to the template's host.
		parsed, err := url.Parse(renderTemplate(c.config.URLTemplate, nil))
		if err != nil {
			return errors.ConfigError("probe url: " + err.Error())
		}
		probeURL = parsed.Scheme + "://" + parsed.Host
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return err
	}
	if err := c.addAuthentication(req); err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) buildURL(params map[string]interface{}) (string, error) {
	requestURL := c.config.URL
	if c.config.URLTemplate != "" {
		requestURL = renderTemplate(c.config.URLTemplate, params)
	}
	if _, err := url.Parse(requestURL); err != nil {
		return "", errors.ValidationError("invalid provider url: " + err.Error())
	}
	return requestURL, nil
}

func (c *HTTPClient) buildBody(params map[string]interface{}) (io.Reader, error) {
	if c.config.Method == http.MethodGet || c.config.Method == http.MethodHead {
		return nil, nil
	}

	if c.config.BodyTemplate != "" {
		return strings.NewReader(renderTemplate(c.config.BodyTemplate, params)), nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, errors.ValidationError("encoding provider request body: " + err.Error())
	}
	return bytes.NewReader(data), nil
}

func (c *HTTPClient) addHeaders(req *http.Request, params map[string]interface{}) {
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	for key, template := range c.config.HeaderTemplate {
		req.Header.Set(key, renderTemplate(template, params))
	}
	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

func (c *HTTPClient) addAuthentication(req *http.Request) error {
	auth := c.config.Auth
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "basic":
		req.SetBasicAuth(auth.Username, auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "api_key":
		headerName := auth.APIKeyHeader
		if headerName == "" {
			headerName = "X-API-Key"
		}
		req.Header.Set(headerName, auth.APIKey)
	case "custom":
		for key, value := range auth.CustomAuth {
			req.Header.Set(key, value)
		}
	default:
		return errors.ConfigError("unsupported auth type: " + auth.Type)
	}
	return nil
}

// renderTemplate substitutes {{.key}} placeholders with parameter values
func renderTemplate(template string, params map[string]interface{}) string {
	out := template
	for key, value := range params {
		out = strings.ReplaceAll(out, "{{."+key+"}}", fmt.Sprintf("%v", value))
	}
	return out
}

// classifyStatus maps HTTP failure codes onto the error taxonomy. Server
// errors and throttling are transient; other client errors are not. The
// response body never goes into the message: error text can surface to
// callers, and provider payloads must not.
func classifyStatus(statusCode int) error {
	msg := fmt.Sprintf("provider returned HTTP %d", statusCode)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return errors.RateLimitError(msg)
	case statusCode == http.StatusRequestTimeout:
		return errors.TimeoutError(msg)
	case statusCode >= 500:
		return errors.ProviderError(msg, nil, true)
	default:
		return errors.ProviderError(msg, nil, false)
	}
}

var _ enrichment.ProviderClient = (*HTTPClient)(nil)
