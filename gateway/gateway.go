// ABOUTME: Gateway for remote generation services: capability discovery, invocation, and resource resolution.
// ABOUTME: Hides the inline-bytes vs. resource-reference response asymmetry behind a single synchronous Invoke.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultCallerID is the caller identity sent with execute requests when the
// gateway is not configured with one.
const DefaultCallerID = "super-user"

// Default network timeouts. Discovery calls (manifest, schema) are expected
// to be fast; execution calls run a generation model and get a long leash.
const (
	DefaultDiscoveryTimeout = 10 * time.Second
	DefaultExecuteTimeout   = 30 * time.Second
)

// Resolver maps an opaque service id to the base URL of that service's
// endpoint. The default resolver targets the production service mesh; tests
// point it at a local httptest server.
type Resolver func(serviceID string) string

// DefaultResolver resolves a service id to its hosted network address.
func DefaultResolver(serviceID string) string {
	return fmt.Sprintf("https://%s.node3.openfabric.network", serviceID)
}

// Payload is the resolved binary result of an Invoke. Callers always see
// inline bytes; if the service answered with a resource reference, the
// gateway has already fetched it.
type Payload struct {
	Data []byte
}

// Empty reports whether the payload carries no bytes. Remote services signal
// "nothing generated" with an empty or missing result, which callers treat
// as a hard failure.
func (p *Payload) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// Gateway holds connections to a fixed set of remote generation services.
// Descriptors are discovered once at Connect and cached for the instance
// lifetime. A Gateway performs network I/O only; it keeps no other state.
type Gateway struct {
	descriptors map[string]*ServiceDescriptor
	resolver    Resolver
	client      *http.Client
	callerID    string
	discoveryTO time.Duration
	executeTO   time.Duration
	retry       RetryPolicy
}

// Option configures a Gateway during Connect.
type Option func(*Gateway)

// WithResolver overrides the service id to base URL mapping.
func WithResolver(r Resolver) Option {
	return func(g *Gateway) { g.resolver = r }
}

// WithHTTPClient overrides the HTTP client used for all calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithCallerID sets the caller identity included in execute envelopes.
func WithCallerID(id string) Option {
	return func(g *Gateway) { g.callerID = id }
}

// WithTimeouts overrides the discovery and execution timeouts.
func WithTimeouts(discovery, execute time.Duration) Option {
	return func(g *Gateway) {
		if discovery > 0 {
			g.discoveryTO = discovery
		}
		if execute > 0 {
			g.executeTO = execute
		}
	}
}

// WithRetryPolicy sets the retry policy for Invoke. The default is
// RetryPolicyNone; the remote protocol itself has no retry semantics, so
// enabling retries is a deliberate extension on the client side.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Gateway) {
		if p.MaxAttempts > 0 {
			g.retry = p
		}
	}
}

// Connect discovers the manifest and input/output schemas for every given
// service id. Discovery is fail-fast: if any single id cannot be reached or
// returns an unusable document, Connect returns a ServiceUnreachableError
// naming that id and no partial Gateway is handed out.
func Connect(ctx context.Context, serviceIDs []string, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		descriptors: make(map[string]*ServiceDescriptor),
		resolver:    DefaultResolver,
		client:      http.DefaultClient,
		callerID:    DefaultCallerID,
		discoveryTO: DefaultDiscoveryTimeout,
		executeTO:   DefaultExecuteTimeout,
		retry:       RetryPolicyNone(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, id := range serviceIDs {
		desc, err := g.discover(ctx, id)
		if err != nil {
			return nil, err
		}
		g.descriptors[id] = desc
		log.Printf("gateway connected service=%s", id)
	}

	return g, nil
}

// Descriptor returns the cached descriptor for a service id.
func (g *Gateway) Descriptor(serviceID string) (*ServiceDescriptor, bool) {
	d, ok := g.descriptors[serviceID]
	return d, ok
}

// ServiceIDs returns the ids this gateway was connected with.
func (g *Gateway) ServiceIDs() []string {
	ids := make([]string, 0, len(g.descriptors))
	for id := range g.descriptors {
		ids = append(ids, id)
	}
	return ids
}

// discover fetches the manifest and both schema directions for one service.
func (g *Gateway) discover(ctx context.Context, serviceID string) (*ServiceDescriptor, error) {
	base := g.resolver(serviceID)

	manifest, err := g.getJSON(ctx, serviceID, base+"/manifest", g.discoveryTO)
	if err != nil {
		return nil, err
	}
	input, err := g.getJSON(ctx, serviceID, base+"/schema?type=input", g.discoveryTO)
	if err != nil {
		return nil, err
	}
	output, err := g.getJSON(ctx, serviceID, base+"/schema?type=output", g.discoveryTO)
	if err != nil {
		return nil, err
	}

	return &ServiceDescriptor{
		ServiceID:    serviceID,
		Manifest:     manifest,
		InputSchema:  input,
		OutputSchema: output,
	}, nil
}

// getJSON performs a GET with a bounded timeout and requires a 2xx response
// carrying valid JSON. Any failure during discovery maps to
// ServiceUnreachableError so Connect surfaces exactly which id failed.
func (g *Gateway) getJSON(ctx context.Context, serviceID, url string, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceUnreachableError{
			ServiceID: serviceID,
			Endpoint:  url,
			Cause:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}
	if !json.Valid(body) {
		return nil, &ServiceUnreachableError{
			ServiceID: serviceID,
			Endpoint:  url,
			Cause:     fmt.Errorf("response is not valid JSON"),
		}
	}
	return json.RawMessage(body), nil
}

// executeEnvelope is the request body posted to a service's execute endpoint.
type executeEnvelope struct {
	Request map[string]any `json:"request"`
	UID     string         `json:"uid"`
}

// executeResponse is the top-level shape of an execute response. Result may
// be a JSON string (base64 or literal), an arbitrary JSON document, or an
// object carrying a resource reference.
type executeResponse struct {
	Result json.RawMessage `json:"result"`
}

// resolvedResult is the tagged inline-vs-by-reference union for an execute
// result. Exactly one of the two fields is populated.
type resolvedResult struct {
	inline     []byte
	resourceID string
}

// Invoke posts the parameters to the service's execute endpoint and returns
// the resolved binary payload. If the service answers with a resource
// reference instead of inline bytes, Invoke performs the follow-up fetch
// before returning, so callers never see the indirection.
//
// Parameters are validated against the service's discovered input schema
// before any network call. The configured retry policy applies to
// transport-level failures only.
func (g *Gateway) Invoke(ctx context.Context, serviceID string, params map[string]any) (*Payload, error) {
	desc, ok := g.descriptors[serviceID]
	if !ok {
		return nil, fmt.Errorf("gateway not connected to service %s", serviceID)
	}
	if err := desc.ValidateParams(params); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.retry.Backoff.DelayForAttempt(attempt - 1)
			log.Printf("gateway retrying service=%s attempt=%d delay=%s", serviceID, attempt+1, delay)
			select {
			case <-ctx.Done():
				return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: g.resolver(serviceID), Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		payload, err := g.invokeOnce(ctx, serviceID, params)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !g.retry.shouldRetry(attempt, err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// invokeOnce performs a single execute call plus optional resource fetch.
func (g *Gateway) invokeOnce(ctx context.Context, serviceID string, params map[string]any) (*Payload, error) {
	base := g.resolver(serviceID)
	url := base + "/execute"

	body, err := json.Marshal(executeEnvelope{Request: params, UID: g.callerID})
	if err != nil {
		return nil, fmt.Errorf("encode execute request for %s: %w", serviceID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.executeTO)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceUnreachableError{
			ServiceID: serviceID,
			Endpoint:  url,
			Cause:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceUnreachableError{ServiceID: serviceID, Endpoint: url, Cause: err}
	}

	result, err := decodeExecuteResponse(serviceID, respBody)
	if err != nil {
		return nil, err
	}

	if result.resourceID != "" {
		data, err := g.fetchResource(ctx, serviceID, base, result.resourceID)
		if err != nil {
			return nil, err
		}
		return &Payload{Data: data}, nil
	}
	return &Payload{Data: result.inline}, nil
}

// decodeExecuteResponse parses an execute response body into the tagged
// inline/by-reference result. A JSON string result is base64-decoded when
// possible (binary artifacts travel base64-encoded inside JSON); a string
// that is not base64 is taken literally. Any other JSON document is
// returned as its raw JSON bytes.
func decodeExecuteResponse(serviceID string, body []byte) (resolvedResult, error) {
	var envelope executeResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return resolvedResult{}, &InvalidResponseError{ServiceID: serviceID, Reason: "body is not a JSON object", Cause: err}
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return resolvedResult{}, &InvalidResponseError{ServiceID: serviceID, Reason: "missing result field"}
	}

	// Resource reference: {"result": {"resource": "<reid>"}}
	var ref struct {
		Resource string `json:"resource"`
	}
	if err := json.Unmarshal(envelope.Result, &ref); err == nil && ref.Resource != "" {
		return resolvedResult{resourceID: ref.Resource}, nil
	}

	// Inline string: base64-encoded bytes or a literal string.
	var s string
	if err := json.Unmarshal(envelope.Result, &s); err == nil {
		if decoded, decErr := base64.StdEncoding.DecodeString(s); decErr == nil {
			return resolvedResult{inline: decoded}, nil
		}
		return resolvedResult{inline: []byte(s)}, nil
	}

	// Inline JSON document.
	return resolvedResult{inline: envelope.Result}, nil
}

// fetchResource resolves a resource reference into bytes via the service's
// resource endpoint.
func (g *Gateway) fetchResource(ctx context.Context, serviceID, base, resourceID string) ([]byte, error) {
	url := fmt.Sprintf("%s/resource?reid=%s", base, resourceID)

	callCtx, cancel := context.WithTimeout(ctx, g.executeTO)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ResourceResolutionFailedError{ServiceID: serviceID, ResourceID: resourceID, Cause: err}
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ResourceResolutionFailedError{ServiceID: serviceID, ResourceID: resourceID, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResourceResolutionFailedError{
			ServiceID:  serviceID,
			ResourceID: resourceID,
			Cause:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResourceResolutionFailedError{ServiceID: serviceID, ResourceID: resourceID, Cause: err}
	}
	return data, nil
}
