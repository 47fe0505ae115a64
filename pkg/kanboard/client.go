package kanboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/kanboard/kanboard-go/pkg/log"
)

const tracerName = "github.com/kanboard/kanboard-go/pkg/kanboard"

// Client calls procedures on one Kanboard JSON-RPC endpoint. It is safe for
// concurrent use.
type Client struct {
	cfg         Config
	credentials string

	doer    Doer
	logger  log.Logger
	metrics *Metrics
	tracer  trace.Tracer
	workers *semaphore.Weighted
}

// Option customizes a Client built by NewClient.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from Config. TLS, proxy and
// timeout settings in Config are then ignored.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithLogger sets the logger for call and transport events. A nil logger
// keeps the default, which discards everything.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call counts, durations and in-flight futures in
// metrics. Without it nothing is recorded.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithTracerProvider sets the provider spans are started from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithMaxConcurrentCalls bounds how many asynchronous calls of this client
// run at once. Extra calls wait for a slot. n <= 0 means unbounded.
func WithMaxConcurrentCalls(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = semaphore.NewWeighted(n)
		} else {
			c.workers = nil
		}
	}
}

// NewClient validates cfg and builds a client. No network traffic happens
// until the first call.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:         cfg,
		credentials: credentials(cfg),
		logger:      log.NewNoopLogger(),
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.doer == nil {
		httpClient, err := newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		c.doer = httpClient
	}

	c.logger = c.logger.WithKV("endpoint", cfg.URL)
	return c, nil
}

// Config returns the configuration the client was built with, defaults
// applied.
func (c *Client) Config() Config {
	return c.cfg
}

// Execute calls the remote procedure method, named exactly as on the server,
// and returns its decoded result. A missing result and an unparsable response
// body both yield (nil, nil). Any failure is a *ClientError.
//
// The result is decoded as by encoding/json into an any, so JSON numbers
// become float64 and integers beyond 2^53 lose precision. Use ExecuteInto
// with an int64 or json.Number target when exact values matter.
func (c *Client) Execute(ctx context.Context, method string, params Params) (any, error) {
	raw, err := c.execute(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return decodeResult(raw), nil
}

// ExecuteInto is Execute decoding the result into out. out is left untouched
// when the result is missing or null.
func (c *Client) ExecuteInto(ctx context.Context, method string, params Params, out any) error {
	raw, err := c.execute(ctx, method, params)
	if err != nil {
		return err
	}
	return unmarshalResult(raw, out)
}

// Call translates a snake_case name with RemoteName and executes it
// synchronously.
//
//	projects, err := client.Call(ctx, "get_all_projects", nil)
func (c *Client) Call(ctx context.Context, name string, params Params) (any, error) {
	return c.Execute(ctx, RemoteName(name), params)
}

// CallInto is Call decoding the result into out.
func (c *Client) CallInto(ctx context.Context, name string, params Params, out any) error {
	return c.ExecuteInto(ctx, RemoteName(name), params, out)
}

func (c *Client) execute(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	callID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "kanboard "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("kanboard.call_id", callID),
		),
	)
	defer span.End()

	ctx = log.SetContextLogger(ctx, c.logger.WithKV("callId", callID).WithKV("method", method))
	logger := log.FromContext(ctx)

	started := time.Now()
	result, err := c.roundTrip(ctx, method, params)
	elapsed := time.Since(started)
	c.metrics.observe(method, err, elapsed)

	if err != nil {
		logger.Warn("procedure call failed", "error", err, "duration", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Debug("procedure call completed", "duration", elapsed)
	return result, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	body, err := json.Marshal(NewRequest(method, params))
	if err != nil {
		return nil, wrapf(ErrEncodingRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, wrapf(ErrSendingRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.cfg.AuthHeader, c.credentials)
	if c.cfg.sendsHTTPBasicAuth() {
		req.SetBasicAuth(c.cfg.HTTPUsername, c.cfg.HTTPPassword)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, wrapf(ErrSendingRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapf(ErrReadingResponse, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newClientError(fmt.Errorf("%w: %s", ErrHTTPStatus, httpStatus(resp)))
	}

	return parseResponse(ctx, data)
}

// parseResponse is lenient: a body that is not a JSON object is logged and
// treated as an empty result.
func parseResponse(ctx context.Context, data []byte) (json.RawMessage, error) {
	var res Response
	if err := json.Unmarshal(data, &res); err != nil {
		log.FromContext(ctx).Warn("ignoring unparsable response body", "error", err, "size", len(data))
		return nil, nil
	}

	if res.Error != nil {
		return nil, newRemoteError(res.Error)
	}
	return res.Result, nil
}

func unmarshalResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wrapf(ErrDecodingResult, err)
	}
	return nil
}

func httpStatus(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
