package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
)

const (
	tracerName = "github.com/jsamuelsen/quote-generator/internal/adapters/clients"

	defaultTimeout = 30 * time.Second

	userAgent = "quotegen/1"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the remote host, e.g. "https://jsonplaceholder.typicode.com".
	BaseURL string

	// ServiceName labels logs, spans, metrics, and domain errors.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff add to the total.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Metrics receives call and breaker metrics. Nil records nothing.
	Metrics *Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client calls the remote quote host with retries, a circuit breaker,
// tracing, and request/correlation ID propagation.
type Client struct {
	http    *http.Client
	baseURL string
	name    string
	retry   config.RetryConfig
	breaker *Breaker
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	// sleep waits out a backoff. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := cfg.Retry
	retry.MaxAttempts = max(retry.MaxAttempts, 1)

	transport := cfg.Transport
	if transport.MaxIdleConns <= 0 {
		transport.MaxIdleConns = config.DefaultTransportMaxIdleConns
	}

	if transport.MaxIdleConnsPerHost <= 0 {
		transport.MaxIdleConnsPerHost = config.DefaultTransportMaxIdleConnsPerHost
	}

	if transport.IdleConnTimeout <= 0 {
		transport.IdleConnTimeout = config.DefaultTransportIdleConnTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        transport.MaxIdleConns,
				MaxIdleConnsPerHost: transport.MaxIdleConnsPerHost,
				IdleConnTimeout:     transport.IdleConnTimeout,
			},
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		name:    cfg.ServiceName,
		retry:   retry,
		breaker: NewBreaker(BreakerConfig{
			Threshold: cfg.Circuit.MaxFailures,
			Cooldown:  cfg.Circuit.Timeout,
			Trials:    cfg.Circuit.HalfOpenLimit,
		}),
		metrics: cfg.Metrics,
		tracer:  otel.Tracer(tracerName),
		logger:  logger.With(slog.String("component", "clients.Client"), slog.String("downstream", cfg.ServiceName)),
		sleep:   sleepContext,
	}

	c.metrics.circuitState(c.name, BreakerClosed)
	c.breaker.Observe(func(from, to BreakerState) {
		c.metrics.circuitMoved(c.name, to)

		attrs := []any{slog.String("from", from.String()), slog.String("to", to.String())}
		if to == BreakerOpen {
			c.logger.Warn("remote circuit opened", attrs...)
		} else {
			c.logger.Info("remote circuit moved", attrs...)
		}
	})

	return c, nil
}

// Get sends a GET to path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// Post sends a JSON POST to path. body must be a *bytes.Buffer,
// *bytes.Reader, or *strings.Reader so retries can replay it.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// Do sends req. Transport errors and 5xx answers are retried with
// exponential backoff; a 4xx is returned as is. The breaker rejects the call
// with ErrCircuitOpen before anything is sent when the remote keeps failing.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.name),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.breaker.Allow() {
		c.metrics.call(c.name, resultCircuitOpen, 0)
		logger.WarnContext(ctx, "remote call rejected, circuit open")

		return nil, ErrCircuitOpen
	}

	c.setHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, "remote "+req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, attempts, err := c.send(ctx, req, logger)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("quotegen.remote.attempts", attempts))

	switch {
	case err != nil && ctx.Err() != nil:
		c.breaker.Abandon()
		span.SetStatus(codes.Error, "canceled")
		c.metrics.call(c.name, resultCanceled, elapsed)
		logger.DebugContext(ctx, "remote call canceled", slog.Int("attempts", attempts))

		return nil, ctx.Err()

	case err != nil:
		c.breaker.Failure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.call(c.name, resultError, elapsed)
		logger.ErrorContext(ctx, "remote call failed",
			slog.Int("attempts", attempts),
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)

		return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, attempts, err)
	}

	// A 4xx is the remote answering; it says nothing about its health.
	c.breaker.Success()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	result := resultOK
	if resp.StatusCode >= http.StatusBadRequest {
		result = resultClientError
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.metrics.call(c.name, result, elapsed)
	logger.DebugContext(ctx, "remote call completed",
		slog.Int("status", resp.StatusCode),
		slog.Int("attempts", attempts),
		slog.Duration("duration", elapsed),
	)

	return resp, nil
}

// Circuit reports the breaker state for health checks.
func (c *Client) Circuit() BreakerSnapshot {
	return c.breaker.Snapshot()
}

// ServiceName returns the downstream name.
func (c *Client) ServiceName() string {
	return c.name
}

// send runs the attempts and returns the number made.
func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, int, error) {
	var lastErr error

	for attempt := range c.retry.MaxAttempts {
		if attempt > 0 {
			wait := c.backoff(attempt)
			logger.DebugContext(ctx, "retrying remote call",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.Any("error", lastErr),
			)

			if err := c.sleep(ctx, wait); err != nil {
				return nil, attempt, err
			}

			if err := rewind(req); err != nil {
				return nil, attempt, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil:
			if !retryable(err) {
				return nil, attempt + 1, err
			}

			lastErr = err

		case resp.StatusCode >= http.StatusInternalServerError:
			_ = resp.Body.Close()
			lastErr = &StatusError{Code: resp.StatusCode}

		default:
			return resp, attempt + 1, nil
		}
	}

	return nil, c.retry.MaxAttempts, lastErr
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// backoff is InitialInterval * Multiplier^attempt, capped at MaxInterval,
// then spread by ±JitterFactor.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.retry.InitialInterval) * math.Pow(c.retry.Multiplier, float64(attempt))
	d = math.Min(d, float64(c.retry.MaxInterval))

	if c.retry.JitterFactor > 0 {
		d += d * c.retry.JitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter only
	}

	return time.Duration(d)
}

// rewind restores the body for another attempt.
func rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	if req.GetBody == nil {
		return errors.New("request body cannot be replayed")
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("replaying request body: %w", err)
	}

	req.Body = body

	return nil
}

// retryable reports whether a transport error is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
