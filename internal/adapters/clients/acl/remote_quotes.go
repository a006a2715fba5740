package acl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jsamuelsen/quote-generator/internal/adapters/clients"
	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// RemoteQuotesConfig contains configuration for the remote quotes client.
type RemoteQuotesConfig struct {
	// Client is the HTTP client whose BaseURL points at the remote host.
	Client *clients.Client

	// Path is the endpoint path, e.g. "/posts".
	Path string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// RemoteQuotesClient fetches the server copy of the quote list. The remote
// answers a POST with an array of {title, body} records; title becomes the
// quote text and body its category.
type RemoteQuotesClient struct {
	BaseAdapter

	path   string
	logger *slog.Logger
}

var (
	_ ports.RemoteQuoteSource = (*RemoteQuotesClient)(nil)
	_ ports.OptionalChecker   = (*RemoteQuotesClient)(nil)
)

// NewRemoteQuotesClient creates the adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewRemoteQuotesClient(cfg RemoteQuotesConfig) *RemoteQuotesClient {
	if cfg.Client == nil {
		panic("RemoteQuotesClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := cfg.Path
	if path == "" {
		path = "/posts"
	}

	return &RemoteQuotesClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        path,
		logger:      logger,
	}
}

// postRecord is the remote DTO. Never exposed outside the ACL.
type postRecord struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// FetchQuotes implements ports.RemoteQuoteSource.
func (c *RemoteQuotesClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.path))

	body, err := c.Post(ctx, c.path, strings.NewReader("{}"), "fetch remote quotes")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]postRecord](body)
	if err != nil {
		return nil, domain.NewParseError("remote", "response is not an array of posts", err)
	}

	quotes, err := TranslateSlice(*posts, translatePost)
	if err != nil {
		return nil, domain.NewParseError("remote", "response contains an invalid post", err)
	}

	c.logger.DebugContext(ctx, "fetched remote quotes", slog.Int("count", len(quotes)))

	return quotes, nil
}

// translatePost maps {title, body} onto {text, category}.
func translatePost(p *postRecord) (domain.Quote, error) {
	if err := ValidateRequired(strings.TrimSpace(p.Title), "title"); err != nil {
		return domain.Quote{}, err
	}

	if err := ValidateRequired(strings.TrimSpace(p.Body), "body"); err != nil {
		return domain.Quote{}, err
	}

	return domain.NewQuote(p.Title, p.Body)
}

// Name implements ports.HealthChecker.
func (c *RemoteQuotesClient) Name() string {
	return c.ServiceName()
}

// Optional marks the remote as non-critical: quotes are served locally while
// it is down.
func (c *RemoteQuotesClient) Optional() bool { return true }

// Check reports an open circuit without calling out. Otherwise it sends a
// GET, which the remote answers without side effects.
func (c *RemoteQuotesClient) Check(ctx context.Context) error {
	if circuit := c.Client().Circuit(); circuit.State == clients.BreakerOpen {
		return domain.NewUnavailableError(c.ServiceName(),
			fmt.Sprintf("circuit open after repeated failures, retrying at %s", circuit.RetryAt.UTC().Format(time.RFC3339)))
	}

	resp, err := c.Client().Get(ctx, c.path)
	if err != nil {
		return MapHTTPError(nil, err, c.ServiceName(), "health check")
	}

	// Any answer below 500 means the host is up; 5xx never gets here.
	_ = resp.Body.Close()

	return nil
}
