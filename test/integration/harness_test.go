//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-generator/internal/adapters/clients"
	"github.com/jsamuelsen/quote-generator/internal/adapters/clients/acl"
	apphttp "github.com/jsamuelsen/quote-generator/internal/adapters/http"
	"github.com/jsamuelsen/quote-generator/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-generator/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// post is the record shape the remote endpoint serves.
type post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// fakeRemote stands in for the remote quote endpoint. Tests change what it
// serves between requests.
type fakeRemote struct {
	mu     sync.Mutex
	posts  []post
	status int
	raw    string
	delay  time.Duration
	calls  int

	server *httptest.Server
}

func newFakeRemote() *fakeRemote {
	r := &fakeRemote{status: http.StatusOK, posts: []post{}}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))

	return r
}

func (r *fakeRemote) serve(w http.ResponseWriter, req *http.Request) {
	_, _ = io.Copy(io.Discard, req.Body)

	r.mu.Lock()
	delay := r.delay
	if req.Method == http.MethodPost {
		r.calls++
	}
	r.mu.Unlock()

	time.Sleep(delay)

	r.mu.Lock()
	defer r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.status)

	if r.raw != "" {
		_, _ = w.Write([]byte(r.raw))
		return
	}

	_ = json.NewEncoder(w).Encode(r.posts)
}

// Serve replaces the served records with one post per text/category pair.
func (r *fakeRemote) Serve(pairs ...[2]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.posts = make([]post, 0, len(pairs))
	for i, p := range pairs {
		r.posts = append(r.posts, post{UserID: 1, ID: i + 1, Title: p[0], Body: p[1]})
	}

	r.status = http.StatusOK
	r.raw = ""
}

// Fail makes the remote answer every request with status.
func (r *fakeRemote) Fail(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = status
	r.raw = `{"error":{"code":"UNAVAILABLE","message":"down for maintenance"}}`
}

// ServeRaw makes the remote answer with body verbatim.
func (r *fakeRemote) ServeRaw(body string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = http.StatusOK
	r.raw = body
}

// Slow delays every response by d.
func (r *fakeRemote) Slow(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delay = d
}

// Calls returns how many sync requests the remote has received.
func (r *fakeRemote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

func (r *fakeRemote) Close() { r.server.Close() }

// harness is a fully wired quote generator served over httptest.
type harness struct {
	cfg      *config.Config
	remote   *fakeRemote
	store    *app.QuoteStore
	notifier *app.Notifier
	agent    *app.SyncAgent
	server   *httptest.Server
}

// testConfig loads the default configuration pointed at the fake remote with
// fast retries.
func testConfig(remoteURL string) (*config.Config, error) {
	cfg, err := config.Load("test")
	if err != nil {
		return nil, err
	}

	cfg.Storage.Driver = "memory"
	cfg.Sync.Enabled = false
	cfg.Services.RemoteQuotes.BaseURL = remoteURL
	cfg.Client.Timeout = 2 * time.Second
	cfg.Client.Retry.MaxAttempts = 2
	cfg.Client.Retry.InitialInterval = 10 * time.Millisecond
	cfg.Client.Retry.MaxInterval = 100 * time.Millisecond
	cfg.Client.CircuitBreaker.MaxFailures = 3
	cfg.Client.CircuitBreaker.Timeout = time.Second

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid test config: %w", err)
	}

	return cfg, nil
}

// newHarness wires the application on slots. A nil slots uses memory.
func newHarness(ctx context.Context, slots ports.SlotStore) (*harness, error) {
	remote := newFakeRemote()

	cfg, err := testConfig(remote.server.URL)
	if err != nil {
		remote.Close()
		return nil, err
	}

	if slots == nil {
		slots = memory.NewSlotStore()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.RemoteQuotes.BaseURL,
		ServiceName: cfg.Services.RemoteQuotes.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		remote.Close()
		return nil, err
	}

	source := acl.NewRemoteQuotesClient(acl.RemoteQuotesConfig{
		Client: httpClient,
		Path:   cfg.Services.RemoteQuotes.Path,
		Logger: logger,
	})

	store := app.NewQuoteStore(slots, logger)
	store.Load(ctx)

	sessions := memory.NewSessionStore(cfg.Session.TTL)
	categories := app.NewCategoryIndex()
	notifier := app.NewNotifier(nil)
	executor := app.NewExecutor(logger)

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Store:      store,
		Renderer:   app.NewRenderer(store, sessions, logger),
		Categories: categories,
		Executor:   executor,
		Logger:     logger,
	})

	agent := app.NewSyncAgent(app.SyncAgentConfig{
		Source:          source,
		Store:           store,
		Categories:      categories,
		Notifier:        notifier,
		Executor:        executor,
		NotificationTTL: cfg.Sync.NotificationTTL,
		Logger:          logger,
	})

	health := ports.NewHealthRegistry()
	if err := health.Register(source); err != nil {
		remote.Close()
		return nil, err
	}

	engine := gin.New()
	apphttp.SetupRouter(engine, apphttp.NewDefaultRouterConfig(logger, cfg,
		handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "abc123", "now"), nil),
		handlers.NewQuoteHandler(service, agent, notifier),
		handlers.NewPageHandler(service, notifier, app.NewFlashes(sessions, logger)),
	))

	return &harness{
		cfg:      cfg,
		remote:   remote,
		store:    store,
		notifier: notifier,
		agent:    agent,
		server:   httptest.NewServer(engine),
	}, nil
}

// URL returns the application base URL.
func (h *harness) URL() string { return h.server.URL }

// Close stops the application and the fake remote.
func (h *harness) Close() {
	h.server.Close()
	h.remote.Close()
}
