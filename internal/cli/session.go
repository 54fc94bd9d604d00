package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/notify"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

// session is one command's view of the configured storage.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend storage.Backend
	store   *app.QuoteStore
}

// openSession loads configuration the way the service does, opens the
// storage backend and loads the collection. Logs go to stderr so that JSON
// output on stdout stays parseable.
func openSession(ctx context.Context, opts *RootOptions, stderr io.Writer) (*session, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   level,
		Format:  "pretty",
		Service: "quotectl",
		Version: opts.Version,
	}, stderr)
	logging.SetDefault(logger)

	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	store := app.NewQuoteStore(app.QuoteStoreConfig{KV: backend, Logger: logger})
	store.Load(ctx)

	return &session{cfg: cfg, logger: logger, backend: backend, store: store}, nil
}

func (s *session) Close() {
	if err := s.backend.Close(); err != nil {
		s.logger.Error("closing storage", slog.Any("error", err))
	}
}

// reconciler builds a reconciler against the configured remote. It is not
// started; commands drive single cycles or posts.
func (s *session) reconciler() (*app.Reconciler, error) {
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     s.cfg.Remote.BaseURL,
		ServiceName: s.cfg.Remote.Name,
		Timeout:     s.cfg.Client.Timeout,
		Retry:       s.cfg.Client.Retry,
		Circuit:     s.cfg.Client.CircuitBreaker,
		Transport:   s.cfg.Client.Transport,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	return app.NewReconciler(app.ReconcilerConfig{
		Store: s.store,
		Source: acl.NewQuoteClient(acl.QuoteClientConfig{
			Client:    httpClient,
			FetchPath: s.cfg.Remote.FetchPath,
			PostPath:  s.cfg.Remote.PostPath,
			Logger:    s.logger,
		}),
		Publisher:       notify.NewLogPublisher(s.logger),
		Logger:          s.logger,
		FetchLimit:      s.cfg.Remote.FetchLimit,
		FetchTimeout:    s.cfg.Sync.CycleTimeout,
		PostConcurrency: s.cfg.Sync.PostConcurrency,
	})
}
