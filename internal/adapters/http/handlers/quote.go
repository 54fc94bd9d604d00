package handlers

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/transfer"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

const (
	defaultUpstreamTimeout = 30 * time.Second

	// importFormField is the multipart field a browser upload uses.
	importFormField = "file"
)

// QuoteStore is what the quote endpoints need from app.QuoteStore.
type QuoteStore interface {
	Snapshot() domain.Collection
	Categories() []string
	Filter(category string) domain.Collection
	Random(category string) (domain.Quote, error)
	Append(ctx context.Context, q domain.Quote) (domain.Quote, error)
	AppendAll(ctx context.Context, quotes domain.Collection) (domain.Collection, error)
	SetLastFilter(ctx context.Context, category string) error
	LastFilter(ctx context.Context) (string, bool)
}

// Upstream posts locally added quotes to the remote. app.Reconciler
// implements it; both calls are best-effort.
type Upstream interface {
	PostQuote(ctx context.Context, q domain.Quote) *ports.RemoteAck
	PostQuotes(ctx context.Context, quotes domain.Collection) int
}

// QuoteHandlerConfig configures a QuoteHandler.
type QuoteHandlerConfig struct {
	Store QuoteStore

	// Upstream is nil when posting upstream is disabled.
	Upstream Upstream

	// UpstreamTimeout bounds each background post. Defaults to 30s.
	UpstreamTimeout time.Duration

	Logger *slog.Logger
}

// QuoteHandler serves the quote, category, filter and transfer endpoints.
type QuoteHandler struct {
	store           QuoteStore
	upstream        Upstream
	upstreamTimeout time.Duration
	logger          *slog.Logger

	inFlight sync.WaitGroup
}

// NewQuoteHandler creates a quote handler. Panics if Store is nil.
func NewQuoteHandler(cfg QuoteHandlerConfig) *QuoteHandler {
	if cfg.Store == nil {
		panic("QuoteHandler: Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteHandler{
		store:           cfg.Store,
		upstream:        cfg.Upstream,
		upstreamTimeout: cmp.Or(cfg.UpstreamTimeout, defaultUpstreamTimeout),
		logger:          logger.With(slog.String("component", "http.QuoteHandler")),
	}
}

// RegisterRoutes mounts the quote endpoints on rg (normally /api/v1).
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotes", h.ListQuotes)
	rg.POST("/quotes", h.AddQuote)
	rg.GET("/quotes/random", h.RandomQuote)
	rg.GET("/categories", h.Categories)
	rg.GET("/filter", h.GetFilter)
	rg.PUT("/filter", h.SetFilter)
	rg.GET("/export", h.Export)
	rg.POST("/import", h.Import)
}

// Wait blocks until background upstream posts have finished. Shutdown calls
// it after the server stops accepting requests.
func (h *QuoteHandler) Wait() {
	h.inFlight.Wait()
}

// ListQuotes handles GET /api/v1/quotes?category=&limit=&cursor=.
// An absent category lists every quote.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQuery(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	scope := cmp.Or(req.Category, domain.FilterAll)

	page, err := dto.Paginate(dto.NewQuoteResponses(h.store.Filter(scope)), req.Page(), scope)
	if err != nil {
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, page)
}

// RandomQuote handles GET /api/v1/quotes/random?category=. Without a
// category the stored filter applies, as it does when the page loads.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	var req dto.CategoryQuery
	if err := dto.BindQuery(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	category := req.Category
	if category == "" {
		category, _ = h.store.LastFilter(c.Request.Context())
	}

	q, err := h.store.Random(category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// AddQuote handles POST /api/v1/quotes. The quote is trimmed, validated and
// persisted before the response; the upstream post happens afterwards.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := dto.BindJSON(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	q, err := h.store.Append(c.Request.Context(), req.ToDomain())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(q))

	h.postUpstream(c.Request.Context(), domain.Collection{q})
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: h.store.Categories()})
}

// GetFilter handles GET /api/v1/filter. A missing or stale stored filter is
// reported as "all" with stored=false.
func (h *QuoteHandler) GetFilter(c *gin.Context) {
	category, ok := h.store.LastFilter(c.Request.Context())
	if !ok {
		category = domain.FilterAll
	}

	c.JSON(http.StatusOK, dto.FilterResponse{
		Category: category,
		Stored:   ok,
		Quotes:   dto.NewQuoteResponses(h.store.Filter(category)),
	})
}

// SetFilter handles PUT /api/v1/filter. The category must be "all", blank,
// or one that currently exists.
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := dto.BindJSON(c, &req); err != nil {
		dto.RespondBindError(c, err)
		return
	}

	category := cmp.Or(req.Category, domain.FilterAll)
	if category != domain.FilterAll && !slices.Contains(h.store.Categories(), category) {
		dto.HandleError(c, domain.NewNotFoundError("category", category))
		return
	}

	if err := h.store.SetLastFilter(c.Request.Context(), category); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FilterResponse{
		Category: category,
		Stored:   true,
		Quotes:   dto.NewQuoteResponses(h.store.Filter(category)),
	})
}

// Export handles GET /api/v1/export as a quotes.json download.
func (h *QuoteHandler) Export(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="`+transfer.DefaultFileName+`"`)
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)

	if err := transfer.Export(c.Writer, h.store.Snapshot()); err != nil {
		_ = c.Error(err)
		h.logger.ErrorContext(c.Request.Context(), "writing export failed", slog.Any("error", err))
	}
}

// Import handles POST /api/v1/import. The document is the request body, or
// the "file" field of a multipart upload. Nothing is stored unless every
// entry is valid.
func (h *QuoteHandler) Import(c *gin.Context) {
	body, closeBody, err := importBody(c)
	if err != nil {
		dto.HandleError(c, err)
		return
	}
	defer closeBody()

	added, err := transfer.Import(c.Request.Context(), body, h.store)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ImportResponse{
		Imported: len(added),
		Total:    len(h.store.Snapshot()),
		Upstream: h.upstream != nil && len(added) > 0,
	})

	h.postUpstream(c.Request.Context(), added)
}

func importBody(c *gin.Context) (io.Reader, func(), error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return c.Request.Body, func() {}, nil
	}

	fh, err := c.FormFile(importFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError

		switch {
		case errors.As(err, &tooLarge):
			return nil, nil, err
		case errors.Is(err, http.ErrMissingFile):
			return nil, nil, domain.NewValidationError(importFormField, "is required")
		default:
			return nil, nil, domain.NewValidationError(importFormField, "could not be read")
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}

	return f, func() { _ = f.Close() }, nil
}

// postUpstream sends quotes to the remote in the background. The request
// context is detached so the post outlives the response.
func (h *QuoteHandler) postUpstream(ctx context.Context, quotes domain.Collection) {
	if h.upstream == nil || len(quotes) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	h.inFlight.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, h.upstreamTimeout)
		defer cancel()

		if len(quotes) == 1 {
			h.upstream.PostQuote(ctx, quotes[0])
			return
		}

		acked := h.upstream.PostQuotes(ctx, quotes)
		h.logger.InfoContext(ctx, "imported quotes posted upstream",
			slog.Int("acked", acked),
			slog.Int("sent", len(quotes)),
		)
	})
}
