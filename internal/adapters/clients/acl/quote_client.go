package acl

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

const (
	defaultFetchPath = "/posts"

	// limitParam is the posts API's page-size query parameter.
	limitParam = "_limit"

	// postUserID is sent with every post. The remote requires an owner.
	postUserID = 1
)

// QuoteClientConfig contains configuration for the quote client.
type QuoteClientConfig struct {
	// Client is the HTTP client; its BaseURL points at the remote.
	Client *clients.Client

	// FetchPath and PostPath default to /posts.
	FetchPath string
	PostPath  string

	Logger *slog.Logger
}

// QuoteClient implements ports.QuoteSource against a posts API.
type QuoteClient struct {
	BaseAdapter

	fetchPath string
	postPath  string
	logger    *slog.Logger
}

var _ ports.QuoteSource = (*QuoteClient)(nil)

// NewQuoteClient creates a new quote client adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewQuoteClient(cfg QuoteClientConfig) *QuoteClient {
	if cfg.Client == nil {
		panic("QuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fetchPath := cmp.Or(cfg.FetchPath, defaultFetchPath)

	return &QuoteClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.Name()),
		fetchPath:   fetchPath,
		postPath:    cmp.Or(cfg.PostPath, fetchPath),
		logger:      logger.With(slog.String("component", "acl.QuoteClient")),
	}
}

// postRecord is the remote's record shape. Only title matters on the way in.
type postRecord struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Title  string          `json:"title"`
	Body   string          `json:"body,omitempty"`
	UserID int             `json:"userId,omitempty"`
}

// FetchQuotes returns up to limit remote records as Server quotes. Records
// with a blank title are dropped. Every failure is a domain.RemoteError with
// op "fetch".
func (c *QuoteClient) FetchQuotes(ctx context.Context, limit int) (domain.Collection, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set(limitParam, strconv.Itoa(limit))
	}

	c.logger.Log(ctx, logging.LevelTrace, "fetching remote quotes",
		slog.String("path", c.fetchPath),
		slog.Int("limit", limit),
	)

	body, err := c.Get(ctx, c.fetchPath, query, "fetch quotes")
	if err != nil {
		return nil, domain.NewRemoteFetchError(c.ServiceName(), err)
	}

	records, err := DecodeResponse[[]postRecord](body)
	if err != nil {
		return nil, domain.NewRemoteFetchError(c.ServiceName(), err)
	}

	quotes, err := TranslateSlice(*records, translateRecord)
	if err != nil {
		return nil, domain.NewRemoteFetchError(c.ServiceName(), err)
	}

	// Some remotes ignore the limit parameter.
	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	c.logger.DebugContext(ctx, "fetched remote quotes",
		slog.Int("records", len(*records)),
		slog.Int("quotes", len(quotes)),
	)

	return quotes, nil
}

// translateRecord keeps the title byte for byte: merging compares texts
// exactly, so only blank titles are dropped.
func translateRecord(rec *postRecord) (domain.Quote, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return domain.Quote{}, ErrSkip
	}

	return domain.Quote{Text: rec.Title, Category: domain.ServerCategory}, nil
}

// PostQuote sends q to the remote once. The acknowledgement carries the id
// the remote assigned, rendered as a string, and the raw response body.
func (c *QuoteClient) PostQuote(ctx context.Context, q domain.Quote) (*ports.RemoteAck, error) {
	payload, err := json.Marshal(postRecord{Title: q.Text, Body: q.Category, UserID: postUserID})
	if err != nil {
		return nil, domain.NewRemotePostError(c.ServiceName(), err)
	}

	body, err := c.Post(ctx, c.postPath, bytes.NewReader(payload), "post quote")
	if err != nil {
		return nil, domain.NewRemotePostError(c.ServiceName(), err)
	}

	raw, err := DecodeResponse[json.RawMessage](body)
	if err != nil {
		return nil, domain.NewRemotePostError(c.ServiceName(), err)
	}

	var echoed postRecord
	if err := json.Unmarshal(*raw, &echoed); err != nil {
		return nil, domain.NewRemotePostError(c.ServiceName(), fmt.Errorf("decoding ack: %w", err))
	}

	return &ports.RemoteAck{ID: renderID(echoed.ID), Raw: *raw}, nil
}

// renderID turns a JSON number or string id into its plain string form.
func renderID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(bytes.TrimSpace(raw))
}
