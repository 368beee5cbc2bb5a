// Package venue implements the uniform client surface spec.md §4.1 requires
// of each data source: a stateless fetch(symbol) -> Quote plus an optional
// subscribe(topics) -> stream<VenueEvent>. Transport, rate limiting and
// response caching are owned per-client; fusion/degradation policy is not —
// that belongs to the aggregator.
package venue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"trading-core/internal/domain"
)

// Failure classes a venue client surfaces instead of masking (spec.md §4.1).
var (
	ErrUnavailable = errors.New("venue: unavailable")
	ErrRateLimited = errors.New("venue: rate limited")
	ErrParseError  = errors.New("venue: parse error")
)

// VenueEventKind discriminates the push-path event types a client can emit.
type VenueEventKind string

const (
	EventQuote    VenueEventKind = "quote"
	EventNewPool  VenueEventKind = "new_pool"
	EventNewToken VenueEventKind = "new_token"
	EventFill     VenueEventKind = "fill"
)

// VenueEvent is the push-path payload from a client's Subscribe stream.
type VenueEvent struct {
	Kind      VenueEventKind
	SourceID  string
	Quote     *domain.Quote
	Metadata  *domain.TokenMetadata
	Timestamp time.Time
}

// Client is the uniform interface every venue implements.
type Client interface {
	ID() string
	SourceClass() domain.SourceClass
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	Subscribe(ctx context.Context, topics []string) (<-chan VenueEvent, error)
}

// Config parameterizes a generic venue client.
type Config struct {
	ID                 string
	SourceClass        domain.SourceClass
	Weight             float64 // 0 means "use DefaultSourceWeight(SourceClass)"
	APIURL             string
	WebsocketURL       string
	RateLimitPerSecond float64
	HTTPTimeout        time.Duration
	CacheTTL           time.Duration // response cache TTL, default 5s per spec.md §4.1
}

func (c Config) weight() float64 {
	if c.Weight > 0 {
		return c.Weight
	}
	return domain.DefaultSourceWeight(c.SourceClass)
}

// HTTPFetcher is the transport seam a concrete venue supplies: given a
// symbol it returns a parsed Quote or one of the sentinel errors above.
// Kept as a function type (not an interface) so each venue's REST quirks stay
// local to its constructor, matching the donor's per-exchange REST client
// split (pkg/market/binance/rest.go) without duplicating boilerplate per venue.
type HTTPFetcher func(ctx context.Context, httpClient *http.Client, apiURL, symbol string) (domain.Quote, error)

// baseClient implements Client around a pluggable HTTPFetcher, the
// token-bucket limiter and TTL cache shared by every venue.
type baseClient struct {
	cfg     Config
	fetch   HTTPFetcher
	limiter *rate.Limiter
	cache   *quoteCache
	http    *http.Client
}

// NewBaseClient wires a generic HTTP-backed venue client. Concrete
// constructors (NewAMMClient, NewLaunchpadClient, ...) call this with a
// venue-specific HTTPFetcher.
func NewBaseClient(cfg Config, fetch HTTPFetcher) Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second // spec.md §5 default HTTP timeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Second // spec.md §4.1 response cache TTL
	}
	limit := cfg.RateLimitPerSecond
	if limit <= 0 {
		limit = 10
	}
	return &baseClient{
		cfg:     cfg,
		fetch:   fetch,
		limiter: rate.NewLimiter(rate.Limit(limit), int(limit)+1),
		cache:   newQuoteCache(cfg.CacheTTL),
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (c *baseClient) ID() string                        { return c.cfg.ID }
func (c *baseClient) SourceClass() domain.SourceClass    { return c.cfg.SourceClass }

// Quote fetches a fresh or cached quote for symbol. Failures are returned
// verbatim (not masked) per spec.md §4.1 — the aggregator decides how to
// degrade.
func (c *baseClient) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if q, ok := c.cache.get(symbol); ok {
		return q, nil
	}

	if !c.limiter.Allow() {
		return domain.Quote{}, fmt.Errorf("%w: %s", ErrRateLimited, c.cfg.ID)
	}

	q, err := c.fetch(ctx, c.http, c.cfg.APIURL, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	q.SourceID = c.cfg.ID
	q.SourceCls = c.cfg.SourceClass
	q.Weight = c.cfg.weight()
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}

	c.cache.set(symbol, q)
	return q, nil
}

// Subscribe is unimplemented on the generic HTTP-only base client; WebSocket
// venues wrap baseClient and override it (see websocket.go).
func (c *baseClient) Subscribe(ctx context.Context, topics []string) (<-chan VenueEvent, error) {
	return nil, fmt.Errorf("venue %s: subscribe not supported over HTTP", c.cfg.ID)
}
