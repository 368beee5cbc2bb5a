package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"trading-core/internal/domain"
	"trading-core/internal/wsmanager"
)

// FrameParser decodes one raw WebSocket frame from a venue into a VenueEvent.
// Unrecognized frames (heartbeats, ack responses) should return ok=false
// rather than an error.
type FrameParser func(sourceID string, data []byte) (VenueEvent, bool, error)

// wsClient layers WebSocket push events on top of a baseClient's pull-path
// HTTP quoting, using wsmanager for the reconnect contract required by
// spec.md §4.1.
type wsClient struct {
	*baseClient
	mgr    *wsmanager.Manager
	parser FrameParser
	events chan VenueEvent
}

// NewWSClient wraps cfg+fetch (pull path) with a WebSocket push path built
// from subscribe (builds the subscribe control frame for a topic) and parser
// (decodes inbound frames).
func NewWSClient(cfg Config, fetch HTTPFetcher, subscribe wsmanager.SubscribeFrame, parser FrameParser) Client {
	base := NewBaseClient(cfg, fetch).(*baseClient)
	mgr := wsmanager.New(cfg.ID, cfg.WebsocketURL, subscribe)
	return &wsClient{baseClient: base, mgr: mgr, parser: parser, events: make(chan VenueEvent, 256)}
}

func (c *wsClient) Subscribe(ctx context.Context, topics []string) (<-chan VenueEvent, error) {
	for _, t := range topics {
		c.mgr.Register(t)
	}
	go c.mgr.Start(ctx)
	go c.pump(ctx)
	return c.events, nil
}

func (c *wsClient) pump(ctx context.Context) {
	defer close(c.events)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.mgr.Messages():
			if !ok {
				return
			}
			evt, matched, err := c.parser(c.cfg.ID, msg.Data)
			if err != nil || !matched {
				continue
			}
			select {
			case c.events <- evt:
			default:
				// buffer full: the event is dropped whatever its kind, so
				// NewToken events are lost the same way as price ticks.
			}
		}
	}
}

// genericSubscribeFrame builds a generic {"op":"subscribe","channel":topic} frame,
// the shape used by the AMM and DEX-aggregator venues' public WebSocket feeds.
func genericSubscribeFrame(topic string) ([]byte, error) {
	return json.Marshal(map[string]string{"op": "subscribe", "channel": topic})
}

type genericWSQuote struct {
	Channel string  `json:"channel"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume_24h"`
}

func genericQuoteParser(sourceID string, data []byte) (VenueEvent, bool, error) {
	var msg genericWSQuote
	if err := json.Unmarshal(data, &msg); err != nil {
		return VenueEvent{}, false, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	if msg.Symbol == "" {
		return VenueEvent{}, false, nil
	}
	q := domain.Quote{
		Symbol:    msg.Symbol,
		Price:     msg.Price,
		Volume24h: msg.Volume,
		SourceID:  sourceID,
	}
	return VenueEvent{Kind: EventQuote, SourceID: sourceID, Quote: &q}, true, nil
}

// launchpadWSEvent carries new-token and curve-update events from the
// bonding-curve launchpad's firehose subscription.
type launchpadWSEvent struct {
	Type    string  `json:"type"` // "new_token" | "curve_update"
	Address string  `json:"address"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
}

func launchpadEventParser(sourceID string, data []byte) (VenueEvent, bool, error) {
	var msg launchpadWSEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return VenueEvent{}, false, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	switch msg.Type {
	case "new_token":
		md := domain.TokenMetadata{Address: msg.Address, Symbol: msg.Symbol, Flags: domain.TokenMetadataFlags{IsNewPool: true}}
		return VenueEvent{Kind: EventNewToken, SourceID: sourceID, Metadata: &md}, true, nil
	case "curve_update":
		q := domain.Quote{Symbol: msg.Symbol, Price: msg.Price, SourceID: sourceID}
		return VenueEvent{Kind: EventQuote, SourceID: sourceID, Quote: &q}, true, nil
	default:
		return VenueEvent{}, false, nil
	}
}

// NewAMMWSClient and NewLaunchpadWSClient wire the WebSocket push path on top
// of the pull-path constructors above, for venues whose config enables a
// websocket_url (spec.md §6 exchanges.<id>).
func NewAMMWSClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassEstablishedAMM
	return NewWSClient(cfg, genericFetcher("%s/v1/quote?symbol=%s"), genericSubscribeFrame, genericQuoteParser)
}

func NewLaunchpadWSClient(cfg Config) Client {
	cfg.SourceClass = domain.SourceClassBondingLaunchpad
	fetch := func(ctx context.Context, httpClient *http.Client, apiURL, symbol string) (domain.Quote, error) {
		var resp launchpadQuoteResponse
		latency, err := doJSONGet(ctx, httpClient, fmt.Sprintf("%s/curve/%s", apiURL, symbol), &resp)
		if err != nil {
			return domain.Quote{}, err
		}
		return domain.Quote{Symbol: symbol, Price: resp.Price, Volume24h: resp.Volume24h, LatencyMs: latency.Milliseconds()}, nil
	}
	return NewWSClient(cfg, fetch, genericSubscribeFrame, launchpadEventParser)
}
