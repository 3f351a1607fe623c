// Package publisher forwards campaign events to a message broker.
//
// The Extension is a FundMe plugin; it serializes every event to JSON and
// hands it to a Publisher. AMQPPublisher is the RabbitMQ implementation.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin     = (*Extension)(nil)
	_ plugin.OnEvent    = (*Extension)(nil)
	_ plugin.OnShutdown = (*Extension)(nil)
)

// Publisher delivers an encoded event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// Message is the wire form of an event.
type Message struct {
	Seq        uint64    `json:"seq"`
	Kind       string    `json:"kind"`
	CampaignID string    `json:"campaign_id"`
	Account    string    `json:"account"`
	AmountWei  string    `json:"amount_wei"`
	AmountEth  string    `json:"amount_eth"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMessage converts e into its wire form.
func NewMessage(e event.Event) Message {
	return Message{
		Seq:        e.Seq,
		Kind:       string(e.Kind),
		CampaignID: e.CampaignID.String(),
		Account:    e.Account.Hex(),
		AmountWei:  e.Amount.String(),
		AmountEth:  e.Amount.FormatEther(),
		Timestamp:  e.Timestamp,
	}
}

// Extension publishes every ledger event.
type Extension struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithRoutingPrefix sets the routing key prefix (default "fundme").
func WithRoutingPrefix(prefix string) Option {
	return func(e *Extension) { e.prefix = prefix }
}

// New creates an Extension that publishes through p.
func New(p Publisher, opts ...Option) *Extension {
	e := &Extension{
		publisher: p,
		prefix:    "fundme",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "event-publisher" }

// RoutingKey returns the key an event is published under, for example
// "fundme.fundsswept".
func (e *Extension) RoutingKey(ev event.Event) string {
	return e.prefix + "." + strings.ToLower(string(ev.Kind))
}

// OnEvent implements plugin.OnEvent.
func (e *Extension) OnEvent(ctx context.Context, ev event.Event) error {
	body, err := json.Marshal(NewMessage(ev))
	if err != nil {
		return fmt.Errorf("publisher: encode event %d: %w", ev.Seq, err)
	}

	key := e.RoutingKey(ev)
	if err := e.publisher.Publish(ctx, key, body); err != nil {
		return fmt.Errorf("publisher: publish %s: %w", key, err)
	}

	e.logger.Debug("event published",
		"routing_key", key,
		"campaign_id", ev.CampaignID.String(),
		"seq", ev.Seq,
	)
	return nil
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(_ context.Context) error {
	return e.publisher.Close()
}
