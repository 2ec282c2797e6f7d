package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/daemon/events"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
	"git.home.luguber.info/inful/cortex/internal/logfields"
	"git.home.luguber.info/inful/cortex/internal/metrics"
)

const (
	flushTimeout = 5 * time.Second
	// Buffer sized so short bursts never block publishers on a slow broker.
	subscriptionBuffer = 64
)

// Publisher sends a raw message to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the JSON document published for every event.
type Envelope struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Forwarder relays bus events to a Publisher.
type Forwarder struct {
	pub      Publisher
	subject  string
	recorder metrics.Recorder
	conn     *nats.Conn
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithRecorder sets the metrics recorder for forwarded events.
func WithRecorder(r metrics.Recorder) Option {
	return func(f *Forwarder) {
		if r != nil {
			f.recorder = r
		}
	}
}

// NewForwarder creates a forwarder publishing below subjectPrefix.
func NewForwarder(pub Publisher, subjectPrefix string, opts ...Option) *Forwarder {
	f := &Forwarder{
		pub:      pub,
		subject:  strings.TrimSuffix(subjectPrefix, "."),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials the NATS server from cfg and returns a forwarder bound to it.
func Connect(cfg config.NATSConfig, opts ...Option) (*Forwarder, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("cortex"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.URL(cfg.URL), logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", logfields.URL(c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Build()
	}
	slog.Info("Connected to NATS", logfields.URL(cfg.URL), slog.String("subject", cfg.Subject))

	f := NewForwarder(conn, cfg.Subject, opts...)
	f.conn = conn
	return f, nil
}

// Subject returns the subject an event of the given type is published on.
func (f *Forwarder) Subject(eventType string) string {
	if f.subject == "" {
		return eventType
	}
	return f.subject + "." + eventType
}

// Run subscribes to every event on bus and forwards it until ctx is done or
// the bus closes.
func (f *Forwarder) Run(ctx context.Context, bus *events.Bus) {
	ch, unsubscribe := events.Subscribe[events.Event](bus, subscriptionBuffer)
	defer unsubscribe()
	events.Consume(ctx, ch, func(_ context.Context, evt events.Event) {
		if err := f.Forward(evt); err != nil {
			slog.Warn("Failed to forward event", slog.String("event_type", evt.EventType()), logfields.Error(err))
		}
	})
}

// Forward publishes a single event.
func (f *Forwarder) Forward(evt events.Event) error {
	typ := evt.EventType()
	data, err := json.Marshal(Envelope{Type: typ, At: time.Now().UTC(), Payload: evt})
	if err != nil {
		f.recorder.IncEventsForwarded(typ, false)
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode event").
			WithContext("event_type", typ).
			Build()
	}
	if err := f.pub.Publish(f.Subject(typ), data); err != nil {
		f.recorder.IncEventsForwarded(typ, false)
		return ferrors.WrapError(err, ferrors.CategoryNotify, "failed to publish event").
			WithContext("subject", f.Subject(typ)).
			NextTick().
			Build()
	}
	f.recorder.IncEventsForwarded(typ, true)
	return nil
}

// Close flushes pending messages and closes the NATS connection, if any.
func (f *Forwarder) Close() {
	if f.conn == nil {
		return
	}
	if err := f.conn.FlushTimeout(flushTimeout); err != nil {
		slog.Warn("NATS flush failed", logfields.Error(err))
	}
	f.conn.Close()
}
