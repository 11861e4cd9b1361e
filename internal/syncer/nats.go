package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
)

// DefaultSubject is the NATS subject write events are published on.
const DefaultSubject = "crewmatch.sync.events"

// headerCarrier adapts nats.Msg headers for OTel propagation.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

func publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}

func subscribe[T any](nc *nats.Conn, subject, queue string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			logctx.From(context.Background()).Warn("dropping malformed sync event", "subject", msg.Subject, "error", err)
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}

// Publisher is a Synchronizer that hands events to NATS for a separate
// worker process to apply. Publish failures are logged and dropped.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher publishes on subject (DefaultSubject when empty).
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

func (p *Publisher) OnWrite(ctx context.Context, ev WriteEvent) {
	if err := publish(ctx, p.nc, p.subject, ev); err != nil {
		logctx.From(ctx).WarnContext(ctx, "publishing sync event failed", "id", ev.EntryID(), "error", err)
		metrics.SyncTotal.WithLabelValues(string(ev.Entity), string(ev.Action), metrics.OutcomeDropped).Inc()
	}
}

// Consume subscribes to subject in a queue group, so several sync workers
// can share the stream, and applies each event through a.
func Consume(ctx context.Context, nc *nats.Conn, subject string, a Applier) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	log := logctx.From(ctx)
	sub, err := subscribe(nc, subject, "crewmatch-sync", func(msgCtx context.Context, ev WriteEvent) {
		Swallow(logctx.With(msgCtx, log), a, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return sub, nil
}
