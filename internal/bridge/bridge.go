package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/frame"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "thinkgw"

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

// Message is the JSON body published for each event.
type Message struct {
	Instance   domain.InstanceID `json:"instance"`
	Event      string            `json:"event"`
	Seq        *int64            `json:"seq,omitempty"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// Topic maps an event name to its MQTT topic. Dots become levels and MQTT
// wildcards are replaced so a gateway cannot publish to a filter.
func Topic(prefix string, instance domain.InstanceID, event string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	levels := []string{strings.TrimRight(prefix, "/"), sanitize(instance.String())}
	for _, part := range strings.Split(event, ".") {
		levels = append(levels, sanitize(part))
	}
	return strings.Join(levels, "/")
}

func sanitize(level string) string {
	level = strings.Map(func(r rune) rune {
		switch r {
		case '+', '#', '/', 0:
			return '_'
		}
		return r
	}, level)
	if level == "" {
		return "_"
	}
	return level
}

// Forwarder publishes the events of one instance. Each event is first
// handed to the sink, if any, then published, if a publisher is set.
type Forwarder struct {
	pub      Publisher
	sink     func(Message) error
	prefix   string
	instance domain.InstanceID
	log      zerolog.Logger
	now      func() time.Time
}

// NewForwarder returns a forwarder for instance. pub may be nil when only a
// sink is wanted.
func NewForwarder(pub Publisher, prefix string, instance domain.InstanceID, log zerolog.Logger) *Forwarder {
	return &Forwarder{pub: pub, prefix: prefix, instance: instance, log: log, now: time.Now}
}

// WithSink registers fn to receive every message before it is published.
// An error from fn stops Run.
func (f *Forwarder) WithSink(fn func(Message) error) *Forwarder {
	f.sink = fn
	return f
}

// Run forwards events until the channel closes, ctx ends or the sink fails.
// It returns nil when the channel closes.
func (f *Forwarder) Run(ctx context.Context, events <-chan frame.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg := Message{
				Instance:   f.instance,
				Event:      ev.Name,
				Seq:        ev.Seq,
				Payload:    ev.Payload,
				ReceivedAt: f.now().UTC(),
			}
			if f.sink != nil {
				if err := f.sink(msg); err != nil {
					return err
				}
			}
			if f.pub != nil {
				f.publish(ctx, msg)
			}
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, msg Message) {
	topic := Topic(f.prefix, f.instance, msg.Event)
	body, err := json.Marshal(msg)
	if err != nil {
		f.log.Warn().Err(err).Str("event", msg.Event).Msg("encode event for mqtt")
		return
	}
	if err := f.pub.Publish(ctx, topic, body); err != nil {
		f.log.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
		return
	}
	f.log.Debug().Str("topic", topic).Msg("event forwarded")
}
