package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// EventStreamName is the JetStream stream that retains published domain events
const EventStreamName = "betbot_events"

const (
	eventRetention  = 7 * 24 * time.Hour
	eventMaxMsgs    = 1_000_000
	reconnectWait   = 2 * time.Second
	reconnectBudget = 10
)

var errNotConnected = errors.New("nats: jetstream not connected")

// NATSClient is the JetStream side of the event bus. It only publishes;
// consumers live outside the bot.
type NATSClient struct {
	url string
	nc  *nats.Conn
	js  nats.JetStreamContext
}

func NewNATSClient(url string) *NATSClient {
	return &NATSClient{url: url}
}

func connectionOptions() []nats.Option {
	return []nats.Option{
		nats.Name("betbot"),
		nats.MaxReconnects(reconnectBudget),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("Lost connection to NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrlRedacted()).Info("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.WithError(err).Error("NATS async error")
		}),
	}
}

// Connect dials the server and opens a JetStream context bound to ctx.
func (c *NATSClient) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.url, connectionOptions()...)
	if err != nil {
		return fmt.Errorf("dial nats %s: %w", c.url, err)
	}
	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()
		return fmt.Errorf("open jetstream: %w", err)
	}
	c.nc, c.js = nc, js

	log.WithField("url", nc.ConnectedUrlRedacted()).Info("Connected to NATS")
	return nil
}

// EnsureStream creates the event stream, or widens an existing one whose
// subject list no longer covers subjects.
func (c *NATSClient) EnsureStream(name string, subjects []string) error {
	if c.js == nil {
		return errNotConnected
	}

	info, err := c.js.StreamInfo(name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:        name,
			Description: "Bet bot ledger, wager and deposit events",
			Subjects:    subjects,
			Retention:   nats.LimitsPolicy,
			Storage:     nats.FileStorage,
			MaxAge:      eventRetention,
			MaxMsgs:     eventMaxMsgs,
		})
		if err != nil {
			return fmt.Errorf("create stream %s: %w", name, err)
		}
		log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Created event stream")
		return nil
	case err != nil:
		return fmt.Errorf("inspect stream %s: %w", name, err)
	}

	missing := false
	for _, s := range subjects {
		if !slices.Contains(info.Config.Subjects, s) {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	cfg := info.Config
	cfg.Subjects = subjects
	if _, err := c.js.UpdateStream(&cfg); err != nil {
		return fmt.Errorf("update stream %s: %w", name, err)
	}
	log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Updated event stream subjects")
	return nil
}

// Publish waits for the stream to acknowledge data on subject.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if c.js == nil {
		return errNotConnected
	}
	ack, err := c.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	log.WithFields(log.Fields{"subject": subject, "seq": ack.Sequence}).Debug("Event acknowledged")
	return nil
}

// Close flushes in-flight publishes before disconnecting.
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	defer c.nc.Close()
	if err := c.nc.Drain(); err != nil {
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
