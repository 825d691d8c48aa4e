// Package persistencenotify relays change announcements between devices of
// the same user over NATS.
package persistencenotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// Config describes the NATS connection.
type Config struct {
	URL           string
	SubjectPrefix string
	// NKeySeed authenticates with a bare NKey. With UserJWT set it signs the
	// nonce for JWT authentication instead.
	NKeySeed string
	UserJWT  string
	Name     string
}

// Connect dials NATS with the configured credentials. Own publications are
// not echoed back to this connection.
func Connect(cfg Config, logger *slog.Logger) (*nats.Conn, error) {
	name := cfg.Name
	if name == "" {
		name = "matchops"
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.NoEcho(),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	}

	switch {
	case cfg.UserJWT != "" && cfg.NKeySeed != "":
		opts = append(opts, nats.UserJWTAndSeed(cfg.UserJWT, cfg.NKeySeed))
	case cfg.NKeySeed != "":
		kp, err := nkeys.FromSeed([]byte(cfg.NKeySeed))
		if err != nil {
			return nil, fmt.Errorf("invalid nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("invalid nkey seed: %w", err)
		}
		opts = append(opts, nats.Nkey(pub, kp.Sign))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Subject returns the change subject of userID under prefix.
func Subject(prefix, userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	// Subject tokens cannot contain separators or wildcards.
	userID = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(userID)
	return prefix + "." + userID + ".changes"
}

// Bridge forwards TopicChangeAnnouncedV1 from the in-process bus to NATS and
// republishes everything received from NATS as TopicRemoteChangedV1.
type Bridge struct {
	conn    *nats.Conn
	bus     eventbus.EventBus
	subject string
	logger  *slog.Logger

	mu     sync.Mutex
	sub    *nats.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge creates a Bridge on subject.
func NewBridge(conn *nats.Conn, bus eventbus.EventBus, subject string, logger *slog.Logger) *Bridge {
	return &Bridge{
		conn:    conn,
		bus:     bus,
		subject: subject,
		logger:  logger.With(slog.String("subject", subject)),
	}
}

// Start subscribes both directions. It returns once the subscriptions exist.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return fmt.Errorf("bridge already started")
	}

	sub, err := b.conn.Subscribe(b.subject, b.onRemote)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to flush subscription: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	announced, err := b.bus.Subscribe(ctx, eventbus.TopicChangeAnnouncedV1)
	if err != nil {
		cancel()
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to subscribe to %s: %w", eventbus.TopicChangeAnnouncedV1, err)
	}

	b.sub = sub
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.forward(ctx, announced)

	b.logger.InfoContext(ctx, "Change bridge started")
	return nil
}

func (b *Bridge) forward(ctx context.Context, announced <-chan *message.Message) {
	defer close(b.done)
	for msg := range announced {
		if err := b.conn.Publish(b.subject, msg.Payload); err != nil {
			b.logger.WarnContext(ctx, "Failed to publish change", slog.String("error", err.Error()))
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}

func (b *Bridge) onRemote(m *nats.Msg) {
	var payload eventbus.RemoteChangedPayloadV1
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		b.logger.Warn("Dropping malformed change", slog.String("error", err.Error()))
		return
	}
	if err := eventbus.PublishJSON(b.bus, eventbus.TopicRemoteChangedV1, payload); err != nil {
		b.logger.Warn("Failed to republish remote change", slog.String("error", err.Error()))
	}
}

// Close stops both directions. The NATS connection stays open.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	b.cancel()
	<-b.done
	err := b.sub.Unsubscribe()
	b.sub = nil
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}
