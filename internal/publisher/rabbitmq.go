package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"announcement_syncer/internal/domain"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// ErrNacked is returned when the broker refuses a published event.
var ErrNacked = errors.New("event rejected by broker")

// RabbitMQ emits one event per upserted announcement to a topic exchange.
// Routing keys read <prefix>.<action>.<departmentKey>, so a consumer binds
// its own queue to e.g. "announcement.create.*" or "announcement.#.1421000".
// Publishes wait for the broker confirm.
type RabbitMQ struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	prefix   string
	logger   *slog.Logger
	now      func() time.Time
}

type Config struct {
	URL           string
	Exchange      string
	RoutingPrefix string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*RabbitMQ, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange: %w", err))
	}
	if err := ch.Confirm(false); err != nil {
		return fail(fmt.Errorf("enable publisher confirms: %w", err))
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"routing_prefix", cfg.RoutingPrefix,
	)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		prefix:   cfg.RoutingPrefix,
		logger:   logger,
		now:      time.Now,
	}, nil
}

type AnnouncementMessage struct {
	Action       string              `json:"action"`
	Announcement domain.Announcement `json:"announcement"`
	Timestamp    time.Time           `json:"timestamp"`
}

func newMessage(announcement *domain.Announcement, isNew bool, now time.Time) AnnouncementMessage {
	action := ActionUpdate
	if isNew {
		action = ActionCreate
	}
	return AnnouncementMessage{
		Action:       action,
		Announcement: *announcement,
		Timestamp:    now.UTC(),
	}
}

// routingKey joins the non-empty parts with dots.
func routingKey(prefix, action, departmentKey string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, action, departmentKey} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Publish sends the event and blocks until the broker confirms it or ctx ends.
func (r *RabbitMQ) Publish(ctx context.Context, announcement *domain.Announcement, isNew bool) error {
	msg := newMessage(announcement, isNew, r.now())
	key := routingKey(r.prefix, msg.Action, announcement.DepartmentKey)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	// The channel is shared by concurrent upserts.
	r.mu.Lock()
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    announcement.ItemID,
		Type:         msg.Action,
		Timestamp:    msg.Timestamp,
		Headers:      amqp.Table{"departmentKey": announcement.DepartmentKey},
		Body:         body,
	})
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", announcement.ItemID, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNacked, announcement.ItemID)
	}

	r.logger.Debug("published announcement event",
		"item_id", announcement.ItemID,
		"routing_key", key,
	)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
