// Package alert publishes governor decisions to Kafka.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/alexshd/biotica"
)

// EventType tags every published payload.
const EventTypeAction = "biotica.governor.action"

// Config configures the publisher.
type Config struct {
	Enabled bool
	Brokers []string
	Topic   string
	// MinAction filters out decisions less severe than it.
	MinAction biotica.ActionType
}

// Event is the payload written to the topic.
type Event struct {
	Type    string         `json:"type"`
	AlertID string         `json:"alert_id,omitempty"`
	Action  biotica.Action `json:"action"`
	SentAt  time.Time      `json:"sent_at"`
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaWriteCloser interface {
	Close() error
}

// writeBatchTimeout bounds how long a synchronous write waits for more
// messages before flushing. kafka-go defaults to one second.
const writeBatchTimeout = 10 * time.Millisecond

var (
	errPublisherNilLogger = errors.New("publisher requires a logger")
	errPublisherNilWriter = errors.New("publisher requires a writer")
)

// Publisher writes actions keyed by plot id so that one plot's alerts stay
// ordered within a partition.
type Publisher struct {
	cfg     Config
	log     *slog.Logger
	writer  kafkaMessageWriter
	closer  kafkaWriteCloser
	enabled bool
	now     func() time.Time
}

// NewPublisher builds a publisher. A disabled config yields a publisher
// that accepts and drops every action.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if !cfg.Enabled {
		log.Info("alert_publisher_disabled")
		return &Publisher{cfg: cfg, log: log, enabled: false, now: time.Now}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("alert topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           writeBatchTimeout,
	}
	return newPublisherWithWriter(cfg, log, w, w)
}

// newPublisherWithWriter wires the provided writer into the publisher. It is used in tests.
func newPublisherWithWriter(cfg Config, log *slog.Logger, writer kafkaMessageWriter, closer kafkaWriteCloser) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if writer == nil {
		return nil, errPublisherNilWriter
	}
	return &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "alert_publisher")),
		writer:  writer,
		closer:  closer,
		enabled: cfg.Enabled,
		now:     time.Now,
	}, nil
}

// Enabled reports whether actions reach a broker.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Wants reports whether a is severe enough to publish.
func (p *Publisher) Wants(a biotica.Action) bool {
	return a.Type.Rank() >= p.cfg.MinAction.Rank()
}

// Publish writes a when the publisher is enabled and a passes the severity
// filter. It reports whether a message was written.
func (p *Publisher) Publish(ctx context.Context, alertID string, a biotica.Action) (bool, error) {
	if !p.enabled || !p.Wants(a) {
		return false, nil
	}

	value, err := json.Marshal(Event{Type: EventTypeAction, AlertID: alertID, Action: a, SentAt: p.now().UTC()})
	if err != nil {
		return false, err
	}
	msg := kafka.Message{Value: value}
	if a.PlotID != "" {
		msg.Key = []byte(a.PlotID)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("alert_publish_err", slog.Any("err", err), slog.String("plot_id", a.PlotID), slog.String("action", string(a.Type)))
		return false, fmt.Errorf("failed to publish alert: %w", err)
	}
	p.log.Info("alert_published", slog.String("plot_id", a.PlotID), slog.String("action", string(a.Type)))
	return true, nil
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
