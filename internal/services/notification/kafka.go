package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vaultledger/internal/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewReader(brokers, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// KafkaSender publishes messages for the notification worker to deliver.
type KafkaSender struct {
	writer messageWriter
}

func NewKafkaSender(w messageWriter) *KafkaSender {
	return &KafkaSender{writer: w}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(msg.AccountID), 10)),
		Value: b,
		Time:  time.Now(),
	})
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// Consumer reads published notifications and hands them to a Sender.
type Consumer struct {
	Log     *zap.Logger
	Reader  messageReader
	Sender  Sender
	Metrics metrics.Collector
	Timeout time.Duration
}

// Run consumes until ctx is cancelled. Undecodable messages are dropped.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var msg Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.Log.Warn("invalid notification message", zap.Error(err))
			c.Metrics.RecordNotification("invalid")
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		err = c.Sender.Send(sendCtx, msg)
		cancel()
		if err != nil {
			c.Log.Warn("notification delivery failed",
				zap.Uint("account_id", msg.AccountID),
				zap.String("template", msg.Template),
				zap.Error(err))
			c.Metrics.RecordNotification("failed")
			continue
		}
		c.Metrics.RecordNotification("sent")
	}
}
