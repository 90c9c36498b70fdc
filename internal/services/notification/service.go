// Package notification delivers templated messages to account owners.
// Delivery is always best effort: callers hand a Message to a Notifier and
// move on, and failures end up in the log.
package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vaultledger/internal/metrics"
)

// Message is one templated notification. Variables are already stringified.
type Message struct {
	AccountID uint              `json:"account_id"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

// Sender performs the actual delivery and may block.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier accepts messages without blocking and never reports failure.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Dispatcher runs each delivery on its own goroutine with a bounded timeout.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *zap.Logger
	metrics metrics.Collector
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log *zap.Logger, m metrics.Collector) *Dispatcher {
	if sender == nil {
		panic("notification sender is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log, metrics: m}
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if msg.Template == "" {
		d.log.Debug("no template configured, skipping notification", zap.Uint("account_id", msg.AccountID))
		d.metrics.RecordNotification("skipped")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.log.Warn("notification delivery failed",
				zap.Uint("account_id", msg.AccountID),
				zap.String("template", msg.Template),
				zap.Error(err))
			d.metrics.RecordNotification("failed")
			return
		}
		d.metrics.RecordNotification("sent")
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Log.Info("notification",
		zap.Uint("account_id", msg.AccountID),
		zap.String("to", msg.Email),
		zap.String("template", msg.Template),
		zap.Any("variables", msg.Variables))
	return nil
}
