package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
)

const sendTimeout = 30 * time.Second

// Dispatcher delivers notifications after the triggering state change has
// been committed. Delivery failures are logged and recorded, never returned
// to the operation that caused them.
type Dispatcher struct {
	notifier Notifier
	logs     EmailLogStore
	metrics  *Metrics
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logs EmailLogStore, m *Metrics, log *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, logs: logs, metrics: m, log: log}
}

// Dispatch sends msgs one after another on a background goroutine detached
// from the caller's context.
func (d *Dispatcher) Dispatch(event, refID string, msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	d.DispatchFunc(event, refID, func(context.Context) ([]Message, error) { return msgs, nil })
}

// DispatchFunc runs build in the background and delivers what it returns.
// Recipient lookups go through build so they stay off the request path.
func (d *Dispatcher) DispatchFunc(event, refID string, build func(ctx context.Context) ([]Message, error)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification dispatch panicked", "event", event, "ref", refID, "panic", fmt.Sprint(r))
			}
		}()
		buildCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		msgs, err := build(buildCtx)
		cancel()
		if err != nil {
			d.log.Error("prepare notifications", "event", event, "ref", refID, "error", err)
			return
		}
		failed := 0
		for _, m := range msgs {
			if err := d.deliver(context.Background(), event, refID, m); err != nil {
				failed++
			}
		}
		if failed > 0 {
			d.log.Warn("notifications failed", "event", event, "ref", refID, "failed", failed, "total", len(msgs))
		}
	}()
}

// Send delivers msg synchronously. It is used when the email is the
// operation itself, such as replying to a contact message.
func (d *Dispatcher) Send(ctx context.Context, event, refID string, msg Message) error {
	return d.deliver(ctx, event, refID, msg)
}

// Wait blocks until every dispatched batch has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) deliver(ctx context.Context, event, refID string, m Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	err := d.notifier.Send(sendCtx, m)
	outcome := "sent"
	entry := &models.EmailLog{
		Event:   event,
		RefID:   refID,
		ToEmail: m.To,
		Subject: m.Subject,
		SentAt:  time.Now().UTC(),
	}
	if err != nil {
		outcome = "failed"
		entry.Error = err.Error()
		d.log.Warn("send email", "event", event, "ref", refID, "to", m.To, "error", err)
	}
	if d.metrics != nil {
		d.metrics.Notifications.WithLabelValues(event, outcome).Inc()
	}
	if d.logs != nil {
		logCtx, cancelLog := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelLog()
		if lerr := d.logs.InsertEmailLog(logCtx, entry); lerr != nil {
			d.log.Warn("record email log", "event", event, "error", lerr)
		}
	}
	return err
}

// EmailLogs returns the latest delivery attempts for the admin console.
func (d *Dispatcher) EmailLogs(ctx context.Context, limit int64) ([]models.EmailLog, error) {
	if d.logs == nil {
		return []models.EmailLog{}, nil
	}
	return d.logs.RecentEmailLogs(ctx, limit)
}
