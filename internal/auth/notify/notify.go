// Package notify carries the engine's fire-and-forget side effects: audit
// events and outbound email. Handlers enqueue an intent and return; a single
// background worker drains the queue. A failure here is logged and dropped,
// never surfaced to the request that produced it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

const defaultBufferSize = 256

// AuditSink records audit events somewhere durable.
type AuditSink interface {
	Record(ctx context.Context, e domain.AuditEvent) error
}

// Email is an outbound email intent. Rendering and transport live behind
// EmailSender; the engine only names a template and its parameters.
type Email struct {
	Template  string // e.g. "password_reset", "password_changed"
	Recipient string
	Params    map[string]string
}

// EmailSender delivers an email intent.
type EmailSender interface {
	Send(ctx context.Context, m Email) error
}

type intent struct {
	audit *domain.AuditEvent
	email *Email
}

// Dispatcher is the explicit queue between request handlers and the
// background worker. Enqueueing never blocks: when the buffer is full the
// intent is counted as dropped.
type Dispatcher struct {
	sink   AuditSink
	sender EmailSender
	logger *slog.Logger

	ch        chan intent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sink AuditSink, sender EmailSender, logger *slog.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if sink == nil {
		sink = NopAuditSink{}
	}
	if sender == nil {
		sender = LogEmailSender{Logger: logger}
	}

	d := &Dispatcher{
		sink:   sink,
		sender: sender,
		logger: logger,
		ch:     make(chan intent, bufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Audit enqueues an audit event. Safe to call with a nil dispatcher.
func (d *Dispatcher) Audit(e domain.AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	d.enqueue(intent{audit: &e})
}

// Email enqueues an outbound email intent. Safe to call with a nil dispatcher.
func (d *Dispatcher) Email(m Email) {
	if d == nil || d.closed.Load() {
		return
	}
	d.enqueue(intent{email: &m})
}

func (d *Dispatcher) enqueue(it intent) {
	select {
	case d.ch <- it:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Dropped reports how many intents were discarded due to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops accepting intents, drains the buffer, and waits for the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case it := <-d.ch:
			d.handle(it)
		case <-d.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case it := <-d.ch:
					d.handle(it)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(it intent) {
	ctx := context.Background()

	switch {
	case it.audit != nil:
		if err := d.sink.Record(ctx, *it.audit); err != nil {
			d.logger.Error("failed to record audit event",
				"action", it.audit.Action, "error", err)
		}
	case it.email != nil:
		if err := d.sender.Send(ctx, *it.email); err != nil {
			d.logger.Error("failed to send email",
				"template", it.email.Template, "error", err)
		}
	}
}

// NopAuditSink discards events.
type NopAuditSink struct{}

func (NopAuditSink) Record(ctx context.Context, e domain.AuditEvent) error { return nil }

// LogEmailSender logs the email intent instead of delivering it. Real SMTP
// delivery is a deployment concern plugged in behind EmailSender.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) Send(ctx context.Context, m Email) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("outbound email",
		"template", m.Template,
		"recipient", m.Recipient,
	)
	return nil
}
