package notify

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

type captureSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (s *captureSink) Record(ctx context.Context, e domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type captureSender struct {
	mu    sync.Mutex
	mails []Email
}

func (s *captureSender) Send(ctx context.Context, m Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = append(s.mails, m)
	return nil
}

func TestDispatcherDeliversAuditEvents(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, nil, slog.Default(), 8)

	d.Audit(domain.AuditEvent{Action: "USER_LOGIN", Status: domain.AuditSuccess})
	d.Audit(domain.AuditEvent{Action: "USER_LOGIN", Status: domain.AuditFailure})
	d.Close()

	require.Equal(t, 2, sink.len())
	require.NotZero(t, sink.events[0].CreatedAt)
}

func TestDispatcherDeliversEmail(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(nil, sender, slog.Default(), 8)

	d.Email(Email{Template: "password_reset", Recipient: "parent@example.com"})
	d.Close()

	require.Len(t, sender.mails, 1)
	require.Equal(t, "password_reset", sender.mails[0].Template)
}

func TestDispatcherIgnoresAfterClose(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, nil, slog.Default(), 8)
	d.Close()

	d.Audit(domain.AuditEvent{Action: "USER_LOGIN"})
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, 0, sink.len())
	require.NotPanics(t, d.Close)
}

func TestDispatcherNilReceiver(t *testing.T) {
	var d *Dispatcher
	require.NotPanics(t, func() {
		d.Audit(domain.AuditEvent{Action: "USER_LOGIN"})
		d.Email(Email{})
		d.Close()
	})
	require.Zero(t, d.Dropped())
}
