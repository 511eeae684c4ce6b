package notify

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zestcart/zestcart/internal/domain"
)

// captureSender records every send and can be switched to fail.
type captureSender struct {
	mu   sync.Mutex
	sent []Envelope
	fail bool
}

func (s *captureSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("relay down")
	}
	s.sent = append(s.sent, Envelope{To: to, Subject: subject, Body: body})
	return nil
}

func (s *captureSender) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *captureSender) last() Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

// stubSettings serves fixed notify settings.
type stubSettings struct {
	reportTo string
	siteURL  string
}

func (s *stubSettings) DecodeSettings(category string, out interface{}) error {
	if cfg, ok := out.(*NotifySettings); ok {
		cfg.ReportTo = s.reportTo
		cfg.SiteURL = s.siteURL
	}
	return nil
}

func newTestDispatcher(t *testing.T, sender Sender, settings SettingsReader) (*Dispatcher, *Outbox) {
	t.Helper()
	box, err := OpenOutbox(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	d, err := NewDispatcher(EventBus.New(), box, sender, settings, 2)
	require.NoError(t, err)
	t.Cleanup(d.Stop)
	return d, box
}

// TestFlushDeliversAndAcks verifies a flush drains the queue through
// the worker pool and acked envelopes never resend.
func TestFlushDeliversAndAcks(t *testing.T) {
	sender := &captureSender{}
	d, box := newTestDispatcher(t, sender, &stubSettings{})

	require.NoError(t, box.Enqueue("a@example.com", "hello", "body"))
	d.Flush()

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second*3, time.Millisecond*10)
	assert.Equal(t, "a@example.com", sender.last().To)

	assert.Eventually(t, func() bool {
		size, err := box.Size()
		return err == nil && size == 0
	}, time.Second*3, time.Millisecond*10)

	d.Flush()
	time.Sleep(time.Millisecond * 50)
	assert.Equal(t, 1, sender.count())
}

// TestFlushKeepsFailedSends verifies a failed send stays queued with a
// recorded attempt and goes out on a later flush.
func TestFlushKeepsFailedSends(t *testing.T) {
	sender := &captureSender{}
	sender.setFail(true)
	d, box := newTestDispatcher(t, sender, &stubSettings{})

	require.NoError(t, box.Enqueue("a@example.com", "retry me", "body"))
	d.Flush()

	require.Eventually(t, func() bool {
		envs, err := box.Pending(1)
		return err == nil && len(envs) == 1 && envs[0].Attempts == 1
	}, time.Second*3, time.Millisecond*10)
	assert.Zero(t, sender.count())

	sender.setFail(false)
	d.Flush()

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second*3, time.Millisecond*10)
	assert.Equal(t, "retry me", sender.last().Subject)
}

// TestBusEventsRenderIntoOutbox verifies published events end up as
// queued mail with the rendered subject lines.
func TestBusEventsRenderIntoOutbox(t *testing.T) {
	sender := &captureSender{}
	sender.setFail(true) // keep mail queued so the bodies can be inspected
	d, box := newTestDispatcher(t, sender, &stubSettings{siteURL: "https://shop.example.com"})
	require.NoError(t, d.Start())

	d.bus.Publish(TopicUserRegistered, UserRegisteredEvent{
		UserID: 1, Email: "alice@example.com", Username: "alice",
	})
	d.bus.Publish(TopicOrderCreated, OrderCreatedEvent{
		OrderID: 77, UserID: 1, Email: "alice@example.com", Username: "alice",
		Total: 20,
		Items: []domain.OrderItem{{ProductID: 5, Name: "USB Hub", Price: 10, Quantity: 2, Subtotal: 20}},
	})
	d.bus.Publish(TopicPasswordReset, PasswordResetEvent{
		UserID: 1, Email: "alice@example.com", Username: "alice", Token: "tok123",
	})
	d.bus.WaitAsync()

	envs, err := box.Pending(10)
	require.NoError(t, err)
	require.Len(t, envs, 3)

	subjects := make([]string, 0, len(envs))
	for _, env := range envs {
		assert.Equal(t, "alice@example.com", env.To)
		subjects = append(subjects, env.Subject)
	}
	assert.Contains(t, subjects, "Welcome to ZestCart")
	assert.Contains(t, subjects, "Order 77 received")
	assert.Contains(t, subjects, "Reset your ZestCart password")

	for _, env := range envs {
		if env.Subject == "Reset your ZestCart password" {
			assert.Contains(t, env.Body, "tok123")
			assert.Contains(t, env.Body, "https://shop.example.com/reset-password?token=tok123")
		}
		if strings.HasPrefix(env.Subject, "Order") {
			assert.Contains(t, env.Body, "USB Hub")
			assert.Contains(t, env.Body, "$20.00")
		}
	}
}

// TestLowStockNeedsRecipient verifies the stock report only goes out
// when an operator address is configured.
func TestLowStockNeedsRecipient(t *testing.T) {
	sender := &captureSender{}
	sender.setFail(true)
	d, box := newTestDispatcher(t, sender, &stubSettings{})

	d.onLowStock(LowStockEvent{Products: []LowStockProduct{{ProductID: 1, Name: "USB Hub", Quantity: 2}}})
	size, err := box.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	d.settings = &stubSettings{reportTo: "ops@example.com"}
	d.onLowStock(LowStockEvent{Products: []LowStockProduct{{ProductID: 1, Name: "USB Hub", Quantity: 2}}})

	envs, err := box.Pending(1)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "ops@example.com", envs[0].To)
	assert.Contains(t, envs[0].Body, "USB Hub")

	d.onLowStock(LowStockEvent{})
	size, err = box.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}
