package notify

import (
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Dispatcher bridges bus events to SMTP. Event handlers render the mail
// and persist it to the outbox, a drain loop hands pending envelopes to
// a bounded worker pool. Failed sends stay queued until their attempts
// run out.
type Dispatcher struct {
	bus      EventBus.Bus
	outbox   *Outbox
	sender   Sender
	settings SettingsReader
	pool     *ants.Pool
	interval time.Duration

	mu       sync.Mutex
	inflight map[int64]struct{}

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewDispatcher(bus EventBus.Bus, outbox *Outbox, sender Sender, settings SettingsReader, workers int) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create mail worker pool")
	}
	return &Dispatcher{
		bus:      bus,
		outbox:   outbox,
		sender:   sender,
		settings: settings,
		pool:     pool,
		interval: time.Second * 5,
		inflight: make(map[int64]struct{}),
		stopChan: make(chan struct{}),
	}, nil
}

// Start subscribes the event handlers and launches the drain loop.
func (d *Dispatcher) Start() error {
	type sub struct {
		topic   string
		handler interface{}
	}
	subs := []sub{
		{TopicUserRegistered, d.onUserRegistered},
		{TopicPasswordReset, d.onPasswordReset},
		{TopicOrderCreated, d.onOrderCreated},
		{TopicOrderStatusChanged, d.onOrderStatusChanged},
		{TopicLowStock, d.onLowStock},
	}
	for _, item := range subs {
		if err := d.bus.SubscribeAsync(item.topic, item.handler, false); err != nil {
			return errors.Wrapf(err, "subscribe %s", item.topic)
		}
	}
	go d.drainLoop()
	zap.L().Info("notify dispatcher started")
	return nil
}

// Stop flushes the queue and releases the worker pool.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
		d.bus.WaitAsync()
		d.Flush()
		if err := d.pool.ReleaseTimeout(time.Second * 10); err != nil {
			zap.L().Warn("mail worker pool release timeout", zap.Error(err))
		}
		if err := d.outbox.Close(); err != nil {
			zap.L().Warn("close outbox error", zap.Error(err))
		}
		zap.L().Info("notify dispatcher stopped")
	})
}

func (d *Dispatcher) drainLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.Flush()
		case <-d.stopChan:
			return
		}
	}
}

// Flush submits every pending envelope that is not already in flight.
func (d *Dispatcher) Flush() {
	envs, err := d.outbox.Pending(64)
	if err != nil {
		zap.L().Error("read outbox error", zap.Error(err))
		return
	}
	for _, env := range envs {
		if !d.markInflight(env.ID) {
			continue
		}
		env := env
		if err := d.pool.Submit(func() { d.deliver(env) }); err != nil {
			d.clearInflight(env.ID)
			zap.L().Warn("submit mail task error", zap.Error(err))
			return
		}
	}
}

func (d *Dispatcher) deliver(env Envelope) {
	defer d.clearInflight(env.ID)

	if err := d.sender.Send(env.To, env.Subject, env.Body); err != nil {
		dropped, nerr := d.outbox.Nack(env.ID)
		if nerr != nil {
			zap.L().Error("outbox nack error", zap.Error(nerr))
		}
		zap.L().Warn("send mail failed",
			zap.String("to", env.To),
			zap.String("subject", env.Subject),
			zap.Int("attempts", env.Attempts+1),
			zap.Bool("dropped", dropped),
			zap.Error(err))
		return
	}
	if err := d.outbox.Ack(env.ID); err != nil {
		zap.L().Error("outbox ack error", zap.Error(err))
	}
	zap.L().Debug("mail sent", zap.String("to", env.To), zap.String("subject", env.Subject))
}

func (d *Dispatcher) markInflight(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[id]; ok {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *Dispatcher) clearInflight(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
}

func (d *Dispatcher) enqueue(to, subject, body string) {
	if to == "" {
		return
	}
	if err := d.outbox.Enqueue(to, subject, body); err != nil {
		zap.L().Error("enqueue mail error", zap.String("to", to), zap.Error(err))
	}
}

func (d *Dispatcher) onUserRegistered(ev UserRegisteredEvent) {
	subject, body := BuildWelcome(ev)
	d.enqueue(ev.Email, subject, body)
}

func (d *Dispatcher) onPasswordReset(ev PasswordResetEvent) {
	var cfg NotifySettings
	if err := d.settings.DecodeSettings("notify", &cfg); err != nil {
		zap.L().Warn("load notify settings error", zap.Error(err))
	}
	subject, body := BuildPasswordReset(ev, cfg.SiteURL)
	d.enqueue(ev.Email, subject, body)
}

func (d *Dispatcher) onOrderCreated(ev OrderCreatedEvent) {
	subject, body := BuildOrderCreated(ev)
	d.enqueue(ev.Email, subject, body)
}

func (d *Dispatcher) onOrderStatusChanged(ev OrderStatusChangedEvent) {
	subject, body := BuildOrderStatusChanged(ev)
	d.enqueue(ev.Email, subject, body)
}

func (d *Dispatcher) onLowStock(ev LowStockEvent) {
	if len(ev.Products) == 0 {
		return
	}
	var cfg NotifySettings
	if err := d.settings.DecodeSettings("notify", &cfg); err != nil {
		zap.L().Warn("load notify settings error", zap.Error(err))
		return
	}
	if cfg.ReportTo == "" {
		zap.L().Debug("low stock report skipped, no recipient configured")
		return
	}
	subject, body := BuildLowStock(ev)
	d.enqueue(cfg.ReportTo, subject, body)
}
