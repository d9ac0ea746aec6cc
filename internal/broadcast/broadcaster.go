package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "storefront/pkg/domain"
)

const defaultSeenCapacity = 1024

// Handler receives events. Handlers run on the publishing goroutine for
// local events and on the Run goroutine for remote ones, so handlers that do
// I/O should hand off to their own goroutine.
type Handler func(Event)

type subscription struct {
	handler Handler
	mu      sync.Mutex
	active  bool
}

// Broadcaster is one tab's view of the origin's broadcast channel.
type Broadcaster struct {
	tab     id.TabID
	channel Channel
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	seen    *recentSet

	mu   sync.Mutex
	subs []*subscription
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) { b.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *Broadcaster) { b.now = now }
}

// WithSeenCapacity bounds how many recent event IDs are remembered for
// duplicate suppression.
func WithSeenCapacity(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.seen = newRecentSet(n)
		}
	}
}

// New creates a Broadcaster for tab. A nil channel confines events to this
// process.
func New(tab id.TabID, channel Channel, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		tab:     tab,
		channel: channel,
		logger:  slog.Default(),
		now:     time.Now,
		seen:    newRecentSet(defaultSeenCapacity),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tab returns the identity stamped on events this broadcaster publishes.
func (b *Broadcaster) Tab() id.TabID { return b.tab }

// Subscribe registers h for every subsequent event. The returned function
// unsubscribes and is safe to call more than once. A handler registered
// while an event is being delivered first sees the next event.
func (b *Broadcaster) Subscribe(h Handler) (unsubscribe func()) {
	sub := &subscription{handler: h, active: true}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()

			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers a new event of kind to local subscribers, then sends it
// to other tabs. Local delivery happens even when the channel send fails;
// the returned error reports the channel failure only.
func (b *Broadcaster) Publish(ctx context.Context, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("publish: unknown kind %q", kind)
	}
	ev := Event{ID: uuid.New(), Kind: kind, Origin: b.tab, At: b.now().UTC()}
	b.seen.add(ev.ID)
	if b.metrics != nil {
		b.metrics.Published.WithLabelValues(string(kind)).Inc()
	}

	b.dispatch(ev, "local")

	if b.channel == nil {
		return nil
	}
	if err := b.channel.Publish(ctx, ev); err != nil {
		if b.metrics != nil {
			b.metrics.PublishFailure.WithLabelValues(string(kind)).Inc()
		}
		b.logger.WarnContext(ctx, "broadcast publish failed",
			"kind", kind,
			"event_id", ev.ID,
			"error", err,
		)
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// Run pumps the channel until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.channel == nil {
		<-ctx.Done()
		return nil
	}
	err := b.channel.Listen(ctx, b.receive)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Broadcaster) receive(ev Event) {
	if ev.Origin == b.tab {
		b.drop("self")
		return
	}
	if !b.seen.add(ev.ID) {
		b.drop("duplicate")
		return
	}
	b.dispatch(ev, "remote")
}

func (b *Broadcaster) drop(reason string) {
	if b.metrics != nil {
		b.metrics.Dropped.WithLabelValues(reason).Inc()
	}
}

func (b *Broadcaster) dispatch(ev Event, source string) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.Delivered.WithLabelValues(string(ev.Kind), source).Inc()
	}
	for _, sub := range subs {
		sub.mu.Lock()
		active := sub.active
		sub.mu.Unlock()
		if active {
			b.invoke(sub.handler, ev)
		}
	}
}

func (b *Broadcaster) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("broadcast handler panicked",
				"kind", ev.Kind,
				"event_id", ev.ID,
				"panic", r,
			)
		}
	}()
	h(ev)
}
