package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storefront/internal/broadcast"
	"storefront/internal/storage"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/clock"
	"storefront/pkg/platform/sentinel"
)

// Bus is the part of the broadcaster the store needs.
type Bus interface {
	Publish(ctx context.Context, kind broadcast.Kind) error
	Subscribe(h broadcast.Handler) func()
	Tab() id.TabID
}

// Observer is told about every change to the store's state. prev and next
// always differ.
type Observer func(prev, next Snapshot)

const (
	causeLogin   = "login"
	causeProfile = "profile"
	causeLogout  = "logout"
	causeExpired = "expired"
	causeRemote  = "remote"
	causeRestore = "restore"

	expiryLogoutTimeout = 5 * time.Second
)

// Store is the single holder of the current Session for a tab.
//
// Mutations are serialized by opMu, which is held across storage I/O.
// State reads take only mu. Observers and broadcast handlers are always
// invoked with neither lock held.
type Store struct {
	storage storage.Storage
	bus     Bus
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics

	opMu sync.Mutex

	mu        sync.RWMutex
	current   *Session
	timer     clock.Timer
	timerGen  uint64
	observers map[uint64]Observer
	nextObsID uint64

	unsubscribe func()
	reloads     sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an anonymous store. Call Initialize to restore the
// persisted session and start following other tabs.
func NewStore(st storage.Storage, bus Bus, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		bus:       bus,
		clock:     clock.Real{},
		logger:    slog.Default(),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the current state.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotOf(s.current)
}

// Subscribe registers an observer and returns an idempotent unsubscribe.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	obsID := s.nextObsID
	s.nextObsID++
	s.observers[obsID] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, obsID)
		s.mu.Unlock()
	}
}

// Initialize restores the persisted session and subscribes to session
// changes made by other tabs. An expired record is removed and reported to
// other tabs as a logout; a corrupted one is removed silently.
func (s *Store) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	loaded, expired, err := s.load(ctx)
	if err != nil {
		s.opMu.Unlock()
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "restore session")
	}
	if expired {
		if err := s.storage.Delete(ctx, storage.KeySession); err != nil {
			s.logger.WarnContext(ctx, "failed to remove expired session record", "error", err)
		}
	}
	prev, next := s.swap(loaded)
	s.opMu.Unlock()

	if s.bus != nil && s.unsubscribe == nil {
		s.unsubscribe = s.bus.Subscribe(s.onBroadcast)
	}

	if expired {
		s.logger.InfoContext(ctx, "persisted session expired; signed out")
		s.record(causeExpired)
		s.publish(ctx)
		return nil
	}
	if loaded != nil {
		s.record(causeRestore)
	}
	s.notify(prev, next)
	return nil
}

// Login replaces the session. ExpiresAt is read from the token's exp claim
// when not supplied.
func (s *Store) Login(ctx context.Context, sess Session) error {
	sess.Token = strings.TrimSpace(sess.Token)
	if sess.UserID.IsNil() || sess.Token == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user and token are required")
	}
	if sess.ExpiresAt.IsZero() {
		exp, err := TokenExpiry(sess.Token)
		if err != nil {
			return err
		}
		sess.ExpiresAt = exp
	}
	// Records persist whole seconds; keep memory identical to what other
	// tabs will load.
	sess.ExpiresAt = sess.ExpiresAt.UTC().Truncate(time.Second)
	if !sess.ExpiresAt.After(s.clock.Now()) {
		return dErrors.New(dErrors.CodeTokenExpired, "token already expired")
	}

	s.opMu.Lock()
	if err := s.persist(ctx, &sess); err != nil {
		s.opMu.Unlock()
		return err
	}
	prev, next := s.swap(&sess)
	s.opMu.Unlock()

	s.logger.InfoContext(ctx, "signed in", "user_id", sess.UserID, "expires_at", sess.ExpiresAt)
	s.record(causeLogin)
	s.notify(prev, next)
	s.publish(ctx)
	return nil
}

// UpdateProfile merges patch into the current session.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	s.opMu.Lock()
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil {
		s.opMu.Unlock()
		return dErrors.New(dErrors.CodeNoActiveSession, "no active session")
	}

	updated := *cur
	patch.Apply(&updated)
	if err := s.persist(ctx, &updated); err != nil {
		s.opMu.Unlock()
		return err
	}
	prev, next := s.swap(&updated)
	s.opMu.Unlock()

	s.record(causeProfile)
	s.notify(prev, next)
	s.publish(ctx)
	return nil
}

// Logout clears the session. Logging out while anonymous does nothing.
func (s *Store) Logout(ctx context.Context) error {
	changed, err := s.clear(ctx, causeLogout, nil)
	if err != nil {
		return err
	}
	if changed {
		s.logger.InfoContext(ctx, "signed out")
	}
	return nil
}

// Close stops the expiry timer and stops following other tabs. It does not
// touch the persisted record.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.reloads.Wait()
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
}

// clear signs out. When timerGen is non-nil the sign-out only proceeds if
// that expiry timer is still the armed one.
func (s *Store) clear(ctx context.Context, cause string, timerGen *uint64) (bool, error) {
	s.opMu.Lock()
	s.mu.RLock()
	skip := s.current == nil || (timerGen != nil && *timerGen != s.timerGen)
	s.mu.RUnlock()
	if skip {
		s.opMu.Unlock()
		return false, nil
	}
	if err := s.storage.Delete(ctx, storage.KeySession); err != nil {
		s.opMu.Unlock()
		return false, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "remove session record")
	}
	prev, next := s.swap(nil)
	s.opMu.Unlock()

	s.record(cause)
	s.notify(prev, next)
	s.publish(ctx)
	return true, nil
}

// load reads the persisted record. A corrupted record is deleted and treated
// as absent. An expired one is returned as nil with expired set.
func (s *Store) load(ctx context.Context) (sess *Session, expired bool, err error) {
	raw, err := s.storage.Get(ctx, storage.KeySession)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	sess, err = decodeRecord(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding corrupted session record", "error", err)
		if s.metrics != nil {
			s.metrics.Corrupted.Inc()
		}
		if delErr := s.storage.Delete(ctx, storage.KeySession); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove corrupted session record", "error", delErr)
		}
		return nil, false, nil
	}

	if !sess.ExpiresAt.After(s.clock.Now()) {
		return nil, true, nil
	}
	return sess, false, nil
}

func (s *Store) persist(ctx context.Context, sess *Session) error {
	raw, err := encodeRecord(sess)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode session")
	}
	if err := s.storage.Set(ctx, storage.KeySession, raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "persist session")
	}
	return nil
}

// swap installs next as the current session and re-arms or cancels the
// expiry timer to match. Caller holds opMu.
func (s *Store) swap(next *Session) (Snapshot, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := snapshotOf(s.current)
	s.current = next
	s.stopTimerLocked()
	if next != nil {
		s.armTimerLocked(next.ExpiresAt)
	}
	if s.metrics != nil {
		if next != nil {
			s.metrics.Active.Set(1)
		} else {
			s.metrics.Active.Set(0)
		}
	}
	return prev, snapshotOf(next)
}

func (s *Store) armTimerLocked(expiresAt time.Time) {
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(expiresAt.Sub(s.clock.Now()), func() { s.expire(gen) })
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// expire is the timer callback. A timer superseded by a later login, reload
// or logout does nothing.
func (s *Store) expire(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryLogoutTimeout)
	defer cancel()

	changed, err := s.clear(ctx, causeExpired, &gen)
	if err != nil {
		s.logger.ErrorContext(ctx, "forced logout on token expiry failed", "error", err)
		return
	}
	if changed {
		s.logger.InfoContext(ctx, "token expired; signed out")
	}
}

// onBroadcast follows session changes made by other tabs by re-reading the
// persisted record. Events from this tab were already applied.
func (s *Store) onBroadcast(ev broadcast.Event) {
	if ev.Kind != broadcast.KindSessionChanged || ev.Origin == s.bus.Tab() {
		return
	}
	s.reloads.Add(1)
	go func() {
		defer s.reloads.Done()
		s.reload(context.Background())
	}()
}

func (s *Store) reload(ctx context.Context) {
	s.opMu.Lock()
	loaded, expired, err := s.load(ctx)
	if err != nil {
		s.opMu.Unlock()
		s.logger.WarnContext(ctx, "failed to reload session after remote change", "error", err)
		return
	}
	if expired {
		if err := s.storage.Delete(ctx, storage.KeySession); err != nil {
			s.logger.WarnContext(ctx, "failed to remove expired session record", "error", err)
		}
	}

	s.mu.RLock()
	unchanged := sameSession(s.current, loaded)
	s.mu.RUnlock()
	if unchanged {
		s.opMu.Unlock()
		return
	}
	prev, next := s.swap(loaded)
	s.opMu.Unlock()

	s.record(causeRemote)
	s.notify(prev, next)
}

func (s *Store) notify(prev, next Snapshot) {
	if prev.Anonymous() && next.Anonymous() {
		return
	}
	s.mu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.RUnlock()

	for _, o := range observers {
		o(prev, next)
	}
}

func (s *Store) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	// Publish failures only delay other tabs; local state is already final.
	_ = s.bus.Publish(ctx, broadcast.KindSessionChanged) //nolint:errcheck // logged by the broadcaster
}

func (s *Store) record(cause string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(cause).Inc()
	}
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := *a, *b
	if !x.ExpiresAt.Equal(y.ExpiresAt) {
		return false
	}
	x.ExpiresAt, y.ExpiresAt = time.Time{}, time.Time{}
	return x == y
}
