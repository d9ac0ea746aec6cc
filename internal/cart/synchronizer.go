// Package cart keeps a tab's view of the signed-in user's cart consistent
// with the backend, applying quantity changes and removals optimistically
// and rolling them back when the backend refuses.
package cart

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront/internal/backend"
	"storefront/internal/broadcast"
	"storefront/internal/session"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	keyed "storefront/pkg/platform/sync"
)

// DefaultRequestTimeout bounds every backend call made by the synchronizer.
const DefaultRequestTimeout = 10 * time.Second

// Backend is the cart resource of the REST backend.
type Backend interface {
	FetchCart(ctx context.Context, token string, userID id.UserID) ([]backend.CartItem, error)
	UpdateCartLine(ctx context.Context, token string, itemID id.CartItemID, quantity int) error
	RemoveCartLine(ctx context.Context, token string, itemID id.CartItemID) error
	AddCartLine(ctx context.Context, token string, userID id.UserID, productID id.ProductID, quantity int) error
	ClearCart(ctx context.Context, token string, userID id.UserID) error
}

// Sessions is the read side of the session store.
type Sessions interface {
	Current() session.Snapshot
	Subscribe(o session.Observer) func()
}

// Bus is the part of the broadcaster the synchronizer needs.
type Bus interface {
	Publish(ctx context.Context, kind broadcast.Kind) error
	Subscribe(h broadcast.Handler) func()
	Tab() id.TabID
}

// Observer receives every new snapshot.
type Observer func(Snapshot)

// Synchronizer owns the cart snapshot of one tab.
//
// gen increments on every local state change. A refresh records gen when it
// starts and its result is discarded if gen moved or an optimistic mutation
// is still pending, so a late response never overwrites newer local state.
// epoch increments whenever the cart is reset (sign-out, user switch,
// clear); a rollback from an older epoch restores nothing.
type Synchronizer struct {
	backend  Backend
	sessions Sessions
	bus      Bus
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration

	lineLocks *keyed.KeyedMutex[id.CartItemID]
	refreshes singleflight.Group

	mu            sync.Mutex
	snap          Snapshot
	gen           uint64
	epoch         uint64
	pending       int
	refetchWanted bool
	observers     map[uint64]Observer
	nextObsID     uint64

	unsubscribe []func()
	background  sync.WaitGroup
	closed      chan struct{}
	closeOnce   sync.Once
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a synchronizer with an empty snapshot. Call Start to follow
// session changes and other tabs.
func New(b Backend, sessions Sessions, bus Bus, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:   b,
		sessions:  sessions,
		bus:       bus,
		logger:    slog.Default(),
		timeout:   DefaultRequestTimeout,
		lineLocks: keyed.NewKeyedMutex[id.CartItemID](),
		observers: make(map[uint64]Observer),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to session and broadcast changes and loads the cart of
// the current session in the background.
func (s *Synchronizer) Start() {
	s.unsubscribe = append(s.unsubscribe, s.sessions.Subscribe(s.onSession))
	if s.bus != nil {
		s.unsubscribe = append(s.unsubscribe, s.bus.Subscribe(s.onBroadcast))
	}
	if !s.sessions.Current().Anonymous() {
		s.refreshInBackground("start")
	}
}

// Close stops following changes and waits for background refreshes.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		for _, u := range s.unsubscribe {
			u()
		}
	})
	s.background.Wait()
}

// Current returns a copy of the snapshot.
func (s *Synchronizer) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Subscribe registers an observer and returns an idempotent unsubscribe.
func (s *Synchronizer) Subscribe(o Observer) func() {
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

// Refresh re-reads the cart. Anonymous sessions get an empty cart without a
// network call. On failure the previous snapshot is kept and the error is
// returned.
func (s *Synchronizer) Refresh(ctx context.Context) (Snapshot, error) {
	sess := s.sessions.Current()
	if sess.Anonymous() {
		s.reset("")
		s.countRefresh("anonymous")
		return s.Current(), nil
	}
	userID, token := sess.UserID(), sess.Token()

	s.mu.Lock()
	startGen := s.gen
	s.mu.Unlock()

	// Callers that arrive while an equivalent fetch is in flight share it.
	// The key includes the generation so a refresh requested after a local
	// change never joins a fetch that started before it.
	key := userID.String() + "@" + strconv.FormatUint(startGen, 10)
	ch := s.refreshes.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.backend.FetchCart(fetchCtx, token, userID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return s.Current(), dErrors.Wrap(ctx.Err(), dErrors.CodeNetworkFailure, "cart refresh cancelled")
	}
	if res.Err != nil {
		s.countRefresh("failed")
		s.logger.WarnContext(ctx, "cart refresh failed", "user_id", userID, "error", res.Err)
		return s.Current(), dErrors.Wrap(res.Err, dErrors.CodeNetworkFailure, "refresh cart")
	}
	items, _ := res.Val.([]backend.CartItem)

	next, applied := s.applyFetched(userID, startGen, linesFromBackend(items))
	if !applied {
		s.countRefresh("discarded")
		return next, nil
	}
	s.countRefresh("applied")
	s.notify(next)
	return next, nil
}

// applyFetched installs a fetched cart unless local state moved on.
func (s *Synchronizer) applyFetched(userID id.UserID, startGen uint64, lines []Line) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != startGen || s.pending > 0 || s.sessions.Current().UserID() != userID {
		if s.pending > 0 {
			s.refetchWanted = true
		}
		return s.snap.clone(), false
	}
	s.snap = newSnapshot(userID, lines)
	s.gen++
	s.recordTotal()
	return s.snap.clone(), true
}

// SetLineQuantity changes one line's quantity. The change is visible locally
// before the backend answers and is reverted if the backend refuses.
func (s *Synchronizer) SetLineQuantity(ctx context.Context, itemID id.CartItemID, quantity int) error {
	const op = "set_quantity"
	if !ValidQuantity(quantity) {
		s.countMutation(op, "invalid")
		return dErrors.New(dErrors.CodeInvalidQuantity, "quantity must be between 1 and 99")
	}
	sess := s.sessions.Current()
	if sess.Anonymous() {
		return dErrors.New(dErrors.CodeNoActiveSession, "sign in to edit the cart")
	}

	release, err := s.lineLocks.Lock(ctx, itemID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "waiting for pending cart change")
	}
	defer release()

	s.mu.Lock()
	idx := s.snap.indexOf(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "cart line not found")
	}
	before, epoch := s.snap.clone(), s.epoch
	prevLine := s.snap.Lines[idx]
	s.snap = s.snap.clone()
	s.snap.Lines[idx].Quantity = quantity
	s.snap.recompute()
	optimisticGen := s.bumpLocked()
	s.pending++
	optimistic := s.snap.clone()
	s.mu.Unlock()
	s.notify(optimistic)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.backend.UpdateCartLine(callCtx, sess.Token(), itemID, quantity)
	cancel()

	if err != nil {
		s.rollback(op, epoch, optimisticGen, before, func(snap *Snapshot) {
			if i := snap.indexOf(itemID); i >= 0 {
				snap.Lines[i] = prevLine
			}
		})
		s.countMutation(op, "rolled_back")
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "update cart line")
	}
	s.settle()
	s.countMutation(op, "ok")
	s.afterMutation(ctx)
	return nil
}

// RemoveLine removes one line optimistically. If the backend refuses, the
// line is put back at its original position.
func (s *Synchronizer) RemoveLine(ctx context.Context, itemID id.CartItemID) error {
	const op = "remove"
	sess := s.sessions.Current()
	if sess.Anonymous() {
		return dErrors.New(dErrors.CodeNoActiveSession, "sign in to edit the cart")
	}

	release, err := s.lineLocks.Lock(ctx, itemID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "waiting for pending cart change")
	}
	defer release()

	s.mu.Lock()
	idx := s.snap.indexOf(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "cart line not found")
	}
	before, epoch := s.snap.clone(), s.epoch
	removed := s.snap.Lines[idx]
	s.snap = s.snap.clone()
	s.snap.Lines = append(s.snap.Lines[:idx:idx], s.snap.Lines[idx+1:]...)
	s.snap.recompute()
	optimisticGen := s.bumpLocked()
	s.pending++
	optimistic := s.snap.clone()
	s.mu.Unlock()
	s.notify(optimistic)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.backend.RemoveCartLine(callCtx, sess.Token(), itemID)
	cancel()

	if err != nil {
		s.rollback(op, epoch, optimisticGen, before, func(snap *Snapshot) {
			if snap.indexOf(itemID) >= 0 {
				return
			}
			at := min(idx, len(snap.Lines))
			snap.Lines = append(snap.Lines[:at:at], append([]Line{removed}, snap.Lines[at:]...)...)
		})
		s.countMutation(op, "rolled_back")
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "remove cart line")
	}
	s.settle()
	s.countMutation(op, "ok")
	s.afterMutation(ctx)
	return nil
}

// AddLine asks the backend to add a product. Nothing is applied locally
// until the backend has assigned the line; the cart is then re-read.
func (s *Synchronizer) AddLine(ctx context.Context, productID id.ProductID, quantity int) error {
	const op = "add"
	if !ValidQuantity(quantity) {
		s.countMutation(op, "invalid")
		return dErrors.New(dErrors.CodeInvalidQuantity, "quantity must be between 1 and 99")
	}
	if productID <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "product ID must be positive")
	}
	sess := s.sessions.Current()
	if sess.Anonymous() {
		return dErrors.New(dErrors.CodeNoActiveSession, "sign in to add to the cart")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.backend.AddCartLine(callCtx, sess.Token(), sess.UserID(), productID, quantity)
	cancel()
	if err != nil {
		s.countMutation(op, "failed")
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "add cart line")
	}
	s.countMutation(op, "ok")
	s.afterMutation(ctx)
	return nil
}

// Clear empties the cart on the backend and locally.
func (s *Synchronizer) Clear(ctx context.Context) error {
	const op = "clear"
	sess := s.sessions.Current()
	if sess.Anonymous() {
		return dErrors.New(dErrors.CodeNoActiveSession, "sign in to edit the cart")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.backend.ClearCart(callCtx, sess.Token(), sess.UserID())
	cancel()
	if err != nil {
		s.countMutation(op, "failed")
		return dErrors.Wrap(err, dErrors.CodeNetworkFailure, "clear cart")
	}
	s.countMutation(op, "ok")
	s.reset(sess.UserID())
	s.publish(ctx)
	return nil
}

// rollback reverts an optimistic change. If nothing else changed since the
// change was applied the whole prior snapshot is restored verbatim;
// otherwise only the affected line is restored by restoreLine. A cart that
// was reset in between belongs to another session or was emptied, so it is
// left as it is.
func (s *Synchronizer) rollback(op string, epoch, optimisticGen uint64, before Snapshot, restoreLine func(*Snapshot)) {
	s.mu.Lock()
	kind := "full"
	switch {
	case s.epoch != epoch || s.snap.UserID != before.UserID:
		kind = "dropped"
	case s.gen == optimisticGen:
		s.snap = before
	default:
		kind = "line"
		s.snap = s.snap.clone()
		restoreLine(&s.snap)
		s.snap.recompute()
	}
	s.bumpLocked()
	refetch := s.releasePendingLocked()
	next := s.snap.clone()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Rollbacks.WithLabelValues(op, kind).Inc()
	}
	s.notify(next)
	if refetch {
		s.refreshInBackground("deferred")
	}
}

// settle marks an optimistic change as acknowledged.
func (s *Synchronizer) settle() {
	s.mu.Lock()
	s.releasePendingLocked()
	s.mu.Unlock()
}

// releasePendingLocked reports whether a refresh was discarded while
// mutations were pending and none remain.
func (s *Synchronizer) releasePendingLocked() bool {
	s.pending--
	if s.pending == 0 && s.refetchWanted {
		s.refetchWanted = false
		return true
	}
	return false
}

// afterMutation re-reads the cart and tells other tabs. A failed refresh
// does not fail the mutation that already succeeded.
func (s *Synchronizer) afterMutation(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "refresh after cart mutation failed", "error", err)
	}
	s.publish(ctx)
}

func (s *Synchronizer) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, broadcast.KindCartChanged) //nolint:errcheck // logged by the broadcaster
}

// reset replaces the snapshot with an empty cart for userID.
func (s *Synchronizer) reset(userID id.UserID) {
	s.mu.Lock()
	s.epoch++
	if s.snap.UserID == userID && s.snap.Empty() {
		s.mu.Unlock()
		return
	}
	s.snap = newSnapshot(userID, nil)
	s.bumpLocked()
	s.recordTotal()
	next := s.snap.clone()
	s.mu.Unlock()
	s.notify(next)
}

func (s *Synchronizer) bumpLocked() uint64 {
	s.gen++
	return s.gen
}

// onSession discards the cart on sign-out and loads it when a user signs in.
func (s *Synchronizer) onSession(prev, next session.Snapshot) {
	switch {
	case next.Anonymous():
		s.reset("")
	case prev.Anonymous() || prev.UserID() != next.UserID():
		s.reset(next.UserID())
		s.refreshInBackground("session")
	case prev.Token() != next.Token():
		s.refreshInBackground("session")
	}
}

// onBroadcast re-reads the cart when another tab changed it.
func (s *Synchronizer) onBroadcast(ev broadcast.Event) {
	if ev.Kind != broadcast.KindCartChanged || ev.Origin == s.bus.Tab() {
		return
	}
	s.refreshInBackground("remote")
}

func (s *Synchronizer) refreshInBackground(reason string) {
	select {
	case <-s.closed:
		return
	default:
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "background cart refresh failed", "reason", reason, "error", err)
		}
	}()
}

func (s *Synchronizer) notify(snap Snapshot) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()
	for _, o := range observers {
		o(snap.clone())
	}
}

func (s *Synchronizer) recordTotal() {
	if s.metrics != nil {
		s.metrics.TotalQuantity.Set(float64(s.snap.TotalQuantity))
	}
}

func (s *Synchronizer) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.Refreshes.WithLabelValues(outcome).Inc()
	}
}

func (s *Synchronizer) countMutation(op, outcome string) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op, outcome).Inc()
	}
}
