package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"storefront/internal/broadcast"
	"storefront/internal/session"
	"storefront/internal/storage"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type StoreSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *testutil.FakeClock
	storage *storage.MemoryStorage
	bus     *broadcast.Broadcaster
	metrics *session.Metrics
	store   *session.Store

	mu     sync.Mutex
	events []broadcast.Kind
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = testutil.NewFakeClock(epoch)
	s.storage = storage.NewMemory("shop")
	s.bus = broadcast.New(id.NewTabID(), nil)
	s.metrics = session.NewMetrics(prometheus.NewRegistry())
	s.events = nil
	s.bus.Subscribe(func(ev broadcast.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, ev.Kind)
	})
	s.store = s.newStore()
}

func (s *StoreSuite) TearDownTest() {
	s.store.Close()
}

func (s *StoreSuite) newStore() *session.Store {
	return session.NewStore(s.storage, s.bus,
		session.WithClock(s.clock),
		session.WithMetrics(s.metrics),
	)
}

func (s *StoreSuite) published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *StoreSuite) sampleSession() session.Session {
	return session.Session{
		UserID:      "u1",
		DisplayName: "A",
		RoleCode:    "customer",
		Token:       "tok1",
		ExpiresAt:   epoch.Add(time.Hour),
	}
}

func (s *StoreSuite) persisted() bool {
	_, err := s.storage.Get(s.ctx, storage.KeySession)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false
	}
	s.Require().NoError(err)
	return true
}

func (s *StoreSuite) TestLoginThenCurrentThenLogout() {
	s.Require().NoError(s.store.Initialize(s.ctx))
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))

	snap := s.store.Current()
	s.Require().False(snap.Anonymous())
	s.Equal(id.UserID("u1"), snap.Session.UserID)
	s.Equal("tok1", snap.Session.Token)
	s.True(s.persisted())

	s.Require().NoError(s.store.Logout(s.ctx))
	s.True(s.store.Current().Anonymous())
	s.False(s.persisted())
}

func (s *StoreSuite) TestLogoutTwicePublishesOnce() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	before := s.published()

	s.Require().NoError(s.store.Logout(s.ctx))
	s.Require().NoError(s.store.Logout(s.ctx))

	s.Equal(before+1, s.published())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Transitions.WithLabelValues("logout")))
}

func (s *StoreSuite) TestLogoutWhileAnonymousIsNoop() {
	s.Require().NoError(s.store.Logout(s.ctx))
	s.Zero(s.published())
}

func (s *StoreSuite) TestCurrentReturnsCopy() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	snap := s.store.Current()
	snap.Session.DisplayName = "mutated"
	s.Equal("A", s.store.Current().Session.DisplayName)
}

func (s *StoreSuite) TestInitializeWithExpiredRecordSignsOut() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	s.store.Close()

	s.clock.Advance(2 * time.Hour)
	restarted := s.newStore()
	defer restarted.Close()
	before := s.published()

	s.Require().NoError(restarted.Initialize(s.ctx))
	s.True(restarted.Current().Anonymous())
	s.False(s.persisted())
	s.Equal(before+1, s.published(), "forced logout is broadcast")
}

func (s *StoreSuite) TestInitializeRestoresValidRecordAndArmsTimer() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	s.store.Close()

	restarted := s.newStore()
	defer restarted.Close()
	s.Require().NoError(restarted.Initialize(s.ctx))
	s.Equal(id.UserID("u1"), restarted.Current().UserID())

	s.clock.Advance(time.Hour)
	s.True(restarted.Current().Anonymous())
	s.False(s.persisted())
}

func (s *StoreSuite) TestInitializeWithCorruptedRecordFallsBackToAnonymous() {
	for _, raw := range []string{`{not json`, `{"userId":"u1"}`, `{"userId":"u1","token":"t"}`} {
		s.Require().NoError(s.storage.Set(s.ctx, storage.KeySession, []byte(raw)))
		st := s.newStore()
		s.Require().NoError(st.Initialize(s.ctx), raw)
		s.True(st.Current().Anonymous(), raw)
		s.False(s.persisted(), raw)
		st.Close()
	}
	s.Equal(3.0, promtest.ToFloat64(s.metrics.Corrupted))
}

func (s *StoreSuite) TestInitializeWithoutRecordStaysAnonymous() {
	s.Require().NoError(s.store.Initialize(s.ctx))
	s.True(s.store.Current().Anonymous())
	s.Zero(s.published())
}

func (s *StoreSuite) TestExpiryTimerForcesLogout() {
	var transitions []session.Snapshot
	s.store.Subscribe(func(_, next session.Snapshot) { transitions = append(transitions, next) })
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	before := s.published()

	s.clock.Advance(59 * time.Minute)
	s.False(s.store.Current().Anonymous())

	s.clock.Advance(time.Minute)
	s.True(s.store.Current().Anonymous())
	s.False(s.persisted())
	s.Equal(before+1, s.published())
	s.Require().Len(transitions, 2)
	s.True(transitions[1].Anonymous())
}

func (s *StoreSuite) TestReloginReplacesExpiryTimer() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))

	longer := s.sampleSession()
	longer.ExpiresAt = epoch.Add(3 * time.Hour)
	s.Require().NoError(s.store.Login(s.ctx, longer))
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(2 * time.Hour)
	s.False(s.store.Current().Anonymous(), "first timer must not fire")

	s.clock.Advance(time.Hour)
	s.True(s.store.Current().Anonymous())
}

func (s *StoreSuite) TestLogoutCancelsTimer() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	s.Require().NoError(s.store.Logout(s.ctx))
	s.Zero(s.clock.PendingTimers())
}

func (s *StoreSuite) TestLoginDerivesExpiryFromJWT() {
	sess := s.sampleSession()
	sess.ExpiresAt = time.Time{}
	sess.Token = testutil.TokenExpiringAt("u1", epoch.Add(30*time.Minute))

	s.Require().NoError(s.store.Login(s.ctx, sess))
	s.True(epoch.Add(30 * time.Minute).Equal(s.store.Current().Session.ExpiresAt))
}

func (s *StoreSuite) TestLoginRejections() {
	tests := []struct {
		name   string
		mutate func(*session.Session)
		code   dErrors.Code
	}{
		{"missing user", func(x *session.Session) { x.UserID = "" }, dErrors.CodeInvalidInput},
		{"missing token", func(x *session.Session) { x.Token = "  " }, dErrors.CodeInvalidInput},
		{"expired", func(x *session.Session) { x.ExpiresAt = epoch.Add(-time.Second) }, dErrors.CodeTokenExpired},
		{"opaque token without expiry", func(x *session.Session) { x.ExpiresAt = time.Time{} }, dErrors.CodeInvalidInput},
		{"jwt without exp", func(x *session.Session) {
			x.ExpiresAt = time.Time{}
			x.Token = testutil.TokenWithoutExpiry("u1")
		}, dErrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			sess := s.sampleSession()
			tt.mutate(&sess)
			err := s.store.Login(s.ctx, sess)
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
			s.True(s.store.Current().Anonymous())
			s.Zero(s.published())
		})
	}
}

func (s *StoreSuite) TestUpdateProfileRequiresSession() {
	name := "B"
	err := s.store.UpdateProfile(s.ctx, session.ProfilePatch{DisplayName: &name})
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveSession))
	s.Zero(s.published())
}

func (s *StoreSuite) TestUpdateProfileTrimsFields() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))

	name, email := "  B  ", "\tb@example.com \n"
	s.Require().NoError(s.store.UpdateProfile(s.ctx, session.ProfilePatch{DisplayName: &name, Email: &email}))

	cur := s.store.Current().Session
	s.Equal("B", cur.DisplayName)
	s.Equal("b@example.com", cur.Email)
}

func (s *StoreSuite) TestUpdateProfileMergesAndKeepsToken() {
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	before := s.published()

	name, phone := "B", "0901234567"
	s.Require().NoError(s.store.UpdateProfile(s.ctx, session.ProfilePatch{DisplayName: &name, Phone: &phone}))

	cur := s.store.Current().Session
	s.Equal("B", cur.DisplayName)
	s.Equal("0901234567", cur.Phone)
	s.Equal("customer", cur.RoleCode)
	s.Equal("tok1", cur.Token)
	s.True(epoch.Add(time.Hour).Equal(cur.ExpiresAt))
	s.Equal(before+1, s.published())

	restarted := s.newStore()
	defer restarted.Close()
	s.Require().NoError(restarted.Initialize(s.ctx))
	s.Equal("B", restarted.Current().Session.DisplayName)
}

func (s *StoreSuite) TestObserversSeePrevAndNext() {
	type change struct{ prev, next session.Snapshot }
	var changes []change
	unsubscribe := s.store.Subscribe(func(prev, next session.Snapshot) {
		changes = append(changes, change{prev, next})
	})

	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))
	s.Require().NoError(s.store.Logout(s.ctx))
	unsubscribe()
	s.Require().NoError(s.store.Login(s.ctx, s.sampleSession()))

	s.Require().Len(changes, 2)
	s.True(changes[0].prev.Anonymous())
	s.Equal(id.UserID("u1"), changes[0].next.UserID())
	s.Equal(id.UserID("u1"), changes[1].prev.UserID())
	s.True(changes[1].next.Anonymous())
}

// failingStorage fails every write.
type failingStorage struct{ storage.Storage }

func (failingStorage) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func (s *StoreSuite) TestLoginPersistFailureLeavesStateUntouched() {
	st := session.NewStore(failingStorage{s.storage}, s.bus, session.WithClock(s.clock))
	err := st.Login(s.ctx, s.sampleSession())
	s.True(dErrors.HasCode(err, dErrors.CodeNetworkFailure))
	s.True(st.Current().Anonymous())
	s.Zero(s.clock.PendingTimers())
}

func TestHasRoleIsCaseInsensitive(t *testing.T) {
	s := session.Session{RoleCode: "ADMIN"}
	if !s.HasRole("admin") || !s.HasRole(" Admin ") || s.HasRole("customer") {
		t.Fatalf("unexpected role matching for %q", s.RoleCode)
	}
}
