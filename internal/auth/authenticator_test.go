package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"storefront/internal/auth"
	"storefront/internal/backend"
	"storefront/internal/backend/backendtest"
	"storefront/internal/session"
	"storefront/internal/storage"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/testutil"
)

type AuthenticatorSuite struct {
	suite.Suite
	ctx     context.Context
	server  *backendtest.Server
	store   *session.Store
	metrics *auth.Metrics
	auth    *auth.Authenticator
	token   string
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorSuite))
}

func (s *AuthenticatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.token = testutil.TokenExpiringAt("42", time.Now().Add(time.Hour))
	s.server = backendtest.New()
	s.server.AddAccount(backendtest.Account{
		ID: 42, Email: "jane@example.com", Password: "secret",
		FirstName: "Jane", LastName: "Doe", Phone: "0901234567",
		RoleCode: "ADMIN", Token: s.token,
	})
	s.store = session.NewStore(storage.NewMemory("shop"), nil)
	s.Require().NoError(s.store.Initialize(s.ctx))
	s.metrics = auth.NewMetrics(prometheus.NewRegistry())
	s.auth = auth.New(backend.New(s.server.URL, backend.WithTimeout(2*time.Second)), s.store,
		auth.WithMetrics(s.metrics),
	)
}

func (s *AuthenticatorSuite) TearDownTest() {
	s.store.Close()
	s.server.Close()
}

func (s *AuthenticatorSuite) TestLoginInstallsSession() {
	snap, err := s.auth.Login(s.ctx, " jane@example.com ", "secret")
	s.Require().NoError(err)
	s.Require().False(snap.Anonymous())

	sess := snap.Session
	s.Equal(id.UserID("42"), sess.UserID)
	s.Equal(s.token, sess.Token)
	s.Equal("Doe Jane", sess.DisplayName)
	s.Equal("ADMIN", sess.RoleCode)
	s.True(sess.ExpiresAt.After(time.Now()), "expiry comes from the token")
	s.Equal(s.token, s.store.Current().Token())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Logins.WithLabelValues("ok")))
}

func (s *AuthenticatorSuite) TestLoginRejectedKeepsAnonymous() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "wrong")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationRejected))
	s.True(s.store.Current().Anonymous())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Logins.WithLabelValues("rejected")))
}

func (s *AuthenticatorSuite) TestLoginBackendDown() {
	s.server.FailNext(backendtest.RouteLogin, http.StatusBadGateway, 1)

	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.True(dErrors.HasCode(err, dErrors.CodeNetworkFailure))
	s.True(s.store.Current().Anonymous())
}

func (s *AuthenticatorSuite) TestLoginRequiresCredentials() {
	_, err := s.auth.Login(s.ctx, "  ", "secret")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.server.Calls(backendtest.RouteLogin))
}

func (s *AuthenticatorSuite) TestLoginWithExpiredTokenIsRefused() {
	s.server.AddAccount(backendtest.Account{
		ID: 77, Email: "old@example.com", Password: "secret",
		Token: testutil.TokenExpiringAt("77", time.Now().Add(-time.Minute)),
	})

	_, err := s.auth.Login(s.ctx, "old@example.com", "secret")
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
	s.True(s.store.Current().Anonymous())
}

func (s *AuthenticatorSuite) TestUpdateProfileStoresBackendUser() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.Require().NoError(err)

	first, phone := "Janet", "0907654321"
	snap, err := s.auth.UpdateProfile(s.ctx, session.ProfilePatch{FirstName: &first, Phone: &phone})
	s.Require().NoError(err)

	s.Equal("Janet", snap.Session.FirstName)
	s.Equal("Doe Janet", snap.Session.DisplayName)
	s.Equal("0907654321", snap.Session.Phone)
	s.Equal("ADMIN", snap.Session.RoleCode, "role survives a response without one")
	s.Equal(s.token, snap.Session.Token)
	s.Equal("Bearer "+s.token, s.server.LastHeader(backendtest.RouteUpdateUser, "Authorization"))
}

func (s *AuthenticatorSuite) TestUpdateProfileKeepsChosenDisplayName() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.Require().NoError(err)

	name := "JD"
	snap, err := s.auth.UpdateProfile(s.ctx, session.ProfilePatch{DisplayName: &name})
	s.Require().NoError(err)
	s.Equal("JD", snap.Session.DisplayName)
}

func (s *AuthenticatorSuite) TestUpdateProfileTrimsBeforeSending() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.Require().NoError(err)

	first := "  Janet "
	snap, err := s.auth.UpdateProfile(s.ctx, session.ProfilePatch{FirstName: &first})
	s.Require().NoError(err)
	s.Equal("Janet", snap.Session.FirstName)
	s.Equal("Doe Janet", snap.Session.DisplayName)
}

func (s *AuthenticatorSuite) TestUpdateProfileFailureLeavesSession() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.Require().NoError(err)
	s.server.FailNext(backendtest.RouteUpdateUser, http.StatusInternalServerError, 1)

	first := "Janet"
	snap, err := s.auth.UpdateProfile(s.ctx, session.ProfilePatch{FirstName: &first})
	s.True(dErrors.HasCode(err, dErrors.CodeNetworkFailure))
	s.Equal("Jane", snap.Session.FirstName)
	s.Equal("Jane", s.store.Current().Session.FirstName)
}

func (s *AuthenticatorSuite) TestUpdateProfileRequiresSession() {
	first := "Janet"
	_, err := s.auth.UpdateProfile(s.ctx, session.ProfilePatch{FirstName: &first})
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveSession))
	s.Zero(s.server.Calls(backendtest.RouteUpdateUser))
}

func (s *AuthenticatorSuite) TestLogoutIsIdempotent() {
	_, err := s.auth.Login(s.ctx, "jane@example.com", "secret")
	s.Require().NoError(err)

	s.Require().NoError(s.auth.Logout(s.ctx))
	s.Require().NoError(s.auth.Logout(s.ctx))
	s.True(s.store.Current().Anonymous())
}

func TestDisplayName(t *testing.T) {
	for _, tc := range []struct{ first, last, want string }{
		{"Jane", "Doe", "Doe Jane"},
		{"Jane", "", "Jane"},
		{"", " Doe ", "Doe"},
	} {
		if got := auth.DisplayName(tc.first, tc.last); got != tc.want {
			t.Errorf("DisplayName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
