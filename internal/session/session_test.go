package session_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/mocks"
	"github.com/pageza/recipebook/internal/service"
	"github.com/pageza/recipebook/internal/session"
	"github.com/pageza/recipebook/internal/testhelpers"
	"github.com/pageza/recipebook/internal/types"
)

func setupSessionTest(t *testing.T) (*testhelpers.Backend, *session.Session, *service.AuthService) {
	t.Helper()
	backend := testhelpers.NewBackend(t)
	sess := session.New(session.NewMemoryStore(), session.WithLogger(zaptest.NewLogger(t)))
	client := apiclient.New(backend.URL(), sess)
	return backend, sess, service.NewAuthService(client)
}

func unsignedToken(t *testing.T, claims types.TokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any"))
	require.NoError(t, err)
	return token
}

func TestNewSessionIsAnonymous(t *testing.T) {
	sess := session.New(nil)
	assert.Equal(t, session.Anonymous, sess.State())
	assert.Empty(t, sess.Token())
	assert.Nil(t, sess.User())
}

func TestInitRestoresStoredSession(t *testing.T) {
	store := session.NewMemoryStore()
	user := &types.User{ID: 4, Username: "chef"}
	require.NoError(t, store.Save(context.Background(), session.Record{Token: "stored", User: user}))

	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	assert.Equal(t, session.Authenticated, sess.State())
	assert.Equal(t, "stored", sess.Token())
	assert.Equal(t, "chef", sess.User().Username)
}

func TestInitReadsUserFromTokenClaims(t *testing.T) {
	store := session.NewMemoryStore()
	token := unsignedToken(t, types.TokenClaims{UserID: 12, Username: "baker"})
	require.NoError(t, store.Save(context.Background(), session.Record{Token: token}))

	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	require.NotNil(t, sess.User())
	assert.Equal(t, int64(12), sess.User().ID)
	assert.Equal(t, "baker", sess.User().Username)
}

func TestInitWithEmptyStore(t *testing.T) {
	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.Init(context.Background()))
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestLoginSuccess(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	user := backend.CreateTestUser(t)

	require.NoError(t, sess.Login(context.Background(), auth, user.Email, testhelpers.DefaultPassword))

	assert.Equal(t, session.Authenticated, sess.State())
	assert.NotEmpty(t, sess.Token())
	assert.Equal(t, user.Username, sess.User().Username)

	// the next request carries the new token
	me, err := auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
}

func TestLoginWrongPasswordStaysAnonymous(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	backend.CreateUser(t, "someone", "user@example.com", "rightpass")

	err := sess.Login(context.Background(), auth, "user@example.com", "wrongpass")

	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, session.ErrInvalidCredentials.Error(), err.Error())
	assert.Equal(t, session.Anonymous, sess.State())
	assert.Empty(t, sess.Token())
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Record{Token: "old", User: &types.User{ID: 1}}))
	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	auth := new(mocks.MockAuthService)
	auth.On("Login", mock.Anything, "a@b.co", "nope").Return(nil, apiclient.NewRequestError("bad", nil))

	err := sess.Login(context.Background(), auth, "a@b.co", "nope")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.Authenticated, sess.State())
	assert.Equal(t, "old", sess.Token())
	auth.AssertExpectations(t)
}

func TestRegisterShortPasswordFailsLocally(t *testing.T) {
	auth := new(mocks.MockAuthService)
	sess := session.New(nil)

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username:  "chef",
		Email:     "chef@example.com",
		Password:  "12345",
		Password2: "12345",
	})

	var fieldErrs *session.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "Password must be at least 6 characters", fieldErrs.Get("password"))
	auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestRegisterLocalValidation(t *testing.T) {
	sess := session.New(nil)
	auth := new(mocks.MockAuthService)

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username:  "ab",
		Email:     "not-an-email",
		Password:  "secret1",
		Password2: "secret2",
	})

	var fieldErrs *session.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "Username must be at least 3 characters", fieldErrs.Get("username"))
	assert.Equal(t, "Enter a valid email address", fieldErrs.Get("email"))
	assert.Equal(t, "Passwords do not match", fieldErrs.Get("password2"))
	auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegisterSuccess(t *testing.T) {
	_, sess, auth := setupSessionTest(t)

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username: "newcook",
		Email:    "newcook@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, session.Authenticated, sess.State())
	assert.Equal(t, "newcook", sess.User().Username)
}

func TestRegisterBackendFieldErrors(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	backend.CreateUser(t, "taken", "taken@example.com", "secret1")

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username: "taken",
		Email:    "fresh@example.com",
		Password: "secret1",
	})

	var fieldErrs *session.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "A user with that username already exists.", fieldErrs.Get("username"))
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestRegisterGenericFailure(t *testing.T) {
	auth := new(mocks.MockAuthService)
	auth.On("Register", mock.Anything, mock.Anything).Return(nil, apiclient.NewRequestError("boom", errors.New("boom")))
	sess := session.New(nil)

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username: "chef",
		Email:    "chef@example.com",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, session.ErrRegistrationFailed)
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestLogoutClearsStore(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Record{Token: "t"}))
	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	sess.Logout(context.Background())

	assert.Equal(t, session.Anonymous, sess.State())
	assert.Empty(t, sess.Token())
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogoutStopsSendingToken(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	user := backend.CreateTestUser(t)
	require.NoError(t, sess.Login(context.Background(), auth, user.Email, testhelpers.DefaultPassword))

	sess.Logout(context.Background())

	_, err := auth.CurrentUser(context.Background())
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, 1, backend.Hits(http.MethodGet, "/api/auth/user/"))
}

func TestVerifyLogsOutRejectedToken(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Record{Token: "expired"}))
	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	auth := new(mocks.MockAuthService)
	auth.On("CurrentUser", mock.Anything).Return(nil, &apiclient.APIError{Kind: apiclient.ErrUnauthorized, Message: apiclient.MsgUnauthorized})

	err := sess.Verify(context.Background(), auth)
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestVerifyRefreshesUser(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	user := backend.CreateTestUser(t)
	require.NoError(t, sess.Login(context.Background(), auth, user.Email, testhelpers.DefaultPassword))

	require.NoError(t, sess.Verify(context.Background(), auth))
	assert.Equal(t, user.Email, sess.User().Email)
	assert.Equal(t, session.Authenticated, sess.State())
}

func TestRegisterWithoutTokenStaysAnonymous(t *testing.T) {
	store := session.NewMemoryStore()
	auth := new(mocks.MockAuthService)
	auth.On("Register", mock.Anything, mock.Anything).Return(&types.AuthResponse{User: &types.User{ID: 4, Username: "chef"}}, nil)
	sess := session.New(store)

	err := sess.Register(context.Background(), auth, types.RegisterRequest{
		Username: "chef",
		Email:    "chef@example.com",
		Password: "secret1",
	})
	assert.ErrorIs(t, err, session.ErrRegistrationFailed)
	assert.Equal(t, session.Anonymous, sess.State())
	assert.Empty(t, sess.Token())
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginWithoutTokenStaysAnonymous(t *testing.T) {
	auth := new(mocks.MockAuthService)
	auth.On("Login", mock.Anything, "a@b.co", "secret1").Return(&types.AuthResponse{User: &types.User{ID: 4}}, nil)
	sess := session.New(nil)

	err := sess.Login(context.Background(), auth, "a@b.co", "secret1")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.Anonymous, sess.State())
}

func TestViewerIDFollowsSession(t *testing.T) {
	backend, sess, auth := setupSessionTest(t)
	user := backend.CreateTestUser(t)
	assert.Equal(t, service.AnonymousViewer, sess.ViewerID())

	require.NoError(t, sess.Login(context.Background(), auth, user.Email, testhelpers.DefaultPassword))
	assert.Equal(t, fmt.Sprintf("user:%d", user.ID), sess.ViewerID())

	sess.Logout(context.Background())
	assert.Equal(t, service.AnonymousViewer, sess.ViewerID())
}

func TestViewerIDWithoutKnownUser(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Record{Token: "opaque"}))
	sess := session.New(store)
	require.NoError(t, sess.Init(context.Background()))

	id := sess.ViewerID()
	assert.NotEqual(t, service.AnonymousViewer, id)
	assert.NotContains(t, id, "opaque")
}
