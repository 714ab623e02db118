package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/logger"
	"github.com/pageza/recipebook/internal/service"
	"github.com/pageza/recipebook/internal/types"
)

// State is the authentication state of a Session
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session holds the current identity and token. It is the TokenSource
// handed to the API client, so a token change applies from the next
// request on.
type Session struct {
	mu    sync.RWMutex
	state State
	token string
	user  *types.User

	store    Store
	logger   *zap.Logger
	validate *validator.Validate
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = logger.OrNop(l) }
}

// New creates an anonymous session persisted in store. A nil store keeps
// the session in memory.
func New(store Store, opts ...Option) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Session{
		store:    store,
		logger:   zap.NewNop(),
		validate: v,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ apiclient.TokenSource = (*Session)(nil)

// Init restores a persisted session. A stored token is trusted until a
// request proves otherwise.
func (s *Session) Init(ctx context.Context) error {
	rec, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		s.set(Anonymous, "", nil)
		return nil
	}
	if err != nil {
		s.set(Anonymous, "", nil)
		return err
	}
	if rec.Token == "" {
		s.set(Anonymous, "", nil)
		return nil
	}

	user := rec.User
	if user == nil {
		user = userFromToken(rec.Token)
	}
	s.set(Authenticated, rec.Token, user)
	return nil
}

// Token returns the current token, empty when anonymous
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == Anonymous {
		return ""
	}
	return s.token
}

// State returns the current state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the signed-in user, nil when unknown
func (s *Session) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// ViewerID names whose view of the data requests currently return:
// service.AnonymousViewer without a token, otherwise the signed-in user.
// It scopes query keys whose payload depends on the caller.
func (s *Session) ViewerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == Anonymous || s.token == "" {
		return service.AnonymousViewer
	}
	if s.user != nil && s.user.ID != 0 {
		return "user:" + strconv.FormatInt(s.user.ID, 10)
	}
	sum := sha256.Sum256([]byte(s.token))
	return "token:" + hex.EncodeToString(sum[:8])
}

// IsAuthenticated reports whether a token is held
func (s *Session) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// Login signs in with email and password. Any failure leaves the session
// as it was and returns an error matching ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, auth service.IAuthService, email, password string) error {
	prev := s.begin()

	resp, err := auth.Login(ctx, email, password)
	if err != nil {
		s.restore(prev)
		s.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		return &credentialsError{cause: err}
	}
	if err := s.complete(ctx, resp); err != nil {
		s.restore(prev)
		return &credentialsError{cause: err}
	}
	return nil
}

// Register creates an account and signs in. Input is validated locally
// first; invalid input never reaches the network.
func (s *Session) Register(ctx context.Context, auth service.IAuthService, req types.RegisterRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrorsFromValidation(verrs)
		}
		return err
	}

	prev := s.begin()
	resp, err := auth.Register(ctx, req)
	if err != nil {
		s.restore(prev)
		if apiErr, ok := apiclient.AsAPIError(err); ok && len(apiErr.Fields) > 0 {
			return fieldErrorsFromBackend(apiErr.Fields)
		}
		s.logger.Info("registration failed", zap.String("username", req.Username), zap.Error(err))
		return &registrationError{cause: err}
	}
	if err := s.complete(ctx, resp); err != nil {
		s.restore(prev)
		return &registrationError{cause: err}
	}
	return nil
}

// Logout forgets the token. It cannot fail; store errors are only logged.
func (s *Session) Logout(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear stored session", zap.Error(err))
	}
	s.set(Anonymous, "", nil)
}

// Verify asks the backend who the token belongs to. A rejected token logs
// the session out; other failures leave it untouched.
func (s *Session) Verify(ctx context.Context, auth service.IAuthService) error {
	if !s.IsAuthenticated() {
		return nil
	}
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.Logout(ctx)
		}
		return err
	}

	s.mu.Lock()
	s.user = user
	token := s.token
	s.mu.Unlock()

	if err := s.store.Save(ctx, Record{Token: token, User: user}); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
	return nil
}

type snapshot struct {
	state State
	token string
	user  *types.User
}

func (s *Session) begin() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := snapshot{state: s.state, token: s.token, user: s.user}
	s.state = Authenticating
	return prev
}

func (s *Session) restore(prev snapshot) {
	s.set(prev.state, prev.token, prev.user)
}

func (s *Session) complete(ctx context.Context, resp *types.AuthResponse) error {
	token := resp.AccessToken()
	if token == "" {
		return errMissingToken
	}
	user := resp.User
	if user == nil {
		user = userFromToken(token)
	}
	if err := s.store.Save(ctx, Record{Token: token, User: user}); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
	s.set(Authenticated, token, user)
	return nil
}

func (s *Session) set(state State, token string, user *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.token = token
	s.user = user
}

// userFromToken reads the identity claims without verifying the
// signature; the client never holds the signing key.
func userFromToken(token string) *types.User {
	claims := &types.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	if claims.UserID == 0 && claims.Username == "" {
		return nil
	}
	return &types.User{ID: claims.UserID, Username: claims.Username, Email: claims.Email}
}
