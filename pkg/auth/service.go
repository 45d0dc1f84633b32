package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotAuthenticated is returned when no access token is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoRefreshToken is returned when a refresh is needed but impossible.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrMissingToken is returned when an auth response carries no token.
	ErrMissingToken = errors.New("auth response contains no token")
)

// RefreshSkew refreshes tokens this long before they expire.
const RefreshSkew = 30 * time.Second

// LoginRequest is the body of POST /Auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /Auth/register.
type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResponse is the data of a successful login, register or refresh.
type AuthResponse struct {
	Token        string `json:"token"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	RoleName     string `json:"roleName"`
}

// Service signs users in and keeps the session's access token fresh.
// It implements client.TokenSource.
type Service struct {
	api     *client.Client
	session *Session
	group   singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService creates an auth service on top of api. Auth calls are sent
// to /Auth without a bearer token.
func NewService(api *client.Client, session *Session, logger zerolog.Logger) *Service {
	if session == nil {
		session = &Session{}
	}
	return &Service{
		api:     api.Scope("/Auth").WithTokenSource(nil),
		session: session,
		now:     time.Now,
		logger:  logger,
	}
}

// Session returns the underlying session.
func (s *Service) Session() *Session {
	return s.session
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, error) {
	resp, err := s.api.Post(ctx, "/login", req, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user, err := s.handleAuthResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Signed in")
	return user, nil
}

// Register creates an account and signs in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := s.api.Post(ctx, "/register", req, nil)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user, err := s.handleAuthResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("Registered")
	return user, nil
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share one request. A failed refresh signs the session out.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	v, err, shared := s.group.Do("refresh", func() (any, error) {
		_, refreshToken := s.session.Tokens()
		if refreshToken == "" {
			s.Logout()
			return "", ErrNoRefreshToken
		}

		resp, err := s.api.Post(ctx, "/refresh", map[string]string{"refreshToken": refreshToken}, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Token refresh failed - signing out")
			s.Logout()
			return "", fmt.Errorf("refresh token: %w", err)
		}
		if _, err := s.handleAuthResponse(resp.Body); err != nil {
			s.Logout()
			return "", fmt.Errorf("refresh token: %w", err)
		}

		access, _ := s.session.Tokens()
		s.logger.Debug().Msg("Access token refreshed")
		return access, nil
	})
	if shared {
		s.logger.Debug().Msg("Joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Logout clears the session.
func (s *Service) Logout() {
	s.session.Clear()
}

// Token returns a usable access token, refreshing it when it is about to
// expire.
func (s *Service) Token(ctx context.Context) (string, error) {
	access, _ := s.session.Tokens()
	if access == "" {
		return "", ErrNotAuthenticated
	}

	claims, err := Decode(access)
	if err == nil && !IsExpired(claims, s.now().Add(RefreshSkew)) {
		return access, nil
	}
	return s.Refresh(ctx)
}

// CurrentUser returns the signed-in user, decoding it from the access token
// if the session has none yet.
func (s *Service) CurrentUser() *User {
	if user := s.session.User(); user != nil {
		return user
	}
	access, refresh := s.session.Tokens()
	if access == "" {
		return nil
	}
	user, err := UserFromToken(access, s.now())
	if err != nil {
		return nil
	}
	s.session.Set(access, refresh, user)
	return user
}

// IsAuthenticated reports whether there is an unexpired token and a user.
func (s *Service) IsAuthenticated() bool {
	access, _ := s.session.Tokens()
	if access == "" {
		return false
	}
	claims, err := Decode(access)
	if err != nil || IsExpired(claims, s.now()) {
		return false
	}
	return s.CurrentUser() != nil
}

// HasAnyRole reports whether the current user holds one of roles.
func (s *Service) HasAnyRole(roles ...Role) bool {
	user := s.CurrentUser()
	if user == nil {
		return false
	}
	return slices.Contains(roles, user.Role)
}

// handleAuthResponse stores the token pair and builds the user. Response
// fields take precedence over token claims.
func (s *Service) handleAuthResponse(body []byte) (*User, error) {
	data, err := envelope.Data[AuthResponse](body)
	if err != nil {
		return nil, err
	}

	token := data.Token
	if token == "" {
		token = data.AccessToken
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := Decode(token)
	if err != nil {
		return nil, err
	}

	user, err := userFromClaims(claims)
	if err != nil && data.Email == "" {
		return nil, err
	}
	if user == nil {
		user = &User{ID: data.Email, FirstName: defaultFirstName, Role: RoleViewer}
	}

	if data.Email != "" {
		user.Email = data.Email
	}
	if data.FirstName != "" {
		user.FirstName = data.FirstName
	}
	if data.LastName != "" {
		user.LastName = data.LastName
	}
	if data.PhoneNumber != "" {
		user.Phone = data.PhoneNumber
	}
	if data.RoleName != "" {
		user.Role = ParseRole(data.RoleName)
	}

	s.session.Set(token, data.RefreshToken, user)
	return user, nil
}
