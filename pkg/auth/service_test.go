package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lawdesk/lawdesk-client/internal/testutil"
	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, mock *testutil.MockBackend) (*Service, *client.Client) {
	t.Helper()
	logger := zerolog.Nop()
	cfg := client.DefaultConfig(mock.URL() + "/api")
	cfg.Logger = &logger
	api, err := client.New(cfg)
	require.NoError(t, err)

	svc := NewService(api, nil, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc, api
}

func authResponse(data string) testutil.MockResponse {
	return testutil.NewEnvelopeResponse(data)
}

func TestService_Login(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	token := signToken(t, jwt.MapClaims{"sub": "7", "email": "claims@firm.test", "role": "Viewer", "exp": testNow.Add(time.Hour).Unix()})
	mock.SetResponse("/api/Auth/login", authResponse(fmt.Sprintf(
		`{"token":%q,"refreshToken":"r-1","firstName":"Sara","lastName":"Haddad","email":"sara@firm.test","phoneNumber":"+100","roleName":"Lawyer"}`, token)))

	svc, _ := newTestService(t, mock)

	user, err := svc.Login(context.Background(), LoginRequest{Email: "sara@firm.test", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "7", user.ID)
	assert.Equal(t, "sara@firm.test", user.Email, "response fields win over claims")
	assert.Equal(t, "Sara", user.FirstName)
	assert.Equal(t, RoleLawyer, user.Role)
	assert.Equal(t, "+100", user.Phone)

	access, refresh := svc.Session().Tokens()
	assert.Equal(t, token, access)
	assert.Equal(t, "r-1", refresh)
	assert.True(t, svc.IsAuthenticated())
	assert.True(t, svc.HasAnyRole(RoleAdmin, RoleLawyer))
	assert.False(t, svc.HasAnyRole(RoleSuperAdmin))

	last, _ := mock.LastRequest()
	var body LoginRequest
	require.NoError(t, json.Unmarshal(last.Body, &body))
	assert.Equal(t, "sara@firm.test", body.Email)
	assert.Empty(t, last.Header.Get("Authorization"))
}

func TestService_LoginFailure(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/api/Auth/login", testutil.NewErrorResponse(http.StatusUnauthorized, "Invalid credentials"))

	svc, _ := newTestService(t, mock)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "x", Password: "y"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
	assert.False(t, svc.IsAuthenticated())
}

func TestService_LoginWithoutToken(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/api/Auth/login", authResponse(`{"email":"a@b.c"}`))

	svc, _ := newTestService(t, mock)

	_, err := svc.Login(context.Background(), LoginRequest{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestService_Register(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	token := signToken(t, jwt.MapClaims{"email": "new@firm.test", "exp": testNow.Add(time.Hour).Unix()})
	mock.SetResponse("/api/Auth/register", authResponse(fmt.Sprintf(`{"accessToken":%q,"firstName":"Nour"}`, token)))

	svc, _ := newTestService(t, mock)
	user, err := svc.Register(context.Background(), RegisterRequest{FirstName: "Nour", Email: "new@firm.test"})
	require.NoError(t, err)
	assert.Equal(t, "new@firm.test", user.ID)
	assert.Equal(t, "Nour", user.FirstName)
}

func TestService_TokenValid(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	svc, _ := newTestService(t, mock)
	token := signToken(t, jwt.MapClaims{"sub": "1", "exp": testNow.Add(time.Hour).Unix()})
	svc.Session().Set(token, "r", nil)

	got, err := svc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Zero(t, mock.RequestCount())
}

func TestService_TokenNotAuthenticated(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	svc, _ := newTestService(t, mock)
	_, err := svc.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestService_TokenRefreshesNearExpiry(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	fresh := signToken(t, jwt.MapClaims{"sub": "1", "exp": testNow.Add(time.Hour).Unix()})
	mock.SetResponse("/api/Auth/refresh", authResponse(fmt.Sprintf(`{"token":%q}`, fresh)))

	svc, _ := newTestService(t, mock)
	stale := signToken(t, jwt.MapClaims{"sub": "1", "exp": testNow.Add(10 * time.Second).Unix()})
	svc.Session().Set(stale, "r-1", nil)

	got, err := svc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	last, _ := mock.LastRequest()
	assert.JSONEq(t, `{"refreshToken":"r-1"}`, string(last.Body))

	_, refresh := svc.Session().Tokens()
	assert.Equal(t, "r-1", refresh, "refresh token kept when none is returned")
}

func TestService_RefreshCoalesced(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	fresh := signToken(t, jwt.MapClaims{"sub": "1", "exp": testNow.Add(time.Hour).Unix()})
	var calls atomic.Int32
	mock.SetHandler("/api/Auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"success":true,"data":{"token":%q}}`, fresh)
	})

	svc, _ := newTestService(t, mock)
	svc.Session().Set("expired.token.value", "r-1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, fresh, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestService_RefreshFailureSignsOut(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/api/Auth/refresh", testutil.NewErrorResponse(http.StatusUnauthorized, "Refresh token revoked"))

	svc, _ := newTestService(t, mock)
	svc.Session().Set("a.b.c", "r-1", &User{ID: "1"})

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)

	access, refresh := svc.Session().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Nil(t, svc.CurrentUser())
}

func TestService_RefreshWithoutRefreshToken(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	svc, _ := newTestService(t, mock)
	svc.Session().Set("a.b.c", "", nil)

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, mock.RequestCount())
}

func TestService_AsTokenSource(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	svc, api := newTestService(t, mock)
	token := signToken(t, jwt.MapClaims{"sub": "1", "exp": testNow.Add(time.Hour).Unix()})
	svc.Session().Set(token, "r", nil)

	_, err := api.WithTokenSource(svc).Get(context.Background(), "/cases", nil)
	require.NoError(t, err)

	last, _ := mock.LastRequest()
	assert.Equal(t, "Bearer "+token, last.Header.Get("Authorization"))
}

func TestService_CurrentUserFromSeededToken(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	svc, _ := newTestService(t, mock)
	token := signToken(t, jwt.MapClaims{"sub": "2", "role": "Admin", "exp": testNow.Add(time.Hour).Unix()})
	svc.Session().Set(token, "", nil)

	user := svc.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, RoleAdmin, user.Role)

	svc.Logout()
	assert.False(t, svc.IsAuthenticated())
}
