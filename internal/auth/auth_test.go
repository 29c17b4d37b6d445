package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

var testSigningKey = []byte("test-signing-key")

func newTestAuth(t *testing.T, optionsProto ...InitOption) (*Auth, *models.User) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!pw"), bcrypt.MinCost)
	require.NoError(t, err)
	usr := &models.User{Name: "Ana", Email: "ana@example.com", Password: string(hash)}
	require.NoError(t, db.CreateUser(context.Background(), usr))

	return New(db, testSigningKey, 10*time.Minute, optionsProto...), usr
}

func TestLogin(t *testing.T) {
	a, usr := newTestAuth(t)

	type tTestCase struct {
		name     string
		email    string
		password string
		wantErr  bool
	}
	testCases := []tTestCase{
		{name: "valid credentials", email: "ana@example.com", password: "Str0ng!pw"},
		{name: "wrong password", email: "ana@example.com", password: "Wr0ng!pw", wantErr: true},
		{name: "unknown email", email: "bob@example.com", password: "Str0ng!pw", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := a.Login(context.Background(), tc.email, tc.password)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrUnauthorized)
				assert.Equal(t, "invalid credentials", err.Error())
				return
			}
			require.NoError(t, err)

			identity, err := a.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, usr.ID, identity.UserID)
			assert.Equal(t, "ana@example.com", identity.Email)
		})
	}
}

func TestParseTokenRejects(t *testing.T) {
	a, _ := newTestAuth(t)

	stale, _ := newTestAuth(t, WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	expiredToken, err := stale.Login(context.Background(), "ana@example.com", "Str0ng!pw")
	require.NoError(t, err)

	foreignToken, err := New(nil, []byte("another-key"), time.Minute).buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	require.NoError(t, err)

	otherAlgorithm, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(testSigningKey)
	require.NoError(t, err)

	noExpiry, err := a.buildJWTString(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}})
	require.NoError(t, err)

	badSubject, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ana",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	require.NoError(t, err)

	type tTestCase struct {
		name  string
		token string
	}
	testCases := []tTestCase{
		{name: "expired", token: expiredToken},
		{name: "foreign key", token: foreignToken},
		{name: "other algorithm", token: otherAlgorithm},
		{name: "no expiry", token: noExpiry},
		{name: "non-numeric subject", token: badSubject},
		{name: "garbage", token: "not.a.token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.ParseToken(tc.token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestAuthenticateUser(t *testing.T) {
	a, usr := newTestAuth(t)

	validToken, err := a.Login(context.Background(), "ana@example.com", "Str0ng!pw")
	require.NoError(t, err)

	ghostToken, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "999",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Email: "ghost@example.com",
	})
	require.NoError(t, err)

	var seen Identity
	protected := a.AuthenticateUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = identity
		w.WriteHeader(http.StatusOK)
	}))

	type tTestCase struct {
		name          string
		authorization string
		expectedCode  int
	}
	testCases := []tTestCase{
		{name: "no header", expectedCode: http.StatusUnauthorized},
		{name: "basic scheme", authorization: "Basic YW5hOnB3", expectedCode: http.StatusUnauthorized},
		{name: "empty bearer", authorization: "Bearer ", expectedCode: http.StatusUnauthorized},
		{name: "invalid token", authorization: "Bearer not.a.token", expectedCode: http.StatusUnauthorized},
		{name: "deleted user", authorization: "Bearer " + ghostToken, expectedCode: http.StatusUnauthorized},
		{name: "valid token", authorization: "Bearer " + validToken, expectedCode: http.StatusOK},
		{name: "lowercase scheme", authorization: "bearer " + validToken, expectedCode: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/short-url", nil)
			if tc.authorization != "" {
				request.Header.Set("Authorization", tc.authorization)
			}
			recorder := httptest.NewRecorder()

			protected.ServeHTTP(recorder, request)

			assert.Equal(t, tc.expectedCode, recorder.Code)
			if tc.expectedCode == http.StatusUnauthorized {
				var body models.ErrorResponse
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
				assert.Equal(t, "Unauthorized", body.Error)
			}
		})
	}

	assert.Equal(t, Identity{UserID: usr.ID, Email: "ana@example.com"}, seen)
}
