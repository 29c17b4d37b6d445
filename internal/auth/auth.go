// Package auth issues and checks the signed bearer tokens that identify
// registered users, and provides the HTTP middleware guarding the owner-only
// endpoints.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

const bearerPrefix = "bearer "

type userFinder interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

// Auth handles credential checks and JWT management.
type Auth struct {
	// db is the interface to the user data storage.
	db userFinder

	// signingKey is the key used to sign and verify JWTs.
	signingKey []byte

	// tokenTTL is how long an issued token stays valid.
	tokenTTL time.Duration

	now func() time.Time
}

// Claims represents the JWT claims used by the system. The subject is the
// decimal user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is the authenticated caller as stored in the request context.
type Identity struct {
	UserID int64
	Email  string
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// IdentityKey is the context key used to store and retrieve the authenticated user.
const IdentityKey ContextKey = "identity"

// InitOption configures New.
type InitOption func(*Auth)

// WithClock replaces time.Now for token issuing and validation.
func WithClock(now func() time.Time) InitOption {
	return func(a *Auth) {
		a.now = now
	}
}

// New creates an Auth signing tokens with signingKey that live for tokenTTL.
func New(
	db userFinder,
	signingKey []byte,
	tokenTTL time.Duration,
	optionsProto ...InitOption,
) *Auth {
	a := &Auth{
		db:         db,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(a)
	}

	return a
}

// Login checks email and password and returns a fresh access token.
// Unknown emails and wrong passwords are reported identically.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	usr, found, err := a.db.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Login(): error while `a.db.GetUserByEmail()` calling: %w", err)
	}
	if !found {
		logger.Log.Debugw("login attempt for an unknown email")
		return "", apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(password)); err != nil {
		logger.Log.Debugw("login attempt with a wrong password", "user_id", usr.ID)
		return "", apperr.Unauthorized("invalid credentials")
	}

	issuedAt := a.now()
	token, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(usr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(a.tokenTTL)),
		},
		Email: usr.Email,
	})
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Login(): error while `a.buildJWTString()` calling: %w", err)
	}

	logger.Log.Infow("user logged in", "user_id", usr.ID)

	return token, nil
}

// ParseToken verifies tokenString and extracts the identity it carries.
func (a *Auth) ParseToken(tokenString string) (*Identity, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(a.now()) {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	return &Identity{UserID: userID, Email: claims.Email}, nil
}

// AuthenticateUser is an HTTP middleware that requires a valid bearer token
// in the Authorization header. The token's user must still exist. On success
// the caller's Identity is stored in the request context; otherwise the
// request is answered with 401.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, ok := bearerToken(request)
		if !ok {
			apperr.WriteJSON(response, apperr.Unauthorized("missing bearer token"))
			return
		}

		identity, err := a.ParseToken(tokenString)
		if err != nil {
			apperr.WriteJSON(response, err)
			return
		}

		_, found, err := a.db.GetUserByID(request.Context(), identity.UserID)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			apperr.WriteJSON(response, err)
			return
		}
		if !found {
			apperr.WriteJSON(response, apperr.Unauthorized("invalid or expired token"))
			return
		}

		ctx := context.WithValue(request.Context(), IdentityKey, *identity)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// IdentityFromContext returns the identity stored by AuthenticateUser.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])

	return token, token != ""
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
