// Package router exposes the HTTP API: account endpoints, short link
// management, click counts, the public redirect and the operational
// endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/auth"
	"github.com/patric-chuzhbe/linkclicks/internal/gzippedhttp"
	"github.com/patric-chuzhbe/linkclicks/internal/ipchecker"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/metrics"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

type linkService interface {
	Create(ctx context.Context, originalURL string, expiresAt *string, ownerID int64) (*models.ShortLink, error)

	CreateAnonymous(ctx context.Context, originalURL string, expiresAt *string) (*models.ShortLink, error)

	ListForOwner(ctx context.Context, ownerID int64) ([]models.ShortLinkListItem, error)

	ResolveForRedirect(ctx context.Context, code string) (*models.ShortLink, error)

	GetOriginalURL(ctx context.Context, code string) (string, error)

	Remove(ctx context.Context, linkID, requesterID int64) error

	ToResponse(link *models.ShortLink) models.ShortLinkResponse
}

type clickRecorder interface {
	Track(ctx context.Context, code, ip, userAgent string) error

	Count(ctx context.Context, code string) (int64, error)
}

type userService interface {
	Register(ctx context.Context, req models.CreateUserRequest) (*models.User, error)

	GetByID(ctx context.Context, userID int64) (*models.User, error)
}

type statsReporter interface {
	Totals(ctx context.Context) (*models.InternalStatsResponse, error)

	Ping(ctx context.Context) error
}

type authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)

	AuthenticateUser(h http.Handler) http.Handler
}

// Router holds the collaborators the HTTP handlers delegate to.
type Router struct {
	links     linkService
	clicks    clickRecorder
	users     userService
	stats     statsReporter
	auth      authenticator
	ipChecker *ipchecker.IPChecker
	validate  *validator.Validate
}

// New builds the chi router with every route and middleware of the service.
func New(
	links linkService,
	clicks clickRecorder,
	users userService,
	stats statsReporter,
	theAuth authenticator,
	ipChecker *ipchecker.IPChecker,
) *chi.Mux {
	myRouter := &Router{
		links:     links,
		clicks:    clicks,
		users:     users,
		stats:     stats,
		auth:      theAuth,
		ipChecker: ipChecker,
		validate:  validator.New(),
	}

	router := chi.NewRouter()

	router.Use(
		logger.WithLoggingHTTPMiddleware,
		metrics.Middleware,
		middleware.Recoverer,
		gzippedhttp.DecompressRequest,
		middleware.Compress(5, "application/json", "text/plain"),
	)

	router.Get(`/ping`, myRouter.GetPing)
	router.Handle(`/metrics`, metrics.Handler())
	router.Get(`/internal/stats`, myRouter.GetInternalstats)

	router.Post(`/auth/login`, myRouter.PostAuthlogin)
	router.Post(`/users`, myRouter.PostUsers)
	router.Post(`/short-url/public`, myRouter.PostShorturlpublic)
	router.Get(`/short-url/{code}`, myRouter.GetShorturlCode)

	router.Group(func(protected chi.Router) {
		protected.Use(theAuth.AuthenticateUser)

		protected.Get(`/users/me`, myRouter.GetUsersme)
		protected.Post(`/short-url`, myRouter.PostShorturl)
		protected.Get(`/short-url/short-urls`, myRouter.GetShorturlShorturls)
		protected.Delete(`/short-url/short-urls/{id}`, myRouter.DeleteShorturlShorturls)
		protected.Get(`/clicks/{code}/count`, myRouter.GetClicksCodeCount)
	})

	router.Get(`/{code}`, myRouter.GetCode)

	return router
}

// PostAuthlogin exchanges credentials for an access token.
func (r *Router) PostAuthlogin(response http.ResponseWriter, request *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(request, &req); err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	token, err := r.auth.Login(request.Context(), req.Email, req.Password)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.LoginResponse{AccessToken: token})
}

// PostUsers registers a new account.
func (r *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(request, &req); err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	usr, err := r.users.Register(request.Context(), req)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.UserResponse{
		ID:    usr.ID,
		Name:  usr.Name,
		Email: usr.Email,
	})
}

// GetUsersme returns the authenticated caller's profile.
func (r *Router) GetUsersme(response http.ResponseWriter, request *http.Request) {
	identity, _ := auth.IdentityFromContext(request.Context())

	usr, err := r.users.GetByID(request.Context(), identity.UserID)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// PostShorturl shortens a URL for the authenticated caller.
func (r *Router) PostShorturl(response http.ResponseWriter, request *http.Request) {
	req, err := r.decodeCreateShortLinkRequest(request)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}
	identity, _ := auth.IdentityFromContext(request.Context())

	link, err := r.links.Create(request.Context(), req.OriginalURL, req.ExpiresAt, identity.UserID)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, r.links.ToResponse(link))
}

// PostShorturlpublic shortens a URL without an owner.
func (r *Router) PostShorturlpublic(response http.ResponseWriter, request *http.Request) {
	req, err := r.decodeCreateShortLinkRequest(request)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	link, err := r.links.CreateAnonymous(request.Context(), req.OriginalURL, req.ExpiresAt)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, r.links.ToResponse(link))
}

// GetShorturlShorturls lists the caller's unexpired links with click counts.
func (r *Router) GetShorturlShorturls(response http.ResponseWriter, request *http.Request) {
	identity, _ := auth.IdentityFromContext(request.Context())

	links, err := r.links.ListForOwner(request.Context(), identity.UserID)
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusOK, links)
}

// DeleteShorturlShorturls removes one of the caller's links.
func (r *Router) DeleteShorturlShorturls(response http.ResponseWriter, request *http.Request) {
	linkID, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		apperr.WriteJSON(response, apperr.NotFound("URL not found"))
		return
	}
	identity, _ := auth.IdentityFromContext(request.Context())

	if err := r.links.Remove(request.Context(), linkID, identity.UserID); err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: "URL deleted successfully"})
}

// GetShorturlCode reports the original URL of a code as plain text, expired
// links included.
func (r *Router) GetShorturlCode(response http.ResponseWriter, request *http.Request) {
	originalURL, err := r.links.GetOriginalURL(request.Context(), chi.URLParam(request, "code"))
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write([]byte("URL Original: " + originalURL)); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

// GetClicksCodeCount returns the number of recorded clicks for a code.
func (r *Router) GetClicksCodeCount(response http.ResponseWriter, request *http.Request) {
	count, err := r.clicks.Count(request.Context(), chi.URLParam(request, "code"))
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusOK, count)
}

// GetCode redirects to the original URL of an unexpired link and records the
// click. A failed click write never changes the response.
func (r *Router) GetCode(response http.ResponseWriter, request *http.Request) {
	code := chi.URLParam(request, "code")

	link, err := r.links.ResolveForRedirect(request.Context(), code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		} else {
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		}
		apperr.WriteJSON(response, err)
		return
	}

	err = r.clicks.Track(
		request.Context(),
		code,
		ipchecker.ClientAddress(request),
		request.UserAgent(),
	)
	if err != nil {
		logger.Log.Warnw("click was not recorded", "code", code, "error", err)
	}

	metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeFound).Inc()
	http.Redirect(response, request, link.OriginalURL, http.StatusFound)
}

// GetPing checks the storage connection.
func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.stats.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `r.stats.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalstats reports service totals to clients inside the trusted subnet.
func (r *Router) GetInternalstats(response http.ResponseWriter, request *http.Request) {
	if r.ipChecker == nil || r.ipChecker.IsTrustedSubnetEmpty() ||
		!r.ipChecker.Check(r.ipChecker.GetTrustedClientIP(request)) {
		apperr.WriteJSON(response, apperr.Forbidden("access denied"))
		return
	}

	totals, err := r.stats.Totals(request.Context())
	if err != nil {
		apperr.WriteJSON(response, err)
		return
	}

	writeJSON(response, http.StatusOK, totals)
}

func (r *Router) decodeCreateShortLinkRequest(request *http.Request) (*models.CreateShortLinkRequest, error) {
	var req models.CreateShortLinkRequest
	if err := decodeJSON(request, &req); err != nil {
		return nil, err
	}

	if err := r.validate.Struct(req); err != nil {
		return nil, apperr.Validation("originalUrl is required")
	}

	return &req, nil
}

func decodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		logger.Log.Debugln("Error calling the `json.NewDecoder(request.Body).Decode()`: ", zap.Error(err))
		return apperr.Validation("malformed JSON body")
	}

	return nil
}

func writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
