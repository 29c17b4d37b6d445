package models

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public projection of a freshly registered user.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateShortLinkRequest is the body of POST /short-url and POST /short-url/public.
// ExpiresAt is a calendar date such as "2025-08-01".
type CreateShortLinkRequest struct {
	OriginalURL string  `json:"originalUrl" validate:"required"`
	ExpiresAt   *string `json:"expiresAt,omitempty"`
}

// ShortLinkResponse is a link as returned on creation.
type ShortLinkResponse struct {
	ShortLink
	RedirectURL string `json:"redirectUrl"`
}

// ShortLinkListItem is a link in the owner's listing.
type ShortLinkListItem struct {
	ShortLink
	ClickCount  int64  `json:"clickCount"`
	RedirectURL string `json:"redirectUrl"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

// InternalStatsResponse holds service totals for GET /internal/stats.
type InternalStatsResponse struct {
	Links  int64 `json:"links"`
	Users  int64 `json:"users"`
	Clicks int64 `json:"clicks"`
}
