// Package models holds the entities persisted by the storages and the
// request/response shapes of the HTTP API.
package models

import (
	"errors"
	"time"
)

// User is a registered account. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ShortLink maps a short code to the original URL. OwnerID is nil for anonymous links.
type ShortLink struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	OwnerID     *int64     `json:"-"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsActiveAt reports whether the link has not expired at the given instant.
func (l *ShortLink) IsActiveAt(now time.Time) bool {
	return l.ExpiresAt == nil || !l.ExpiresAt.Before(now)
}

// IsOwnedBy reports whether userID owns the link. Anonymous links have no owner.
func (l *ShortLink) IsOwnedBy(userID int64) bool {
	return l.OwnerID != nil && *l.OwnerID == userID
}

// ShortLinkWithClicks is a link together with its click count aggregated at read time.
type ShortLinkWithClicks struct {
	ShortLink
	ClickCount int64
}

// Click is one recorded redirect.
type Click struct {
	ID          int64
	ShortLinkID int64
	ClickedAt   time.Time
	IPAddress   *string
	UserAgent   *string
}

// Storage-level sentinels. Services translate them into client-facing errors.
var (
	ErrShortCodeTaken = errors.New("short code already taken")
	ErrEmailTaken     = errors.New("email already registered")
	ErrLinkMissing    = errors.New("short link does not exist")
)
