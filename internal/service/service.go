// Package service implements the link, click and user operations behind the
// HTTP API. Storage access goes through the small interfaces declared here so
// that PostgreSQL, in-memory and mock storages are interchangeable.
package service

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

type linkStorage interface {
	InsertShortLink(ctx context.Context, link *models.ShortLink) error

	FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error)

	FindActiveShortLinkByCode(
		ctx context.Context,
		code string,
		now time.Time,
	) (*models.ShortLink, bool, error)

	FindShortLinkByID(ctx context.Context, linkID int64) (*models.ShortLink, bool, error)

	GetOwnerShortLinks(
		ctx context.Context,
		ownerID int64,
		now time.Time,
	) ([]models.ShortLinkWithClicks, error)

	DeleteShortLink(ctx context.Context, linkID int64) error
}

type clickStorage interface {
	FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error)

	InsertClick(ctx context.Context, click *models.Click) error

	CountClicksByCode(ctx context.Context, code string) (int64, error)
}

type userStorage interface {
	CreateUser(ctx context.Context, usr *models.User) error

	GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error)

	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

type statsStorage interface {
	GetNumberOfShortLinks(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfClicks(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

type codeGenerator interface {
	Generate() (string, error)
}

// Option tunes a service at construction time.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, which lets tests pin "now" for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(optionsProto []Option) *options {
	result := &options{
		now: time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(result)
	}

	return result
}
