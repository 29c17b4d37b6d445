// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces consumed by the service and auth packages.
// It is used in unit tests to simulate storage failures and races that
// the in-memory storage cannot reproduce.
package mockstorage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// StorageMock is a testify mock that implements every storage method
// the services use.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfShortLinks works like OnGetNumberOfUsers for GetNumberOfShortLinks.
	OnGetNumberOfShortLinks func(ctx context.Context) (int64, error)

	// OnGetNumberOfClicks works like OnGetNumberOfUsers for GetNumberOfClicks.
	OnGetNumberOfClicks func(ctx context.Context) (int64, error)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks user creation. Set the ID on the argument with mock.Run
// when the test needs one.
func (m *StorageMock) CreateUser(ctx context.Context, usr *models.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetUserByEmail mocks fetching a user by their email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Bool(1), args.Error(2)
}

// InsertShortLink mocks storing a new short link.
func (m *StorageMock) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// FindShortLinkByCode mocks the expiry-blind lookup by code.
func (m *StorageMock) FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error) {
	args := m.Called(ctx, code)
	link, _ := args.Get(0).(*models.ShortLink)
	return link, args.Bool(1), args.Error(2)
}

// FindActiveShortLinkByCode mocks the lookup of an unexpired link by code.
func (m *StorageMock) FindActiveShortLinkByCode(
	ctx context.Context,
	code string,
	now time.Time,
) (*models.ShortLink, bool, error) {
	args := m.Called(ctx, code, now)
	link, _ := args.Get(0).(*models.ShortLink)
	return link, args.Bool(1), args.Error(2)
}

// FindShortLinkByID mocks the lookup of a link by its id.
func (m *StorageMock) FindShortLinkByID(ctx context.Context, linkID int64) (*models.ShortLink, bool, error) {
	args := m.Called(ctx, linkID)
	link, _ := args.Get(0).(*models.ShortLink)
	return link, args.Bool(1), args.Error(2)
}

// GetOwnerShortLinks mocks listing an owner's unexpired links.
func (m *StorageMock) GetOwnerShortLinks(
	ctx context.Context,
	ownerID int64,
	now time.Time,
) ([]models.ShortLinkWithClicks, error) {
	args := m.Called(ctx, ownerID, now)
	links, _ := args.Get(0).([]models.ShortLinkWithClicks)
	return links, args.Error(1)
}

// DeleteShortLink mocks deleting a link together with its clicks.
func (m *StorageMock) DeleteShortLink(ctx context.Context, linkID int64) error {
	args := m.Called(ctx, linkID)
	return args.Error(0)
}

// InsertClick mocks recording a click.
func (m *StorageMock) InsertClick(ctx context.Context, click *models.Click) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

// CountClicksByCode mocks counting clicks for a code.
func (m *StorageMock) CountClicksByCode(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfShortLinks returns the number of stored links as defined by the mock.
func (m *StorageMock) GetNumberOfShortLinks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfShortLinks != nil {
		return m.OnGetNumberOfShortLinks(ctx)
	}
	return 0, nil
}

// GetNumberOfClicks returns the number of recorded clicks as defined by the mock.
func (m *StorageMock) GetNumberOfClicks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfClicks != nil {
		return m.OnGetNumberOfClicks(ctx)
	}
	return 0, nil
}
