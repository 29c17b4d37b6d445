package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkclicks/internal/mockstorage"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
	"github.com/patric-chuzhbe/linkclicks/internal/shortcode"
)

const testShortURLBase = "http://localhost:3000"

type sequenceCodes struct {
	codes []string
	next  int
}

func (s *sequenceCodes) Generate() (string, error) {
	code := s.codes[s.next%len(s.codes)]
	s.next++
	return code, nil
}

func fixedClock(now time.Time) Option {
	return WithClock(func() time.Time { return now })
}

func newTestLinkService(t *testing.T, now time.Time) (*LinkService, *memorystorage.MemoryStorage) {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	return NewLinkService(db, shortcode.New(), testShortURLBase, time.UTC, fixedClock(now)), db
}

func strPtr(s string) *string {
	return &s
}

func TestNormalizeURL(t *testing.T) {
	type tTestCase struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}
	testCases := []tTestCase{
		{name: "bare host gets https", raw: "example.com", want: "https://example.com"},
		{name: "http kept", raw: "http://example.com/a?b=c", want: "http://example.com/a?b=c"},
		{name: "https kept", raw: "https://example.com", want: "https://example.com"},
		{name: "surrounding spaces trimmed", raw: "  example.com/path  ", want: "https://example.com/path"},
		{name: "other scheme is prefixed too", raw: "ftp://x", want: "https://ftp://x"},
		{name: "empty", raw: "", wantErr: true},
		{name: "only spaces", raw: "   ", wantErr: true},
		{name: "space in host", raw: "exa mple.com", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.raw)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseExpiry(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)

	type tTestCase struct {
		name     string
		raw      string
		location *time.Location
		want     time.Time
		wantErr  bool
	}
	testCases := []tTestCase{
		{
			name:     "date only",
			raw:      "2025-08-01",
			location: time.UTC,
			want:     time.Date(2025, 8, 1, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:     "timestamp keeps its calendar date",
			raw:      "2025-08-01T10:00:00Z",
			location: time.UTC,
			want:     time.Date(2025, 8, 1, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:     "timestamp date is taken in the configured zone",
			raw:      "2025-08-01T22:30:00Z",
			location: moscow,
			want:     time.Date(2025, 8, 2, 23, 59, 59, 999000000, moscow),
		},
		{
			name:     "local timestamp without zone",
			raw:      "2025-08-01T08:15:00",
			location: moscow,
			want:     time.Date(2025, 8, 1, 23, 59, 59, 999000000, moscow),
		},
		{name: "garbage", raw: "tomorrow", location: time.UTC, wantErr: true},
		{name: "impossible date", raw: "2025-02-30", location: time.UTC, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseExpiry(tc.raw, tc.location)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestLinkServiceCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	links, _ := newTestLinkService(t, now)

	link, err := links.Create(ctx, "example.com", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.OriginalURL)
	assert.Len(t, link.ShortCode, shortcode.Length)
	require.NotNil(t, link.OwnerID)
	assert.Equal(t, int64(1), *link.OwnerID)
	assert.Nil(t, link.ExpiresAt)
	assert.Equal(t, testShortURLBase+"/"+link.ShortCode, links.ToResponse(link).RedirectURL)

	anonymous, err := links.CreateAnonymous(ctx, "https://example.org", strPtr("2025-08-01"))
	require.NoError(t, err)
	assert.Nil(t, anonymous.OwnerID)
	require.NotNil(t, anonymous.ExpiresAt)
	assert.True(t, time.Date(2025, 8, 1, 23, 59, 59, 999000000, time.UTC).Equal(*anonymous.ExpiresAt))

	emptyExpiry, err := links.CreateAnonymous(ctx, "example.net", strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, emptyExpiry.ExpiresAt)

	_, err = links.Create(ctx, "", nil, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = links.Create(ctx, "example.com", strPtr("next week"), 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLinkServiceExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	links, _ := newTestLinkService(t, now)

	expired, err := links.Create(ctx, "example.com/old", strPtr("2025-08-01"), 1)
	require.NoError(t, err)
	lastDay, err := links.Create(ctx, "example.com/today", strPtr("2025-09-01"), 1)
	require.NoError(t, err)

	_, err = links.ResolveForRedirect(ctx, expired.ShortCode)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	resolved, err := links.ResolveForRedirect(ctx, lastDay.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/today", resolved.OriginalURL)

	original, err := links.GetOriginalURL(ctx, expired.ShortCode)
	require.NoError(t, err, "the original URL lookup does not filter by expiry")
	assert.Equal(t, "https://example.com/old", original)

	listed, err := links.ListForOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, lastDay.ShortCode, listed[0].ShortCode)
	assert.Equal(t, int64(0), listed[0].ClickCount)
	assert.Equal(t, testShortURLBase+"/"+lastDay.ShortCode, listed[0].RedirectURL)

	_, err = links.GetOriginalURL(ctx, "nope00")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLinkServiceRemove(t *testing.T) {
	ctx := context.Background()
	links, db := newTestLinkService(t, time.Now())

	owned, err := links.Create(ctx, "example.com", nil, 1)
	require.NoError(t, err)
	anonymous, err := links.CreateAnonymous(ctx, "example.org", nil)
	require.NoError(t, err)

	type tTestCase struct {
		name        string
		linkID      int64
		requesterID int64
		wantErr     error
	}
	testCases := []tTestCase{
		{name: "foreign link", linkID: owned.ID, requesterID: 2, wantErr: apperr.ErrForbidden},
		{name: "anonymous link", linkID: anonymous.ID, requesterID: 1, wantErr: apperr.ErrForbidden},
		{name: "unknown link", linkID: 999, requesterID: 1, wantErr: apperr.ErrNotFound},
		{name: "own link", linkID: owned.ID, requesterID: 1},
		{name: "already removed", linkID: owned.ID, requesterID: 1, wantErr: apperr.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := links.Remove(ctx, tc.linkID, tc.requesterID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	total, err := db.GetNumberOfShortLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestLinkServiceRegeneratesTakenCodes(t *testing.T) {
	ctx := context.Background()
	db := new(mockstorage.StorageMock)
	codes := &sequenceCodes{codes: []string{"taken0", "fresh1"}}
	links := NewLinkService(db, codes, testShortURLBase, time.UTC)

	db.On("InsertShortLink", mock.Anything, mock.Anything).Return(models.ErrShortCodeTaken).Once()
	db.On("InsertShortLink", mock.Anything, mock.Anything).Return(nil).Once()

	link, err := links.CreateAnonymous(ctx, "example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh1", link.ShortCode)
	db.AssertNumberOfCalls(t, "InsertShortLink", 2)
}

func TestLinkServiceGivesUpOnPersistentCollisions(t *testing.T) {
	ctx := context.Background()
	db := new(mockstorage.StorageMock)
	links := NewLinkService(db, &sequenceCodes{codes: []string{"taken0"}}, testShortURLBase, time.UTC)

	db.On("InsertShortLink", mock.Anything, mock.Anything).Return(models.ErrShortCodeTaken)

	_, err := links.Create(ctx, "example.com", nil, 1)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	db.AssertNumberOfCalls(t, "InsertShortLink", TriesToGenerateUniqueCode)
}

func TestLinkServiceStorageFailure(t *testing.T) {
	ctx := context.Background()
	db := new(mockstorage.StorageMock)
	links := NewLinkService(db, shortcode.New(), testShortURLBase, time.UTC)
	storageErr := errors.New("connection reset")

	db.On("FindActiveShortLinkByCode", mock.Anything, "abcdef", mock.Anything).Return(nil, false, storageErr)

	_, err := links.ResolveForRedirect(ctx, "abcdef")
	assert.ErrorIs(t, err, storageErr)
	assert.Equal(t, 500, apperr.StatusCode(err))
}
