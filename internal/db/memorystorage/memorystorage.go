// Package memorystorage keeps users, short links and clicks in process memory.
// It mirrors the constraints of the PostgreSQL schema (unique e-mails and short
// codes, cascading deletes) and is meant for development and tests.
package memorystorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// MemoryStorage is a map-backed storage safe for concurrent use.
type MemoryStorage struct {
	mu sync.RWMutex

	users      map[int64]models.User
	userEmails map[string]int64
	nextUserID int64

	links      map[int64]models.ShortLink
	linkCodes  map[string]int64
	nextLinkID int64

	clicks      map[int64]models.Click
	nextClickID int64
}

// New returns an empty storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:       map[int64]models.User{},
		userEmails:  map[string]int64{},
		nextUserID:  1,
		links:       map[int64]models.ShortLink{},
		linkCodes:   map[string]int64{},
		nextLinkID:  1,
		clicks:      map[int64]models.Click{},
		nextClickID: 1,
	}, nil
}

// CreateUser stores usr and fills in its ID and timestamps.
func (s *MemoryStorage) CreateUser(ctx context.Context, usr *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.userEmails[usr.Email]; taken {
		return models.ErrEmailTaken
	}

	now := time.Now()
	usr.ID = s.nextUserID
	usr.CreatedAt = now
	usr.UpdatedAt = now
	s.nextUserID++

	s.users[usr.ID] = *usr
	s.userEmails[usr.Email] = usr.ID

	return nil
}

// GetUserByID looks a user up by id.
func (s *MemoryStorage) GetUserByID(ctx context.Context, userID int64) (*models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userID]
	if !found {
		return nil, false, nil
	}

	return &usr, true, nil
}

// GetUserByEmail looks a user up by e-mail.
func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, found := s.userEmails[email]
	if !found {
		return nil, false, nil
	}
	usr := s.users[userID]

	return &usr, true, nil
}

// InsertShortLink stores link and fills in its ID and timestamps.
func (s *MemoryStorage) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.linkCodes[link.ShortCode]; taken {
		return models.ErrShortCodeTaken
	}

	now := time.Now()
	link.ID = s.nextLinkID
	link.CreatedAt = now
	link.UpdatedAt = now
	s.nextLinkID++

	s.links[link.ID] = *link
	s.linkCodes[link.ShortCode] = link.ID

	return nil
}

// FindShortLinkByCode looks a link up by code regardless of its expiry.
func (s *MemoryStorage) FindShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findByCode(code)
}

// FindActiveShortLinkByCode looks a link up by code, skipping links expired at now.
func (s *MemoryStorage) FindActiveShortLinkByCode(
	ctx context.Context,
	code string,
	now time.Time,
) (*models.ShortLink, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, found, err := s.findByCode(code)
	if err != nil || !found {
		return nil, false, err
	}
	if !link.IsActiveAt(now) {
		return nil, false, nil
	}

	return link, true, nil
}

// FindShortLinkByID looks a link up by id.
func (s *MemoryStorage) FindShortLinkByID(ctx context.Context, linkID int64) (*models.ShortLink, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, found := s.links[linkID]
	if !found {
		return nil, false, nil
	}

	return &link, true, nil
}

// GetOwnerShortLinks lists the owner's links not expired at now, with click counts.
func (s *MemoryStorage) GetOwnerShortLinks(
	ctx context.Context,
	ownerID int64,
	now time.Time,
) ([]models.ShortLinkWithClicks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[int64]int64{}
	for _, click := range s.clicks {
		counts[click.ShortLinkID]++
	}

	result := []models.ShortLinkWithClicks{}
	for _, link := range s.links {
		if !link.IsOwnedBy(ownerID) || !link.IsActiveAt(now) {
			continue
		}
		result = append(result, models.ShortLinkWithClicks{
			ShortLink:  link,
			ClickCount: counts[link.ID],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// DeleteShortLink removes a link together with its clicks.
func (s *MemoryStorage) DeleteShortLink(ctx context.Context, linkID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found := s.links[linkID]
	if !found {
		return nil
	}

	for clickID, click := range s.clicks {
		if click.ShortLinkID == linkID {
			delete(s.clicks, clickID)
		}
	}
	delete(s.linkCodes, link.ShortCode)
	delete(s.links, linkID)

	return nil
}

// InsertClick stores click. The referenced link must exist.
func (s *MemoryStorage) InsertClick(ctx context.Context, click *models.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.links[click.ShortLinkID]; !found {
		return models.ErrLinkMissing
	}

	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	click.ID = s.nextClickID
	s.nextClickID++
	s.clicks[click.ID] = *click

	return nil
}

// CountClicksByCode counts the clicks of the link with the given code.
func (s *MemoryStorage) CountClicksByCode(ctx context.Context, code string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	linkID, found := s.linkCodes[code]
	if !found {
		return 0, nil
	}

	var count int64
	for _, click := range s.clicks {
		if click.ShortLinkID == linkID {
			count++
		}
	}

	return count, nil
}

// GetNumberOfShortLinks returns the number of stored links.
func (s *MemoryStorage) GetNumberOfShortLinks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.links)), nil
}

// GetNumberOfUsers returns the number of registered users.
func (s *MemoryStorage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

// GetNumberOfClicks returns the number of recorded clicks.
func (s *MemoryStorage) GetNumberOfClicks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.clicks)), nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) findByCode(code string) (*models.ShortLink, bool, error) {
	linkID, found := s.linkCodes[code]
	if !found {
		return nil, false, nil
	}
	link := s.links[linkID]

	return &link, true, nil
}
