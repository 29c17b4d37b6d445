package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/linkclicks/internal/apperr"
	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/metrics"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// TriesToGenerateUniqueCode bounds the regeneration loop run when a freshly
// generated code collides with an existing one.
const TriesToGenerateUniqueCode = 10

var expiryLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// LinkService creates, resolves, lists and removes short links.
type LinkService struct {
	db           linkStorage
	codes        codeGenerator
	shortURLBase string
	location     *time.Location
	now          func() time.Time
}

// NewLinkService wires a LinkService. shortURLBase prefixes redirect URLs and
// location is the time zone expiry dates are read in.
func NewLinkService(
	db linkStorage,
	codes codeGenerator,
	shortURLBase string,
	location *time.Location,
	optionsProto ...Option,
) *LinkService {
	if location == nil {
		location = time.Local
	}

	return &LinkService{
		db:           db,
		codes:        codes,
		shortURLBase: strings.TrimRight(shortURLBase, "/"),
		location:     location,
		now:          buildOptions(optionsProto).now,
	}
}

// Create shortens originalURL on behalf of ownerID.
func (s *LinkService) Create(
	ctx context.Context,
	originalURL string,
	expiresAt *string,
	ownerID int64,
) (*models.ShortLink, error) {
	return s.create(ctx, originalURL, expiresAt, &ownerID)
}

// CreateAnonymous shortens originalURL without an owner.
func (s *LinkService) CreateAnonymous(
	ctx context.Context,
	originalURL string,
	expiresAt *string,
) (*models.ShortLink, error) {
	return s.create(ctx, originalURL, expiresAt, nil)
}

func (s *LinkService) create(
	ctx context.Context,
	originalURL string,
	expiresAt *string,
	ownerID *int64,
) (*models.ShortLink, error) {
	normalized, err := NormalizeURL(originalURL)
	if err != nil {
		logger.Log.Debugw("rejected URL", "url", originalURL)
		return nil, err
	}

	link := &models.ShortLink{
		OriginalURL: normalized,
		OwnerID:     ownerID,
	}

	if expiresAt != nil && strings.TrimSpace(*expiresAt) != "" {
		endOfDay, err := ParseExpiry(*expiresAt, s.location)
		if err != nil {
			logger.Log.Debugw("rejected expiry date", "expiresAt", *expiresAt)
			return nil, err
		}
		link.ExpiresAt = &endOfDay
	}

	if err := s.insertWithFreshCode(ctx, link); err != nil {
		return nil, err
	}

	owner := metrics.OwnerAnonymous
	if ownerID != nil {
		owner = metrics.OwnerUser
	}
	metrics.ShortLinksCreatedTotal.WithLabelValues(owner).Inc()
	logger.Log.Infow("short link created", "code", link.ShortCode, "owner", owner)

	return link, nil
}

func (s *LinkService) insertWithFreshCode(ctx context.Context, link *models.ShortLink) error {
	for i := 0; i < TriesToGenerateUniqueCode; i++ {
		code, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("in internal/service/links.go/insertWithFreshCode(): error while `s.codes.Generate()` calling: %w", err)
		}
		link.ShortCode = code

		err = s.db.InsertShortLink(ctx, link)
		if errors.Is(err, models.ErrShortCodeTaken) {
			logger.Log.Debugw("short code collision, regenerating", "code", code, "attempt", i+1)
			continue
		}
		if err != nil {
			return fmt.Errorf("in internal/service/links.go/insertWithFreshCode(): error while `s.db.InsertShortLink()` calling: %w", err)
		}

		return nil
	}

	return apperr.Conflict("could not allocate a unique short code, please try again")
}

// ListForOwner returns the owner's unexpired links with their click counts.
func (s *LinkService) ListForOwner(ctx context.Context, ownerID int64) ([]models.ShortLinkListItem, error) {
	links, err := s.db.GetOwnerShortLinks(ctx, ownerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("in internal/service/links.go/ListForOwner(): error while `s.db.GetOwnerShortLinks()` calling: %w", err)
	}

	return funk.Map(links, func(link models.ShortLinkWithClicks) models.ShortLinkListItem {
		return models.ShortLinkListItem{
			ShortLink:   link.ShortLink,
			ClickCount:  link.ClickCount,
			RedirectURL: s.RedirectURL(link.ShortCode),
		}
	}).([]models.ShortLinkListItem), nil
}

// ResolveForRedirect finds the unexpired link for code. Expired and unknown
// codes are indistinguishable: both are NotFound.
func (s *LinkService) ResolveForRedirect(ctx context.Context, code string) (*models.ShortLink, error) {
	link, found, err := s.db.FindActiveShortLinkByCode(ctx, code, s.now())
	if err != nil {
		return nil, fmt.Errorf("in internal/service/links.go/ResolveForRedirect(): error while `s.db.FindActiveShortLinkByCode()` calling: %w", err)
	}
	if !found {
		return nil, apperr.NotFound("short URL not found")
	}

	return link, nil
}

// GetOriginalURL returns the stored URL for code without looking at expiry.
func (s *LinkService) GetOriginalURL(ctx context.Context, code string) (string, error) {
	link, found, err := s.db.FindShortLinkByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("in internal/service/links.go/GetOriginalURL(): error while `s.db.FindShortLinkByCode()` calling: %w", err)
	}
	if !found {
		logger.Log.Debugw("lookup of unknown short code", "code", code)
		return "", apperr.NotFound("URL not found")
	}

	return link.OriginalURL, nil
}

// Remove deletes linkID if requesterID owns it. Clicks are removed with the link.
func (s *LinkService) Remove(ctx context.Context, linkID, requesterID int64) error {
	link, found, err := s.db.FindShortLinkByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("in internal/service/links.go/Remove(): error while `s.db.FindShortLinkByID()` calling: %w", err)
	}
	if !found {
		return apperr.NotFound("URL not found")
	}
	if !link.IsOwnedBy(requesterID) {
		logger.Log.Infow("refused to delete a foreign link", "link_id", linkID, "requester_id", requesterID)
		return apperr.Forbidden("access denied: the URL belongs to another user")
	}

	if err := s.db.DeleteShortLink(ctx, linkID); err != nil {
		return fmt.Errorf("in internal/service/links.go/Remove(): error while `s.db.DeleteShortLink()` calling: %w", err)
	}

	return nil
}

// RedirectURL is the public URL that redirects to the link with code.
func (s *LinkService) RedirectURL(code string) string {
	return s.shortURLBase + "/" + code
}

// ToResponse decorates link with its redirect URL.
func (s *LinkService) ToResponse(link *models.ShortLink) models.ShortLinkResponse {
	return models.ShortLinkResponse{
		ShortLink:   *link,
		RedirectURL: s.RedirectURL(link.ShortCode),
	}
}

// NormalizeURL trims raw, prefixes "https://" unless it already starts with
// "http://" or "https://", and checks that the result is an absolute URL.
func NormalizeURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", apperr.Validation("the submitted URL is invalid")
	}

	return candidate, nil
}

// ParseExpiry reads raw as a calendar date (a full timestamp is also accepted,
// only its date in location counts) and returns the last millisecond of that
// day in location.
func ParseExpiry(raw string, location *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		parsed, err := time.ParseInLocation(layout, raw, location)
		if err != nil {
			continue
		}
		year, month, day := parsed.In(location).Date()

		return time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), location), nil
	}

	return time.Time{}, apperr.Validation("invalid expiration date, use the YYYY-MM-DD format")
}
