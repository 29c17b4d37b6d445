package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/metrics"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// ClickRecorder writes click rows and counts them.
type ClickRecorder struct {
	db  clickStorage
	now func() time.Time
}

// NewClickRecorder creates a ClickRecorder on top of db.
func NewClickRecorder(db clickStorage, optionsProto ...Option) *ClickRecorder {
	return &ClickRecorder{
		db:  db,
		now: buildOptions(optionsProto).now,
	}
}

// Track records one click on the link with code. Unknown codes are ignored.
// Empty ip and userAgent are stored as absent.
func (c *ClickRecorder) Track(ctx context.Context, code, ip, userAgent string) error {
	link, found, err := c.db.FindShortLinkByCode(ctx, code)
	if err != nil {
		metrics.ClickRecordFailuresTotal.Inc()
		return fmt.Errorf("in internal/service/clicks.go/Track(): error while `c.db.FindShortLinkByCode()` calling: %w", err)
	}
	if !found {
		logger.Log.Debugw("click on unknown short code ignored", "code", code)
		return nil
	}

	click := &models.Click{
		ShortLinkID: link.ID,
		ClickedAt:   c.now(),
		IPAddress:   optionalString(ip),
		UserAgent:   optionalString(userAgent),
	}

	err = c.db.InsertClick(ctx, click)
	if errors.Is(err, models.ErrLinkMissing) {
		logger.Log.Debugw("link deleted before its click was recorded", "code", code)
		return nil
	}
	if err != nil {
		metrics.ClickRecordFailuresTotal.Inc()
		return fmt.Errorf("in internal/service/clicks.go/Track(): error while `c.db.InsertClick()` calling: %w", err)
	}

	metrics.ClicksRecordedTotal.Inc()

	return nil
}

// Count returns the number of clicks recorded for code, 0 for unknown codes.
func (c *ClickRecorder) Count(ctx context.Context, code string) (int64, error) {
	count, err := c.db.CountClicksByCode(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("in internal/service/clicks.go/Count(): error while `c.db.CountClicksByCode()` calling: %w", err)
	}

	return count, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
