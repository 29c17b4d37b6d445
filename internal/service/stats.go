package service

import (
	"context"
	"fmt"

	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// StatsService reports service-wide totals and storage health.
type StatsService struct {
	db statsStorage
}

// NewStatsService creates a StatsService on top of db.
func NewStatsService(db statsStorage) *StatsService {
	return &StatsService{db: db}
}

// Totals counts links, users and clicks.
func (s *StatsService) Totals(ctx context.Context) (*models.InternalStatsResponse, error) {
	links, err := s.db.GetNumberOfShortLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/stats.go/Totals(): error while `s.db.GetNumberOfShortLinks()` calling: %w", err)
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/stats.go/Totals(): error while `s.db.GetNumberOfUsers()` calling: %w", err)
	}

	clicks, err := s.db.GetNumberOfClicks(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/stats.go/Totals(): error while `s.db.GetNumberOfClicks()` calling: %w", err)
	}

	return &models.InternalStatsResponse{
		Links:  links,
		Users:  users,
		Clicks: clicks,
	}, nil
}

// Ping checks the storage connection.
func (s *StatsService) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("in internal/service/stats.go/Ping(): error while `s.db.Ping()` calling: %w", err)
	}

	return nil
}
