// Package services: HistoryService.
//
// This file implements the HistoryService, which owns the pagination engine
// for the two paged content kinds: the raw per-user search log and the
// aggregated "most searched" statistics. It computes page boundaries from
// the unwindowed total, fetches one window from the repository, and rounds
// stat averages for display.
//
// Service-level errors (e.g., ErrUserNotFound) are returned for predictable
// cases so the bot layer can map them to user-visible notices consistently.
package services

import (
	"context"
	"math"

	"gorm.io/gorm"

	"github.com/Shi-Van/cinema-bot/internal/domain"
	"github.com/Shi-Van/cinema-bot/internal/paging"
)

// UserRepo defines the user persistence contract required by HistoryService.
type UserRepo interface {
	// GetOrCreateUser resolves a user by Telegram id, creating the row on
	// first contact.
	GetOrCreateUser(ctx context.Context, db *gorm.DB, telegramID int64, username *string) (*domain.User, error)

	// GetUserByTelegramID resolves a user by Telegram id, or repo.ErrNotFound.
	GetUserByTelegramID(ctx context.Context, db *gorm.DB, telegramID int64) (*domain.User, error)
}

// HistoryRepo defines the history persistence contract required by
// HistoryService.
type HistoryRepo interface {
	// CreateSearchHistory appends one resolved lookup to the user's log.
	CreateSearchHistory(ctx context.Context, db *gorm.DB, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error)

	// CountHistory returns the unwindowed number of history rows.
	CountHistory(ctx context.Context, db *gorm.DB, userID int64) (int64, error)

	// ListHistoryPage returns one newest-first window of history rows.
	ListHistoryPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.SearchHistory, error)

	// CountStats returns the unwindowed number of distinct movie groups.
	CountStats(ctx context.Context, db *gorm.DB, userID int64) (int64, error)

	// ListStatsPage returns one window of aggregated groups ordered by
	// descending occurrence count.
	ListStatsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.MovieStat, error)
}

// HistoryService provides identity resolution, history appends, and the
// paged reads behind the /history and /stats views.
type HistoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Users is the user repository used by this service.
	Users UserRepo
	// History is the history repository used by this service.
	History HistoryRepo

	// PerPage is the page window size; defaults to 5.
	PerPage int
}

// NewHistoryService constructs a HistoryService with the default window size.
func NewHistoryService(db *gorm.DB, users UserRepo, history HistoryRepo) *HistoryService {
	return &HistoryService{
		DB:      db,
		Users:   users,
		History: history,
		PerPage: 5,
	}
}

// EnsureUser resolves the acting user, creating the row on first contact.
func (s *HistoryService) EnsureUser(ctx context.Context, telegramID int64, username *string) (*domain.User, error) {
	return s.Users.GetOrCreateUser(ctx, s.DB, telegramID, username)
}

// ResolveUser resolves an already-known user or returns ErrUserNotFound.
func (s *HistoryService) ResolveUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	u, err := s.Users.GetUserByTelegramID(ctx, s.DB, telegramID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Append records one resolved movie lookup for the user.
func (s *HistoryService) Append(ctx context.Context, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error) {
	return s.History.CreateSearchHistory(ctx, s.DB, userID, query, movieID, movieTitle, movieURL, movieRating)
}

// HistoryPage returns one window of the user's search log, newest first,
// plus the total page count computed from the unwindowed row count.
// Pages outside [1, total] yield an empty window with the true total, so
// the caller can distinguish a stale request from genuinely empty content.
func (s *HistoryService) HistoryPage(ctx context.Context, userID int64, page int) ([]domain.SearchHistory, int, error) {
	perPage := s.perPage()

	total, err := s.History.CountHistory(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	totalPages := paging.TotalPages(total, perPage)

	items, err := s.History.ListHistoryPage(ctx, s.DB, userID, paging.Offset(page, perPage), perPage)
	if err != nil {
		return nil, 0, err
	}
	return items, totalPages, nil
}

// StatsPage returns one window of the user's aggregated lookups ordered by
// descending search count, plus the total page count over distinct groups.
// Averages are rounded to one decimal place for display.
func (s *HistoryService) StatsPage(ctx context.Context, userID int64, page int) ([]domain.MovieStat, int, error) {
	perPage := s.perPage()

	total, err := s.History.CountStats(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	totalPages := paging.TotalPages(total, perPage)

	items, err := s.History.ListStatsPage(ctx, s.DB, userID, paging.Offset(page, perPage), perPage)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if items[i].AvgRating != nil {
			r := math.Round(*items[i].AvgRating*10) / 10
			items[i].AvgRating = &r
		}
	}
	return items, totalPages, nil
}

func (s *HistoryService) perPage() int {
	if s.PerPage < 1 {
		return 5
	}
	return s.PerPage
}
