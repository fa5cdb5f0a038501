// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SearchHistory model: append, counted page reads, and the grouped
// "most searched" aggregation.
package repo

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Shi-Van/cinema-bot/internal/domain"
)

// Column width limits mirror the schema varchar sizes.
const (
	maxTextLen = 255
	maxURLLen  = 512
)

// CreateSearchHistory inserts one history row for the user. Text fields are
// clipped to their column widths by rune length so oversized catalog data
// cannot fail the insert.
func CreateSearchHistory(ctx context.Context, db *gorm.DB, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error) {
	h := &domain.SearchHistory{
		UserID:      userID,
		Query:       clip(query, maxTextLen),
		MovieID:     clip(movieID, maxTextLen),
		MovieTitle:  clip(movieTitle, maxTextLen),
		MovieRating: movieRating,
		CreatedAt:   time.Now().UTC(),
	}
	if movieURL != nil {
		u := clip(*movieURL, maxURLLen)
		h.MovieURL = &u
	}
	return h, db.WithContext(ctx).Create(h).Error
}

// CountHistory returns the total number of history rows for the user.
func CountHistory(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.SearchHistory{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// ListHistoryPage returns one window of history rows ordered newest-first
// (descending insertion order). Offsets past the end yield an empty slice.
func ListHistoryPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.SearchHistory, error) {
	var out []domain.SearchHistory
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountStats returns the number of distinct (movie_id, movie_title,
// movie_url) groups in the user's history.
func CountStats(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT movie_id
			FROM search_history
			WHERE user_id = ?
			GROUP BY movie_id, movie_title, movie_url
		)`, userID).Scan(&total).Error
	return total, err
}

// ListStatsPage returns one window of aggregated history groups ordered by
// descending occurrence count. AVG ignores NULL ratings, so AvgRating is nil
// only when no row in the group carries a rating.
func ListStatsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.MovieStat, error) {
	var out []domain.MovieStat
	err := db.WithContext(ctx).Raw(`
		SELECT movie_id,
		       movie_title,
		       movie_url,
		       AVG(movie_rating) AS avg_rating,
		       COUNT(*)          AS search_count
		FROM search_history
		WHERE user_id = ?
		GROUP BY movie_id, movie_title, movie_url
		ORDER BY search_count DESC, movie_title ASC
		LIMIT ? OFFSET ?`, userID, limit, offset).Scan(&out).Error
	return out, err
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
