// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Shi-Van/cinema-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrCreateUser returns the user identified by the Telegram account id,
// inserting a new row on first contact. The username is only recorded at
// creation time; existing rows are never mutated.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, telegramID int64, username *string) (*domain.User, error) {
	u, err := GetUserByTelegramID(ctx, db, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u = &domain.User{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		// A concurrent first contact can win the unique-index race; re-read.
		if existing, rerr := GetUserByTelegramID(ctx, db, telegramID); rerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return u, nil
}

// GetUserByTelegramID fetches a user by Telegram account id, or ErrNotFound.
func GetUserByTelegramID(ctx context.Context, db *gorm.DB, telegramID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
