// Package domain defines the persistence models for users and their movie
// search history, plus the transient catalog record shape. The persisted
// types are mapped with GORM and form the core data layer of the bot.
package domain

import "time"

// User represents a Telegram account known to the bot. Users are created
// lazily on first contact and never deleted or mutated afterwards.
//
// Fields:
//   - ID: surrogate auto-increment primary key.
//   - TelegramID: immutable Telegram account id; unique.
//   - Username: optional Telegram handle at the time of first contact.
//   - CreatedAt: timestamp managed by GORM.
type User struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	TelegramID int64     `json:"telegram_id" gorm:"not null;uniqueIndex:ux_users_telegram_id"`
	Username   *string   `json:"username,omitempty" gorm:"type:varchar(32)"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SearchHistory represents one resolved movie lookup. Rows are append-only:
// the history listing orders them by recency and the stats view groups them
// by (movie id, title, url).
//
// Fields:
//   - ID: surrogate auto-increment primary key.
//   - UserID: foreign key to the owning user (indexed).
//   - Query: first line of the prompt that led to the selection.
//   - MovieID: external catalog id, stored as text.
//   - MovieTitle: title at the time of the lookup.
//   - MovieURL: optional watch link.
//   - MovieRating: optional catalog rating at lookup time.
//   - CreatedAt: timestamp managed by GORM.
type SearchHistory struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID      int64     `json:"user_id"      gorm:"not null;index:idx_history_user"`
	Query       string    `json:"query"        gorm:"type:varchar(255);not null"`
	MovieID     string    `json:"movie_id"     gorm:"type:varchar(255);not null"`
	MovieTitle  string    `json:"movie_title"  gorm:"type:varchar(255);not null"`
	MovieURL    *string   `json:"movie_url,omitempty"    gorm:"type:varchar(512)"`
	MovieRating *float64  `json:"movie_rating,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// User is the owning account. History rows are cascade-deleted if the
	// user row is ever removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SearchHistory.
func (SearchHistory) TableName() string { return "search_history" }

// MovieStat is one aggregated row of the per-user "most searched" view.
// It is a query projection, not a table.
type MovieStat struct {
	MovieID     string   `json:"movie_id"`
	MovieTitle  string   `json:"movie_title"`
	MovieURL    *string  `json:"movie_url,omitempty"`
	AvgRating   *float64 `json:"avg_rating,omitempty"`
	SearchCount int64    `json:"search_count"`
}

// Movie is the normalized shape of one catalog record. It is built fresh
// from a catalog response and discarded after rendering or history insertion.
type Movie struct {
	ID               int
	Title            string
	OriginalTitle    string
	Year             int
	Rating           float64
	PosterURL        string
	Description      string
	ShortDescription string
	Genres           []string
	Countries        []string
	Length           int
	AgeRating        int
	Type             string
	Votes            map[string]int
	ExternalIDs      map[string]string
}

// IsSeries reports whether the record describes a TV series rather than a film.
func (m Movie) IsSeries() bool { return m.Type == "tv-series" }
