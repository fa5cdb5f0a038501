// Command bot runs the Telegram movie bot: long-polls Telegram for updates,
// looks movies up in the Kinopoisk catalog, and keeps per-user search history
// in a local SQLite database. An optional ops listener exposes /healthz and
// /metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Shi-Van/cinema-bot/internal/bot"
	"github.com/Shi-Van/cinema-bot/internal/config"
	"github.com/Shi-Van/cinema-bot/internal/domain"
	"github.com/Shi-Van/cinema-bot/internal/kinopoisk"
	"github.com/Shi-Van/cinema-bot/internal/observability"
	"github.com/Shi-Van/cinema-bot/internal/ops"
	"github.com/Shi-Van/cinema-bot/internal/repo"
	"github.com/Shi-Van/cinema-bot/internal/services"
	"github.com/Shi-Van/cinema-bot/internal/sysutil"
	"github.com/Shi-Van/cinema-bot/internal/texts"
)

const version = "1.0.0"

// userRepoShim adapts the repo package's free functions to the service
// contract.
type userRepoShim struct{}

func (userRepoShim) GetOrCreateUser(ctx context.Context, db *gorm.DB, telegramID int64, username *string) (*domain.User, error) {
	return repo.GetOrCreateUser(ctx, db, telegramID, username)
}

func (userRepoShim) GetUserByTelegramID(ctx context.Context, db *gorm.DB, telegramID int64) (*domain.User, error) {
	return repo.GetUserByTelegramID(ctx, db, telegramID)
}

type historyRepoShim struct{}

func (historyRepoShim) CreateSearchHistory(ctx context.Context, db *gorm.DB, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error) {
	return repo.CreateSearchHistory(ctx, db, userID, query, movieID, movieTitle, movieURL, movieRating)
}

func (historyRepoShim) CountHistory(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	return repo.CountHistory(ctx, db, userID)
}

func (historyRepoShim) ListHistoryPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.SearchHistory, error) {
	return repo.ListHistoryPage(ctx, db, userID, offset, limit)
}

func (historyRepoShim) CountStats(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	return repo.CountStats(ctx, db, userID)
}

func (historyRepoShim) ListStatsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.MovieStat, error) {
	return repo.ListStatsPage(ctx, db, userID, offset, limit)
}

func main() {
	// .env is optional; real deployments pass the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	lg := log.With().Str("service", "cinema-bot").Str("version", version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		lg.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		lg.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		lg.Fatal().Err(err).Msg("migration failed")
	}

	store := services.NewHistoryService(db, userRepoShim{}, historyRepoShim{})
	store.PerPage = cfg.PerPage

	catalog := kinopoisk.New(cfg.KinopoiskBaseURL, cfg.KinopoiskToken,
		&http.Client{Timeout: 15 * time.Second}, lg)

	txt := texts.Load(cfg.TextsDir, lg)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		lg.Fatal().Err(err).Msg("telegram login failed")
	}
	lg.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")

	var opsSrv *ops.Server
	if cfg.Ops.Enabled {
		opsSrv = ops.NewServer(cfg.Ops.Port, cfg.Ops.GinMode, lg)
		go opsSrv.Start()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.UpdateTimeout.Seconds())
	updates := api.GetUpdatesChan(u)

	b := bot.New(api, catalog, store, txt, cfg.SearchLimit, lg)
	b.Run(ctx, updates)

	// Run returned: the context is done, drain everything else.
	api.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if opsSrv != nil {
		if err := opsSrv.Shutdown(shutdownCtx); err != nil {
			lg.Error().Err(err).Msg("ops shutdown failed")
		}
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("otel shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	lg.Info().Msg("bye")
}
