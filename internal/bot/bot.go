// Update routing. One long-poll loop pulls Telegram updates; every update
// is dispatched through a recover guard with an update-scoped logger and
// trace span, so no handler fault can stop the loop.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shi-Van/cinema-bot/internal/domain"
	"github.com/Shi-Van/cinema-bot/internal/metrics"
	"github.com/Shi-Van/cinema-bot/internal/texts"
)

// fallbackQuery is recorded when the originating selection-list text is
// unavailable.
const fallbackQuery = "Поиск"

// Transport is the slice of the Telegram API the router needs. It is
// satisfied by *tgbotapi.BotAPI.
type Transport interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Catalog is the movie lookup boundary. Both calls degrade to an
// empty/absent result on failure, never an error.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) []domain.Movie
	ByID(ctx context.Context, id int) (domain.Movie, bool)
}

// HistoryStore is the persistence boundary consumed by the router. It is
// satisfied by *services.HistoryService.
type HistoryStore interface {
	EnsureUser(ctx context.Context, telegramID int64, username *string) (*domain.User, error)
	ResolveUser(ctx context.Context, telegramID int64) (*domain.User, error)
	Append(ctx context.Context, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error)
	HistoryPage(ctx context.Context, userID int64, page int) ([]domain.SearchHistory, int, error)
	StatsPage(ctx context.Context, userID int64, page int) ([]domain.MovieStat, int, error)
}

// Bot dispatches inbound updates to the command, search, selection, and
// pagination handlers. It keeps no per-conversation state; everything a
// handler needs travels in the update or lives in the store.
type Bot struct {
	api         Transport
	catalog     Catalog
	store       HistoryStore
	texts       *texts.Store
	log         zerolog.Logger
	searchLimit int
	tracer      trace.Tracer
}

// New constructs a Bot.
func New(api Transport, catalog Catalog, store HistoryStore, txt *texts.Store, searchLimit int, log zerolog.Logger) *Bot {
	if searchLimit < 1 {
		searchLimit = 5
	}
	return &Bot{
		api:         api,
		catalog:     catalog,
		store:       store,
		texts:       txt,
		log:         log,
		searchLimit: searchLimit,
		tracer:      otel.Tracer("github.com/Shi-Van/cinema-bot/internal/bot"),
	}
}

// Run consumes updates until ctx is cancelled. Each update is handled in
// its own goroutine; updates for unrelated chats carry no ordering
// guarantee between each other.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info().Msg("update loop started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("update loop stopping")
			return
		case upd, ok := <-updates:
			if !ok {
				b.log.Info().Msg("update channel closed")
				return
			}
			go b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update. All faults are contained here: panics
// are recovered and logged, and every failure path ends in a transient
// user-visible notice at worst.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	event := classify(upd)
	lg := b.log.With().
		Str("update_id", uuid.NewString()).
		Str("event", event).
		Logger()

	ctx, span := b.tracer.Start(ctx, "bot.update",
		trace.WithAttributes(attribute.String("bot.event", event)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrorsTotal.WithLabelValues(event).Inc()
			lg.Error().Interface("panic", r).Msg("handler panicked")
			if upd.CallbackQuery != nil {
				b.alert(upd.CallbackQuery.ID, "Произошла ошибка при обработке запроса")
			}
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, lg, upd.Message)
	case upd.Message != nil:
		b.handleSearch(ctx, lg, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, lg, upd.CallbackQuery)
	}
}

func classify(upd tgbotapi.Update) string {
	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		return "command"
	case upd.Message != nil:
		return "search"
	case upd.CallbackQuery != nil:
		if strings.HasPrefix(upd.CallbackQuery.Data, tagMovie+tokenSep) {
			return "movie"
		}
		return "pagination"
	default:
		return "other"
	}
}

// ---- command / text events ----

func (b *Bot) handleCommand(ctx context.Context, lg zerolog.Logger, msg *tgbotapi.Message) {
	if msg.From == nil {
		lg.Warn().Msg("command without sender")
		return
	}
	lg = lg.With().Int64("telegram_id", msg.From.ID).Str("command", msg.Command()).Logger()

	switch msg.Command() {
	case "start":
		if _, err := b.store.EnsureUser(ctx, msg.From.ID, username(msg.From)); err != nil {
			b.fail(lg, "command", msg.Chat.ID, err, "ensure user failed")
			return
		}
		b.reply(lg, msg.Chat.ID, b.texts.Get("start"))
	case "help":
		b.reply(lg, msg.Chat.ID, b.texts.Get("help"))
	case "history":
		b.showFirstPage(ctx, lg, msg, KindHistory)
	case "stats":
		b.showFirstPage(ctx, lg, msg, KindStats)
	default:
		// Unknown commands fall through to search, like any other text.
		b.handleSearch(ctx, lg, msg)
	}
}

// showFirstPage renders page 1 of a paged view as a new message with the
// button set matching page 1's position in the sequence.
func (b *Bot) showFirstPage(ctx context.Context, lg zerolog.Logger, msg *tgbotapi.Message, kind ContentKind) {
	user, err := b.store.EnsureUser(ctx, msg.From.ID, username(msg.From))
	if err != nil {
		b.fail(lg, "command", msg.Chat.ID, err, "ensure user failed")
		return
	}

	text, kb, err := b.renderPage(ctx, kind, user.ID, 1)
	if err != nil {
		b.fail(lg, "command", msg.Chat.ID, err, "page fetch failed")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.DisableWebPagePreview = true
	if len(kb.InlineKeyboard) > 0 {
		out.ReplyMarkup = kb
	}
	if _, err := b.api.Send(out); err != nil {
		lg.Error().Err(err).Msg("sending paged view failed")
	}
}

func (b *Bot) handleSearch(ctx context.Context, lg zerolog.Logger, msg *tgbotapi.Message) {
	if msg.From == nil {
		lg.Warn().Msg("message without sender")
		return
	}
	lg = lg.With().Int64("telegram_id", msg.From.ID).Logger()

	if _, err := b.store.EnsureUser(ctx, msg.From.ID, username(msg.From)); err != nil {
		b.fail(lg, "search", msg.Chat.ID, err, "ensure user failed")
		return
	}

	movies := b.catalog.Search(ctx, msg.Text, b.searchLimit)
	if len(movies) == 0 {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		b.reply(lg, msg.Chat.ID, b.texts.Get("nothing_found"))
		return
	}
	metrics.SearchesTotal.WithLabelValues("found").Inc()

	out := tgbotapi.NewMessage(msg.Chat.ID, b.texts.Get("choose_movie"))
	out.ReplyMarkup = SelectionKeyboard(movies)
	if _, err := b.api.Send(out); err != nil {
		lg.Error().Err(err).Msg("sending selection list failed")
	}
}

// ---- callback events ----

// handleCallback decodes the token and dispatches on its family. A token
// that matches neither shape is logged and acknowledged with an alert; it
// never propagates.
func (b *Bot) handleCallback(ctx context.Context, lg zerolog.Logger, cb *tgbotapi.CallbackQuery) {
	tok, err := ParseCallback(cb.Data)
	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("pagination").Inc()
		lg.Warn().Err(err).Str("data", cb.Data).Msg("undecodable callback token")
		b.alert(cb.ID, "Некорректные данные кнопки")
		return
	}

	switch t := tok.(type) {
	case MovieToken:
		b.handleMovieSelect(ctx, lg, cb, t)
	case PaginationToken:
		b.handlePagination(ctx, lg, cb, t)
	}
}

func (b *Bot) handleMovieSelect(ctx context.Context, lg zerolog.Logger, cb *tgbotapi.CallbackQuery, tok MovieToken) {
	lg = lg.With().Int64("telegram_id", cb.From.ID).Int("movie_id", tok.MovieID).Logger()

	if cb.Message == nil {
		b.alert(cb.ID, "Сообщение не найдено")
		return
	}

	movie, ok := b.catalog.ByID(ctx, tok.MovieID)
	if !ok {
		metrics.HandlerErrorsTotal.WithLabelValues("movie").Inc()
		b.alert(cb.ID, "Не удалось получить информацию о фильме")
		return
	}

	user, err := b.store.ResolveUser(ctx, cb.From.ID)
	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("movie").Inc()
		lg.Warn().Err(err).Msg("acting user missing mid-flow")
		b.alert(cb.ID, "Пользователь не найден")
		return
	}

	// The first line of the selection-list message is the best record of
	// what the user originally asked for.
	query := fallbackQuery
	if cb.Message.Text != "" {
		query = strings.SplitN(cb.Message.Text, "\n", 2)[0]
	}

	url := WatchURL(movie.ID)
	var rating *float64
	if movie.Rating != 0 {
		r := movie.Rating
		rating = &r
	}
	if _, err := b.store.Append(ctx, user.ID, query, strconv.Itoa(movie.ID), movie.Title, &url, rating); err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("movie").Inc()
		lg.Error().Err(err).Msg("recording history entry failed")
		b.alert(cb.ID, "Произошла ошибка при получении информации о фильме")
		return
	}

	metrics.SelectionsTotal.Inc()
	b.showDetail(lg, cb, movie)
	b.ack(cb.ID)
}

// showDetail replaces the selection list with the detail view: the richer
// image-backed rendering first, falling back to an in-place text edit so
// the message is never left inconsistent.
func (b *Bot) showDetail(lg zerolog.Logger, cb *tgbotapi.CallbackQuery, movie domain.Movie) {
	text := FormatMovieDetail(movie)
	kb := DetailKeyboard(movie.ID)

	if movie.PosterURL != "" {
		photo := tgbotapi.NewPhoto(cb.Message.Chat.ID, tgbotapi.FileURL(movie.PosterURL))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		if _, err := b.api.Send(photo); err != nil {
			lg.Error().Err(err).Msg("sending poster failed, falling back to text edit")
		} else {
			if _, err := b.api.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)); err != nil {
				lg.Warn().Err(err).Msg("deleting selection list failed")
			}
			return
		}
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, kb)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		lg.Error().Err(err).Msg("editing detail view failed")
	}
}

func (b *Bot) handlePagination(ctx context.Context, lg zerolog.Logger, cb *tgbotapi.CallbackQuery, tok PaginationToken) {
	lg = lg.With().
		Int64("telegram_id", cb.From.ID).
		Str("kind", string(tok.Kind)).
		Int("page", tok.Target()).
		Logger()

	if cb.Message == nil {
		b.alert(cb.ID, "Сообщение не найдено")
		return
	}

	user, err := b.store.ResolveUser(ctx, cb.From.ID)
	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("pagination").Inc()
		lg.Warn().Err(err).Msg("acting user missing mid-flow")
		b.alert(cb.ID, "Пользователь не найден")
		return
	}

	target := tok.Target()
	text, kb, err := b.renderPage(ctx, tok.Kind, user.ID, target)
	if err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues("pagination").Inc()
		if errors.Is(err, errEmptyWindow) {
			// A stale keyboard or out-of-range token asked for a window the
			// store cannot fill. Leave the current page on screen.
			lg.Warn().Msg("navigation target yields no content")
		} else {
			lg.Error().Err(err).Msg("page fetch failed")
		}
		b.alert(cb.ID, "Ошибка при получении контента")
		return
	}

	metrics.PaginationTotal.WithLabelValues(string(tok.Kind)).Inc()

	edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, kb)
	edit.DisableWebPagePreview = true
	if _, err := b.api.Send(edit); err != nil {
		lg.Error().Err(err).Msg("editing paged view failed")
	}
	b.ack(cb.ID)
}

// errEmptyWindow marks a pagination target whose window came back empty
// while the view itself is not empty.
var errEmptyWindow = errors.New("page window is empty")

// renderPage fetches and formats one page of the given kind. When invoked
// for a navigation target (page != 1) an empty window is an error: page 1
// is the only page that may legitimately render empty content.
func (b *Bot) renderPage(ctx context.Context, kind ContentKind, userID int64, page int) (string, tgbotapi.InlineKeyboardMarkup, error) {
	var (
		text       string
		count      int
		totalPages int
	)

	switch kind {
	case KindHistory:
		items, tp, err := b.store.HistoryPage(ctx, userID, page)
		if err != nil {
			return "", tgbotapi.InlineKeyboardMarkup{}, err
		}
		text, count, totalPages = FormatHistoryPage(items, page, tp), len(items), tp
	case KindStats:
		items, tp, err := b.store.StatsPage(ctx, userID, page)
		if err != nil {
			return "", tgbotapi.InlineKeyboardMarkup{}, err
		}
		text, count, totalPages = FormatStatsPage(items, page, tp), len(items), tp
	}

	if count == 0 && page != 1 {
		return "", tgbotapi.InlineKeyboardMarkup{}, errEmptyWindow
	}
	return text, PaginationKeyboard(kind, page, totalPages), nil
}

// ---- transport helpers ----

// reply sends a plain text message; send failures are logged, not surfaced.
func (b *Bot) reply(lg zerolog.Logger, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		lg.Error().Err(err).Msg("sending reply failed")
	}
}

// fail logs a handler fault, bumps the error counter, and tells the user.
func (b *Bot) fail(lg zerolog.Logger, event string, chatID int64, err error, msg string) {
	metrics.HandlerErrorsTotal.WithLabelValues(event).Inc()
	lg.Error().Err(err).Msg(msg)
	b.reply(lg, chatID, "Произошла ошибка, попробуйте позже")
}

// alert shows a transient popup on the user's client.
func (b *Bot) alert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		b.log.Warn().Err(err).Msg("answering callback with alert failed")
	}
}

// ack answers a callback without any notice.
func (b *Bot) ack(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.log.Warn().Err(err).Msg("acknowledging callback failed")
	}
}

func username(u *tgbotapi.User) *string {
	if u == nil || u.UserName == "" {
		return nil
	}
	name := u.UserName
	return &name
}
