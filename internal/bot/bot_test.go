package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Shi-Van/cinema-bot/internal/domain"
	"github.com/Shi-Van/cinema-bot/internal/texts"
)

// ----- Fakes -----

type fakeTransport struct {
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	failPhoto bool
	failEdit  bool
}

func (f *fakeTransport) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch c.(type) {
	case tgbotapi.PhotoConfig:
		if f.failPhoto {
			return tgbotapi.Message{}, errors.New("photo rejected")
		}
	case tgbotapi.EditMessageTextConfig:
		if f.failEdit {
			return tgbotapi.Message{}, errors.New("edit rejected")
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 99}, nil
}

func (f *fakeTransport) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTransport) alerts() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, r := range f.requests {
		if cb, ok := r.(tgbotapi.CallbackConfig); ok && cb.ShowAlert {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeTransport) acks() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, r := range f.requests {
		if cb, ok := r.(tgbotapi.CallbackConfig); ok && !cb.ShowAlert {
			out = append(out, cb)
		}
	}
	return out
}

type fakeCatalog struct {
	results  []domain.Movie
	detail   domain.Movie
	detailOK bool

	gotQuery string
	gotLimit int
	gotID    int
}

func (f *fakeCatalog) Search(ctx context.Context, query string, limit int) []domain.Movie {
	f.gotQuery, f.gotLimit = query, limit
	return f.results
}

func (f *fakeCatalog) ByID(ctx context.Context, id int) (domain.Movie, bool) {
	f.gotID = id
	return f.detail, f.detailOK
}

type fakeStore struct {
	user          *domain.User
	ensureErr     error
	resolveErr    error
	panicOnEnsure bool

	appendUserID int64
	appendQuery  string
	appendURL    *string
	appendRating *float64
	appendErr    error

	historyItems []domain.SearchHistory
	historyPages int
	historyErr   error
	historyPage  int

	statsItems []domain.MovieStat
	statsPages int
	statsErr   error
	statsPage  int
}

func (f *fakeStore) EnsureUser(ctx context.Context, telegramID int64, username *string) (*domain.User, error) {
	if f.panicOnEnsure {
		panic("store exploded")
	}
	return f.user, f.ensureErr
}

func (f *fakeStore) ResolveUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.user, nil
}

func (f *fakeStore) Append(ctx context.Context, userID int64, query, movieID, movieTitle string, movieURL *string, movieRating *float64) (*domain.SearchHistory, error) {
	f.appendUserID, f.appendQuery, f.appendURL, f.appendRating = userID, query, movieURL, movieRating
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	return &domain.SearchHistory{ID: 1, UserID: userID, Query: query}, nil
}

func (f *fakeStore) HistoryPage(ctx context.Context, userID int64, page int) ([]domain.SearchHistory, int, error) {
	f.historyPage = page
	return f.historyItems, f.historyPages, f.historyErr
}

func (f *fakeStore) StatsPage(ctx context.Context, userID int64, page int) ([]domain.MovieStat, int, error) {
	f.statsPage = page
	return f.statsItems, f.statsPages, f.statsErr
}

// ----- Helpers -----

func newTestTexts(t *testing.T) *texts.Store {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"start.txt":         "Привет! Я кинобот.",
		"help.txt":          "Команды: /history /stats",
		"nothing_found.txt": "По вашему запросу ничего не найдено 😔",
		"choose_movie.txt":  "Выберите фильм из списка:",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return texts.Load(dir, zerolog.Nop())
}

func newTestBot(t *testing.T, tr *fakeTransport, cat *fakeCatalog, st *fakeStore) *Bot {
	t.Helper()
	if st.user == nil {
		st.user = &domain.User{ID: 9, TelegramID: 42}
	}
	return New(tr, cat, st, newTestTexts(t), 5, zerolog.Nop())
}

func commandUpdate(cmd string) tgbotapi.Update {
	text := "/" + cmd
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 42, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: 1},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}}
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 42, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: 1},
	}}
}

func callbackUpdate(data, msgText string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		Data: data,
		From: &tgbotapi.User{ID: 42, UserName: "alice"},
		Message: &tgbotapi.Message{
			MessageID: 7,
			Text:      msgText,
			Chat:      &tgbotapi.Chat{ID: 1},
		},
	}}
}

func sentMessages(tr *fakeTransport) []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, c := range tr.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func sentEdits(tr *fakeTransport) []tgbotapi.EditMessageTextConfig {
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range tr.sent {
		if m, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

// ----- Command / text events -----

func TestStartCommand_SendsWelcome(t *testing.T) {
	tr := &fakeTransport{}
	b := newTestBot(t, tr, &fakeCatalog{}, &fakeStore{})

	b.HandleUpdate(context.Background(), commandUpdate("start"))

	msgs := sentMessages(tr)
	if len(msgs) != 1 || msgs[0].Text != "Привет! Я кинобот." {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
}

func TestHelpCommand_SendsHelp(t *testing.T) {
	tr := &fakeTransport{}
	b := newTestBot(t, tr, &fakeCatalog{}, &fakeStore{})

	b.HandleUpdate(context.Background(), commandUpdate("help"))

	msgs := sentMessages(tr)
	if len(msgs) != 1 || msgs[0].Text != "Команды: /history /stats" {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
}

func TestHistoryCommand_FirstPageWithNextOnly(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{
		historyItems: make([]domain.SearchHistory, 5),
		historyPages: 3,
	}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), commandUpdate("history"))

	if st.historyPage != 1 {
		t.Fatalf("requested page = %d; want 1", st.historyPage)
	}
	msgs := sentMessages(tr)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "страница 1 из 3") {
		t.Fatalf("page indicator missing: %q", msgs[0].Text)
	}
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 1 {
		t.Fatalf("expected a lone next button, got %#v", msgs[0].ReplyMarkup)
	}
	if *kb.InlineKeyboard[0][0].CallbackData != "pagination:history:next:1" {
		t.Fatalf("next token = %q", *kb.InlineKeyboard[0][0].CallbackData)
	}
}

func TestHistoryCommand_EmptyStoreRendersNoticeWithoutButtons(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{historyPages: 1}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), commandUpdate("history"))

	msgs := sentMessages(tr)
	if len(msgs) != 1 || msgs[0].Text != "История поиска пуста" {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
	if msgs[0].ReplyMarkup != nil {
		t.Fatalf("empty view must carry no keyboard: %#v", msgs[0].ReplyMarkup)
	}
}

func TestStatsCommand_FirstPage(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{
		statsItems: []domain.MovieStat{{MovieTitle: "Матрица", SearchCount: 2}},
		statsPages: 1,
	}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), commandUpdate("stats"))

	msgs := sentMessages(tr)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Статистика поиска (страница 1 из 1)") {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
}

func TestSearch_NoMatchesSendsFixedNotice(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{}
	b := newTestBot(t, tr, cat, &fakeStore{})

	b.HandleUpdate(context.Background(), textUpdate("несуществующий фильм"))

	if cat.gotQuery != "несуществующий фильм" || cat.gotLimit != 5 {
		t.Fatalf("catalog call = (%q, %d)", cat.gotQuery, cat.gotLimit)
	}
	msgs := sentMessages(tr)
	if len(msgs) != 1 || msgs[0].Text != "По вашему запросу ничего не найдено 😔" {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
	if msgs[0].ReplyMarkup != nil {
		t.Fatalf("no selection controls may render on empty search")
	}
}

func TestSearch_RendersSelectionList(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{results: []domain.Movie{
		{ID: 301, Title: "Матрица", Year: 1999, Rating: 8.5},
		{ID: 302, Title: "Матрица 2", Year: 2003},
	}}
	b := newTestBot(t, tr, cat, &fakeStore{})

	b.HandleUpdate(context.Background(), textUpdate("матрица"))

	msgs := sentMessages(tr)
	if len(msgs) != 1 || msgs[0].Text != "Выберите фильм из списка:" {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 selection rows, got %#v", msgs[0].ReplyMarkup)
	}
	if *kb.InlineKeyboard[0][0].CallbackData != "movie:301" {
		t.Fatalf("selection token = %q", *kb.InlineKeyboard[0][0].CallbackData)
	}
}

// ----- Callback events -----

func TestCallback_BadTokenAlertsAndDoesNotEdit(t *testing.T) {
	tr := &fakeTransport{}
	b := newTestBot(t, tr, &fakeCatalog{}, &fakeStore{})

	b.HandleUpdate(context.Background(), callbackUpdate("pagination:history:next:x", "whatever"))

	if len(tr.sent) != 0 {
		t.Fatalf("no message may be sent or edited on a bad token: %+v", tr.sent)
	}
	if len(tr.alerts()) != 1 {
		t.Fatalf("expected one alert, got %+v", tr.requests)
	}
}

func TestPagination_EditsInPlaceWithRecomputedButtons(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{
		historyItems: make([]domain.SearchHistory, 5),
		historyPages: 3,
	}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), callbackUpdate("pagination:history:next:1", "📝 История"))

	if st.historyPage != 2 {
		t.Fatalf("requested page = %d; want 2", st.historyPage)
	}
	edits := sentEdits(tr)
	if len(edits) != 1 {
		t.Fatalf("expected one edit, got %+v", tr.sent)
	}
	if edits[0].ChatID != 1 || edits[0].MessageID != 7 {
		t.Fatalf("edit must target the originating message: %+v", edits[0])
	}
	if !strings.Contains(edits[0].Text, "страница 2 из 3") {
		t.Fatalf("page indicator missing: %q", edits[0].Text)
	}
	kb := edits[0].ReplyMarkup
	if kb == nil || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("middle page must have prev and next: %#v", kb)
	}
	if len(tr.acks()) != 1 {
		t.Fatalf("callback must be acknowledged")
	}
}

func TestPagination_EmptyTargetAlertsAndLeavesMessage(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{historyItems: nil, historyPages: 3}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), callbackUpdate("pagination:history:next:3", "📝 История"))

	if len(sentEdits(tr)) != 0 {
		t.Fatalf("stale navigation must not replace content: %+v", tr.sent)
	}
	if len(tr.alerts()) != 1 {
		t.Fatalf("expected one alert, got %+v", tr.requests)
	}
}

func TestPagination_UserMissingAlerts(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{resolveErr: errors.New("user not found")}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	b.HandleUpdate(context.Background(), callbackUpdate("pagination:stats:next:1", "📊 Статистика"))

	if len(tr.sent) != 0 || len(tr.alerts()) != 1 {
		t.Fatalf("expected alert only: sent=%+v requests=%+v", tr.sent, tr.requests)
	}
}

// ----- Movie selection -----

func TestMovieSelect_NoPosterEditsInPlace(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{
		detail:   domain.Movie{ID: 301, Title: "Матрица", Rating: 8.5, Type: "movie"},
		detailOK: true,
	}
	st := &fakeStore{}
	b := newTestBot(t, tr, cat, st)

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", "Выберите фильм из списка:\nвторая строка"))

	if cat.gotID != 301 {
		t.Fatalf("catalog id = %d", cat.gotID)
	}
	// History append uses the first line of the originating message.
	if st.appendUserID != 9 || st.appendQuery != "Выберите фильм из списка:" {
		t.Fatalf("append = (%d, %q)", st.appendUserID, st.appendQuery)
	}
	if st.appendURL == nil || *st.appendURL != "https://www.sspoisk.ru/film/301/" {
		t.Fatalf("append url = %v", st.appendURL)
	}
	if st.appendRating == nil || *st.appendRating != 8.5 {
		t.Fatalf("append rating = %v", st.appendRating)
	}

	edits := sentEdits(tr)
	if len(edits) != 1 || !strings.Contains(edits[0].Text, "🎬 Матрица") {
		t.Fatalf("expected in-place detail edit, got %+v", tr.sent)
	}
	if len(tr.acks()) != 1 {
		t.Fatalf("callback must be acknowledged")
	}
}

func TestMovieSelect_EmptyMessageTextFallsBackToLiteralQuery(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{detail: domain.Movie{ID: 301, Title: "Матрица"}, detailOK: true}
	st := &fakeStore{}
	b := newTestBot(t, tr, cat, st)

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", ""))

	if st.appendQuery != "Поиск" {
		t.Fatalf("fallback query = %q", st.appendQuery)
	}
}

func TestMovieSelect_PosterSendsPhotoAndDeletesList(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{
		detail:   domain.Movie{ID: 301, Title: "Матрица", PosterURL: "https://img.example/301.jpg"},
		detailOK: true,
	}
	b := newTestBot(t, tr, cat, &fakeStore{})

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", "Выберите фильм из списка:"))

	var photos int
	for _, c := range tr.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			photos++
		}
	}
	if photos != 1 {
		t.Fatalf("expected one photo send, got %+v", tr.sent)
	}
	var deletes int
	for _, r := range tr.requests {
		if _, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("selection list must be deleted after the photo, got %+v", tr.requests)
	}
	if len(sentEdits(tr)) != 0 {
		t.Fatalf("no edit expected on the photo path: %+v", tr.sent)
	}
}

func TestMovieSelect_PosterFailureFallsBackToTextEdit(t *testing.T) {
	tr := &fakeTransport{failPhoto: true}
	cat := &fakeCatalog{
		detail:   domain.Movie{ID: 301, Title: "Матрица", PosterURL: "https://img.example/301.jpg"},
		detailOK: true,
	}
	b := newTestBot(t, tr, cat, &fakeStore{})

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", "Выберите фильм из списка:"))

	edits := sentEdits(tr)
	if len(edits) != 1 || !strings.Contains(edits[0].Text, "🎬 Матрица") {
		t.Fatalf("expected fallback edit, got %+v", tr.sent)
	}
	for _, r := range tr.requests {
		if _, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			t.Fatalf("original message must survive a failed photo send")
		}
	}
}

func TestMovieSelect_CatalogFailureAlertsAndLeavesMessage(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{detailOK: false}
	st := &fakeStore{}
	b := newTestBot(t, tr, cat, st)

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", "Выберите фильм из списка:"))

	if len(tr.sent) != 0 || len(tr.alerts()) != 1 {
		t.Fatalf("expected alert only: sent=%+v requests=%+v", tr.sent, tr.requests)
	}
	if st.appendQuery != "" {
		t.Fatalf("nothing may be recorded on a failed fetch")
	}
}

func TestMovieSelect_UserMissingAlerts(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{detail: domain.Movie{ID: 301, Title: "Матрица"}, detailOK: true}
	st := &fakeStore{resolveErr: errors.New("user not found")}
	b := newTestBot(t, tr, cat, st)

	b.HandleUpdate(context.Background(), callbackUpdate("movie:301", "Выберите фильм из списка:"))

	if len(tr.sent) != 0 || len(tr.alerts()) != 1 {
		t.Fatalf("expected alert only: sent=%+v requests=%+v", tr.sent, tr.requests)
	}
}

// ----- Boundary containment -----

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	tr := &fakeTransport{}
	st := &fakeStore{panicOnEnsure: true}
	b := newTestBot(t, tr, &fakeCatalog{}, st)

	// Must not panic outward.
	b.HandleUpdate(context.Background(), commandUpdate("start"))

	if len(tr.sent) != 0 {
		t.Fatalf("no reply expected after a recovered panic: %+v", tr.sent)
	}
}

func TestUnknownCommand_FallsThroughToSearch(t *testing.T) {
	tr := &fakeTransport{}
	cat := &fakeCatalog{}
	b := newTestBot(t, tr, cat, &fakeStore{})

	b.HandleUpdate(context.Background(), commandUpdate("weird"))

	if cat.gotQuery != "/weird" {
		t.Fatalf("unknown command must be treated as a query, got %q", cat.gotQuery)
	}
}
