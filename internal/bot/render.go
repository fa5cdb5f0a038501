// Message rendering. Every function here is pure: structured content in,
// display text out, no transport dependency. Layouts follow the bot's
// Russian UI.
package bot

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Shi-Van/cinema-bot/internal/domain"
)

// votePrinter renders large vote counts with digit grouping.
var votePrinter = message.NewPrinter(language.English)

// WatchURL returns the mirror link offered as the "watch" button and stored
// with history rows.
func WatchURL(movieID int) string {
	return fmt.Sprintf("https://www.sspoisk.ru/film/%d/", movieID)
}

// kinopoiskURL returns the canonical catalog page link.
func kinopoiskURL(movieID int) string {
	return fmt.Sprintf("https://www.kinopoisk.ru/film/%d/", movieID)
}

// imdbURL returns the IMDB title page link.
func imdbURL(imdbID string) string {
	return fmt.Sprintf("https://www.imdb.com/title/%s/", imdbID)
}

// SelectionLabel builds the button label for one search candidate:
// title, optional year, optional rating, and a series marker.
func SelectionLabel(m domain.Movie) string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.Year != 0 {
		fmt.Fprintf(&b, " (%d)", m.Year)
	}
	if m.Rating != 0 {
		fmt.Fprintf(&b, " 🤩%.1f", m.Rating)
	}
	if m.IsSeries() {
		b.WriteString(" 📺")
	}
	return b.String()
}

// FormatHistoryPage renders one window of the search log. An empty window
// renders the fixed empty-history notice instead of a bare header.
func FormatHistoryPage(items []domain.SearchHistory, page, totalPages int) string {
	if len(items) == 0 {
		return "История поиска пуста"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 История поиска (страница %d из %d):\n\n", page, totalPages)
	for _, item := range items {
		fmt.Fprintf(&b, "🔍 %s\n", item.Query)
		fmt.Fprintf(&b, "🎬 %s", item.MovieTitle)
		if item.MovieRating != nil {
			fmt.Fprintf(&b, " (🤩 %.1f)", *item.MovieRating)
		}
		b.WriteString("\n")
		if item.MovieURL != nil {
			fmt.Fprintf(&b, "🔗 %s\n", *item.MovieURL)
		}
		fmt.Fprintf(&b, "📅 %s\n\n", item.CreatedAt.Format("02.01.2006 15:04"))
	}
	return b.String()
}

// FormatStatsPage renders one window of the aggregated "most searched"
// view. An empty window renders the fixed empty-stats notice.
func FormatStatsPage(items []domain.MovieStat, page, totalPages int) string {
	if len(items) == 0 {
		return "Статистика поиска пуста"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика поиска (страница %d из %d):\n\n", page, totalPages)
	for _, item := range items {
		fmt.Fprintf(&b, "🎬 %s\n", item.MovieTitle)
		fmt.Fprintf(&b, "🔢 Количество поисков: %d\n", item.SearchCount)
		if item.AvgRating != nil {
			fmt.Fprintf(&b, "🤩 Рейтинг: %.1f\n", *item.AvgRating)
		}
		if item.MovieURL != nil {
			fmt.Fprintf(&b, "Просмотреть: %s\n", *item.MovieURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMovieDetail renders the full detail view. Optional fields are
// omitted entirely when absent rather than rendered as placeholders.
func FormatMovieDetail(m domain.Movie) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 %s", m.Title)
	if m.OriginalTitle != "" {
		fmt.Fprintf(&b, "\n📝 %s", m.OriginalTitle)
	}
	if m.IsSeries() {
		b.WriteString("\n📺 Сериал")
	}
	if m.Year != 0 {
		fmt.Fprintf(&b, "\n📅 %d", m.Year)
	}
	if m.Length != 0 {
		fmt.Fprintf(&b, "\n⏱ %d мин.", m.Length)
	}
	if m.AgeRating != 0 {
		fmt.Fprintf(&b, "\n🔞 %d+", m.AgeRating)
	}
	if m.Rating != 0 {
		fmt.Fprintf(&b, "\n🤩 Рейтинг КП: %.1f", m.Rating)
		if kp := m.Votes["kp"]; kp != 0 {
			fmt.Fprintf(&b, " (%s пользователей оценили)", votePrinter.Sprintf("%d", kp))
		}
	}
	if len(m.Genres) > 0 {
		fmt.Fprintf(&b, "\n🎭 Жанры: %s", strings.Join(m.Genres, ", "))
	}
	if len(m.Countries) > 0 {
		fmt.Fprintf(&b, "\n🌍 Страны: %s", strings.Join(m.Countries, ", "))
	}
	if m.ShortDescription != "" {
		fmt.Fprintf(&b, "\n\n📖 <blockquote>%s</blockquote>", m.ShortDescription)
	} else if m.Description != "" {
		fmt.Fprintf(&b, "\n\n📖 <blockquote>%s</blockquote>", m.Description)
	}
	if imdb := m.ExternalIDs["imdb"]; imdb != "" {
		fmt.Fprintf(&b, "\n\n🎯 IMDB: %s", imdbURL(imdb))
	}
	fmt.Fprintf(&b, "\n🎯 Кинопоиск: %s", kinopoiskURL(m.ID))
	return b.String()
}
