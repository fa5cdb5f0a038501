// Inline keyboard construction. Keyboards are the only carrier of callback
// tokens; each builder returns the minimal button set for the content's
// position in the page sequence.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Shi-Van/cinema-bot/internal/domain"
)

// PaginationKeyboard returns the prev/next row for a paged view. The "prev"
// button exists only past page 1 and "next" only before the last page, so
// a rendered page can never request a window outside the sequence through
// its own buttons.
func PaginationKeyboard(kind ContentKind, page, totalPages int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if page > 1 {
		tok := PaginationToken{Kind: kind, Dir: DirPrev, Page: page}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", tok.Encode()))
	}
	if page < totalPages {
		tok := PaginationToken{Kind: kind, Dir: DirNext, Page: page}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Вперед ▶️", tok.Encode()))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// SelectionKeyboard returns one labeled button per search candidate, each
// carrying the candidate's movie token, stacked vertically.
func SelectionKeyboard(movies []domain.Movie) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(movies))
	for _, m := range movies {
		tok := MovieToken{MovieID: m.ID}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(SelectionLabel(m), tok.Encode()),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// DetailKeyboard returns the single watch-link button under a detail view.
func DetailKeyboard(movieID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🎬 Посмотреть", WatchURL(movieID)),
		),
	)
}
