package handler

import (
	"context"
	"fmt"
	"html"
	"os"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	botpkg "github.com/Nachtalb/WhatSongIsThatBot/bot"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/telegram"
)

const (
	msgSearching   = "Trying to find song info...."
	msgNoMatch     = "<b>Could not find any matches</b>"
	msgWentWrong   = "Something went wrong :("
	msgTooBigTempl = "The provided file is too big :(\nTelegram bots are limited to %s"
)

// songText renders the song line with the cover shown through a
// zero-width anchor, so Telegram previews the image without visible
// link text.
func songText(song *botpkg.Song) string {
	text := fmt.Sprintf("%s - %s", html.EscapeString(song.Title), html.EscapeString(song.Artist))
	if song.CoverURL != "" {
		text += fmt.Sprintf("\n<a href=\"%s\">​</a>", song.CoverURL)
	}
	return text
}

func progressText(song *botpkg.Song) string {
	return "<b>Analysing... Current Guess:</b>\n" + songText(song)
}

func finalText(song *botpkg.Song) string {
	return "<b>🎶 " + songText(song) + "</b>"
}

// songMarkup arranges the provider links into the button grid: the
// primary match alone on top, the rest two per row.
func songMarkup(song *botpkg.Song) *models.InlineKeyboardMarkup {
	rows := botpkg.Layout(song.Providers)
	keyboard := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, link := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: link.Label, URL: link.URL})
		}
		keyboard = append(keyboard, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func sendText(ctx context.Context, rl *telegram.RateLimiter, b *bot.Bot, chatID int64, replyID int, text string) (*models.Message, error) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if replyID != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyID}
	}
	if rl != nil {
		return telegram.SendMessageWithRetry(ctx, rl, b, params)
	}
	return b.SendMessage(ctx, params)
}

func ensureDir(dir string) {
	_ = os.MkdirAll(dir, 0o755)
}
