package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Nachtalb/WhatSongIsThatBot/bot/telegram"
)

const sourceURL = "https://github.com/Nachtalb/WhatSongIsThatBot"

// StartHandler handles the /start command.
type StartHandler struct {
	RateLimiter *telegram.RateLimiter
}

func (h *StartHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	message := update.Message

	name := ""
	if message.From != nil {
		name = " " + strings.TrimSpace(message.From.FirstName+" "+message.From.LastName)
	} else if message.Chat.Title != "" {
		name = " " + message.Chat.Title
	}

	text := fmt.Sprintf(
		"Hello%s, send me some music in audio or video form and I'll try and identify the songname :)\n\n"+
			"I was built by @Nachtalb and you can find my source code <a href='%s'>here</a>",
		name, sourceURL,
	)
	_, _ = sendText(ctx, h.RateLimiter, b, message.Chat.ID, 0, text)
}
