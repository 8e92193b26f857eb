package handler

import (
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Router registers all handlers on the Telegram client.
type Router struct {
	Start     *StartHandler
	Recognize *RecognizeHandler
}

func (r *Router) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, r.Start.Handle)
	b.RegisterHandlerMatchFunc(matchAudio, r.Recognize.HandleAudio)
	b.RegisterHandlerMatchFunc(matchVideo, r.Recognize.HandleVideo)
}

func matchAudio(update *models.Update) bool {
	return update != nil && update.Message != nil &&
		(update.Message.Audio != nil || update.Message.Voice != nil)
}

func matchVideo(update *models.Update) bool {
	return update != nil && update.Message != nil &&
		(update.Message.Video != nil || update.Message.VideoNote != nil)
}
