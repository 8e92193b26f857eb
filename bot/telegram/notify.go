package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
)

// MessageEditor is the slice of the Telegram client the notifier
// needs; *bot.Bot satisfies it.
type MessageEditor interface {
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

// Notifier edits one status message as recognition guesses arrive.
// Intermediate updates are fire-and-forget with at most one in flight:
// a newer guess cancels the still-pending edit before issuing its own.
// The final update is delivered synchronously and is never overwritten
// by a stale intermediate racing in afterward.
type Notifier struct {
	Editor      MessageEditor
	RateLimiter *RateLimiter
	ChatID      int64
	MessageID   int
	Logger      *logpkg.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NotifyProgress issues a non-blocking intermediate update. Delivery
// failures are swallowed; a superseded update is cancelled, not
// awaited.
func (n *Notifier) NotifyProgress(ctx context.Context, text string, markup models.ReplyMarkup) {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	updateCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.mu.Unlock()

	go func() {
		defer cancel()
		if err := n.RateLimiter.Wait(updateCtx); err != nil {
			return
		}
		_, err := n.Editor.EditMessageText(updateCtx, n.params(text, markup))
		if err != nil && updateCtx.Err() == nil && n.Logger != nil {
			n.Logger.Debug("intermediate update failed", "error", err)
		}
	}()
}

// NotifyFinal cancels any pending intermediate update and delivers the
// final state synchronously, retrying transient failures the same way
// outbound sends do. A delivery failure here is the one transport
// failure that propagates to the caller.
func (n *Notifier) NotifyFinal(ctx context.Context, text string, markup models.ReplyMarkup) error {
	n.CancelPending()
	_, err := EditMessageWithRetry(ctx, n.RateLimiter, n.Editor, n.params(text, markup))
	return err
}

// CancelPending cancels the in-flight intermediate update, if any.
// Called on every workflow exit path.
func (n *Notifier) CancelPending() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Notifier) params(text string, markup models.ReplyMarkup) *bot.EditMessageTextParams {
	params := &bot.EditMessageTextParams{
		ChatID:    n.ChatID,
		MessageID: n.MessageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	return params
}
