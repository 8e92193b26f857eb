package telegram

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
)

const sendRetries = 3

// RateLimiter throttles outbound Telegram API calls.
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *logpkg.Logger
}

// NewRateLimiter creates a limiter with the given per-second rate and
// burst size.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 3
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimiter) SetLogger(log *logpkg.Logger) {
	r.logger = log
}

// Wait blocks until a call may proceed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// SendMessageWithRetry sends a message, retrying transient failures
// with backoff.
func SendMessageWithRetry(ctx context.Context, rl *RateLimiter, b *bot.Bot, params *bot.SendMessageParams) (*models.Message, error) {
	var msg *models.Message
	err := withRetry(ctx, rl, func() error {
		var err error
		msg, err = b.SendMessage(ctx, params)
		return err
	})
	return msg, err
}

// EditMessageWithRetry edits a message, retrying transient failures
// with backoff.
func EditMessageWithRetry(ctx context.Context, rl *RateLimiter, editor MessageEditor, params *bot.EditMessageTextParams) (*models.Message, error) {
	var msg *models.Message
	err := withRetry(ctx, rl, func() error {
		var err error
		msg, err = editor.EditMessageText(ctx, params)
		return err
	})
	return msg, err
}

func withRetry(ctx context.Context, rl *RateLimiter, call func() error) error {
	var lastErr error
	for attempt := 0; attempt < sendRetries; attempt++ {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
		if lastErr = call(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return lastErr
}
