package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Nachtalb/WhatSongIsThatBot/bot/config"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
)

// Bot wraps the Telegram client with webhook-or-polling startup.
type Bot struct {
	client  *bot.Bot
	logger  *logpkg.Logger
	webhook *webhookConfig
}

type webhookConfig struct {
	host string
	port int
	path string
	url  string
}

// New creates the Telegram client from configuration.
func New(conf *config.Config, log *logpkg.Logger, opts ...bot.Option) (*Bot, error) {
	token := strings.TrimSpace(conf.GetString("Token"))
	if token == "" {
		return nil, errors.New("bot token not configured")
	}

	client, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	t := &Bot{client: client, logger: log}
	if section, ok := conf.GetSection("Webhook"); ok {
		t.webhook = &webhookConfig{
			host: sectionString(section, "Host"),
			port: sectionInt(section, "Port"),
			path: strings.TrimPrefix(sectionString(section, "Path"), "/"),
			url:  strings.TrimRight(sectionString(section, "URL"), "/"),
		}
	}
	return t, nil
}

func sectionString(section map[string]any, key string) string {
	v, ok := section[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func sectionInt(section map[string]any, key string) int {
	switch v := section[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Client exposes the underlying Telegram client.
func (t *Bot) Client() *bot.Bot {
	return t.client
}

// GetMe fetches the bot's own account info.
func (t *Bot) GetMe(ctx context.Context) (*models.User, error) {
	return t.client.GetMe(ctx)
}

// Start consumes updates until the context ends, via webhook when one
// is configured, long polling otherwise.
func (t *Bot) Start(ctx context.Context) {
	if t.webhook == nil {
		t.client.Start(ctx)
		return
	}

	url := t.webhook.url + "/" + t.webhook.path
	if _, err := t.client.SetWebhook(ctx, &bot.SetWebhookParams{URL: url}); err != nil {
		if t.logger != nil {
			t.logger.Error("set webhook failed", "url", url, "error", err)
		}
		return
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", t.webhook.host, t.webhook.port),
		Handler: t.client.WebhookHandler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if t.logger != nil {
				t.logger.Error("webhook server failed", "error", err)
			}
		}
	}()

	t.client.StartWebhook(ctx)
}
