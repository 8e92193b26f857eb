package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Nachtalb/WhatSongIsThatBot/bot/config"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/dynplugin"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/recognize"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/resolve"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/telegram"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/telegram/handler"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/worker"
	"github.com/Nachtalb/WhatSongIsThatBot/plugins/shazam"
	"github.com/Nachtalb/WhatSongIsThatBot/plugins/songrec"
)

// backend is the lifecycle slice shared by both recognition
// strategies.
type backend interface {
	Start(ctx context.Context) error
	Stop() error
}

// App wires all application dependencies.
type App struct {
	Config   *config.Config
	Logger   *logpkg.Logger
	Pool     *worker.Pool
	Resolver *resolve.Resolver
	Telegram *telegram.Bot
	Single   recognize.Service
	Stream   recognize.StreamService
	Build    BuildInfo

	backend backend
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	Version   string
	CommitSHA string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var log *logpkg.Logger
	if path := conf.GetString("LogFile"); path != "" {
		log, err = logpkg.NewWithFile(conf.GetString("LogLevel"), path)
	} else {
		log, err = logpkg.New(conf.GetString("LogLevel"))
	}
	if err != nil {
		return nil, err
	}

	pool := worker.New(conf.GetInt("WorkerPoolSize"))

	lookupTimeout := time.Duration(conf.GetInt("LookupTimeoutSeconds")) * time.Second
	resolver := resolve.New(resolve.NewLookupClient(lookupTimeout), log)
	resolver.LookupTimeout = lookupTimeout
	if conf.GetBool("YouTubeSearchFallback") {
		resolver.Search = resolve.NewYTSearch()
	}
	if err := dynplugin.NewManager(log).Load(conf, resolver); err != nil {
		return nil, fmt.Errorf("load script plugins: %w", err)
	}

	a := &App{
		Config:   conf,
		Logger:   log,
		Pool:     pool,
		Resolver: resolver,
		Build:    build,
	}

	passTimeout := time.Duration(conf.GetInt("PassTimeoutSeconds")) * time.Second
	switch strings.ToLower(strings.TrimSpace(conf.GetString("Recognizer"))) {
	case "", "songrec":
		single, err := songrec.New(conf.GetString("SongrecCommand"), passTimeout, log)
		if err != nil {
			return nil, fmt.Errorf("init songrec backend: %w", err)
		}
		a.Single = single
		a.backend = single
	case "stream":
		stream, err := shazam.New(shazam.Options{
			Port:        conf.GetInt("RecognizePort"),
			Command:     conf.GetString("RecognizeCommand"),
			PassTimeout: passTimeout,
			Logger:      log,
		})
		if err != nil {
			return nil, fmt.Errorf("init streaming backend: %w", err)
		}
		a.Stream = stream
		a.backend = stream
	default:
		return nil, fmt.Errorf("unknown recognizer %q", conf.GetString("Recognizer"))
	}

	tele, err := telegram.New(conf, log)
	if err != nil {
		return nil, fmt.Errorf("init telegram: %w", err)
	}
	a.Telegram = tele

	return a, nil
}

// Start initializes the recognition backend, registers handlers and
// begins consuming updates.
func (a *App) Start(ctx context.Context) error {
	if err := a.backend.Start(ctx); err != nil {
		// The bot stays up; recognition requests fail individually.
		a.Logger.Warn("recognition backend failed to start", "error", err)
	} else {
		a.Logger.Info("recognition backend started")
	}

	meCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if me, err := a.Telegram.GetMe(meCtx); err != nil {
		a.Logger.Error("getMe failed", "error", err)
	} else {
		a.Logger.Info("bot online", "username", me.Username, "version", a.Build.Version)
	}

	rateLimiter := telegram.NewRateLimiter(
		a.Config.GetFloat64("RateLimitPerSecond"),
		a.Config.GetInt("RateLimitBurst"),
	)
	rateLimiter.SetLogger(a.Logger)

	cacheDir := strings.TrimSpace(a.Config.GetString("CacheDir"))
	if cacheDir == "" {
		cacheDir = "./cache"
	}

	router := &handler.Router{
		Start: &handler.StartHandler{RateLimiter: rateLimiter},
		Recognize: &handler.RecognizeHandler{
			CacheDir:          cacheDir,
			MaxFileSize:       int64(a.Config.GetInt("MaxFileSizeMB")) * 1000 * 1000,
			MaxPasses:         a.Config.GetInt("MaxPasses"),
			EarlyExitInterval: a.Config.GetInt("EarlyExitInterval"),
			Resolver:          a.Resolver,
			Single:            a.Single,
			Stream:            a.Stream,
			Pool:              a.Pool,
			RateLimiter:       rateLimiter,
			Logger:            a.Logger,
		},
	}
	router.Register(a.Telegram.Client())

	_, _ = a.Telegram.Client().SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "How to use this bot"},
		},
	})

	go a.Telegram.Start(ctx)
	return nil
}

// Shutdown releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.backend != nil {
		if err := a.backend.Stop(); err != nil {
			a.Logger.Error("failed to stop recognition backend", "error", err)
			firstErr = fmt.Errorf("stop recognition backend: %w", err)
		}
	}

	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil {
			a.Pool.StopNow()
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown worker pool: %w", err)
			}
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close logger: %w", err)
		}
	}

	return firstErr
}
