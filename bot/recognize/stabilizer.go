package recognize

import (
	"context"

	botpkg "github.com/Nachtalb/WhatSongIsThatBot/bot"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
)

// Defaults for the streaming recognition policy. Both are configurable
// through the Stabilizer fields.
const (
	DefaultMaxPasses         = 20
	DefaultEarlyExitInterval = 6
)

// ResolveFunc turns a raw backend payload into a song guess. A nil
// song with a nil error means the payload carried no usable match.
type ResolveFunc func(ctx context.Context, payload *Payload) (*botpkg.Song, error)

// Stabilizer consumes a recognition stream, deduplicates repeated
// guesses and applies the early-exit policy. Guesses are compared over
// their identifying fields only, so a repeated identical guess from a
// later pass never re-notifies.
type Stabilizer struct {
	Resolve ResolveFunc
	// Notify is called once per new best guess. It must not block the
	// pass loop; delivery concurrency is the caller's concern.
	Notify func(song *botpkg.Song)
	// EarlyExitInterval stops the stream at every multiple of this
	// pass index once a guess is held. Zero means the default of 6.
	EarlyExitInterval int
	Logger            *logpkg.Logger
}

// Run drives the stream to its terminal state and returns the final
// or best-effort guess, or nil when nothing was identified. Failures
// local to a single pass are absorbed; a stream that ends early by
// itself still yields whatever was accepted so far.
func (s *Stabilizer) Run(ctx context.Context, stream Stream) (*botpkg.Song, error) {
	interval := s.EarlyExitInterval
	if interval <= 0 {
		interval = DefaultEarlyExitInterval
	}

	var last *botpkg.Song
	for {
		pass, ok := stream.Next(ctx)
		if !ok {
			break
		}
		if pass.Payload.Matched() {
			song, err := s.Resolve(ctx, pass.Payload)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Warn("pass resolution failed", "pass", pass.Index, "error", err)
				}
			} else if song.Valid() && !song.Equal(last) {
				last = song
				if s.Logger != nil {
					s.Logger.Debug("new best guess", "pass", pass.Index, "title", song.Title, "artist", song.Artist)
				}
				if s.Notify != nil {
					s.Notify(song)
				}
			}
		}

		if last != nil && pass.Index > 0 && pass.Index%interval == 0 {
			if s.Logger != nil {
				s.Logger.Debug("early exit", "pass", pass.Index)
			}
			break
		}
	}

	if err := stream.Err(); err != nil && s.Logger != nil {
		s.Logger.Warn("recognition stream ended early", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return last, nil
}
