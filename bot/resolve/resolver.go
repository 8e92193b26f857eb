package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	botpkg "github.com/Nachtalb/WhatSongIsThatBot/bot"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/recognize"
)

// Rule rewrites one secondary provider type into a labeled link. The
// action URI is rewritten by exact prefix replacement; a URI that does
// not carry TrimPrefix passes through unchanged. Empty prefixes mean
// pass-through.
type Rule struct {
	Type       string
	Label      string
	Priority   int
	TrimPrefix string
	AddPrefix  string
}

func (r Rule) rewrite(uri string) string {
	if r.TrimPrefix == "" {
		return uri
	}
	if !strings.HasPrefix(uri, r.TrimPrefix) {
		return uri
	}
	return r.AddPrefix + uri[len(r.TrimPrefix):]
}

// builtinRules covers the provider types the backend is known to emit.
// Unknown types are skipped, and script plugins may register more.
var builtinRules = []Rule{
	{Type: "SPOTIFY", Label: "Spotify", Priority: 1, TrimPrefix: "spotify:search:", AddPrefix: "https://open.spotify.com/search/"},
	{Type: "YOUTUBEMUSIC", Label: "YouTube Music", Priority: 4},
	{Type: "DEEZER", Label: "Deezer", Priority: 5, TrimPrefix: "deezer-query://www.deezer.com/play?query=", AddPrefix: "https://deezer.com/search/"},
}

// LinkLookup resolves an opaque lookup URI into a playable URI over
// the network. Failures are per-link and non-fatal.
type LinkLookup interface {
	Resolve(ctx context.Context, lookupURL string) (string, error)
}

// SearchLookup finds a watch URL for a free-text query. Used as a
// fallback when the payload has no resolvable video section.
type SearchLookup interface {
	SearchVideo(ctx context.Context, query string) (string, error)
}

// Resolver turns raw backend payloads into song guesses with ordered
// provider links. Output link order is irrelevant; sorting by priority
// happens once at presentation time.
type Resolver struct {
	YouTube LinkLookup
	Search  SearchLookup
	// LookupTimeout bounds each per-link network resolution. Zero
	// disables the extra bound and leaves only the caller's context.
	LookupTimeout time.Duration
	Logger        *logpkg.Logger

	mu    sync.RWMutex
	extra []Rule
}

// New creates a resolver with the built-in provider rules.
func New(youtube LinkLookup, log *logpkg.Logger) *Resolver {
	return &Resolver{YouTube: youtube, Logger: log}
}

// AddRules registers additional provider rewrite rules, e.g. from
// script plugins. A rule with a known type shadows the built-in one.
func (r *Resolver) AddRules(rules ...Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extra = append(r.extra, rules...)
}

func (r *Resolver) rule(typeTag string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.extra {
		if rule.Type == typeTag {
			return rule, true
		}
	}
	for _, rule := range builtinRules {
		if rule.Type == typeTag {
			return rule, true
		}
	}
	return Rule{}, false
}

// Resolve maps a backend payload to a song guess. A payload without a
// match record yields (nil, nil). Per-link lookup failures omit the
// affected link only.
func (r *Resolver) Resolve(ctx context.Context, payload *recognize.Payload) (*botpkg.Song, error) {
	if !payload.Matched() {
		return nil, nil
	}
	track := payload.Track

	providers := []botpkg.ProviderLink{
		{Label: fmt.Sprintf("%s by %s", track.Title, track.Subtitle), URL: track.URL, Priority: 0},
	}

	if track.AlbumAdamID != "" {
		providers = append(providers, botpkg.ProviderLink{
			Label:    "Apple Music",
			URL:      "https://music.apple.com/album/" + track.AlbumAdamID,
			Priority: 2,
		})
	}

	providers = append(providers, r.youtubeLinks(ctx, track)...)

	for _, provider := range track.Hub.Providers {
		rule, ok := r.rule(provider.Type)
		if !ok || len(provider.Actions) == 0 {
			continue
		}
		providers = append(providers, botpkg.ProviderLink{
			Label:    rule.Label,
			URL:      rule.rewrite(provider.Actions[0].URI),
			Priority: rule.Priority,
		})
	}

	return &botpkg.Song{
		Title:     track.Title,
		Artist:    track.Subtitle,
		CoverURL:  track.Share.Image,
		Providers: providers,
	}, nil
}

// youtubeLinks dereferences every video section into a provider link.
// A per-section lookup failure omits that link only; when no section
// is resolvable the free-text search fallback supplies one.
func (r *Resolver) youtubeLinks(ctx context.Context, track *recognize.Track) []botpkg.ProviderLink {
	var links []botpkg.ProviderLink
	sawSection := false
	for _, section := range track.Sections {
		if section.YouTubeURL == "" || r.YouTube == nil {
			continue
		}
		sawSection = true
		uri, err := r.lookup(ctx, section.YouTubeURL)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn("youtube link resolution failed", "url", section.YouTubeURL, "error", err)
			}
			continue
		}
		links = append(links, botpkg.ProviderLink{Label: "YouTube", URL: stripQuery(uri), Priority: 3})
	}

	if !sawSection && r.Search != nil {
		uri, err := r.searchFallback(ctx, track)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Debug("youtube search fallback failed", "error", err)
			}
			return links
		}
		links = append(links, botpkg.ProviderLink{Label: "YouTube", URL: uri, Priority: 3})
	}
	return links
}

func (r *Resolver) lookup(ctx context.Context, lookupURL string) (string, error) {
	if r.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.LookupTimeout)
		defer cancel()
	}
	return r.YouTube.Resolve(ctx, lookupURL)
}

func (r *Resolver) searchFallback(ctx context.Context, track *recognize.Track) (string, error) {
	if r.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.LookupTimeout)
		defer cancel()
	}
	return r.Search.SearchVideo(ctx, searchQuery(track.Title, track.Subtitle))
}

// stripQuery removes all query parameters from a playable URI.
func stripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
