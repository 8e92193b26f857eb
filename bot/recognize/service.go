package recognize

import "context"

// Payload is the structured output of one fingerprinting attempt. A
// nil Track means the backend found no match, which is a legitimate
// outcome rather than an error.
type Payload struct {
	Track *Track `json:"track"`
}

// Matched reports whether the payload carries a match record.
func (p *Payload) Matched() bool {
	return p != nil && p.Track != nil
}

// Track is the match record of a fingerprinting backend payload.
type Track struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	URL         string    `json:"url"`
	AlbumAdamID string    `json:"albumadamid"`
	Share       Share     `json:"share"`
	Sections    []Section `json:"sections"`
	Hub         Hub       `json:"hub"`
}

// Share carries sharing metadata, notably the cover image URL.
type Share struct {
	Image string `json:"image"`
}

// Section is one embedded content section; only the video section with
// a resolvable watch URI is of interest here.
type Section struct {
	YouTubeURL string `json:"youtubeurl"`
}

// Hub groups the secondary streaming providers of a match.
type Hub struct {
	Providers []HubProvider `json:"providers"`
}

// HubProvider is one secondary provider descriptor with a type tag and
// one or more action URIs.
type HubProvider struct {
	Type    string   `json:"type"`
	Actions []Action `json:"actions"`
}

// Action holds a provider action URI.
type Action struct {
	URI string `json:"uri"`
}

// Service defines single-shot audio recognition behavior: one
// fingerprint attempt against an audio file, one payload or none.
type Service interface {
	Start(ctx context.Context) error
	Stop() error
	Recognize(ctx context.Context, audioPath string) (*Payload, error)
}

// StreamService defines multi-pass recognition: an ordered, finite
// sequence of independent attempts against the same audio sample.
type StreamService interface {
	Start(ctx context.Context) error
	Stop() error
	RecognizeStream(audioData []byte, maxPasses int) Stream
}

// Pass is one attempt in a streaming sequence, 1-indexed.
type Pass struct {
	Index   int
	Payload *Payload
}

// Stream is a pull sequence of recognition passes. Next produces the
// next pass and reports false once the sequence is exhausted, the
// producer failed, or the context was cancelled. The sequence is not
// restartable and may end before maxPasses elements. Err returns the
// failure that ended the sequence early, if any.
type Stream interface {
	Next(ctx context.Context) (Pass, bool)
	Err() error
}
