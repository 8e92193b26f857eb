package bot

import (
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

// ProviderLink is a single labeled link to a streaming service.
// Lower Priority sorts first; the primary match always carries 0.
type ProviderLink struct {
	Label    string
	URL      string
	Priority int
}

// Song is one recognition guess. It is built once per backend payload
// and never mutated; a new guess produces a new Song.
type Song struct {
	Title     string
	Artist    string
	CoverURL  string
	Providers []ProviderLink
}

// Valid reports whether the song may be surfaced as a match. A song
// without providers must never reach the user.
func (s *Song) Valid() bool {
	return s != nil && len(s.Providers) > 0
}

// Equal compares two guesses over their identifying fields: title,
// artist, cover and resolved provider links. Guesses from different
// recognition passes compare equal when they identify the same song.
func (s *Song) Equal(other *Song) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.hash() == other.hash()
}

func (s *Song) hash() uint64 {
	h, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

// Layout arranges provider links into a button grid: the single
// lowest-priority link alone in the first row, the rest two per row in
// priority order. The input is not modified.
func Layout(providers []ProviderLink) [][]ProviderLink {
	if len(providers) == 0 {
		return nil
	}
	sorted := make([]ProviderLink, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	rows := [][]ProviderLink{{sorted[0]}}
	rest := sorted[1:]
	for len(rest) > 0 {
		n := 2
		if len(rest) < n {
			n = len(rest)
		}
		rows = append(rows, rest[:n])
		rest = rest[n:]
	}
	return rows
}
