package bot

import "testing"

func sampleProviders() []ProviderLink {
	return []ProviderLink{
		{Label: "Spotify", URL: "https://open.spotify.com/search/x", Priority: 1},
		{Label: "Song A by Artist B", URL: "https://s/1", Priority: 0},
		{Label: "Apple Music", URL: "https://music.apple.com/album/42", Priority: 2},
		{Label: "YouTube", URL: "https://youtu.be/x", Priority: 3},
	}
}

func TestLayoutPrimaryAlone(t *testing.T) {
	rows := Layout(sampleProviders())
	if len(rows) != 3 {
		t.Fatalf("Layout() = %d rows, want 3", len(rows))
	}
	if len(rows[0]) != 1 || rows[0][0].Priority != 0 {
		t.Fatalf("first row should hold the primary link alone, got %+v", rows[0])
	}
	if rows[1][0].Label != "Spotify" || rows[1][1].Label != "Apple Music" {
		t.Fatalf("second row should be sorted by priority, got %+v", rows[1])
	}
	if len(rows[2]) != 1 || rows[2][0].Label != "YouTube" {
		t.Fatalf("last row may hold a single link, got %+v", rows[2])
	}
}

func TestLayoutDeterministic(t *testing.T) {
	a := Layout(sampleProviders())

	reversed := sampleProviders()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	b := Layout(reversed)

	if len(a) != len(b) {
		t.Fatalf("row count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("row %d col %d differs: %+v vs %+v", i, j, a[i][j], b[i][j])
			}
		}
	}
}

func TestLayoutEmpty(t *testing.T) {
	if rows := Layout(nil); rows != nil {
		t.Fatalf("Layout(nil) = %+v, want nil", rows)
	}
}

func TestSongEqualIgnoresNothingButIdentity(t *testing.T) {
	a := &Song{Title: "Song A", Artist: "Artist B", CoverURL: "c", Providers: sampleProviders()}
	b := &Song{Title: "Song A", Artist: "Artist B", CoverURL: "c", Providers: sampleProviders()}
	if !a.Equal(b) {
		t.Fatalf("identical guesses must compare equal")
	}

	c := &Song{Title: "Song A", Artist: "Artist B", CoverURL: "other", Providers: sampleProviders()}
	if a.Equal(c) {
		t.Fatalf("guesses with different covers must not compare equal")
	}

	d := &Song{Title: "Song B", Artist: "Artist B", CoverURL: "c", Providers: sampleProviders()}
	if a.Equal(d) {
		t.Fatalf("guesses with different titles must not compare equal")
	}
}

func TestSongValid(t *testing.T) {
	if (&Song{Title: "x", Artist: "y"}).Valid() {
		t.Fatalf("song without providers must be invalid")
	}
	if !(&Song{Title: "x", Artist: "y", Providers: sampleProviders()}).Valid() {
		t.Fatalf("song with providers must be valid")
	}
	var nilSong *Song
	if nilSong.Valid() {
		t.Fatalf("nil song must be invalid")
	}
}
