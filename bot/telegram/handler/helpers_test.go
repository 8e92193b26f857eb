package handler

import (
	"strings"
	"testing"

	botpkg "github.com/Nachtalb/WhatSongIsThatBot/bot"
)

func testSong() *botpkg.Song {
	return &botpkg.Song{
		Title:    "Song A",
		Artist:   "Artist B",
		CoverURL: "https://cover/1.jpg",
		Providers: []botpkg.ProviderLink{
			{Label: "Song A by Artist B", URL: "https://s/1", Priority: 0},
			{Label: "Apple Music", URL: "https://music.apple.com/album/42", Priority: 2},
			{Label: "Spotify", URL: "https://open.spotify.com/search/Song A", Priority: 1},
			{Label: "YouTube", URL: "https://youtu.be/abc", Priority: 3},
		},
	}
}

func TestSongTextCoverAnchor(t *testing.T) {
	text := songText(testSong())
	if !strings.HasPrefix(text, "Song A - Artist B\n") {
		t.Fatalf("songText() = %q", text)
	}
	if !strings.Contains(text, `<a href="https://cover/1.jpg">`+"​</a>") {
		t.Fatalf("expected zero-width cover anchor, got %q", text)
	}
}

func TestSongTextEscapesHTML(t *testing.T) {
	song := testSong()
	song.Title = "Songs & <Stories>"
	text := songText(song)
	if strings.Contains(text, "<Stories>") {
		t.Fatalf("title must be HTML-escaped, got %q", text)
	}
	if !strings.Contains(text, "Songs &amp; &lt;Stories&gt;") {
		t.Fatalf("unexpected escaping: %q", text)
	}
}

func TestSongTextWithoutCover(t *testing.T) {
	song := testSong()
	song.CoverURL = ""
	if strings.Contains(songText(song), "<a href") {
		t.Fatalf("no anchor without cover")
	}
}

func TestProgressAndFinalTexts(t *testing.T) {
	song := testSong()
	if got := progressText(song); !strings.HasPrefix(got, "<b>Analysing... Current Guess:</b>\n") {
		t.Fatalf("progressText() = %q", got)
	}
	final := finalText(song)
	if !strings.HasPrefix(final, "<b>🎶 ") || !strings.HasSuffix(final, "</b>") {
		t.Fatalf("finalText() = %q", final)
	}
}

func TestSongMarkupLayout(t *testing.T) {
	markup := songMarkup(testSong())
	keyboard := markup.InlineKeyboard
	if len(keyboard) != 3 {
		t.Fatalf("got %d rows, want 3", len(keyboard))
	}
	if len(keyboard[0]) != 1 || keyboard[0][0].Text != "Song A by Artist B" {
		t.Fatalf("row 1 = %+v, want the primary match alone", keyboard[0])
	}
	if keyboard[1][0].Text != "Spotify" || keyboard[1][1].Text != "Apple Music" {
		t.Fatalf("row 2 = %+v, want [Spotify, Apple Music]", keyboard[1])
	}
	if len(keyboard[2]) != 1 || keyboard[2][0].Text != "YouTube" {
		t.Fatalf("row 3 = %+v", keyboard[2])
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		fileName string
		filePath string
		want     string
	}{
		{"song.mp3", "voice/file_1.oga", ".mp3"},
		{"", "voice/file_1.oga", ".oga"},
		{"", "", ".ogg"},
		{"noext", "music/file_2.m4a", ".m4a"},
	}
	for _, tt := range tests {
		if got := fileExt(tt.fileName, tt.filePath); got != tt.want {
			t.Errorf("fileExt(%q, %q) = %q, want %q", tt.fileName, tt.filePath, got, tt.want)
		}
	}
}
