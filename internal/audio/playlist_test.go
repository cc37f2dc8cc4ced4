package audio

import (
	"strings"
	"testing"
	"time"

	"github.com/handiism/playlist-archiver/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	c := createTestCollection()
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(c, c.Items)

	if !strings.Contains(content, "track1 - Artist.mp3") {
		t.Error("M3U should contain track filename")
	}
	if strings.Contains(content, "#EXTM3U") {
		t.Error("plain M3U should not contain #EXTM3U")
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	c := createTestCollection()
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist(c, c.Items)

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:-1,Artist - track1") {
		t.Error("Extended M3U should contain #EXTINF")
	}
}

func TestPlaylistCreator_OrderAndSubset(t *testing.T) {
	c := createTestCollection()
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(c, []*model.Item{c.Items[1]})

	if strings.Contains(content, "track1") {
		t.Error("only the given items should be listed")
	}
	if !strings.Contains(content, "track2 - Artist.mp3") {
		t.Error("missing track2")
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	c := createTestCollection()
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist(c, c.Items)

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=track1 - Artist.mp3") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	c := createTestCollection()
	creator := NewPlaylistCreator(FormatWPL, false)

	content := creator.CreatePlaylist(c, c.Items)

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<media src=") {
		t.Error("WPL should contain media elements")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	item := &model.Item{Name: "Track & Co", Artists: []string{"A"}, Added: time.Now()}
	c := model.NewCollection("List <Special>", "", "/music", []*model.Item{item})

	content := NewPlaylistCreator(FormatWPL, false).CreatePlaylist(c, c.Items)

	if !strings.Contains(content, "&amp;") {
		t.Error("WPL should escape & as &amp;")
	}
	if strings.Contains(content, "<Special>") {
		t.Error("WPL should escape < and >")
	}
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"m3u", ".m3u"},
		{"pls", ".pls"},
		{"wpl", ".wpl"},
		{"", ".m3u"},
	}

	for _, tt := range tests {
		if got := ParsePlaylistFormat(tt.in).Extension(); got != tt.want {
			t.Errorf("ParsePlaylistFormat(%q).Extension() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func createTestCollection() *model.Collection {
	items := []*model.Item{
		{ID: "1", Name: "track1", Artists: []string{"Artist"}, TrackNumber: 1},
		{ID: "2", Name: "track2", Artists: []string{"Artist"}, TrackNumber: 2},
	}
	return model.NewCollection("Test List", "", "/music", items)
}
