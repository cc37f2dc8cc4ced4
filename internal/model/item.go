package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/playlist-archiver/internal/io"
)

// File extensions used for the artifacts of one item.
const (
	OutputExt = ".mp3"
	MarkerExt = ".error"
)

// Item represents a single track from the manifest.
//
// Added doubles as metadata and as the modification time stamped onto the
// output file, so downstream players can sort by it.
type Item struct {
	// ID is the opaque catalog key handed to the streaming provider.
	ID string

	// Name is the track title.
	Name string

	// Artists in catalog order.
	Artists []string

	// Album title, already sanitized.
	Album string

	// Added is when the track was added to its collection.
	Added time.Time

	// ImageURL points to the cover art. Empty means no artwork.
	ImageURL string

	TrackNumber int
	DiscNumber  int
}

// Stem returns the output file name without extension:
// "<title> - <up to two artists>".
//
// Three or more artists are cut down to the first two.
func (i *Item) Stem() string {
	artists := i.Artists
	if len(artists) >= 3 {
		artists = artists[:2]
	}
	return fmt.Sprintf("%s - %s",
		ioutils.SanitizeFileName(i.Name),
		ioutils.SanitizeFileName(strings.Join(artists, ", ")))
}

// OutputPath returns the final artifact path inside dir.
func (i *Item) OutputPath(dir string) string {
	return filepath.Join(dir, i.Stem()+OutputExt)
}

// MarkerPath returns the error marker path inside dir.
func (i *Item) MarkerPath(dir string) string {
	return filepath.Join(dir, i.Stem()+MarkerExt)
}

// HasArtwork returns true if the item has cover art available for download.
func (i *Item) HasArtwork() bool {
	return i.ImageURL != ""
}
