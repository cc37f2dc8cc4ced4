package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	ioutils "github.com/handiism/playlist-archiver/internal/io"
)

// Accepted layouts for a track's "added" field. Albums only carry a release
// year in some catalogs, which the export renders as "2006T00:00:00Z".
const (
	AddedLayout     = "2006-01-02T15:04:05Z"
	AddedYearLayout = "2006T15:04:05Z"
)

// ErrInvalidManifest is returned when the manifest cannot be decoded or a
// track carries malformed fields.
var ErrInvalidManifest = errors.New("invalid manifest")

// ManifestTrack is one track entry as written by the catalog export.
type ManifestTrack struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	Added       string   `json:"added"`
	ImageURL    string   `json:"image_url"`
	TrackNumber int      `json:"track_number"`
	DiscNumber  int      `json:"disc_number"`
}

// ManifestCollection is one playlist or album entry of the manifest.
type ManifestCollection struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tracks      []ManifestTrack `json:"tracks"`
}

// LoadManifest reads the manifest at path and builds collections whose
// output directories live under root.
func LoadManifest(path, root string) ([]*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, root)
}

// ParseManifest decodes manifest JSON. Collection and track order is kept.
func ParseManifest(data []byte, root string) ([]*Collection, error) {
	var raw []ManifestCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	collections := make([]*Collection, 0, len(raw))
	for _, rc := range raw {
		items := make([]*Item, 0, len(rc.Tracks))
		for i, rt := range rc.Tracks {
			item, err := rt.toItem()
			if err != nil {
				return nil, fmt.Errorf("%w: %s track #%d (%s): %v", ErrInvalidManifest, rc.Name, i+1, rt.ID, err)
			}
			items = append(items, item)
		}
		collections = append(collections, NewCollection(rc.Name, rc.Description, root, items))
	}

	return collections, nil
}

func (t ManifestTrack) toItem() (*Item, error) {
	if t.ID == "" {
		return nil, errors.New("missing id")
	}

	added, err := ParseAdded(t.Added)
	if err != nil {
		return nil, err
	}

	return &Item{
		ID:          t.ID,
		Name:        strings.ReplaceAll(t.Name, "’", "'"),
		Artists:     t.Artists,
		Album:       ioutils.SanitizeFileName(t.Album),
		Added:       added,
		ImageURL:    t.ImageURL,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.DiscNumber,
	}, nil
}

// ParseAdded parses an "added" timestamp in either accepted layout. The
// result is always UTC.
func ParseAdded(s string) (time.Time, error) {
	if t, err := time.Parse(AddedLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(AddedYearLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized added time %q", s)
	}
	return t.UTC(), nil
}
