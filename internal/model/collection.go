package model

import (
	"path/filepath"

	ioutils "github.com/handiism/playlist-archiver/internal/io"
)

// CoverArtFileName is the per-directory cover art cache.
const CoverArtFileName = "folder.png"

// Collection represents a playlist or album and its ordered items.
//
// Collections are created once per run from the manifest and never mutated
// afterwards.
type Collection struct {
	Name        string
	Description string
	Items       []*Item

	// Dir is the output directory, root joined with the sanitized name.
	Dir string
}

// NewCollection creates a Collection whose directory lives under root.
func NewCollection(name, description, root string, items []*Item) *Collection {
	return &Collection{
		Name:        name,
		Description: description,
		Items:       items,
		Dir:         filepath.Join(root, ioutils.SanitizeFileName(name)),
	}
}

// CoverArtPath returns where the collection's folder.png is cached.
func (c *Collection) CoverArtPath() string {
	return filepath.Join(c.Dir, CoverArtFileName)
}

// PlaylistPath returns the playlist file path for the given extension
// (including the dot).
func (c *Collection) PlaylistPath(ext string) string {
	return filepath.Join(c.Dir, ioutils.SanitizeFileName(c.Name)+ext)
}
