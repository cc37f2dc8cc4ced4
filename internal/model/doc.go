// Package model defines the core data structures used throughout
// playlist-archiver.
//
// # Item
//
// Item is a single track read from the input manifest. It is immutable once
// loaded:
//
//	item.Stem()        // "Title - Artist A, Artist B"
//	item.Added         // stamped onto the output file's mtime
//
// # Collection
//
// Collection is a playlist or album with its ordered items and the output
// directory derived from its sanitized name:
//
//	collections, err := model.LoadManifest("spotify-playlists.json", "/music")
//	for _, c := range collections {
//	    fmt.Println(c.Dir, len(c.Items))
//	}
//
// # Manifest
//
// The manifest is the JSON document produced by the catalog export step:
//
//	[{"name": "...", "description": "...", "tracks": [{"id": "...", "added": "2023-05-01T10:00:00Z", ...}]}]
package model
