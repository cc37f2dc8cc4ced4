// Package config provides configuration management for playlist-archiver.
//
// This package handles:
//   - Loading and saving settings from JSON or TOML files
//   - Default configuration values
//   - Validation before a run starts
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Reads spotify-playlists.json, writes to ~/Music/Archive
//	// One worker, bounded linear retry, 320k MP3 output
//
// # Loading from File
//
// The decoder is picked from the file extension (".toml" or anything else
// for JSON). Missing files yield the defaults:
//
//	settings, err := config.Load("/path/to/archiver.toml")
//
// # Saving Settings
//
//	settings.Workers = 4
//	err := settings.Save("/path/to/archiver.json")
package config
