package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxFileNameLength is the rune limit applied by SanitizeFileName.
const MaxFileNameLength = 120

// sanitizer replaces file-system-hostile characters with look-alikes.
var sanitizer = strings.NewReplacer(
	"<", "-",
	">", "-",
	":", ";",
	`"`, "'",
	"/", "-",
	`\`, "-",
	"|", ";",
	"?", "!",
	"*", "#",
)

// DisallowedChars lists every character SanitizeFileName removes.
const DisallowedChars = `<>:"/\|?*`

// SanitizeFileName maps name to a string that is safe as a single path
// segment on Windows, macOS and Linux.
//
// Each hostile character is replaced by a visually similar one:
//
//	< > / \  -> -
//	: |      -> ;
//	"        -> '
//	?        -> !
//	*        -> #
//
// The result is then cut to MaxFileNameLength runes. The function is pure:
// the same input always yields the same output.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2") // Returns "Song; Part 1-2"
func SanitizeFileName(name string) string {
	name = sanitizer.Replace(name)

	runes := []rune(name)
	if len(runes) > MaxFileNameLength {
		return string(runes[:MaxFileNameLength])
	}
	return name
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ClearDir removes every entry inside dir, creating dir if it is missing.
// The directory itself is kept.
func ClearDir(dir string) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// NonEmptyFile reports whether path is a regular file with at least one byte.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Stamp sets both access and modification time of path to t.
func Stamp(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("stamp %s: %w", filepath.Base(path), err)
	}
	return nil
}
