package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PartSuffix marks files that are still being written.
const PartSuffix = ".part"

// ErrEmptyArtifact is returned when a part file is missing or has no content.
var ErrEmptyArtifact = errors.New("empty artifact")

// PartPath returns the temporary path used while final is being produced.
// owner tells concurrent writers of the same final path apart; an empty
// owner gives the plain "<final>.part" name.
func PartPath(final, owner string) string {
	if owner == "" {
		return final + PartSuffix
	}
	return final + "." + owner + PartSuffix
}

// Commit moves a finished part file to final in one rename and stamps it
// with added as both access and modification time.
//
// Readers of the output directory never see a zero-byte or partially written
// file at final: the rename is atomic on the same file system, and an empty
// or missing part file is refused with ErrEmptyArtifact.
func Commit(part, final string, added time.Time) error {
	if !NonEmptyFile(part) {
		return fmt.Errorf("%w: %s", ErrEmptyArtifact, filepath.Base(part))
	}
	if err := os.Rename(part, final); err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(final), err)
	}
	return Stamp(final, added)
}

// WriteFileAtomic writes data to a uniquely named part file next to path
// and renames it into place, so concurrent writers never interleave.
func WriteFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+PartSuffix)
	if err != nil {
		return err
	}
	part := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	if err := os.Chmod(part, 0644); err != nil {
		os.Remove(part)
		return err
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return err
	}
	return nil
}

// WriteMarker records a failure detail at path and stamps it with added, the
// same convention used for successful output.
func WriteMarker(path, detail string, added time.Time) error {
	if err := WriteFileAtomic(path, []byte(detail)); err != nil {
		return fmt.Errorf("write marker %s: %w", filepath.Base(path), err)
	}
	return Stamp(path, added)
}
