// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization that is safe on every target file system
//   - Directory creation and scratch directory cleanup
//   - Atomic finalization of output files and error markers
//   - Cover art resizing and PNG conversion
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName(`AC/DC: "Live"?`) // Returns "AC-DC; 'Live'!"
//
// # Finalization
//
// Output is written to a ".part" path and renamed into place only once it is
// complete, then stamped with the item's added time:
//
//	part := ioutils.PartPath(final, "w0-4uLOMNO")
//	// ... transcode and tag into part ...
//	err := ioutils.Commit(part, final, item.Added)
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	resized, _ := svc.ResizeImage(ctx, imageData, 500, 500)
//	png, _ := svc.ConvertToPNG(ctx, imageData)
package ioutils
