package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/handiism/playlist-archiver/internal/audio"
	ioutils "github.com/handiism/playlist-archiver/internal/io"
	"github.com/handiism/playlist-archiver/internal/model"
	"github.com/handiism/playlist-archiver/internal/stream"
)

// Tagger embeds metadata and cover art into an output file.
type Tagger interface {
	SaveTags(path string, item *model.Item, artwork []byte) error
}

// CoverFetcher downloads cover art bytes.
type CoverFetcher interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
}

// CoverOptions controls what happens with an item's cover art.
type CoverOptions struct {
	InTags     bool
	InFolder   bool
	ResizeTags bool
	MaxSize    int
}

// Worker processes one shard, one item at a time, with its own provider
// session. A Worker is not safe for concurrent use.
type Worker struct {
	id         int
	provider   stream.Provider
	transcoder audio.Transcoder
	tagger     Tagger
	covers     CoverFetcher
	images     *ioutils.ImageService
	cover      CoverOptions
	retry      RetryPolicy
	sleep      Sleeper
	tempDir    string
	onProgress func(ProgressEvent)

	// consecutive items of an album share their cover
	lastCoverURL string
	lastCover    []byte
}

// Process runs item through the state machine and returns its outcome.
//
//	Pending -> Skipped
//	Pending -> Streaming -> Failed
//	Pending -> Streaming -> Converting -> Failed | Succeeded
//
// Every failure, including a panic in a collaborator, is contained here and
// recorded as an ".error" marker next to the would-be output.
func (w *Worker) Process(ctx context.Context, wi WorkItem) (outcome Outcome) {
	item := wi.Item
	dir := wi.Collection.Dir
	final := item.OutputPath(dir)
	marker := item.MarkerPath(dir)

	if err := ioutils.RemoveIfExists(marker); err != nil {
		w.progress(LevelWarning, "%s Could not clear old error marker (%s): %v", wi.Label(), item.Stem(), err)
	}

	if ioutils.NonEmptyFile(final) {
		w.progress(LevelVerbose, "%s Skipping (%s)", wi.Label(), item.Stem())
		return Skipped()
	}

	raw := filepath.Join(w.tempDir, fmt.Sprintf("w%d-%s.ogg.tmp", w.id, ioutils.SanitizeFileName(item.ID)))
	defer os.Remove(raw)

	defer func() {
		if r := recover(); r != nil {
			outcome = w.fail(ctx, wi, fmt.Errorf("%w: panic: %v", ErrConversion, r))
		}
	}()

	if err := w.acquire(ctx, wi, raw); err != nil {
		return w.fail(ctx, wi, err)
	}

	if err := w.convert(ctx, wi, raw, final); err != nil {
		return w.fail(ctx, wi, err)
	}

	w.progress(LevelSuccess, "%s Done (%s)", wi.Label(), item.Stem())
	return Succeeded()
}

// acquire opens the item's stream, retrying transient failures, and
// persists the full body to raw.
func (w *Worker) acquire(ctx context.Context, wi WorkItem, raw string) error {
	s, err := w.open(ctx, wi)
	if err != nil {
		return err
	}
	defer s.Close()

	w.progress(LevelInfo, "%s Downloading (%s)", wi.Label(), wi.Item.Stem())

	f, err := os.Create(raw)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrAcquisition, err)
	}

	size := s.Size()
	var n int64
	if size >= 0 {
		n, err = io.CopyN(f, s, size)
	} else {
		n, err = io.Copy(f, s)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: read stream (%d of %d bytes): %w", ErrAcquisition, n, size, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: empty stream", ErrAcquisition)
	}

	return nil
}

func (w *Worker) open(ctx context.Context, wi WorkItem) (stream.Stream, error) {
	for attempt := 1; ; attempt++ {
		s, err := w.provider.Open(ctx, wi.Item.ID)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, stream.ErrTransient) {
			return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
		}
		if attempt >= w.retry.MaxAttempts {
			return nil, fmt.Errorf("%w: %w after %d attempts: %w", ErrAcquisition, ErrRetriesExhausted, attempt, err)
		}

		delay := w.retry.Delay(attempt - 1)
		if wait := stream.RetryAfter(err); wait > delay {
			delay = min(wait, w.retry.MaxWait())
		}
		w.progress(LevelWarning, "%s Warning! (Rate limit?) retrying in %s (%s)", wi.Label(), delay, wi.Item.Stem())
		if err := w.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// convert transcodes raw into the part file, tags it and commits it to
// final. The part file never survives a failure. Part files are owned by
// one worker and item, so items sharing a stem never write the same file.
func (w *Worker) convert(ctx context.Context, wi WorkItem, raw, final string) error {
	item := wi.Item
	part := ioutils.PartPath(final, fmt.Sprintf("w%d-%s", w.id, ioutils.SanitizeFileName(item.ID)))
	// no-op once committed
	defer os.Remove(part)

	w.progress(LevelInfo, "%s Converting (%s)", wi.Label(), item.Stem())

	if err := w.transcoder.Transcode(ctx, raw, part); err != nil {
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}

	artwork, err := w.artwork(ctx, item)
	if err != nil {
		return fmt.Errorf("%w: cover art: %w", ErrConversion, err)
	}

	tagArt := artwork
	if !w.cover.InTags {
		tagArt = nil
	} else if tagArt != nil && w.cover.ResizeTags {
		if resized, rerr := w.images.ResizeImage(ctx, tagArt, w.cover.MaxSize, w.cover.MaxSize); rerr == nil {
			tagArt = resized
		}
	}

	if err := w.tagger.SaveTags(part, item, tagArt); err != nil {
		return fmt.Errorf("%w: tags: %w", ErrConversion, err)
	}

	if err := ioutils.Commit(part, final, item.Added); err != nil {
		return fmt.Errorf("%w: %w", ErrConversion, err)
	}

	// Folder art comes from an archived item only. The item is complete at
	// this point, so a failure here is reported and nothing more.
	if w.cover.InFolder && artwork != nil {
		if err := w.cacheFolderArt(ctx, wi.Collection, artwork); err != nil {
			w.progress(LevelWarning, "%s: could not write %s: %v", wi.Collection.Name, model.CoverArtFileName, err)
		}
	}
	return nil
}

// artwork returns the item's cover, or nil when it has none or none is
// wanted.
func (w *Worker) artwork(ctx context.Context, item *model.Item) ([]byte, error) {
	if !item.HasArtwork() || (!w.cover.InTags && !w.cover.InFolder) {
		return nil, nil
	}
	if item.ImageURL == w.lastCoverURL && w.lastCover != nil {
		return w.lastCover, nil
	}

	data, err := w.covers.DownloadBytes(ctx, item.ImageURL)
	if err != nil {
		return nil, err
	}
	w.lastCoverURL, w.lastCover = item.ImageURL, data
	return data, nil
}

// cacheFolderArt writes folder.png once per collection directory. Images
// that cannot be decoded are left out of the folder without failing the item.
func (w *Worker) cacheFolderArt(ctx context.Context, c *model.Collection, artwork []byte) error {
	path := c.CoverArtPath()
	if ioutils.NonEmptyFile(path) {
		return nil
	}

	png, err := w.images.ConvertToPNG(ctx, artwork)
	if err != nil {
		w.progress(LevelWarning, "%s: cover art is not a decodable image, %s not written: %v", c.Name, filepath.Base(path), err)
		return nil
	}
	return ioutils.WriteFileAtomic(path, png)
}

// fail records a failed item. Interrupted items get no marker: the next run
// retries them anyway. An item whose output was committed meanwhile by
// another item with the same stem gets no marker either, since a directory
// never holds both an artifact and a marker for one stem.
func (w *Worker) fail(ctx context.Context, wi WorkItem, reason error) Outcome {
	if ctx.Err() != nil {
		w.progress(LevelWarning, "%s Interrupted (%s)", wi.Label(), wi.Item.Stem())
		return Failed(reason)
	}

	if ioutils.NonEmptyFile(wi.Item.OutputPath(wi.Collection.Dir)) {
		w.progress(LevelWarning, "%s %v, keeping the existing %s (%s)", wi.Label(), reason, model.OutputExt, wi.Item.Stem())
		return Skipped()
	}

	w.progress(LevelError, "%s ERROR (%s): %v", wi.Label(), wi.Item.Stem(), reason)

	marker := wi.Item.MarkerPath(wi.Collection.Dir)
	if err := ioutils.WriteMarker(marker, reason.Error()+"\n", wi.Item.Added); err != nil {
		w.progress(LevelError, "%s could not write error marker: %v", wi.Label(), err)
	}
	return Failed(reason)
}

func (w *Worker) progress(level ProgressLevel, format string, args ...any) {
	if w.onProgress != nil {
		w.onProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level, Worker: w.id})
	}
}
