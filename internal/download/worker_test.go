package download

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/playlist-archiver/internal/http"
	ioutils "github.com/handiism/playlist-archiver/internal/io"
	"github.com/handiism/playlist-archiver/internal/model"
	"github.com/handiism/playlist-archiver/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var added = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

type workerHarness struct {
	worker   *Worker
	provider *fakeProvider
	tagger   *fakeTagger
	covers   *fakeCovers
	sleeps   *recordedSleeps
	log      *eventLog
	tempDir  string
	coll     *model.Collection
}

func newWorkerHarness(t *testing.T, items ...*model.Item) *workerHarness {
	t.Helper()

	root := t.TempDir()
	h := &workerHarness{
		provider: newFakeProvider(),
		tagger:   &fakeTagger{},
		covers:   &fakeCovers{data: testPNG(t)},
		sleeps:   &recordedSleeps{},
		log:      &eventLog{},
		tempDir:  filepath.Join(root, "tmp"),
		coll:     model.NewCollection("Road Trip", "", filepath.Join(root, "out"), items),
	}
	require.NoError(t, ioutils.EnsureDir(h.tempDir))
	require.NoError(t, ioutils.EnsureDir(h.coll.Dir))

	h.worker = &Worker{
		id:         0,
		provider:   h.provider,
		transcoder: fakeTranscoder{},
		tagger:     h.tagger,
		covers:     h.covers,
		images:     ioutils.NewImageService(),
		cover:      CoverOptions{InTags: true, InFolder: true, MaxSize: 1000},
		retry:      DefaultRetryPolicy(),
		sleep:      h.sleeps.sleep,
		tempDir:    h.tempDir,
		onProgress: h.log.record,
	}
	return h
}

func (h *workerHarness) process(ctx context.Context, index int) Outcome {
	return h.worker.Process(ctx, WorkItem{Item: h.coll.Items[index], Collection: h.coll, Index: index})
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func track(id, name string) *model.Item {
	return &model.Item{ID: id, Name: name, Artists: []string{"Artist"}, Album: "Album", Added: added, TrackNumber: 1}
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	parts, err := filepath.Glob(filepath.Join(dir, "*"+ioutils.PartSuffix))
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.provider.errs["t1"] = []error{
		stream.TransientError(errors.New("429 Too Many Requests")),
		stream.TransientError(errors.New("audio key")),
	}

	marker := item.MarkerPath(h.coll.Dir)
	require.NoError(t, os.WriteFile(marker, []byte("old failure\n"), 0644))

	outcome := h.process(context.Background(), 0)
	require.Equal(t, OutcomeSucceeded, outcome.Kind, "reason: %v", outcome.Reason)

	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, h.sleeps.delays)
	assert.Equal(t, 3, h.provider.calls("t1"))
	assert.Len(t, h.log.messages(LevelWarning), 2)
	assert.True(t, h.log.contains(LevelWarning, "Rate limit"))

	final := item.OutputPath(h.coll.Dir)
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "mp3:audio-t1", string(data))

	info, err := os.Stat(final)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(added), "mtime %v", info.ModTime())

	assert.NoFileExists(t, marker)
	assertNoPartFiles(t, h.coll.Dir)
	assertEmptyDir(t, h.tempDir)
}

func TestWorkerSkipsCompleteArtifact(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	require.NoError(t, os.WriteFile(item.OutputPath(h.coll.Dir), []byte("done"), 0644))

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSkipped, outcome.Kind)
	assert.Zero(t, h.provider.calls("t1"))
	assert.Empty(t, h.tagger.tagged)
	assert.Zero(t, h.covers.hits)
}

func TestWorkerRetriesEmptyArtifact(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	require.NoError(t, os.WriteFile(item.OutputPath(h.coll.Dir), nil, 0644))

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSucceeded, outcome.Kind)
	assert.Equal(t, 1, h.provider.calls("t1"))
}

func TestWorkerFatalAcquisitionWritesMarker(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.provider.fatal["t1"] = errors.New("track unavailable")

	outcome := h.process(context.Background(), 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, ErrAcquisition)
	assert.Empty(t, h.sleeps.delays)

	marker := item.MarkerPath(h.coll.Dir)
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Contains(t, string(data), "track unavailable")

	info, err := os.Stat(marker)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(added))

	assert.NoFileExists(t, item.OutputPath(h.coll.Dir))
	assert.True(t, h.log.contains(LevelError, "ERROR"))
}

func TestWorkerRetriesExhausted(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.worker.retry = RetryPolicy{Initial: time.Second, Step: time.Second, MaxAttempts: 3}
	for i := 0; i < 5; i++ {
		h.provider.errs["t1"] = append(h.provider.errs["t1"], stream.TransientError(errors.New("429")))
	}

	outcome := h.process(context.Background(), 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, ErrRetriesExhausted)
	assert.ErrorIs(t, outcome.Reason, ErrAcquisition)
	assert.Equal(t, 3, h.provider.calls("t1"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps.delays)
	assert.FileExists(t, item.MarkerPath(h.coll.Dir))
}

func TestWorkerConversionFailureIsPerItem(t *testing.T) {
	bad := track("corrupt1", "Broken")
	good := track("t2", "Fine")
	h := newWorkerHarness(t, bad, good)

	first := h.process(context.Background(), 0)
	second := h.process(context.Background(), 1)

	require.Equal(t, OutcomeFailed, first.Kind)
	assert.ErrorIs(t, first.Reason, ErrConversion)
	assert.FileExists(t, bad.MarkerPath(h.coll.Dir))
	assert.NoFileExists(t, bad.OutputPath(h.coll.Dir))

	assert.Equal(t, OutcomeSucceeded, second.Kind)
	assert.FileExists(t, good.OutputPath(h.coll.Dir))

	assertNoPartFiles(t, h.coll.Dir)
	assertEmptyDir(t, h.tempDir)
}

func TestWorkerRecoversPanic(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.tagger.panicOn = "t1"

	outcome := h.process(context.Background(), 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, ErrConversion)
	assert.FileExists(t, item.MarkerPath(h.coll.Dir))
	assertNoPartFiles(t, h.coll.Dir)
	assertEmptyDir(t, h.tempDir)
}

func TestWorkerInterruptedWritesNoMarker(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.provider.errs["t1"] = []error{stream.TransientError(errors.New("429"))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := h.process(ctx, 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, context.Canceled)
	assert.NoFileExists(t, item.MarkerPath(h.coll.Dir))
}

type shortProvider struct{}

func (shortProvider) Open(context.Context, string) (stream.Stream, error) {
	return stream.NewStream(io.NopCloser(bytes.NewReader([]byte("abc"))), 10), nil
}

func (shortProvider) Close() error { return nil }

func TestWorkerShortStreamFails(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.worker.provider = shortProvider{}

	outcome := h.process(context.Background(), 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, ErrAcquisition)
	assert.NoFileExists(t, item.OutputPath(h.coll.Dir))
	assertEmptyDir(t, h.tempDir)
}

func TestWorkerCoverArt(t *testing.T) {
	a := track("t1", "One")
	b := track("t2", "Two")
	a.ImageURL = "https://img.example/cover"
	b.ImageURL = "https://img.example/cover"
	h := newWorkerHarness(t, a, b)

	require.Equal(t, OutcomeSucceeded, h.process(context.Background(), 0).Kind)
	require.Equal(t, OutcomeSucceeded, h.process(context.Background(), 1).Kind)

	assert.Equal(t, 1, h.covers.hits, "cover is cached between items")
	require.Len(t, h.tagger.artwork, 2)
	assert.NotEmpty(t, h.tagger.artwork[0])

	folder, err := os.ReadFile(h.coll.CoverArtPath())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(folder))
	assert.NoError(t, err)
}

func TestWorkerUndecodableCoverStillSucceeds(t *testing.T) {
	item := track("t1", "Song")
	item.ImageURL = "https://img.example/cover"
	h := newWorkerHarness(t, item)
	h.covers.data = []byte("not an image")

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSucceeded, outcome.Kind)
	assert.NoFileExists(t, h.coll.CoverArtPath())
	assert.True(t, h.log.contains(LevelWarning, "folder.png"))
}

func TestWorkerWithoutArtworkSkipsCoverFetch(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSucceeded, outcome.Kind)
	assert.Zero(t, h.covers.hits)
	require.Len(t, h.tagger.artwork, 1)
	assert.Nil(t, h.tagger.artwork[0])
}

func TestWorkerHonorsRetryAfter(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter time.Duration
		want       time.Duration
	}{
		{"shorter than policy", 2 * time.Second, 5 * time.Second},
		{"longer than policy", 30 * time.Second, 30 * time.Second},
		{"capped", time.Hour, DefaultRetryPolicy().MaxWait()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := track("t1", "Song")
			h := newWorkerHarness(t, item)
			h.provider.errs["t1"] = []error{
				stream.TransientError(&http.StatusError{Code: 429, Status: "429 Too Many Requests", RetryAfter: tt.retryAfter}),
			}

			outcome := h.process(context.Background(), 0)

			require.Equal(t, OutcomeSucceeded, outcome.Kind)
			assert.Equal(t, []time.Duration{tt.want}, h.sleeps.delays)
		})
	}
}

func TestWorkerPartFileIsOwnedByWorkerAndItem(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	h.worker.id = 3

	var part string
	h.worker.transcoder = transcodeFunc(func(_ context.Context, src, dst string) error {
		part = dst
		return os.WriteFile(dst, []byte("mp3"), 0644)
	})

	require.Equal(t, OutcomeSucceeded, h.process(context.Background(), 0).Kind)
	assert.Equal(t, ioutils.PartPath(item.OutputPath(h.coll.Dir), "w3-t1"), part)
}

func TestWorkerFailureKeepsArtifactCommittedMeanwhile(t *testing.T) {
	item := track("t1", "Song")
	h := newWorkerHarness(t, item)
	final := item.OutputPath(h.coll.Dir)

	// Another item with the same stem commits while this one converts.
	h.worker.transcoder = transcodeFunc(func(_ context.Context, _, _ string) error {
		if err := os.WriteFile(final, []byte("from the other item"), 0644); err != nil {
			return err
		}
		return errors.New("invalid data found when processing input")
	})

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSkipped, outcome.Kind)
	assert.NoFileExists(t, item.MarkerPath(h.coll.Dir))
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "from the other item", string(data))
}

func TestWorkerFolderArtOnlyFromCommittedItems(t *testing.T) {
	item := track("t1", "Song")
	item.ImageURL = "https://img.example/cover"
	h := newWorkerHarness(t, item)
	h.worker.transcoder = transcodeFunc(func(_ context.Context, _, dst string) error {
		return os.WriteFile(dst, nil, 0644)
	})

	outcome := h.process(context.Background(), 0)

	require.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Reason, ioutils.ErrEmptyArtifact)
	assert.NoFileExists(t, h.coll.CoverArtPath())
	assert.FileExists(t, item.MarkerPath(h.coll.Dir))
}

func TestWorkerFolderArtFailureAfterCommit(t *testing.T) {
	item := track("t1", "Song")
	item.ImageURL = "https://img.example/cover"
	h := newWorkerHarness(t, item)
	require.NoError(t, os.Mkdir(h.coll.CoverArtPath(), 0755))

	outcome := h.process(context.Background(), 0)

	assert.Equal(t, OutcomeSucceeded, outcome.Kind)
	assert.FileExists(t, item.OutputPath(h.coll.Dir))
	assert.NoFileExists(t, item.MarkerPath(h.coll.Dir))
	assert.True(t, h.log.contains(LevelWarning, "folder.png"))
}
