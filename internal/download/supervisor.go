package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/handiism/playlist-archiver/internal/audio"
	"github.com/handiism/playlist-archiver/internal/config"
	ioutils "github.com/handiism/playlist-archiver/internal/io"
	"github.com/handiism/playlist-archiver/internal/model"
	"github.com/handiism/playlist-archiver/internal/stream"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators a Supervisor hands to its workers.
type Deps struct {
	// Providers opens one streaming session per worker.
	Providers  stream.ProviderFactory
	Transcoder audio.Transcoder
	Tagger     Tagger
	Covers     CoverFetcher

	// OnProgress receives events from every worker goroutine and must be
	// safe for concurrent use.
	OnProgress func(ProgressEvent)

	// Sleep and Now default to the real clock.
	Sleep Sleeper
	Now   func() time.Time
}

// Supervisor runs a manifest across a fixed pool of workers.
type Supervisor struct {
	settings *config.Settings
	deps     Deps
	images   *ioutils.ImageService
	playlist *audio.PlaylistCreator

	agg atomic.Pointer[Aggregator]
}

// NewSupervisor creates a Supervisor for settings.
func NewSupervisor(settings *config.Settings, deps Deps) *Supervisor {
	if deps.Sleep == nil {
		deps.Sleep = SleepContext
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Supervisor{
		settings: settings,
		deps:     deps,
		images:   ioutils.NewImageService(),
		playlist: audio.NewPlaylistCreator(audio.ParsePlaylistFormat(settings.PlaylistFormat), settings.M3UExtended),
	}
}

// Run processes every item of collections and blocks until all workers are
// done. Per-item failures are counted, not returned: the error only reports
// problems that prevented the run or a worker from starting.
func (s *Supervisor) Run(ctx context.Context, collections []*model.Collection) (Snapshot, error) {
	// The scratch directory is emptied below; refuse settings that would
	// point it at the archive.
	if err := s.settings.Validate(); err != nil {
		return Snapshot{}, err
	}

	items := Flatten(collections)

	if err := ioutils.EnsureDir(s.settings.OutputPath); err != nil {
		return Snapshot{}, fmt.Errorf("create output directory: %w", err)
	}
	for _, c := range collections {
		if err := ioutils.EnsureDir(c.Dir); err != nil {
			return Snapshot{}, fmt.Errorf("create directory for %s: %w", c.Name, err)
		}
	}
	if err := ioutils.ClearDir(s.settings.TempPath); err != nil {
		return Snapshot{}, fmt.Errorf("clear temp directory: %w", err)
	}

	shards, err := Partition(items, s.settings.Workers)
	if err != nil {
		return Snapshot{}, err
	}

	s.progress(LevelInfo, "Archiving %d items from %d collections with %d workers", len(items), len(collections), len(shards))

	agg := NewAggregator(len(shards), config.Seconds(s.settings.SummaryInterval), s.deps.Now, s.deps.OnProgress)
	agg.Start()
	s.agg.Store(agg)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for id, shard := range shards {
		agg.SetTotal(id, len(shard))
		g.Go(func() error {
			if err := s.runShard(ctx, agg, id, shard); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("worker #%d: %w", id+1, err))
				mu.Unlock()
				s.progress(LevelError, "Worker #%d stopped: %v", id+1, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	snapshot := agg.Stop()

	if s.settings.CreatePlaylist {
		s.writePlaylists(collections)
	}

	total := snapshot.Total
	s.progress(LevelSummary, "Done! %d downloaded, %d failed, %d skipped of %d", total.Success, total.Fail, total.Skip, total.Total)

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return snapshot, errors.Join(errs...)
}

// Progress returns the counters of the current or last run.
func (s *Supervisor) Progress() Snapshot {
	agg := s.agg.Load()
	if agg == nil {
		return Snapshot{}
	}
	return agg.Snapshot()
}

func (s *Supervisor) runShard(ctx context.Context, agg *Aggregator, id int, shard []WorkItem) error {
	if len(shard) == 0 {
		return nil
	}

	provider, err := s.deps.Providers(ctx, id)
	if err != nil {
		return fmt.Errorf("open provider session: %w", err)
	}
	defer provider.Close()

	w := &Worker{
		id:         id,
		provider:   provider,
		transcoder: s.deps.Transcoder,
		tagger:     s.deps.Tagger,
		covers:     s.deps.Covers,
		images:     s.images,
		cover: CoverOptions{
			InTags:     s.settings.SaveCoverArtInTags,
			InFolder:   s.settings.SaveCoverArtInFolder,
			ResizeTags: s.settings.CoverArtInTagsResize,
			MaxSize:    s.settings.CoverArtInTagsMaxSize,
		},
		retry: RetryPolicy{
			Initial:     config.Seconds(s.settings.RetryCooldown),
			Step:        config.Seconds(s.settings.RetryCooldownStep),
			MaxAttempts: s.settings.RetryMaxAttempts,
		},
		sleep:      s.deps.Sleep,
		tempDir:    s.settings.TempPath,
		onProgress: s.deps.OnProgress,
	}

	for _, wi := range shard {
		if ctx.Err() != nil {
			return nil
		}
		agg.Report(id, w.Process(ctx, wi))
	}
	return nil
}

// writePlaylists lists, per collection, the items that have an artifact.
// Playlist errors are reported and never fail the run.
func (s *Supervisor) writePlaylists(collections []*model.Collection) {
	ext := s.playlist.Format().Extension()
	for _, c := range collections {
		var archived []*model.Item
		for _, item := range c.Items {
			if ioutils.NonEmptyFile(item.OutputPath(c.Dir)) {
				archived = append(archived, item)
			}
		}
		if len(archived) == 0 {
			continue
		}

		path := c.PlaylistPath(ext)
		if err := ioutils.WriteFileAtomic(path, []byte(s.playlist.CreatePlaylist(c, archived))); err != nil {
			s.progress(LevelError, "%s: could not write playlist: %v", c.Name, err)
			continue
		}
		s.progress(LevelVerbose, "%s: playlist written (%d items)", c.Name, len(archived))
	}
}

func (s *Supervisor) progress(level ProgressLevel, format string, args ...any) {
	if s.deps.OnProgress == nil {
		return
	}
	s.deps.OnProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level, Worker: -1})
}

// CollectionPlan is the on-disk state of one collection.
type CollectionPlan struct {
	Collection *model.Collection

	// Archived items have a complete artifact and will be skipped.
	Archived int

	// Failed items have an error marker from an earlier run.
	Failed int

	// Pending items will be attempted.
	Pending int
}

// Plan inspects the output tree without contacting any provider.
// Failed items are counted as pending too, since the next run retries them.
func Plan(collections []*model.Collection) []CollectionPlan {
	plans := make([]CollectionPlan, 0, len(collections))
	for _, c := range collections {
		p := CollectionPlan{Collection: c}
		for _, item := range c.Items {
			switch {
			case ioutils.NonEmptyFile(item.OutputPath(c.Dir)):
				p.Archived++
			default:
				p.Pending++
				if ioutils.NonEmptyFile(item.MarkerPath(c.Dir)) {
					p.Failed++
				}
			}
		}
		plans = append(plans, p)
	}
	return plans
}
