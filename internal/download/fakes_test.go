package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/handiism/playlist-archiver/internal/model"
	"github.com/handiism/playlist-archiver/internal/stream"
)

// fakeProvider serves "audio-<id>" for every id. Scripted errors are
// returned, in order, before the first successful open of an id.
type fakeProvider struct {
	mu     sync.Mutex
	errs   map[string][]error
	fatal  map[string]error
	opens  map[string]int
	closed bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		errs:  map[string][]error{},
		fatal: map[string]error{},
		opens: map[string]int{},
	}
}

func (p *fakeProvider) Open(_ context.Context, id string) (stream.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.opens[id]++
	if err, ok := p.fatal[id]; ok {
		return nil, err
	}
	if q := p.errs[id]; len(q) > 0 {
		p.errs[id] = q[1:]
		return nil, q[0]
	}

	body := []byte("audio-" + id)
	return stream.NewStream(io.NopCloser(bytes.NewReader(body)), int64(len(body))), nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProvider) calls(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens[id]
}

// fakeTranscoder copies src to dst and fails for sources containing "corrupt".
type fakeTranscoder struct{}

func (fakeTranscoder) Transcode(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if bytes.Contains(data, []byte("corrupt")) {
		return errors.New("invalid data found when processing input")
	}
	return os.WriteFile(dst, append([]byte("mp3:"), data...), 0644)
}

type fakeTagger struct {
	mu      sync.Mutex
	tagged  []string
	artwork [][]byte
	panicOn string
}

func (t *fakeTagger) SaveTags(path string, item *model.Item, artwork []byte) error {
	if t.panicOn != "" && item.ID == t.panicOn {
		panic("tag writer exploded")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tagged = append(t.tagged, path)
	t.artwork = append(t.artwork, artwork)
	return nil
}

type fakeCovers struct {
	mu   sync.Mutex
	data []byte
	hits int
}

func (c *fakeCovers) DownloadBytes(context.Context, string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	return c.data, nil
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) record(e ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) messages(level ProgressLevel) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

func (l *eventLog) contains(level ProgressLevel, substr string) bool {
	for _, m := range l.messages(level) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type transcodeFunc func(ctx context.Context, src, dst string) error

func (f transcodeFunc) Transcode(ctx context.Context, src, dst string) error {
	return f(ctx, src, dst)
}
