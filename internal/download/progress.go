package download

import (
	"fmt"
	"sync"
	"time"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess

	// LevelProgress carries one worker's running totals.
	LevelProgress

	// LevelSummary carries the totals summed over all workers.
	LevelSummary
)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Worker is the zero-based worker index, -1 for run-wide events.
	Worker int

	// Counters is set for LevelProgress and LevelSummary events.
	Counters Counters
}

// Counters is one worker's tally. Success+Fail+Skip never exceeds Total and
// equals it once the worker's shard is done.
type Counters struct {
	Total   int
	Success int
	Fail    int
	Skip    int
}

// Done is the number of items with an outcome.
func (c Counters) Done() int {
	return c.Success + c.Fail + c.Skip
}

// Percent is Done/Total rounded down, 0 for an empty total.
func (c Counters) Percent() int {
	if c.Total == 0 {
		return 0
	}
	return c.Done() * 100 / c.Total
}

func (c Counters) add(o Counters) Counters {
	return Counters{
		Total:   c.Total + o.Total,
		Success: c.Success + o.Success,
		Fail:    c.Fail + o.Fail,
		Skip:    c.Skip + o.Skip,
	}
}

// Snapshot is a consistent copy of all counters.
type Snapshot struct {
	Workers []Counters
	Total   Counters
}

type messageKind int

const (
	msgSetTotal messageKind = iota
	msgReport
	msgSnapshot
	msgStop
)

type message struct {
	kind    messageKind
	worker  int
	total   int
	outcome Outcome
	reply   chan Snapshot
}

// DefaultSummaryInterval is how often a run-wide summary replaces a
// per-worker line.
const DefaultSummaryInterval = 10 * time.Second

// Aggregator collects per-worker counters and renders progress.
//
// A single goroutine started by Start owns every counter and the
// last-summary timestamp; SetTotal, Report and Snapshot only exchange
// messages with it, so no state is shared between workers.
//
// On each report, if more than the interval has passed since the last
// summary, a LevelSummary event with the sums over all workers is emitted.
// Otherwise the reporting worker's totals are emitted as LevelProgress,
// except for skips, which stay silent.
type Aggregator struct {
	interval time.Duration
	now      func() time.Time
	emit     func(ProgressEvent)

	counters    []Counters
	lastSummary time.Time

	inbox    chan message
	done     chan struct{}
	final    Snapshot
	stopOnce sync.Once
}

// NewAggregator creates an Aggregator for workers counter blocks. now may be
// nil to use time.Now; emit may be nil to discard events.
func NewAggregator(workers int, interval time.Duration, now func() time.Time, emit func(ProgressEvent)) *Aggregator {
	if now == nil {
		now = time.Now
	}
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	if interval <= 0 {
		interval = DefaultSummaryInterval
	}
	return &Aggregator{
		interval:    interval,
		now:         now,
		emit:        emit,
		counters:    make([]Counters, workers),
		lastSummary: now(),
		inbox:       make(chan message, workers*4),
		done:        make(chan struct{}),
	}
}

// Start launches the owning goroutine.
func (a *Aggregator) Start() {
	go a.run()
}

// Stop drains pending messages, stops the goroutine and returns the final
// snapshot. Reports sent after Stop are dropped.
func (a *Aggregator) Stop() Snapshot {
	a.stopOnce.Do(func() {
		a.inbox <- message{kind: msgStop}
	})
	<-a.done
	return a.final
}

// SetTotal records the size of a worker's shard.
func (a *Aggregator) SetTotal(worker, total int) {
	a.send(message{kind: msgSetTotal, worker: worker, total: total})
}

// Report records one finished item for worker.
func (a *Aggregator) Report(worker int, outcome Outcome) {
	a.send(message{kind: msgReport, worker: worker, outcome: outcome})
}

// Snapshot returns a consistent copy of the counters.
func (a *Aggregator) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case a.inbox <- message{kind: msgSnapshot, reply: reply}:
	case <-a.done:
		return a.final
	}

	select {
	case s := <-reply:
		return s
	case <-a.done:
		return a.final
	}
}

func (a *Aggregator) send(m message) {
	select {
	case a.inbox <- m:
	case <-a.done:
	}
}

func (a *Aggregator) run() {
	for m := range a.inbox {
		switch m.kind {
		case msgSetTotal:
			a.counters[m.worker].Total = m.total
		case msgReport:
			a.report(m.worker, m.outcome)
		case msgSnapshot:
			m.reply <- a.snapshot()
		case msgStop:
			a.final = a.snapshot()
			close(a.done)
			return
		}
	}
}

func (a *Aggregator) report(worker int, outcome Outcome) {
	c := &a.counters[worker]
	switch outcome.Kind {
	case OutcomeSucceeded:
		c.Success++
	case OutcomeFailed:
		c.Fail++
	case OutcomeSkipped:
		c.Skip++
	}

	now := a.now()
	if now.Sub(a.lastSummary) > a.interval {
		total := a.snapshot().Total
		a.lastSummary = now
		a.emit(ProgressEvent{
			Message: fmt.Sprintf("Total progress: %d/%d (%d%%) [%d downloaded, %d failed, %d skipped]",
				total.Done(), total.Total, total.Percent(), total.Success, total.Fail, total.Skip),
			Level:    LevelSummary,
			Worker:   -1,
			Counters: total,
		})
		return
	}

	if outcome.Kind == OutcomeSkipped {
		return
	}

	a.emit(ProgressEvent{
		Message:  fmt.Sprintf("Worker #%d: %d downloaded, %d failed, %d skipped", worker+1, c.Success, c.Fail, c.Skip),
		Level:    LevelProgress,
		Worker:   worker,
		Counters: *c,
	})
}

func (a *Aggregator) snapshot() Snapshot {
	s := Snapshot{Workers: make([]Counters, len(a.counters))}
	copy(s.Workers, a.counters)
	for _, c := range a.counters {
		s.Total = s.Total.add(c)
	}
	return s
}
