package download

import (
	"errors"
	"fmt"

	"github.com/handiism/playlist-archiver/internal/model"
)

// Failure classes carried by a Failed outcome.
var (
	// ErrAcquisition covers every fatal streaming failure, including
	// exhausted retries.
	ErrAcquisition = errors.New("acquisition failed")

	// ErrConversion covers transcoding, tagging and cover art failures.
	ErrConversion = errors.New("conversion failed")

	// ErrRetriesExhausted is wrapped when rate limiting outlasted the
	// retry policy.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// OutcomeKind is the terminal state of one item.
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota + 1
	OutcomeSucceeded
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of processing one item. Reason is set only for
// OutcomeFailed.
type Outcome struct {
	Kind   OutcomeKind
	Reason error
}

// Skipped returns the outcome for an item whose artifact already exists.
func Skipped() Outcome { return Outcome{Kind: OutcomeSkipped} }

// Succeeded returns the outcome for a committed artifact.
func Succeeded() Outcome { return Outcome{Kind: OutcomeSucceeded} }

// Failed returns a failed outcome carrying reason.
func Failed(reason error) Outcome { return Outcome{Kind: OutcomeFailed, Reason: reason} }

// WorkItem is one item scheduled for a worker, with the collection context
// needed for paths and log lines.
type WorkItem struct {
	Item       *model.Item
	Collection *model.Collection

	// Index is the item's position inside its collection.
	Index int
}

// Label renders "Collection: #3/12" for log lines.
func (w WorkItem) Label() string {
	return fmt.Sprintf("%s: #%d/%d", w.Collection.Name, w.Index+1, len(w.Collection.Items))
}

// Flatten lists every item of every collection in manifest order.
func Flatten(collections []*model.Collection) []WorkItem {
	var items []WorkItem
	for _, c := range collections {
		for i, item := range c.Items {
			items = append(items, WorkItem{Item: item, Collection: c, Index: i})
		}
	}
	return items
}
