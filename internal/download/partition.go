package download

import (
	"errors"
	"fmt"
)

// ErrInvalidWorkerCount is returned when fewer than one worker is requested.
var ErrInvalidWorkerCount = errors.New("worker count must be at least 1")

// Partition splits items into exactly workers contiguous shards.
//
// Every shard but the last holds len(items)/workers items; the last one
// absorbs the remainder, so it is never smaller than the others. Shards
// concatenated in order reproduce items. With fewer items than workers the
// leading shards are empty.
//
// Example:
//
//	shards, _ := Partition(items, 4) // 103 items -> 25, 25, 25, 28
func Partition[T any](items []T, workers int) ([][]T, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workers)
	}

	size := len(items) / workers
	shards := make([][]T, workers)
	for i := 0; i < workers; i++ {
		start := i * size
		end := start + size
		if i == workers-1 {
			end = len(items)
		}
		shards[i] = items[start:end:end]
	}

	return shards, nil
}
