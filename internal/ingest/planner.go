// Package ingest implements the bulk row ingestion pipeline: batch planning,
// synthetic value generation, streaming batch writers, and the bounded
// worker pool that runs them.
package ingest

import (
	"fmt"

	"github.com/petrel-data/gridbase/pkg/types"
)

// Batch is one unit of ingestion work: a fixed-size slice of the requested
// row count, claimed by exactly one worker.
type Batch struct {
	Index int
	Size  int
}

// Planner splits a requested row count into fixed-size batches.
type Planner struct {
	BatchSize int
}

// Plan partitions count into batches of BatchSize with a smaller tail.
// count == 0 yields an empty plan; counts outside [0, MaxIngestCount] are
// rejected.
func (p Planner) Plan(count int) ([]Batch, error) {
	if count < 0 || count > types.MaxIngestCount {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", types.ErrCountOutOfRange, count, types.MaxIngestCount)
	}
	if count == 0 {
		return nil, nil
	}
	size := p.BatchSize
	if size <= 0 {
		size = types.DefaultBatchSize
	}

	var batches []Batch
	remaining := count
	for i := 0; remaining > 0; i++ {
		n := size
		if remaining < n {
			n = remaining
		}
		batches = append(batches, Batch{Index: i, Size: n})
		remaining -= n
	}
	return batches, nil
}

// Workers returns the bounded worker count for a plan: the configured
// maximum, capped by the number of batches.
func (p Planner) Workers(maxWorkers, batchCount int) int {
	if maxWorkers <= 0 {
		maxWorkers = types.DefaultMaxWorkers
	}
	if batchCount < maxWorkers {
		return batchCount
	}
	return maxWorkers
}
