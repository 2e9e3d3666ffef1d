package ingest

import (
	"errors"
	"testing"

	"github.com/petrel-data/gridbase/pkg/types"
)

func TestPlanner_Plan(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		count     int
		wantSizes []int
	}{
		{"zero count", 35000, 0, nil},
		{"single partial batch", 35000, 100, []int{100}},
		{"exact batch", 35000, 35000, []int{35000}},
		{"full plus tail", 35000, 70001, []int{35000, 35000, 1}},
		{"max count", 35000, 100000, []int{35000, 35000, 30000}},
		{"default batch size", 0, 40000, []int{35000, 5000}},
		{"small batches", 10, 25, []int{10, 10, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := Planner{BatchSize: tt.batchSize}.Plan(tt.count)
			if err != nil {
				t.Fatalf("Plan(%d) failed: %v", tt.count, err)
			}
			if len(batches) != len(tt.wantSizes) {
				t.Fatalf("Plan(%d) = %d batches, want %d", tt.count, len(batches), len(tt.wantSizes))
			}
			total := 0
			for i, b := range batches {
				if b.Index != i {
					t.Errorf("batch %d has index %d", i, b.Index)
				}
				if b.Size != tt.wantSizes[i] {
					t.Errorf("batch %d size = %d, want %d", i, b.Size, tt.wantSizes[i])
				}
				total += b.Size
			}
			if total != tt.count {
				t.Errorf("batch sizes sum to %d, want %d", total, tt.count)
			}
		})
	}
}

func TestPlanner_PlanRejectsOutOfRange(t *testing.T) {
	for _, count := range []int{-1, types.MaxIngestCount + 1} {
		_, err := Planner{}.Plan(count)
		if !errors.Is(err, types.ErrCountOutOfRange) {
			t.Errorf("Plan(%d): expected ErrCountOutOfRange, got %v", count, err)
		}
	}
}

func TestPlanner_Workers(t *testing.T) {
	tests := []struct {
		maxWorkers, batchCount, want int
	}{
		{4, 10, 4},
		{4, 3, 3},
		{4, 0, 0},
		{0, 10, types.DefaultMaxWorkers},
		{8, 8, 8},
	}
	for _, tt := range tests {
		if got := (Planner{}).Workers(tt.maxWorkers, tt.batchCount); got != tt.want {
			t.Errorf("Workers(%d, %d) = %d, want %d", tt.maxWorkers, tt.batchCount, got, tt.want)
		}
	}
}
