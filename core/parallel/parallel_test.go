package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRanges(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
		want    [][2]int
	}{
		{"empty", 0, 4, nil},
		{"single worker", 10, 1, [][2]int{{0, 10}}},
		{"more workers than items", 3, 8, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{"uneven", 10, 4, [][2]int{{0, 3}, {3, 6}, {6, 8}, {8, 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ranges(tt.items, tt.workers))
		})
	}
}

func TestParallelizeWithThresholdCoversEveryIndex(t *testing.T) {
	for _, items := range []int{0, 5, 101, 1000} {
		hits := make([]int32, items)
		ParallelizeWithThreshold(items, 10, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "items %d index %d", items, i)
		}
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
	})
	assert.Equal(t, 1, calls)
}
