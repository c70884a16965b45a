// Package parallel は行範囲を goroutine に分割する。
// k-means の割り当てと silhouette の距離計算で使う。
package parallel

import (
	"runtime"
	"sync"
)

// Ranges splits [0, items) into at most workers contiguous [start, end)
// ranges of near-equal size. workers <= 0 means GOMAXPROCS.
func Ranges(items, workers int) [][2]int {
	if items <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, items)

	out := make([][2]int, 0, workers)
	base, extra := items/workers, items%workers
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < extra {
			size++
		}
		out = append(out, [2]int{start, start + size})
		start += size
	}
	return out
}

// ParallelizeWithThreshold runs fn once over [0, items) when items <=
// threshold, otherwise once per range of Ranges(items, 0) concurrently.
// fn must only write to state indexed inside its own range.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	ranges := Ranges(items, 0)
	if len(ranges) == 1 {
		fn(0, items)
		return
	}
	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(r[0], r[1])
		}()
	}
	wg.Wait()
}
