// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolLimits(t *testing.T) {
	p := New()
	p.SetMaxParallelism(2)
	require.True(t, p.IsEnabled())
	require.False(t, p.IsUnlimited())
	require.Equal(t, 2, p.MaxParallelism())

	// With 2 workers busy, StartIfAvailable must refuse a third task.
	var wg sync.WaitGroup
	block := make(chan struct{})
	wg.Add(2)
	for i := 0; i < 2; i++ {
		started := p.StartIfAvailable(func() {
			defer wg.Done()
			<-block
		})
		require.True(t, started)
	}
	require.False(t, p.StartIfAvailable(func() {}))
	close(block)
	wg.Wait()
}

func TestPoolDisabledRunsInline(t *testing.T) {
	p := New()
	p.SetMaxParallelism(0)
	require.False(t, p.IsEnabled())
	ran := false
	p.WaitToStart(func() { ran = true })
	require.True(t, ran)
}

func TestParallelize(t *testing.T) {
	for _, parallelism := range []int{-1, 0, 1, 3} {
		p := New()
		p.SetMaxParallelism(parallelism)
		const n = 100
		var sum atomic.Int64
		seen := make([]atomic.Bool, n)
		p.Parallelize(n, func(i int) {
			sum.Add(int64(i))
			seen[i].Store(true)
		})
		require.Equal(t, int64(n*(n-1)/2), sum.Load())
		for i := range seen {
			require.True(t, seen[i].Load())
		}
	}
	// n <= 0 is a no-op.
	p := New()
	p.Parallelize(0, func(i int) { t.Fatal("should not run") })
}
