package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSequentialPreservesOrder(t *testing.T) {
	var order []int
	results := Run(context.Background(), 5, Launcher{MaxConcurrency: 1, FailFast: true}, func(ctx context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	require.Len(t, results, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, maxSeen int32
	results := Run(context.Background(), 20, Launcher{MaxConcurrency: 3, FailFast: true}, func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	require.Len(t, results, 20)
	assert.LessOrEqual(t, int(maxSeen), 3)
}

func TestRunFailFastCancelsPeers(t *testing.T) {
	var started int32
	results := Run(context.Background(), 10, Launcher{MaxConcurrency: 0, FailFast: true}, func(ctx context.Context, i int) error {
		atomic.AddInt32(&started, 1)
		if i == 2 {
			return assert.AnError
		}
		<-ctx.Done()
		return ctx.Err()
	})

	failed := false
	for _, r := range results {
		if r.Index == 2 {
			assert.Equal(t, assert.AnError, r.Err)
			failed = true
		}
	}
	assert.True(t, failed)
}

func TestRunEmptySetReturnsEmpty(t *testing.T) {
	results := Run(context.Background(), 0, Launcher{}, func(ctx context.Context, i int) error { return nil })
	assert.Empty(t, results)
}

func TestDependencyGraphTopologicalSort(t *testing.T) {
	g, err := NewDependencyGraph(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a", "b"},
	})
	require.NoError(t, err)

	order, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestDependencyGraphDetectsCycle(t *testing.T) {
	g, err := NewDependencyGraph(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	require.NoError(t, err)
	_, err = g.TopologicalSort()
	assert.Error(t, err)
}

func TestDependencyGraphRejectsUnknownDependency(t *testing.T) {
	_, err := NewDependencyGraph(map[string][]string{
		"a": {"ghost"},
	})
	assert.Error(t, err)
}
