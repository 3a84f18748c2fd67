package cluster

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/determined-ai/jobsched/pkg/model"
)

func newTestManager(t *testing.T, policy string, clusters ...*Cluster) *Manager {
	m := NewManager(policy)
	for _, c := range clusters {
		require.NoError(t, m.AddCluster(c))
	}
	return m
}

func TestAllocateNeverPlacesOnTooSmallCluster(t *testing.T) {
	small := newTestCluster(t, "small", 8, 2)
	m := newTestManager(t, FirstFit, small)
	job := model.Job{ID: "big", RAM: 10, CPU: 2}

	require.Nil(t, m.Allocate(job))
	require.Equal(t, small.Capacity(), small.Available(), "failed allocation changed state")

	large := newTestCluster(t, "large", 16, 4)
	require.NoError(t, m.AddCluster(large))

	placed := m.Allocate(job)
	require.NotNil(t, placed)
	require.Equal(t, model.ClusterID("large"), placed.ID())
	require.Equal(t, model.Resources{RAM: 6, CPU: 2}, large.Available())
}

func TestAllocateFirstFitUsesRegistrationOrder(t *testing.T) {
	m := newTestManager(t, FirstFit,
		newTestCluster(t, "c1", 32, 8),
		newTestCluster(t, "c2", 32, 8),
		newTestCluster(t, "c3", 64, 8),
	)

	var placements []model.ClusterID
	for i := 0; i < 5; i++ {
		c := m.Allocate(model.Job{ID: model.NewJobID(), RAM: 16, CPU: 1})
		require.NotNil(t, c)
		placements = append(placements, c.ID())
	}
	require.Equal(t, []model.ClusterID{"c1", "c1", "c2", "c2", "c3"}, placements)
}

func TestAllocateFittingPolicies(t *testing.T) {
	tests := []struct {
		policy   string
		expected model.ClusterID
	}{
		{FirstFit, "roomy"},
		{BestFit, "snug"},
		{WorstFit, "roomy"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.policy, func(t *testing.T) {
			roomy := newTestCluster(t, "roomy", 64, 16)
			snug := newTestCluster(t, "snug", 64, 16)
			require.True(t, snug.TryReserve(model.Resources{RAM: 48, CPU: 12}))
			m := newTestManager(t, tt.policy, roomy, snug)

			c := m.Allocate(model.Job{ID: "j", RAM: 8, CPU: 2})
			require.NotNil(t, c)
			require.Equal(t, tt.expected, c.ID())
		})
	}
}

func TestMakeFitFunctionInvalid(t *testing.T) {
	require.Panics(t, func() { MakeFitFunction("random") })
}

func TestHeadroom(t *testing.T) {
	s := Summary{
		Capacity:  model.Resources{RAM: 10, CPU: 10},
		Available: model.Resources{RAM: 10, CPU: 4},
	}
	require.InDelta(t, 0.4, headroom(model.Resources{RAM: 5, CPU: 1}, s), 1e-9)
	require.InDelta(t, 0.0, fraction(3, 0), 1e-9)
}

func TestAddClusterDuplicate(t *testing.T) {
	m := newTestManager(t, FirstFit, newTestCluster(t, "dup", 1, 1))
	err := m.AddCluster(newTestCluster(t, "dup", 2, 2))
	require.True(t, errors.Is(err, ErrDuplicateCluster))
	require.Len(t, m.Clusters(), 1)

	c, ok := m.Cluster("dup")
	require.True(t, ok)
	require.Equal(t, model.Resources{RAM: 1, CPU: 1}, c.Capacity())
}

func TestConcurrentAllocateNoDoubleBooking(t *testing.T) {
	var clusters []*Cluster
	for _, id := range []string{"a", "b", "c", "d"} {
		clusters = append(clusters, newTestCluster(t, id, 10, 10))
	}
	m := newTestManager(t, FirstFit, clusters...)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed = map[model.ClusterID]int{}
	)
	start := make(chan struct{})
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if c := m.Allocate(model.Job{ID: model.NewJobID(), RAM: 5, CPU: 5}); c != nil {
				mu.Lock()
				placed[c.ID()]++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, map[model.ClusterID]int{"a": 2, "b": 2, "c": 2, "d": 2}, placed)
	for _, s := range m.Summaries() {
		require.Equal(t, model.Resources{}, s.Available)
	}
}

func TestReleasedSignal(t *testing.T) {
	c := newTestCluster(t, "signal", 4, 4)
	m := newTestManager(t, FirstFit, c)

	select {
	case <-m.Released():
		require.FailNow(t, "no release has happened yet")
	default:
	}

	job := model.Job{ID: "j", RAM: 4, CPU: 4}
	require.Equal(t, c, m.Allocate(job))
	c.Submit(job)

	select {
	case <-m.Released():
	case <-time.After(time.Second):
		require.FailNow(t, "release should have been signaled")
	}
	c.Wait()
	require.Equal(t, c.Capacity(), c.Available())
}

func TestFeasible(t *testing.T) {
	m := newTestManager(t, FirstFit,
		newTestCluster(t, "f1", 10, 10),
		newTestCluster(t, "f2", 20, 2),
	)
	require.True(t, m.Feasible(model.Resources{RAM: 20, CPU: 1}))
	require.True(t, m.Feasible(model.Resources{RAM: 5, CPU: 10}))
	require.False(t, m.Feasible(model.Resources{RAM: 20, CPU: 10}))
	require.False(t, NewManager(FirstFit).Feasible(model.Resources{}))
}
