package topo_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/cochlea/internal/topo"
)

func TestSort(t *testing.T) {
	tests := []struct {
		n        int
		edges    []topo.Edge
		expected []int
		ok       bool
	}{
		{n: 0, expected: []int{}, ok: true},
		{n: 3, expected: []int{0, 1, 2}, ok: true},
		{
			n:        3,
			edges:    []topo.Edge{{From: 2, To: 1}, {From: 1, To: 0}},
			expected: []int{2, 1, 0},
			ok:       true,
		},
		{
			// 3 becomes ready after 1 but 2 has lower index
			n:        4,
			edges:    []topo.Edge{{From: 0, To: 3}, {From: 1, To: 2}},
			expected: []int{0, 1, 2, 3},
			ok:       true,
		},
		{
			n:        4,
			edges:    []topo.Edge{{From: 3, To: 0}, {From: 3, To: 1}, {From: 1, To: 2}, {From: 0, To: 2}},
			expected: []int{3, 0, 1, 2},
			ok:       true,
		},
		{
			n:     2,
			edges: []topo.Edge{{From: 0, To: 1}, {From: 1, To: 0}},
			ok:    false,
		},
	}
	for _, test := range tests {
		order, ok := topo.Sort(test.n, test.edges)
		assert.Equal(t, test.ok, ok)
		if test.ok {
			assert.Equal(t, test.expected, order)
		}
	}
}

// Every vertex must appear after all of its upstream vertices.
func TestSortRandomDAG(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for iteration := 0; iteration < 50; iteration++ {
		n := 1 + rnd.Intn(20)
		perm := rnd.Perm(n)
		var edges []topo.Edge
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rnd.Intn(4) == 0 {
					edges = append(edges, topo.Edge{From: perm[i], To: perm[j]})
				}
			}
		}
		order, ok := topo.Sort(n, edges)
		assert.True(t, ok)
		assert.Len(t, order, n)
		position := make([]int, n)
		for i, v := range order {
			position[v] = i
		}
		for _, e := range edges {
			assert.Less(t, position[e.From], position[e.To])
		}
	}
}

func TestReachable(t *testing.T) {
	edges := []topo.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: 3, To: 2}}
	assert.True(t, topo.Reachable(4, edges, 0, 2))
	assert.True(t, topo.Reachable(4, edges, 1, 1))
	assert.False(t, topo.Reachable(4, edges, 2, 0))
	assert.False(t, topo.Reachable(4, edges, 0, 3))
}
