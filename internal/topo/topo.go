// Package topo orders graph vertices. Vertices are identified by their
// insertion index, which is also used to resolve ties deterministically.
package topo

import "sort"

// Edge is a directed edge between two vertices.
type Edge struct {
	From, To int
}

// Sort returns vertices [0, n) in topological order using Kahn's
// algorithm. Among vertices ready at the same time, the one with the
// lowest index goes first. False is returned if edges contain a cycle.
func Sort(n int, edges []Edge) ([]int, bool) {
	indegree := make([]int, n)
	outgoing := make([][]int, n)
	for _, e := range edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
		indegree[e.To]++
	}

	ready := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			ready = append(ready, v)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, to := range outgoing[v] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = insert(ready, to)
			}
		}
	}
	return order, len(order) == n
}

// insert keeps ready vertices sorted by index.
func insert(ready []int, v int) []int {
	i := sort.SearchInts(ready, v)
	ready = append(ready, 0)
	copy(ready[i+1:], ready[i:])
	ready[i] = v
	return ready
}

// Reachable returns true if there is a path from one vertex to another.
// Every vertex reaches itself.
func Reachable(n int, edges []Edge, from, to int) bool {
	if from == to {
		return true
	}
	outgoing := make([][]int, n)
	for _, e := range edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}
	visited := make([]bool, n)
	stack := []int{from}
	visited[from] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range outgoing[v] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
