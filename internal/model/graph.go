package model

// Graph is an explicit adjacency view of a model's transition structure.
type Graph struct {
	adjacency map[string][]string
}

func NewGraph(transitions []Transition) *Graph {
	adjacency := make(map[string][]string)
	for _, t := range transitions {
		adjacency[t.From] = append(adjacency[t.From], t.To)
	}
	return &Graph{adjacency: adjacency}
}

// ReachableFrom computes the set of state ids reachable from start using a
// breadth-first traversal over the transition adjacency.
func (g *Graph) ReachableFrom(start string) map[string]bool {
	reachable := make(map[string]bool)
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if reachable[current] {
			continue
		}
		reachable[current] = true

		for _, next := range g.adjacency[current] {
			if !reachable[next] {
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// Successors returns the direct successor state ids of the given state.
func (g *Graph) Successors(id string) []string {
	return g.adjacency[id]
}

// ShortestTransitionPath finds a minimal transition sequence from one state to
// another using breadth-first search. An empty path with ok=true means from
// and to are the same state; ok=false means no path exists.
func ShortestTransitionPath(transitions []Transition, from, to string) ([]Transition, bool) {
	if from == to {
		return nil, true
	}

	outgoing := make(map[string][]Transition)
	for _, t := range transitions {
		outgoing[t.From] = append(outgoing[t.From], t)
	}

	type node struct {
		state string
		path  []Transition
	}
	visited := map[string]bool{from: true}
	queue := []node{{state: from}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, t := range outgoing[current.state] {
			if visited[t.To] {
				continue
			}
			path := make([]Transition, len(current.path), len(current.path)+1)
			copy(path, current.path)
			path = append(path, t)
			if t.To == to {
				return path, true
			}
			visited[t.To] = true
			queue = append(queue, node{state: t.To, path: path})
		}
	}

	return nil, false
}
