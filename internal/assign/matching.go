package assign

import "math"

// MaxMatching returns the size of a maximum matching in the bipartite graph
// where adj[u] lists the right vertices (0..right-1) reachable from left u.
// It uses Hopcroft-Karp: BFS layering followed by DFS augmentation along
// vertex-disjoint shortest paths.
func MaxMatching(adj [][]int, right int) int {
	left := len(adj)
	matchL := make([]int, left)
	matchR := make([]int, right)
	for i := range matchL {
		matchL[i] = -1
	}
	for i := range matchR {
		matchR[i] = -1
	}
	dist := make([]int, left)

	bfs := func() bool {
		queue := make([]int, 0, left)
		for u := range left {
			if matchL[u] == -1 {
				dist[u] = 0
				queue = append(queue, u)
			} else {
				dist[u] = math.MaxInt
			}
		}
		found := false
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range adj[u] {
				w := matchR[v]
				if w == -1 {
					found = true
				} else if dist[w] == math.MaxInt {
					dist[w] = dist[u] + 1
					queue = append(queue, w)
				}
			}
		}
		return found
	}

	var dfs func(u int) bool
	dfs = func(u int) bool {
		for _, v := range adj[u] {
			w := matchR[v]
			if w == -1 || (dist[w] == dist[u]+1 && dfs(w)) {
				matchL[u] = v
				matchR[v] = u
				return true
			}
		}
		dist[u] = math.MaxInt
		return false
	}

	size := 0
	for bfs() {
		for u := range left {
			if matchL[u] == -1 && dfs(u) {
				size++
			}
		}
	}
	return size
}

// HasPerfectMatching reports whether every left vertex can be matched to a
// distinct right vertex.
func HasPerfectMatching(adj [][]int, right int) bool {
	return len(adj) == right && MaxMatching(adj, right) == right
}
