package routing

import "math"

// SolveTSP returns the visiting order with the minimum total distance for an open path starting at
// index 0 (the origin stays pinned). Permutations are enumerated in lexicographic order and the
// first minimum wins, so the result is deterministic. Cost is (n-1)!; callers cap n.
func SolveTSP(dist [][]float64) ([]int, float64) {
	n := len(dist)
	switch n {
	case 0:
		return nil, 0
	case 1:
		return []int{0}, 0
	case 2:
		return []int{0, 1}, dist[0][1]
	}

	perm := make([]int, n-1)
	for i := range perm {
		perm[i] = i + 1
	}

	best := make([]int, 0, n)
	bestCost := math.Inf(1)

	for {
		if cost := pathCost(dist, perm, bestCost); cost < bestCost {
			bestCost = cost
			best = append(best[:0], 0)
			best = append(best, perm...)
		}
		if !nextPermutation(perm) {
			break
		}
	}

	return best, bestCost
}

// pathCost sums origin->perm[0]->...->perm[k]. It stops early once limit is reached.
func pathCost(dist [][]float64, perm []int, limit float64) float64 {
	cost := dist[0][perm[0]]
	for i := 1; i < len(perm); i++ {
		if cost >= limit {
			return cost
		}
		cost += dist[perm[i-1]][perm[i]]
	}
	return cost
}

// nextPermutation rearranges p into its lexicographic successor. Reports false after the last one.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}
