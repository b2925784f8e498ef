package clustering

// DBSCAN groups points by density. Two points are neighbors when dist(a, b) <= eps; a point with
// at least minPts neighbors (itself included) is a core point. Returned clusters hold point indexes
// in discovery order, which is deterministic for a given input order. Points that belong to no
// cluster are returned as noise, in input order.
func DBSCAN[T any](points []T, eps float64, minPts int, dist func(a, b T) float64) (clusters [][]int, noise []int) {
	n := len(points)
	if n == 0 {
		return nil, nil
	}
	if minPts < 1 {
		minPts = 1
	}

	const unassigned = -1
	visited := make([]bool, n)
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = unassigned
	}

	regionQuery := func(p int) []int {
		var out []int
		for q := range n {
			if dist(points[p], points[q]) <= eps {
				out = append(out, q)
			}
		}
		return out
	}

	isNoise := make([]bool, n)

	for p := range n {
		if visited[p] {
			continue
		}
		visited[p] = true

		neighbors := regionQuery(p)
		if len(neighbors) < minPts {
			isNoise[p] = true
			continue
		}

		clusterID := len(clusters)
		cluster := []int{p}
		assigned[p] = clusterID
		isNoise[p] = false

		queued := make(map[int]struct{}, len(neighbors))
		for _, q := range neighbors {
			queued[q] = struct{}{}
		}

		for i := 0; i < len(neighbors); i++ {
			q := neighbors[i]
			if !visited[q] {
				visited[q] = true
				if qn := regionQuery(q); len(qn) >= minPts {
					for _, r := range qn {
						if _, ok := queued[r]; !ok {
							queued[r] = struct{}{}
							neighbors = append(neighbors, r)
						}
					}
				}
			}
			if assigned[q] == unassigned {
				assigned[q] = clusterID
				isNoise[q] = false
				cluster = append(cluster, q)
			}
		}

		clusters = append(clusters, cluster)
	}

	for p := range n {
		if isNoise[p] && assigned[p] == unassigned {
			noise = append(noise, p)
		}
	}

	return clusters, noise
}
