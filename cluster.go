package main

import "sort"

// unionFind is an array-backed disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

type simPair struct {
	sim  float64
	i, j int
}

// ticketVectors carries either sparse TF-IDF vectors or dense
// embedding vectors; exactly one slice is populated per run.
type ticketVectors struct {
	sparse []sparseVec
	dense  [][]float64
}

func (v ticketVectors) similarity(i, j int) float64 {
	if v.dense != nil {
		return cosineDense(v.dense[i], v.dense[j])
	}
	return cosineSparse(v.sparse[i], v.sparse[j])
}

// buildClusters groups tickets in two phases, both bounded by a hard
// per-cluster size cap. No agglomerative post-merge follows: the caps
// are the mechanism that keeps one broad theme from snowballing into a
// mega-cluster.
//
// Phase 1 merges same-product pairs whose similarity clears the
// threshold, strongest pair first, so clearly related tickets lock in
// before weaker matches can block them. Phase 2 anchors tickets that
// share (product, issue type 1, issue type 2) into the first member's
// group under a looser 2x cap — identical structured classification
// must not end up split just because the descriptions diverge
// lexically. Phase 1 runs to completion before phase 2 starts.
func buildClusters(tickets []TicketRecord, vectors ticketVectors, threshold float64, maxClusters int) [][]int {
	n := len(tickets)
	if n == 0 {
		return nil
	}
	if maxClusters < 1 {
		maxClusters = 1
	}
	uf := newUnionFind(n)

	// Hard cap: 2x the target average cluster size, floor of 15.
	maxClusterSize := (n * 2) / maxClusters
	if maxClusterSize < 15 {
		maxClusterSize = 15
	}
	sizes := make(map[int]int)

	var pairs []simPair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if tickets[i].Product != tickets[j].Product {
				continue
			}
			sim := vectors.similarity(i, j)
			if sim >= threshold {
				pairs = append(pairs, simPair{sim: sim, i: i, j: j})
			}
		}
	}

	// Descending similarity; equal scores fall back to index order so
	// repeated runs produce identical merges.
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].sim != pairs[b].sim {
			return pairs[a].sim > pairs[b].sim
		}
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})

	for _, p := range pairs {
		ri, rj := uf.find(p.i), uf.find(p.j)
		if ri == rj {
			continue
		}
		si, sj := rootSize(sizes, ri), rootSize(sizes, rj)
		if si+sj > maxClusterSize {
			continue
		}
		uf.union(p.i, p.j)
		sizes[uf.find(p.i)] = si + sj
	}

	type anchorKey struct{ product, issue1, issue2 string }
	anchorGroups := make(map[anchorKey][]int)
	var anchorOrder []anchorKey
	for i, t := range tickets {
		product := cleanText(t.Product)
		i1 := cleanText(t.IssueType1)
		i2 := cleanText(t.IssueType2)
		if product == "" || i1 == "" {
			continue
		}
		key := anchorKey{product, i1, i2}
		if _, ok := anchorGroups[key]; !ok {
			anchorOrder = append(anchorOrder, key)
		}
		anchorGroups[key] = append(anchorGroups[key], i)
	}

	for _, key := range anchorOrder {
		idxs := anchorGroups[key]
		anchor := idxs[0]
		for _, idx := range idxs[1:] {
			ra, rb := uf.find(anchor), uf.find(idx)
			if ra == rb {
				continue
			}
			sa, sb := rootSize(sizes, ra), rootSize(sizes, rb)
			if sa+sb > maxClusterSize*2 {
				continue
			}
			uf.union(anchor, idx)
			sizes[uf.find(anchor)] = sa + sb
		}
	}

	groups := make(map[int][]int)
	var rootOrder []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, ok := groups[root]; !ok {
			rootOrder = append(rootOrder, root)
		}
		groups[root] = append(groups[root], i)
	}
	out := make([][]int, 0, len(rootOrder))
	for _, root := range rootOrder {
		out = append(out, groups[root])
	}
	return out
}

func rootSize(sizes map[int]int, root int) int {
	if s, ok := sizes[root]; ok {
		return s
	}
	return 1
}
