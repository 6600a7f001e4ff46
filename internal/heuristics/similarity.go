package heuristics

import (
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
)

// groupSimilar links items by different authors whose trigram similarity
// exceeds threshold and returns the connected groups with more than one item,
// ordered by their earliest member. Items whose normalized text is shorter
// than minLength are ignored.
func groupSimilar(items []*types.ContentItem, threshold float64, minLength int) [][]*types.ContentItem {
	candidates := make([]*types.ContentItem, 0, len(items))
	sets := make([]map[string]struct{}, 0, len(items))
	for _, item := range items {
		if len([]rune(normalizeText(item.Content))) < minLength {
			continue
		}
		candidates = append(candidates, item)
		sets = append(sets, Trigrams(item.Content))
	}

	uf := newUnionFind(len(candidates))
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].AuthorDID == candidates[j].AuthorDID {
				continue
			}
			if Jaccard(sets[i], sets[j]) > threshold {
				uf.union(i, j)
			}
		}
	}

	byRoot := make(map[int][]*types.ContentItem)
	order := make([]int, 0)
	for i, item := range candidates {
		root := uf.find(i)
		if _, ok := byRoot[root]; !ok {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], item)
	}

	groups := make([][]*types.ContentItem, 0)
	for _, root := range order {
		if len(byRoot[root]) > 1 {
			groups = append(groups, byRoot[root])
		}
	}

	return groups
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
