package scanner

import (
	"math"
	"sort"
	"time"

	"github.com/sweepwatch/engine/internal/models"
)

// dsu is a disjoint-set over dense indices with path compression and
// union-by-attach. Groups get an arena index for the run; keys are only
// materialized back when clusters are emitted.
type dsu struct {
	parent []int
}

func newDSU(n int) *dsu {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &dsu{parent: parent}
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *dsu) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra != rb {
		d.parent[ra] = rb
	}
}

// adjacent reports whether two contract groups are economically adjacent:
// same underlying and side, strikes within the percentage band of the lower
// strike, expirations within the day band.
func (c Config) adjacent(a, b models.ContractGroup, dteA, dteB int) bool {
	if a.Key.Symbol != b.Key.Symbol || a.Key.Side != b.Key.Side {
		return false
	}
	lo := math.Min(a.Key.Strike, b.Key.Strike)
	if lo <= 0 {
		if a.Key.Strike != b.Key.Strike {
			return false
		}
	} else if math.Abs(a.Key.Strike-b.Key.Strike)/lo > c.StrikeBandPct/100 {
		return false
	}
	if dteA-dteB > c.DateBandDays || dteB-dteA > c.DateBandDays {
		return false
	}
	return true
}

// DetectClusters unions adjacent contract groups into connected components
// and emits every component with at least two member legs and enough
// aggregate premium. Pairwise adjacency is O(n²), acceptable at the expected
// group cardinalities.
func (c Config) DetectClusters(groups []models.ContractGroup, now time.Time) []models.Cluster {
	if len(groups) < 2 {
		return nil
	}

	dte := make([]int, len(groups))
	for i, g := range groups {
		dte[i] = DaysToExpiry(now, g.Key.Expiration)
	}

	sets := newDSU(len(groups))
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			if c.adjacent(groups[i], groups[j], dte[i], dte[j]) {
				sets.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := range groups {
		root := sets.find(i)
		components[root] = append(components[root], i)
	}

	var clusters []models.Cluster
	for _, idxs := range components {
		if len(idxs) < 2 {
			continue
		}
		cluster := materialize(groups, idxs)
		if cluster.PremiumSum < c.ClusterMinPremium {
			continue
		}
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].PremiumSum != clusters[j].PremiumSum {
			return clusters[i].PremiumSum > clusters[j].PremiumSum
		}
		return clusters[i].Key.String() < clusters[j].Key.String()
	})
	return clusters
}

func materialize(groups []models.ContractGroup, idxs []int) models.Cluster {
	first := groups[idxs[0]]
	cluster := models.Cluster{
		Key: models.ClusterKey{
			Symbol:   first.Key.Symbol,
			Side:     first.Key.Side,
			StrikeLo: first.Key.Strike,
			StrikeHi: first.Key.Strike,
			ExpLo:    first.Key.Expiration,
			ExpHi:    first.Key.Expiration,
		},
		Reference: first.Reference,
	}

	fset := make(map[string]struct{})
	var bestPremium float64
	for _, i := range idxs {
		g := groups[i]
		cluster.PremiumSum += g.PremiumSum
		cluster.Members = append(cluster.Members, g.Key)
		for _, fp := range g.Fingerprints {
			fset[fp] = struct{}{}
		}

		if g.Key.Strike < cluster.Key.StrikeLo {
			cluster.Key.StrikeLo = g.Key.Strike
		}
		if g.Key.Strike > cluster.Key.StrikeHi {
			cluster.Key.StrikeHi = g.Key.Strike
		}
		if g.Key.Expiration < cluster.Key.ExpLo {
			cluster.Key.ExpLo = g.Key.Expiration
		}
		if g.Key.Expiration > cluster.Key.ExpHi {
			cluster.Key.ExpHi = g.Key.Expiration
		}
		if g.PremiumSum > bestPremium {
			bestPremium = g.PremiumSum
			cluster.Reference = g.Reference
		}
	}

	cluster.Fingerprints = make([]string, 0, len(fset))
	for fp := range fset {
		cluster.Fingerprints = append(cluster.Fingerprints, fp)
	}
	sort.Strings(cluster.Fingerprints)
	sort.Slice(cluster.Members, func(a, b int) bool {
		return cluster.Members[a].String() < cluster.Members[b].String()
	})
	return cluster
}
