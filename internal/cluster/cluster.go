// Package cluster partitions embedding vectors with a single-pass greedy
// centroid algorithm. Output membership is deterministic for a given input
// order and threshold.
package cluster

import (
	"fmt"
	"math"

	"changelens/internal/errors"
)

// Cluster is a group of input indices and the running mean of their vectors.
type Cluster struct {
	// Members are indices into the input, ascending.
	Members  []int     `json:"members"`
	Centroid []float32 `json:"centroid"`

	sum []float64
}

func newCluster(index int, vec []float32) Cluster {
	sum := make([]float64, len(vec))
	for i, v := range vec {
		sum[i] = float64(v)
	}
	centroid := make([]float32, len(vec))
	copy(centroid, vec)
	return Cluster{
		Members:  []int{index},
		Centroid: centroid,
		sum:      sum,
	}
}

// add appends a member and recomputes the centroid as sum/count.
func (c *Cluster) add(index int, vec []float32) {
	c.Members = append(c.Members, index)
	n := float64(len(c.Members))
	for i, v := range vec {
		c.sum[i] += float64(v)
		c.Centroid[i] = float32(c.sum[i] / n)
	}
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// magnitude. Vectors must have equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Greedy assigns each vector, in input order, to the existing cluster whose
// centroid is most similar, provided that similarity is at least threshold.
// Equal best similarities go to the earliest cluster. Otherwise the vector
// opens a new cluster. Clusters are returned in creation order.
//
// The threshold must lie in (0, 1] and all vectors must share one dimension.
func Greedy(vectors [][]float32, threshold float64) ([]Cluster, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, errors.NewInvalidParameterError("threshold",
			fmt.Sprintf("must be in (0, 1], got %v", threshold))
	}
	if len(vectors) == 0 {
		return []Cluster{}, nil
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, errors.NewInvalidParameterError("vectors",
				fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), dims))
		}
	}

	clusters := []Cluster{newCluster(0, vectors[0])}

	for i := 1; i < len(vectors); i++ {
		best := -1
		bestSim := math.Inf(-1)
		for ci := range clusters {
			sim := Cosine(vectors[i], clusters[ci].Centroid)
			// Strict comparison keeps the earliest cluster on ties.
			if sim > bestSim {
				best, bestSim = ci, sim
			}
		}

		if bestSim >= threshold {
			clusters[best].add(i, vectors[i])
			continue
		}
		clusters = append(clusters, newCluster(i, vectors[i]))
	}

	return clusters, nil
}
