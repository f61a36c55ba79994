package pipeline

import (
	"fmt"
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean target
// value of their samples.
type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Value     float64   `json:"value"`
	Leaf      bool      `json:"leaf"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// RandomForestRegressor is a bagged ensemble of variance-reduction
// regression trees with per-split random feature subsets.
type RandomForestRegressor struct {
	NEstimators    int         `json:"n_estimators"`
	MaxDepth       int         `json:"max_depth"`
	MinSamplesLeaf int         `json:"min_samples_leaf"`
	Seed           int64       `json:"seed"`
	Trees          []*treeNode `json:"trees"`
}

// NewRandomForestRegressor builds an unfitted forest.
func NewRandomForestRegressor(nEstimators, maxDepth int, seed int64) *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:    nEstimators,
		MaxDepth:       maxDepth,
		MinSamplesLeaf: 2,
		Seed:           seed,
	}
}

// Fit grows NEstimators trees over bootstrap samples.
func (m *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training data: %d rows, %d targets", len(X), len(y))
	}
	if m.NEstimators <= 0 {
		m.NEstimators = 50
	}
	if m.MaxDepth <= 0 {
		m.MaxDepth = 10
	}
	if m.MinSamplesLeaf <= 0 {
		m.MinSamplesLeaf = 2
	}

	rng := rand.New(rand.NewSource(m.Seed))
	n := len(X)
	nFeatures := len(X[0])
	// sklearn-style subset size for regression: a third of the features.
	subset := nFeatures / 3
	if subset < 1 {
		subset = 1
	}

	m.Trees = make([]*treeNode, 0, m.NEstimators)
	for t := 0; t < m.NEstimators; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}
		tree := m.growTree(X, y, indices, 0, subset, rng)
		m.Trees = append(m.Trees, tree)
	}
	return nil
}

func (m *RandomForestRegressor) growTree(X [][]float64, y []float64, indices []int, depth, subset int, rng *rand.Rand) *treeNode {
	mean, variance := meanVariance(y, indices)

	if depth >= m.MaxDepth || len(indices) < 2*m.MinSamplesLeaf || variance == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	nFeatures := len(X[0])
	features := rng.Perm(nFeatures)[:subset]

	bestFeature, bestThreshold := -1, 0.0
	bestScore := variance * float64(len(indices))
	var bestLeft, bestRight []int

	for _, feat := range features {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = X[idx][feat]
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2

			var left, right []int
			for _, idx := range indices {
				if X[idx][feat] <= threshold {
					left = append(left, idx)
				} else {
					right = append(right, idx)
				}
			}
			if len(left) < m.MinSamplesLeaf || len(right) < m.MinSamplesLeaf {
				continue
			}

			_, lv := meanVariance(y, left)
			_, rv := meanVariance(y, right)
			score := lv*float64(len(left)) + rv*float64(len(right))
			if score < bestScore {
				bestScore = score
				bestFeature = feat
				bestThreshold = threshold
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      m.growTree(X, y, bestLeft, depth+1, subset, rng),
		Right:     m.growTree(X, y, bestRight, depth+1, subset, rng),
	}
}

// Predict averages the per-tree predictions.
func (m *RandomForestRegressor) Predict(X [][]float64) []float64 {
	preds := make([]float64, len(X))
	if len(m.Trees) == 0 {
		return preds
	}
	for i, row := range X {
		sum := 0.0
		for _, tree := range m.Trees {
			sum += predictTree(tree, row)
		}
		preds[i] = sum / float64(len(m.Trees))
	}
	return preds
}

func predictTree(node *treeNode, row []float64) float64 {
	for !node.Leaf {
		if node.Feature < len(row) && row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func meanVariance(y []float64, indices []int) (float64, float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, idx := range indices {
		sum += y[idx]
	}
	mean := sum / float64(len(indices))

	variance := 0.0
	for _, idx := range indices {
		d := y[idx] - mean
		variance += d * d
	}
	return mean, variance / float64(len(indices))
}
