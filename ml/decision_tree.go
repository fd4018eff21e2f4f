package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// DecisionTree is a CART classifier stored as a flat node array; children are
// referenced by index so the whole tree serializes as one JSON slice.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	ClassCounts []int   `json:"class_counts"`
	IsLeaf      bool    `json:"is_leaf"`
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	classCount      int
	featuresPerNode int
	rng             *rand.Rand
}

func (dt *DecisionTree) train(features [][]float64, labels []int, params treeParams) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	dt.Nodes = buildSubtree(features, labels, 0, params)
	return nil
}

// PredictCounts walks the tree and returns the class counts at the reached leaf.
func (dt *DecisionTree) PredictCounts(features []float64) ([]int, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("tree not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.ClassCounts, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// buildSubtree returns a node slice whose child indices are local to the
// slice; appendSubtree shifts them when embedding into the parent.
func buildSubtree(features [][]float64, labels []int, depth int, params treeParams) []TreeNode {
	counts := countClasses(labels, params.classCount)
	leaf := []TreeNode{{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		ClassCounts: counts,
		IsLeaf:      true,
	}}

	if depth >= params.maxDepth || len(labels) < params.minSamplesSplit || isPure(labels) {
		return leaf
	}

	bestFeature, threshold, ok := findBestSplit(features, labels, params)
	if !ok {
		return leaf
	}

	leftFeatures, leftLabels, rightFeatures, rightLabels := splitData(features, labels, bestFeature, threshold)
	if len(leftLabels) == 0 || len(rightLabels) == 0 {
		return leaf
	}

	leftNodes := buildSubtree(leftFeatures, leftLabels, depth+1, params)
	rightNodes := buildSubtree(rightFeatures, rightLabels, depth+1, params)

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   threshold,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		ClassCounts: counts,
		IsLeaf:      false,
	})
	nodes = appendSubtree(nodes, leftNodes, 1)
	nodes = appendSubtree(nodes, rightNodes, 1+len(leftNodes))
	return nodes
}

func appendSubtree(nodes, subtree []TreeNode, offset int) []TreeNode {
	for _, node := range subtree {
		if !node.IsLeaf {
			node.LeftChild += offset
			node.RightChild += offset
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// findBestSplit scans a random subset of features; candidate thresholds are
// midpoints between consecutive distinct values.
func findBestSplit(features [][]float64, labels []int, params treeParams) (int, float64, bool) {
	featureCount := len(features[0])
	candidates := featureSubset(featureCount, params.featuresPerNode, params.rng)

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, featureIdx := range candidates {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		for _, threshold := range candidateThresholds(values) {
			leftLabels, rightLabels := splitLabels(features, labels, featureIdx, threshold)
			if len(leftLabels) == 0 || len(rightLabels) == 0 {
				continue
			}
			impurity := weightedGini(leftLabels, rightLabels)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func featureSubset(featureCount, size int, rng *rand.Rand) []int {
	if size <= 0 || size >= featureCount || rng == nil {
		indices := make([]int, featureCount)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	subset := rng.Perm(featureCount)[:size]
	sort.Ints(subset)
	return subset
}

func candidateThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	thresholds := make([]float64, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			thresholds = append(thresholds, (sorted[i]+sorted[i-1])/2)
		}
	}
	return thresholds
}

func splitData(features [][]float64, labels []int, featureIdx int, threshold float64) ([][]float64, []int, [][]float64, []int) {
	leftFeatures := make([][]float64, 0)
	leftLabels := make([]int, 0)
	rightFeatures := make([][]float64, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftFeatures, leftLabels, rightFeatures, rightLabels
}

func splitLabels(features [][]float64, labels []int, featureIdx int, threshold float64) ([]int, []int) {
	leftLabels := make([]int, 0)
	rightLabels := make([]int, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightLabels = append(rightLabels, labels[i])
		}
	}
	return leftLabels, rightLabels
}

func weightedGini(leftLabels, rightLabels []int) float64 {
	leftWeight := float64(len(leftLabels))
	rightWeight := float64(len(rightLabels))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(leftLabels) + (rightWeight/total)*gini(rightLabels)
}

func gini(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func countClasses(labels []int, classCount int) []int {
	counts := make([]int, classCount)
	for _, label := range labels {
		if label >= 0 && label < classCount {
			counts[label]++
		}
	}
	return counts
}

func isPure(labels []int) bool {
	if len(labels) == 0 {
		return true
	}
	first := labels[0]
	for _, label := range labels[1:] {
		if label != first {
			return false
		}
	}
	return true
}
