package ml

import (
	"errors"
	"fmt"
)

// TreeNode is one entry of the flat node array the training pipeline
// exports. Interior nodes route on FeatureIdx/Threshold, leaves carry the
// class code.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RandomForest is a majority-vote ensemble over flat node-array trees.
// Ties go to the lowest class code.
type RandomForest struct {
	Trees      [][]TreeNode `json:"trees"`
	NumClasses int          `json:"num_classes"`
}

func (rf *RandomForest) Predict(features []float64) (int, error) {
	votes, err := rf.votes(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for class := 1; class < len(votes); class++ {
		if votes[class] > votes[best] {
			best = class
		}
	}
	return best, nil
}

// PredictProba reports the share of trees voting for each class.
func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	votes, err := rf.votes(features)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, len(votes))
	total := float64(len(rf.Trees))
	for class, count := range votes {
		probs[class] = float64(count) / total
	}
	return probs, nil
}

func (rf *RandomForest) votes(features []float64) ([]int, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	if rf.NumClasses <= 0 {
		return nil, errors.New("forest has no classes")
	}
	votes := make([]int, rf.NumClasses)
	for i, nodes := range rf.Trees {
		class, err := walkTree(nodes, features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if class < 0 || class >= rf.NumClasses {
			return nil, fmt.Errorf("tree %d: class %d out of range", i, class)
		}
		votes[class]++
	}
	return votes, nil
}

func walkTree(nodes []TreeNode, features []float64) (int, error) {
	if len(nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	// A well-formed tree reaches a leaf in at most len(nodes) hops.
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("invalid tree state")
}
