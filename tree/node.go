// Package tree implements CART decision trees for classification and
// regression over gonum matrices. Trees grow greedily on numeric threshold
// splits and are the base learners for the ensemble package.
package tree

import "math"

// Node is a single node of a fitted decision tree. Fields are exported so
// trees survive gob round trips inside persisted artifacts.
type Node struct {
	IsLeaf    bool
	Feature   int
	Threshold float64 // x[Feature] <= Threshold routes left
	Left      *Node
	Right     *Node

	// NSamples is the number of training samples that reached this node.
	NSamples int

	// Value is the leaf prediction of a regression tree.
	Value float64

	// Probas is the leaf class distribution of a classification tree,
	// aligned with the estimator's Classes.
	Probas []float64
}

// leafFor walks the tree for one sample. Missing values route left, the
// same rule used when growing the tree.
func (n *Node) leafFor(x []float64) *Node {
	node := n
	for !node.IsLeaf {
		v := x[node.Feature]
		if math.IsNaN(v) || v <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}
