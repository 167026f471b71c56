package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// matrixRows copies a matrix into row slices for sample-index based
// splitting during tree growth.
func matrixRows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

// columnVector extracts the first column of y as a slice.
func columnVector(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = y.At(i, 0)
	}
	return out
}

// sampleFeatures returns the feature indices searched at one split: all p
// features, or a random subset of size k when 0 < k < p.
func sampleFeatures(p, k int, rnd *rand.Rand) []int {
	feats := make([]int, p)
	for j := 0; j < p; j++ {
		feats[j] = j
	}
	if k <= 0 || k >= p {
		return feats
	}
	rnd.Shuffle(p, func(a, b int) {
		feats[a], feats[b] = feats[b], feats[a]
	})
	return feats[:k]
}

// valuePair couples a feature value with its sample index for sorting.
type valuePair struct {
	v float64
	i int
}

// sortedPairs returns the (value, index) pairs of feature f over idx with
// NaN samples separated out, sorted ascending by value.
func sortedPairs(rows [][]float64, idx []int, f int) (valid []valuePair, missing []int) {
	valid = make([]valuePair, 0, len(idx))
	for _, ii := range idx {
		v := rows[ii][f]
		if math.IsNaN(v) {
			missing = append(missing, ii)
			continue
		}
		valid = append(valid, valuePair{v: v, i: ii})
	}
	sort.Slice(valid, func(a, b int) bool { return valid[a].v < valid[b].v })
	return valid, missing
}

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmaxInt(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func argmaxFloat(vals []float64) int {
	best := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[best] {
			best = i
		}
	}
	return best
}

// normalizeImportances scales importances in place so they sum to one.
func normalizeImportances(importances []float64) {
	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total <= 0 {
		return
	}
	for i := range importances {
		importances[i] /= total
	}
}
