// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package visualize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Spearman returns the Spearman rank correlation of x and y and its
// two-sided p-value from the t distribution with n-2 degrees of freedom.
// Tied values get their average rank. Fewer than two pairs, mismatched
// lengths or a constant input give NaN, and two pairs have no p-value.
func Spearman(x, y []float64) (rho, p float64) {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN(), math.NaN()
	}

	rho = stat.Correlation(ranks(x), ranks(y), nil)
	if math.IsNaN(rho) {
		return math.NaN(), math.NaN()
	}
	if n == 2 {
		return rho, math.NaN()
	}
	if math.Abs(rho) >= 1 {
		return rho, 0
	}

	df := float64(n - 2)
	t := rho * math.Sqrt(df/(1-rho*rho))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return rho, 2 * dist.CDF(-math.Abs(t))
}

// ranks returns 1-based ranks of values, averaging ties.
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	r := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && values[idx[j]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			r[idx[k]] = avg
		}
		i = j
	}
	return r
}

// LinearFit returns the least-squares line y = slope*x + intercept.
func LinearFit(x, y []float64) (slope, intercept float64) {
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	return slope, intercept
}
