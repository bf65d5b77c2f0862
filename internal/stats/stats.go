// Package stats provides the scalar statistics used by the cleaning and
// analysis stages. All functions operate on plain float64 slices and treat
// an empty input as zero rather than panicking; callers that need to
// distinguish "no data" check the length themselves.
package stats

import (
	"math"
	"sort"
)

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(n)
}

// Variance computes the sample variance (n-1 denominator).
func Variance(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	mean := Mean(x)
	sum := 0.0
	for _, v := range x {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n-1)
}

// Std computes the sample standard deviation.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	min, max := x[0], x[0]
	for i := 1; i < len(x); i++ {
		if x[i] < min {
			min = x[i]
		} else if x[i] > max {
			max = x[i]
		}
	}
	return min, max
}

// Quantile computes the q-th quantile (0..1) using linear interpolation
// between closest ranks, matching the convention spreadsheets and most
// statistics libraries use.
func Quantile(x []float64, q float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Median computes the 0.5 quantile.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// IQRBounds returns the Tukey fence [Q1-k*IQR, Q3+k*IQR] for the slice.
func IQRBounds(x []float64, k float64) (lower, upper float64) {
	q1 := Quantile(x, 0.25)
	q3 := Quantile(x, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// Skewness computes the adjusted Fisher-Pearson sample skewness. Zero is
// returned for fewer than three values or zero variance.
func Skewness(x []float64) float64 {
	n := float64(len(x))
	if n < 3 {
		return 0
	}
	mean := Mean(x)
	std := Std(x)
	if std == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		d := (v - mean) / std
		sum += d * d * d
	}
	return n / ((n - 1) * (n - 2)) * sum
}

// Kurtosis computes the sample excess kurtosis. Zero is returned for
// fewer than four values or zero variance.
func Kurtosis(x []float64) float64 {
	n := float64(len(x))
	if n < 4 {
		return 0
	}
	mean := Mean(x)
	std := Std(x)
	if std == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		d := (v - mean) / std
		sum += d * d * d * d
	}
	adj := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3))
	correction := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return adj*sum - correction
}

// Pearson computes the Pearson correlation coefficient of two equally
// sized slices. The second return is false when either slice has zero
// variance, where the coefficient is undefined.
func Pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, false
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}
