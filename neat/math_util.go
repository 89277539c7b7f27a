package neat

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// parseBoolAttribute parses the neat-python spellings of a boolean default.
// "random" and "none" pick a value at random on every call.
func parseBoolAttribute(valStr string) bool {
	switch strings.ToLower(strings.TrimSpace(valStr)) {
	case "true", "yes", "on", "1":
		return true
	case "random", "none":
		return rand.Float64() < 0.5
	default:
		return false
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Stdev returns the population standard deviation, or 0 for fewer than two values.
func Stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Variance returns the population variance.
func Variance(values []float64) float64 {
	s := Stdev(values)
	return s * s
}

// Sum returns the sum of values.
func Sum(values []float64) float64 {
	return floats.Sum(values)
}

// MaxFloat returns the largest value, or -Inf for an empty slice.
func MaxFloat(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	return floats.Max(values)
}

// MinFloat returns the smallest value, or +Inf for an empty slice.
func MinFloat(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	return floats.Min(values)
}

// Median returns the median, averaging the middle pair for even lengths. NaN when empty.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// StatFunctions maps species_fitness_func names to their implementation.
var StatFunctions = map[string]func([]float64) float64{
	"mean":   Mean,
	"stdev":  Stdev,
	"sum":    Sum,
	"max":    MaxFloat,
	"min":    MinFloat,
	"median": Median,
}
