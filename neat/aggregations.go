package neat

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// AggregationType combines the weighted inputs of a node.
type AggregationType func(inputs []float64) float64

// nonEmpty wraps fn so that a node without inputs aggregates to 0.
func nonEmpty(fn func([]float64) float64) AggregationType {
	return func(inputs []float64) float64 {
		if len(inputs) == 0 {
			return 0
		}
		return fn(inputs)
	}
}

// AggregationFunctions maps the aggregation names accepted by aggregation_options to their
// implementation.
var AggregationFunctions = map[string]AggregationType{
	"sum":     floats.Sum,
	"product": floats.Prod, // 1 without inputs
	"min":     nonEmpty(floats.Min),
	"max":     nonEmpty(floats.Max),
	"maxabs":  maxAbs,
	"median":  nonEmpty(Median),
	"mean":    Mean,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationType, error) {
	fn, ok := AggregationFunctions[name]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation function: %s", name)
	}
	return fn, nil
}

// AggregationNames lists the registered aggregation names in sorted order.
func AggregationNames() []string {
	names := make([]string, 0, len(AggregationFunctions))
	for name := range AggregationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maxAbs returns the input with the largest magnitude, keeping its sign.
func maxAbs(inputs []float64) float64 {
	best := 0.0
	for _, v := range inputs {
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	return best
}
