package neat

import (
	"fmt"
	"math"
	"sort"
)

// ActivationType is a node activation function.
type ActivationType func(z float64) float64

// ActivationFunctions maps activation names, as used in configs, to implementations.
// The set and the input scaling follow neat-python.
var ActivationFunctions = map[string]ActivationType{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"sin":      Sine,
	"gauss":    Gaussian,
	"relu":     ReLU,
	"elu":      ELU,
	"lelu":     LeakyReLU,
	"selu":     SELU,
	"softplus": Softplus,
	"identity": Identity,
	"clamped":  Clamped,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"abs":      Absolute,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// ActivationNames lists the registered activation names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(ActivationFunctions))
	for n := range ActivationFunctions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the logistic function with slope 5, so the useful range is roughly [-1, 1].
func Sigmoid(z float64) float64 {
	z = clamp(5.0*z, -60.0, 60.0)
	return 1.0 / (1.0 + math.Exp(-z))
}

func Tanh(z float64) float64 {
	return math.Tanh(clamp(2.5*z, -60.0, 60.0))
}

func Sine(z float64) float64 {
	return math.Sin(clamp(5.0*z, -60.0, 60.0))
}

func Gaussian(z float64) float64 {
	z = clamp(z, -3.4, 3.4)
	return math.Exp(-5.0 * z * z)
}

func ReLU(z float64) float64 {
	return math.Max(0, z)
}

func ELU(z float64) float64 {
	if z > 0 {
		return z
	}
	return math.Exp(z) - 1
}

func LeakyReLU(z float64) float64 {
	if z > 0 {
		return z
	}
	return 0.005 * z
}

func SELU(z float64) float64 {
	const lam, alpha = 1.0507009873554804934193349852946, 1.6732632423543772848170429916717
	if z > 0 {
		return lam * z
	}
	return lam * alpha * (math.Exp(z) - 1)
}

func Softplus(z float64) float64 {
	z = clamp(5.0*z, -60.0, 60.0)
	return 0.2 * math.Log(1+math.Exp(z))
}

func Identity(z float64) float64 {
	return z
}

func Clamped(z float64) float64 {
	return clamp(z, -1.0, 1.0)
}

// Inv returns 1/z, and 0 for z == 0.
func Inv(z float64) float64 {
	if z == 0 {
		return 0
	}
	return 1.0 / z
}

func Log(z float64) float64 {
	return math.Log(math.Max(1e-7, z))
}

func Exp(z float64) float64 {
	return math.Exp(clamp(z, -60.0, 60.0))
}

func Absolute(z float64) float64 {
	return math.Abs(z)
}

func Hat(z float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(z))
}

func Square(z float64) float64 {
	return z * z
}

func Cube(z float64) float64 {
	return z * z * z
}
