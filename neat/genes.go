package neat

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the neural network genome.
type NodeGene struct {
	Key         int // negative for inputs, 0..NumOutputs-1 for outputs, larger for hidden nodes
	Bias        float64
	Response    float64
	Activation  string // name of the activation function
	Aggregation string // name of the aggregation function
}

// NewNodeGene creates a new NodeGene with attributes initialized according to the config.
func NewNodeGene(key int, config *GenomeConfig) *NodeGene {
	return &NodeGene{
		Key:         key,
		Bias:        config.biasAttr().init(),
		Response:    config.responseAttr().init(),
		Activation:  initStringAttribute(config.ActivationDefault, config.ActivationOptions),
		Aggregation: initStringAttribute(config.AggregationDefault, config.AggregationOptions),
	}
}

func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(key=%d, bias=%.3f, response=%.3f, activation=%s, aggregation=%s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the attributes of the NodeGene based on mutation rates in the config.
func (ng *NodeGene) Mutate(config *GenomeConfig) {
	ng.Bias = config.biasAttr().mutate(ng.Bias)
	ng.Response = config.responseAttr().mutate(ng.Response)
	ng.Activation = mutateStringAttribute(ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateStringAttribute(ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Distance is the attribute distance between two homologous node genes.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d += 1.0
	}
	if ng.Aggregation != other.Aggregation {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover picks every attribute from either parent with equal probability.
func (ng *NodeGene) Crossover(other *NodeGene) *NodeGene {
	if ng.Key != other.Key {
		panic(fmt.Sprintf("neat: crossover of node genes %d and %d", ng.Key, other.Key))
	}
	child := ng.Copy()
	if rand.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rand.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rand.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rand.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey uniquely identifies a connection gene. It doubles as the innovation marker.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

func (k ConnectionKey) String() string {
	return fmt.Sprintf("%d->%d", k.InNodeID, k.OutNodeID)
}

// ConnectionGene represents a weighted connection between two nodes.
type ConnectionGene struct {
	Key     ConnectionKey
	Weight  float64
	Enabled bool
}

// NewConnectionGene creates a new ConnectionGene with attributes initialized according to the config.
func NewConnectionGene(key ConnectionKey, config *GenomeConfig) *ConnectionGene {
	return &ConnectionGene{
		Key:     key,
		Weight:  config.weightAttr().init(),
		Enabled: parseBoolAttribute(config.EnabledDefault),
	}
}

func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnectionGene(%s, weight=%.3f, enabled=%t)", cg.Key, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// Mutate perturbs or replaces the weight. The enabled flag is mutated by Genome.Mutate.
func (cg *ConnectionGene) Mutate(config *GenomeConfig) {
	cg.Weight = config.weightAttr().mutate(cg.Weight)
}

// mutateEnabled returns the flag the connection should carry after mutation.
func (cg *ConnectionGene) mutateEnabled(config *GenomeConfig) bool {
	rate := config.EnabledMutateRate
	if cg.Enabled {
		rate += config.EnabledRateToFalseAdd
	} else {
		rate += config.EnabledRateToTrueAdd
	}
	if rate > 0 && rand.Float64() < rate {
		return rand.Float64() < 0.5
	}
	return cg.Enabled
}

// Distance is the attribute distance between two homologous connection genes.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover picks weight and enabled flag from either parent with equal probability.
func (cg *ConnectionGene) Crossover(other *ConnectionGene) *ConnectionGene {
	child := cg.Copy()
	if rand.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	if rand.Float64() < 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}

// --------------------------- Attribute Helpers ---------------------------

// floatAttr bundles the init/mutate parameters of one float attribute.
type floatAttr struct {
	mean, stdev           float64
	initType              string
	replaceRate           float64
	mutateRate, mutatePow float64
	minValue, maxValue    float64
}

func (gc *GenomeConfig) biasAttr() floatAttr {
	return floatAttr{gc.BiasInitMean, gc.BiasInitStdev, gc.BiasInitType, gc.BiasReplaceRate,
		gc.BiasMutateRate, gc.BiasMutatePower, gc.BiasMinValue, gc.BiasMaxValue}
}

func (gc *GenomeConfig) responseAttr() floatAttr {
	return floatAttr{gc.ResponseInitMean, gc.ResponseInitStdev, gc.ResponseInitType, gc.ResponseReplaceRate,
		gc.ResponseMutateRate, gc.ResponseMutatePower, gc.ResponseMinValue, gc.ResponseMaxValue}
}

func (gc *GenomeConfig) weightAttr() floatAttr {
	return floatAttr{gc.WeightInitMean, gc.WeightInitStdev, gc.WeightInitType, gc.WeightReplaceRate,
		gc.WeightMutateRate, gc.WeightMutatePower, gc.WeightMinValue, gc.WeightMaxValue}
}

func (a floatAttr) init() float64 {
	switch strings.ToLower(a.initType) {
	case "uniform":
		lo := math.Max(a.minValue, a.mean-2*a.stdev)
		hi := math.Min(a.maxValue, a.mean+2*a.stdev)
		if hi < lo {
			hi = lo
		}
		return rand.Float64()*(hi-lo) + lo
	default: // gaussian, normal
		return clamp(rand.NormFloat64()*a.stdev+a.mean, a.minValue, a.maxValue)
	}
}

func (a floatAttr) mutate(value float64) float64 {
	r := rand.Float64()
	if r < a.mutateRate {
		return clamp(value+rand.NormFloat64()*a.mutatePow, a.minValue, a.maxValue)
	}
	if r < a.mutateRate+a.replaceRate {
		return a.init()
	}
	return value
}

func initStringAttribute(defaultVal string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	switch strings.ToLower(defaultVal) {
	case "random", "none", "":
		return options[rand.Intn(len(options))]
	}
	return defaultVal
}

func mutateStringAttribute(value string, mutateRate float64, options []string) string {
	if len(options) == 0 || mutateRate <= 0 {
		return value
	}
	if rand.Float64() < mutateRate {
		return options[rand.Intn(len(options))]
	}
	return value
}
