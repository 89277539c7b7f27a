package neat

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // max, min or mean
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	NumInputs                        int     `ini:"num_inputs"`
	NumOutputs                       int     `ini:"num_outputs"`
	NumHidden                        int     `ini:"num_hidden"`
	FeedForward                      bool    `ini:"feed_forward"`
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
	ConnAddProb                      float64 `ini:"conn_add_prob"`
	ConnDeleteProb                   float64 `ini:"conn_delete_prob"`
	NodeAddProb                      float64 `ini:"node_add_prob"`
	NodeDeleteProb                   float64 `ini:"node_delete_prob"`
	SingleStructuralMutation         bool    `ini:"single_structural_mutation"`
	StructuralMutationSurer          string  `ini:"structural_mutation_surer"`
	InitialConnection                string  `ini:"initial_connection"`

	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	EnabledDefault        string  `ini:"enabled_default"`
	EnabledMutateRate     float64 `ini:"enabled_mutate_rate"`
	EnabledRateToTrueAdd  float64 `ini:"enabled_rate_to_true_add"`
	EnabledRateToFalseAdd float64 `ini:"enabled_rate_to_false_add"`

	// Derived from the fields above by LoadConfig.
	InputKeys          []int
	OutputKeys         []int
	ConnectionFraction float64 // only meaningful for the partial_* schemes
	NodeKeyIndex       int     // next key handed out for a hidden node
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

var configSections = []string{"NEAT", "DefaultGenome", "DefaultReproduction", "DefaultSpeciesSet", "DefaultStagnation"}

// LoadConfig loads configuration parameters from an INI file in the neat-python format.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		SpaceBeforeInlineComment: true,
		Insensitive:              false,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	for _, name := range configSections {
		if !cfg.HasSection(name) {
			return nil, fmt.Errorf("config error: missing [%s] section", name)
		}
	}

	config := &Config{}
	targets := map[string]any{
		"NEAT":                &config.Neat,
		"DefaultGenome":       &config.Genome,
		"DefaultReproduction": &config.Reproduction,
		"DefaultSpeciesSet":   &config.SpeciesSet,
		"DefaultStagnation":   &config.Stagnation,
	}
	for _, name := range configSections {
		if err := cfg.Section(name).MapTo(targets[name]); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", name, err)
		}
	}

	config.applyDefaults()
	if err := config.derive(); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills in the values neat-python sets implicitly.
func (c *Config) applyDefaults() {
	g := &c.Genome
	for _, s := range []*string{&g.BiasInitType, &g.ResponseInitType, &g.WeightInitType} {
		*s = strings.TrimSpace(*s)
		if *s == "" {
			*s = "gaussian"
		}
	}
	if g.ActivationDefault == "" {
		g.ActivationDefault = "random"
	}
	if g.AggregationDefault == "" {
		g.AggregationDefault = "random"
	}
	if g.EnabledDefault == "" {
		g.EnabledDefault = "True"
	}
	if g.InitialConnection == "" {
		g.InitialConnection = "unconnected"
	}
	if g.StructuralMutationSurer == "" {
		g.StructuralMutationSurer = "default"
	}
	g.ActivationOptions = trimAll(g.ActivationOptions)
	g.AggregationOptions = trimAll(g.AggregationOptions)

	if c.Reproduction.MinSpeciesSize == 0 {
		c.Reproduction.MinSpeciesSize = 1
	}
	if c.Reproduction.SurvivalThreshold == 0 {
		c.Reproduction.SurvivalThreshold = 0.2
	}
	if c.Stagnation.SpeciesFitnessFunc == "" {
		c.Stagnation.SpeciesFitnessFunc = "mean"
	}
	if c.Stagnation.MaxStagnation == 0 {
		c.Stagnation.MaxStagnation = 15
	}
	c.Neat.FitnessCriterion = strings.ToLower(strings.TrimSpace(c.Neat.FitnessCriterion))
	c.Stagnation.SpeciesFitnessFunc = strings.ToLower(strings.TrimSpace(c.Stagnation.SpeciesFitnessFunc))
}

// derive computes the node key layout and parses the initial connection fraction.
func (c *Config) derive() error {
	g := &c.Genome
	g.InputKeys = make([]int, g.NumInputs)
	for i := range g.InputKeys {
		g.InputKeys[i] = -(i + 1)
	}
	g.OutputKeys = make([]int, g.NumOutputs)
	for i := range g.OutputKeys {
		g.OutputKeys[i] = i
	}
	g.NodeKeyIndex = g.NumOutputs

	g.ConnectionFraction = 1.0
	fields := strings.Fields(g.InitialConnection)
	if len(fields) == 0 {
		return fmt.Errorf("config error: initial_connection is empty")
	}
	g.InitialConnection = fields[0]
	if strings.HasPrefix(g.InitialConnection, "partial") {
		if len(fields) != 2 {
			return fmt.Errorf("config error: initial_connection '%s' needs a connection fraction, e.g. 'partial_direct 0.5'", g.InitialConnection)
		}
		frac, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("config error: invalid connection fraction '%s': %w", fields[1], err)
		}
		if frac < 0 || frac > 1 {
			return fmt.Errorf("config error: connection fraction must be between 0 and 1, got %g", frac)
		}
		g.ConnectionFraction = frac
	}
	return nil
}

func (c *Config) validate() error {
	g := &c.Genome
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if len(g.ActivationOptions) == 0 {
		return fmt.Errorf("config error: activation_options must be specified")
	}
	for _, name := range g.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: %w (available: %s)", err, strings.Join(ActivationNames(), " "))
		}
	}
	if len(g.AggregationOptions) == 0 {
		return fmt.Errorf("config error: aggregation_options must be specified")
	}
	for _, name := range g.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: %w (available: %s)", err, strings.Join(AggregationNames(), " "))
		}
	}
	defaults := []struct {
		name, value string
		known       func(string) error
	}{
		{"activation_default", g.ActivationDefault, func(n string) error { _, err := GetActivation(n); return err }},
		{"aggregation_default", g.AggregationDefault, func(n string) error { _, err := GetAggregation(n); return err }},
	}
	for _, d := range defaults {
		switch strings.ToLower(d.value) {
		case "random", "none":
			continue
		}
		if err := d.known(d.value); err != nil {
			return fmt.Errorf("config error: %s: %w", d.name, err)
		}
	}
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if g.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if g.CompatibilityDisjointCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_disjoint_coefficient cannot be negative")
	}
	if g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_weight_coefficient cannot be negative")
	}
	probs := []struct {
		name string
		v    float64
	}{
		{"conn_add_prob", g.ConnAddProb},
		{"conn_delete_prob", g.ConnDeleteProb},
		{"node_add_prob", g.NodeAddProb},
		{"node_delete_prob", g.NodeDeleteProb},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", p.name)
		}
	}
	if g.BiasMaxValue < g.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if g.ResponseMaxValue < g.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if g.WeightMaxValue < g.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	switch strings.ToLower(g.StructuralMutationSurer) {
	case "default", "true", "false", "yes", "no", "on", "off", "1", "0":
	default:
		return fmt.Errorf("config error: invalid structural_mutation_surer '%s'", g.StructuralMutationSurer)
	}
	if c.Reproduction.SurvivalThreshold < 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	if c.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}

	switch c.Neat.FitnessCriterion {
	case "max", "min", "mean":
	default:
		return fmt.Errorf("config error: invalid fitness_criterion '%s', must be one of 'max', 'min', 'mean'", c.Neat.FitnessCriterion)
	}

	switch g.InitialConnection {
	case "unconnected", "fs_neat_nohidden", "fs_neat", "fs_neat_hidden",
		"full_nodirect", "full", "full_direct",
		"partial_nodirect", "partial", "partial_direct":
	default:
		return fmt.Errorf("config error: invalid initial_connection type '%s'", g.InitialConnection)
	}

	if _, ok := StatFunctions[c.Stagnation.SpeciesFitnessFunc]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}
	return nil
}

// GetNewNodeKey hands out the next hidden node key. Keys are unique for the lifetime of the config.
func (gc *GenomeConfig) GetNewNodeKey() int {
	key := gc.NodeKeyIndex
	gc.NodeKeyIndex++
	return key
}

// IsInput reports whether key names an input pin.
func (gc *GenomeConfig) IsInput(key int) bool {
	return key < 0 && key >= -gc.NumInputs
}

// IsOutput reports whether key names an output node.
func (gc *GenomeConfig) IsOutput(key int) bool {
	return key >= 0 && key < gc.NumOutputs
}

// structureSurer resolves structural_mutation_surer, falling back to single_structural_mutation.
func (gc *GenomeConfig) structureSurer() bool {
	switch strings.ToLower(gc.StructuralMutationSurer) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	default:
		return gc.SingleStructuralMutation
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
