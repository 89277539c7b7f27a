package neat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/nnest/internal/testutil"
)

func loadTestConfig(t *testing.T, numInputs, numOutputs int, overrides map[string]string) *Config {
	t.Helper()
	cfg, err := LoadConfig(testutil.WriteNEATConfig(t, numInputs, numOutputs, overrides))
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)

	assert.Equal(t, 50, cfg.Neat.PopSize)
	assert.Equal(t, "max", cfg.Neat.FitnessCriterion)
	assert.InDelta(t, 3.9, cfg.Neat.FitnessThreshold, 1e-12)
	assert.True(t, cfg.Genome.FeedForward)
	assert.Equal(t, []int{-1, -2}, cfg.Genome.InputKeys)
	assert.Equal(t, []int{0}, cfg.Genome.OutputKeys)
	assert.Equal(t, 1, cfg.Genome.NodeKeyIndex)
	assert.Equal(t, []string{"sigmoid"}, cfg.Genome.ActivationOptions)
	assert.Equal(t, "full_direct", cfg.Genome.InitialConnection)
	assert.Equal(t, 1.0, cfg.Genome.ConnectionFraction)
	assert.Equal(t, 2, cfg.Reproduction.Elitism)
	assert.Equal(t, 3.0, cfg.SpeciesSet.CompatibilityThreshold)
	assert.Equal(t, 20, cfg.Stagnation.MaxStagnation)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"species_fitness_func": "",
		"survival_threshold":   "",
		"enabled_default":      "",
	})
	assert.Equal(t, "mean", cfg.Stagnation.SpeciesFitnessFunc)
	assert.Equal(t, 0.2, cfg.Reproduction.SurvivalThreshold)
	assert.Equal(t, 1, cfg.Reproduction.MinSpeciesSize)
	assert.Equal(t, "True", cfg.Genome.EnabledDefault)
	assert.Equal(t, "gaussian", cfg.Genome.WeightInitType)
}

func TestLoadConfigOptionLists(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"activation_options":  "sigmoid tanh  relu",
		"aggregation_options": "sum max",
	})
	assert.Equal(t, []string{"sigmoid", "tanh", "relu"}, cfg.Genome.ActivationOptions)
	assert.Equal(t, []string{"sum", "max"}, cfg.Genome.AggregationOptions)
}

func TestLoadConfigPartialConnection(t *testing.T) {
	cfg := loadTestConfig(t, 3, 2, map[string]string{"initial_connection": "partial_direct 0.5"})
	assert.Equal(t, "partial_direct", cfg.Genome.InitialConnection)
	assert.Equal(t, 0.5, cfg.Genome.ConnectionFraction)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		contains  string
	}{
		{"partial without fraction", map[string]string{"initial_connection": "partial"}, "connection fraction"},
		{"fraction out of range", map[string]string{"initial_connection": "partial 1.5"}, "between 0 and 1"},
		{"unknown initial connection", map[string]string{"initial_connection": "sparse"}, "initial_connection"},
		{"unknown fitness criterion", map[string]string{"fitness_criterion": "best"}, "fitness_criterion"},
		{"unknown activation", map[string]string{"activation_options": "sigmoid wobble"}, "wobble"},
		{"unknown activation default", map[string]string{"activation_default": "wobble"}, "activation_default"},
		{"unknown aggregation", map[string]string{"aggregation_options": "sum mode"}, "mode"},
		{"zero population", map[string]string{"pop_size": "0"}, "pop_size"},
		{"probability above one", map[string]string{"conn_add_prob": "1.5"}, "conn_add_prob"},
		{"inverted weight bounds", map[string]string{"weight_min_value": "40"}, "weight_max_value"},
		{"bad species fitness func", map[string]string{"species_fitness_func": "mode"}, "species_fitness_func"},
		{"no inputs", map[string]string{"num_inputs": "0"}, "num_inputs"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(testutil.WriteNEATConfig(t, 2, 1, tc.overrides))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoadConfigMissingSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("[NEAT]\npop_size = 10\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DefaultGenome")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestGetNewNodeKey(t *testing.T) {
	cfg := loadTestConfig(t, 2, 3, nil)
	assert.Equal(t, 3, cfg.Genome.GetNewNodeKey())
	assert.Equal(t, 4, cfg.Genome.GetNewNodeKey())
	assert.True(t, cfg.Genome.IsInput(-2))
	assert.False(t, cfg.Genome.IsInput(-3))
	assert.True(t, cfg.Genome.IsOutput(2))
	assert.False(t, cfg.Genome.IsOutput(3))
}
