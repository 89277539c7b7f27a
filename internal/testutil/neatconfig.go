// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type option struct{ key, value string }

type section struct {
	name    string
	options []option
}

func baseConfig(numInputs, numOutputs int) []section {
	return []section{
		{"NEAT", []option{
			{"fitness_criterion", "max"},
			{"fitness_threshold", "3.9"},
			{"pop_size", "50"},
			{"reset_on_extinction", "False"},
			{"no_fitness_termination", "False"},
		}},
		{"DefaultGenome", []option{
			{"activation_default", "sigmoid"},
			{"activation_mutate_rate", "0.0"},
			{"activation_options", "sigmoid"},
			{"aggregation_default", "sum"},
			{"aggregation_mutate_rate", "0.0"},
			{"aggregation_options", "sum"},
			{"bias_init_mean", "0.0"},
			{"bias_init_stdev", "1.0"},
			{"bias_max_value", "30.0"},
			{"bias_min_value", "-30.0"},
			{"bias_mutate_power", "0.5"},
			{"bias_mutate_rate", "0.7"},
			{"bias_replace_rate", "0.1"},
			{"compatibility_disjoint_coefficient", "1.0"},
			{"compatibility_weight_coefficient", "0.5"},
			{"conn_add_prob", "0.5"},
			{"conn_delete_prob", "0.5"},
			{"enabled_default", "True"},
			{"enabled_mutate_rate", "0.01"},
			{"feed_forward", "True"},
			{"initial_connection", "full_direct"},
			{"node_add_prob", "0.2"},
			{"node_delete_prob", "0.2"},
			{"num_hidden", "0"},
			{"num_inputs", fmt.Sprint(numInputs)},
			{"num_outputs", fmt.Sprint(numOutputs)},
			{"response_init_mean", "1.0"},
			{"response_init_stdev", "0.0"},
			{"response_max_value", "30.0"},
			{"response_min_value", "-30.0"},
			{"response_mutate_power", "0.0"},
			{"response_mutate_rate", "0.0"},
			{"response_replace_rate", "0.0"},
			{"weight_init_mean", "0.0"},
			{"weight_init_stdev", "1.0"},
			{"weight_max_value", "30"},
			{"weight_min_value", "-30"},
			{"weight_mutate_power", "0.5"},
			{"weight_mutate_rate", "0.8"},
			{"weight_replace_rate", "0.1"},
		}},
		{"DefaultSpeciesSet", []option{
			{"compatibility_threshold", "3.0"},
		}},
		{"DefaultStagnation", []option{
			{"species_fitness_func", "max"},
			{"max_stagnation", "20"},
			{"species_elitism", "2"},
		}},
		{"DefaultReproduction", []option{
			{"elitism", "2"},
			{"survival_threshold", "0.2"},
		}},
	}
}

// NEATConfig renders a neat-python style configuration. overrides replaces option values by
// name; an empty value removes the option.
func NEATConfig(t testing.TB, numInputs, numOutputs int, overrides map[string]string) string {
	t.Helper()
	sections := baseConfig(numInputs, numOutputs)
	used := make(map[string]bool, len(overrides))

	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "[%s]\n", s.name)
		for _, o := range s.options {
			v := o.value
			if ov, ok := overrides[o.key]; ok {
				used[o.key] = true
				v = ov
			}
			if v == "" {
				continue
			}
			fmt.Fprintf(&b, "%s = %s\n", o.key, v)
		}
		b.WriteString("\n")
	}
	for k := range overrides {
		require.Truef(t, used[k], "unknown config option %q", k)
	}
	return b.String()
}

// WriteNEATConfig writes NEATConfig to a file in a temporary directory and returns its path.
func WriteNEATConfig(t testing.TB, numInputs, numOutputs int, overrides map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	err := os.WriteFile(path, []byte(NEATConfig(t, numInputs, numOutputs, overrides)), 0o600)
	require.NoError(t, err, "write config")
	return path
}
