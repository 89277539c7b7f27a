package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSpawnAmounts(t *testing.T) {
	tests := []struct {
		name     string
		adjusted []float64
		previous []int
		popSize  int
		minSize  int
		want     []int
	}{
		{"single species keeps size", []float64{1}, []int{10}, 10, 2, []int{10}},
		{"flat fitness", []float64{0}, []int{10}, 10, 2, []int{10}},
		{"moves halfway", []float64{1, 0}, []int{5, 5}, 10, 2, []int{7, 3}},
		{"minimum size", []float64{1, 0}, []int{9, 1}, 10, 2, []int{8, 2}},
		{"ties round to even", []float64{1, 0}, []int{5, 1}, 6, 2, []int{4, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, computeSpawnAmounts(tc.adjusted, tc.previous, tc.popSize, tc.minSize))
		})
	}
}

func newTestReproduction(t *testing.T, cfg *Config) (*Reproduction, *SpeciesSet) {
	t.Helper()
	reporters := &ReporterSet{}
	st, err := NewStagnation(&cfg.Stagnation, reporters)
	require.NoError(t, err)
	return NewReproduction(&cfg.Reproduction, st, reporters), NewSpeciesSet(&cfg.SpeciesSet, reporters)
}

func TestCreateNewPopulation(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	r, _ := newTestReproduction(t, cfg)

	pop := r.CreateNewPopulation(&cfg.Genome, 5)
	require.Len(t, pop, 5)
	for key, g := range pop {
		assert.Equal(t, key, g.Key)
		assert.Contains(t, r.Ancestors, key)
		assert.Nil(t, r.Ancestors[key])
	}
	assert.Equal(t, 6, r.NextGenomeKey)
}

func TestReproduceKeepsPopulationSize(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"compatibility_threshold": "1000"})
	r, ss := newTestReproduction(t, cfg)
	pop := r.CreateNewPopulation(&cfg.Genome, 20)
	for key, g := range pop {
		g.Fitness = float64(key)
	}
	require.NoError(t, ss.Speciate(cfg, pop, 0))

	next := r.Reproduce(cfg, ss, 20, 0)
	require.Len(t, next, 20)

	// The two elites survive unchanged.
	assert.Same(t, pop[20], next[20])
	assert.Same(t, pop[19], next[19])
	for key, g := range next {
		assert.Equal(t, key, g.Key)
		if key > 20 {
			parents := r.Ancestors[key]
			require.Len(t, parents, 2)
			// Only the top 20% breed.
			for _, p := range parents {
				assert.GreaterOrEqual(t, p, 17)
			}
		}
	}
	require.Len(t, ss.Species, 1)
	assert.Empty(t, ss.Species[1].Members)
	assert.InDelta(t, 9.5/19, ss.Species[1].AdjustedFitness, 1e-9)
}

func TestReproduceDropsStagnantSpecies(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"compatibility_threshold": "1000",
		"max_stagnation":          "1",
		"species_elitism":         "0",
	})
	stagnant := 0
	rec := &recordingReporter{}
	r, ss := newTestReproduction(t, cfg)
	r.reporters.Add(rec)
	pop := r.CreateNewPopulation(&cfg.Genome, 10)
	require.NoError(t, ss.Speciate(cfg, pop, 0))
	ss.Species[1].FitnessHistory = []float64{1}

	next := r.Reproduce(cfg, ss, 10, 5)
	assert.Empty(t, next)
	assert.Empty(t, ss.Species)
	for _, ev := range rec.events {
		if ev == "species_stagnant" {
			stagnant++
		}
	}
	assert.Equal(t, 1, stagnant)
}
