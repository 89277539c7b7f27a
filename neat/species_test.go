package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenomes(t *testing.T, cfg *Config, n int) map[int]*Genome {
	t.Helper()
	r := NewReproduction(&cfg.Reproduction, nil, &ReporterSet{})
	return r.CreateNewPopulation(&cfg.Genome, n)
}

func TestSpeciateSingleSpecies(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"compatibility_threshold": "1000"})
	pop := newTestGenomes(t, cfg, 20)
	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})

	require.NoError(t, ss.Speciate(cfg, pop, 0))
	require.Len(t, ss.Species, 1)
	s := ss.Species[1]
	require.NotNil(t, s)
	assert.Len(t, s.Members, 20)
	assert.Equal(t, 0, s.Created)
	assert.Contains(t, s.Members, s.Representative.Key)
	assert.Equal(t, 2, ss.Indexer)
}

func TestSpeciateEveryGenomeAlone(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"compatibility_threshold": "0"})
	pop := newTestGenomes(t, cfg, 10)
	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})

	require.NoError(t, ss.Speciate(cfg, pop, 0))
	assert.Len(t, ss.Species, 10)
	for gid := range pop {
		s, ok := ss.GetSpecies(gid)
		require.True(t, ok)
		assert.Len(t, s.Members, 1)
	}
}

func TestSpeciateCoversPopulation(t *testing.T) {
	cfg := loadTestConfig(t, 3, 2, nil)
	pop := newTestGenomes(t, cfg, 30)
	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})
	require.NoError(t, ss.Speciate(cfg, pop, 0))

	total := 0
	for sid, s := range ss.Species {
		assert.NotEmpty(t, s.Members)
		total += len(s.Members)
		for gid := range s.Members {
			got, ok := ss.GetSpeciesID(gid)
			require.True(t, ok)
			assert.Equal(t, sid, got)
		}
	}
	assert.Equal(t, len(pop), total)
	assert.Len(t, ss.GenomeToSpecies, len(pop))
}

func TestSpeciateKeepsExistingSpecies(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"compatibility_threshold": "1000"})
	r := NewReproduction(&cfg.Reproduction, nil, &ReporterSet{})
	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})
	require.NoError(t, ss.Speciate(cfg, r.CreateNewPopulation(&cfg.Genome, 5), 0))
	first := ss.Species[1]

	require.NoError(t, ss.Speciate(cfg, r.CreateNewPopulation(&cfg.Genome, 5), 3))
	require.Len(t, ss.Species, 1)
	assert.Same(t, first, ss.Species[1])
	assert.Equal(t, 0, first.Created)
	assert.Len(t, first.Members, 5)
}

func TestSpeciateRequiresRepresentative(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})
	ss.Species[4] = NewSpecies(4, 0)
	assert.Error(t, ss.Speciate(cfg, newTestGenomes(t, cfg, 2), 1))
}

func TestGenomeDistanceCache(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	g1 := newTestGenome(t, cfg, 1)
	g2 := newTestGenome(t, cfg, 2)
	dc := NewGenomeDistanceCache()

	d := dc.Distance(g1, g2)
	assert.Equal(t, d, dc.Distance(g2, g1))
	assert.Equal(t, 1, dc.Misses)
	assert.Equal(t, 1, dc.Hits)
	assert.Equal(t, []float64{d}, dc.Values())
}

func speciesWithFitness(key, lastImproved int, fitness ...float64) *Species {
	s := NewSpecies(key, 0)
	s.LastImproved = lastImproved
	for i, f := range fitness {
		gid := key*100 + i
		s.Members[gid] = &Genome{Key: gid, Fitness: f}
	}
	return s
}

func TestStagnationUpdate(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"max_stagnation":  "5",
		"species_elitism": "1",
	})
	st, err := NewStagnation(&cfg.Stagnation, &ReporterSet{})
	require.NoError(t, err)

	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})
	ss.Species[1] = speciesWithFitness(1, 0, 1, 2)
	ss.Species[2] = speciesWithFitness(2, 0, 5, 6)
	ss.Species[3] = speciesWithFitness(3, 0, 3)
	for _, s := range ss.Species {
		s.FitnessHistory = []float64{100}
	}

	infos := st.Update(ss, 10)
	require.Len(t, infos, 3)
	// Least fit first.
	assert.Equal(t, []int{1, 3, 2}, []int{infos[0].SpeciesID, infos[1].SpeciesID, infos[2].SpeciesID})
	assert.True(t, infos[0].IsStagnant)
	assert.True(t, infos[1].IsStagnant)
	assert.False(t, infos[2].IsStagnant, "species elitism protects the fittest species")

	assert.Equal(t, 2.0, ss.Species[1].Fitness)
	assert.Equal(t, []float64{100, 6}, ss.Species[2].FitnessHistory)
}

func TestStagnationImprovementResetsCounter(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"max_stagnation":  "5",
		"species_elitism": "0",
	})
	st, err := NewStagnation(&cfg.Stagnation, &ReporterSet{})
	require.NoError(t, err)

	ss := NewSpeciesSet(&cfg.SpeciesSet, &ReporterSet{})
	ss.Species[1] = speciesWithFitness(1, 0, 10)
	ss.Species[1].FitnessHistory = []float64{1}

	infos := st.Update(ss, 10)
	require.Len(t, infos, 1)
	assert.False(t, infos[0].IsStagnant)
	assert.Equal(t, 10, ss.Species[1].LastImproved)
}

func TestNewStagnationRejectsUnknownFunction(t *testing.T) {
	_, err := NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "mode"}, &ReporterSet{})
	assert.Error(t, err)
}
