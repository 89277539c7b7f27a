package neat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func speciesSetOf(species ...*Species) *SpeciesSet {
	ss := NewSpeciesSet(&SpeciesSetConfig{}, nil)
	for _, s := range species {
		ss.Species[s.Key] = s
		for gid := range s.Members {
			ss.GenomeToSpecies[gid] = s.Key
		}
	}
	return ss
}

func TestStatisticsReporter(t *testing.T) {
	sr := NewStatisticsReporter()
	assert.Nil(t, sr.BestGenome())

	gen0 := speciesSetOf(speciesWithFitness(1, 0, 1, 3), speciesWithFitness(2, 0, 2))
	best0 := gen0.Species[1].Members[101]
	sr.PostEvaluate(nil, nil, gen0, best0)

	gen1 := speciesSetOf(speciesWithFitness(2, 0, 4, 6), speciesWithFitness(3, 0, 5))
	best1 := gen1.Species[2].Members[201]
	sr.PostEvaluate(nil, nil, gen1, best1)

	assert.Equal(t, []float64{3, 6}, sr.BestFitness())
	assert.Equal(t, []float64{2, 5}, sr.FitnessMean())
	assert.Equal(t, []float64{2, 5}, sr.FitnessMedian())
	stdev := sr.FitnessStdev()
	require.Len(t, stdev, 2)
	assert.InDelta(t, math.Sqrt(2.0/3), stdev[0], 1e-12)

	// Stored genomes are snapshots.
	best1.Fitness = 100
	assert.Equal(t, 6.0, sr.BestGenome().Fitness)
	assert.NotSame(t, best1, sr.BestGenome())

	assert.Equal(t, []int{1, 2, 3}, sr.SpeciesIDs())
	assert.Equal(t, [][]int{{2, 1, 0}, {0, 2, 1}}, sr.SpeciesSizes())

	fitness := sr.SpeciesFitness()
	require.Len(t, fitness, 2)
	assert.Equal(t, 2.0, fitness[0][0])
	assert.Equal(t, 2.0, fitness[0][1])
	assert.True(t, math.IsNaN(fitness[0][2]))
	assert.True(t, math.IsNaN(fitness[1][0]))
	assert.Equal(t, 5.0, fitness[1][1])
}

func TestStatisticsBestGenomes(t *testing.T) {
	sr := NewStatisticsReporter()
	ss := speciesSetOf()
	for _, g := range []*Genome{{Key: 1, Fitness: 1}, {Key: 2, Fitness: 5}, {Key: 2, Fitness: 5}, {Key: 3, Fitness: 2}} {
		sr.PostEvaluate(nil, nil, ss, g)
	}

	best := sr.BestGenomes(2)
	require.Len(t, best, 2)
	assert.Equal(t, 2, best[0].Key)
	assert.Equal(t, 3, best[1].Key)
	assert.Len(t, sr.BestGenomes(10), 3)
}
