package neat

import (
	"fmt"
	"math"
	"sort"
)

// Stagnation decides which species have stopped improving.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64

	reporters *ReporterSet
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig, reporters *ReporterSet) (*Stagnation, error) {
	fn, ok := StatFunctions[config.SpeciesFitnessFunc]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{
		Config:             config,
		SpeciesFitnessFunc: fn,
		reporters:          reporters,
	}, nil
}

// StagnationInfo holds the result of the stagnation update for one species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes species fitness, records it in the history and marks species that have
// not improved for max_stagnation generations. The species_elitism fittest species are never
// marked. The result is ordered from least to most fit.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	data := make([]*Species, 0, len(speciesSet.Species))
	for _, sid := range sortedKeys(speciesSet.Species) {
		sp := speciesSet.Species[sid]
		prev := math.Inf(-1)
		if len(sp.FitnessHistory) > 0 {
			prev = MaxFloat(sp.FitnessHistory)
		}
		if fitnesses := sp.GetFitnesses(); len(fitnesses) > 0 {
			sp.Fitness = s.SpeciesFitnessFunc(fitnesses)
		} else {
			sp.Fitness = math.Inf(-1)
		}
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = 0
		if sp.Fitness > prev {
			sp.LastImproved = generation
		}
		data = append(data, sp)
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Fitness < data[j].Fitness })

	result := make([]StagnationInfo, len(data))
	nonStagnant := len(data)
	for i, sp := range data {
		stagnant := false
		if nonStagnant > s.Config.SpeciesElitism {
			stagnant = generation-sp.LastImproved >= s.Config.MaxStagnation
		}
		if len(data)-i <= s.Config.SpeciesElitism {
			stagnant = false
		}
		if stagnant {
			nonStagnant--
		}
		result[i] = StagnationInfo{SpeciesID: sp.Key, Species: sp, IsStagnant: stagnant}
	}
	return result
}
