package neat

import (
	"math"
	"math/rand"
	"sort"
)

// Reproduction creates new genomes, from scratch or by crossover and mutation.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int
	Ancestors     map[int][]int // genome key -> parent keys
	Stagnation    *Stagnation

	reporters *ReporterSet
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation, reporters *ReporterSet) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		Stagnation:    stagnation,
		reporters:     reporters,
	}
}

func (r *Reproduction) nextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation creates popSize fresh genomes.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int) map[int]*Genome {
	genomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.nextKey()
		g := NewGenome(key, genomeConfig)
		g.ConfigureNew()
		genomes[key] = g
		r.Ancestors[key] = nil
	}
	return genomes
}

// Reproduce builds the next generation. Stagnant species are dropped, the rest are allotted
// offspring in proportion to their adjusted fitness. An empty result means every species died.
func (r *Reproduction) Reproduce(config *Config, speciesSet *SpeciesSet, popSize int, generation int) map[int]*Genome {
	var allFitnesses []float64
	var remaining []*Species
	for _, info := range r.Stagnation.Update(speciesSet, generation) {
		if info.IsStagnant {
			r.reporters.SpeciesStagnant(info.SpeciesID, info.Species)
			continue
		}
		allFitnesses = append(allFitnesses, info.Species.GetFitnesses()...)
		remaining = append(remaining, info.Species)
	}
	if len(remaining) == 0 {
		speciesSet.Species = make(map[int]*Species)
		return map[int]*Genome{}
	}

	// Fitness sharing: mean member fitness rescaled into [0, 1] over the whole population.
	minFitness := MinFloat(allFitnesses)
	fitnessRange := math.Max(1.0, MaxFloat(allFitnesses)-minFitness)
	adjusted := make([]float64, len(remaining))
	previousSizes := make([]int, len(remaining))
	for i, sp := range remaining {
		sp.AdjustedFitness = (Mean(sp.GetFitnesses()) - minFitness) / fitnessRange
		adjusted[i] = sp.AdjustedFitness
		previousSizes[i] = len(sp.Members)
	}
	r.reporters.Info("Average adjusted fitness: " + formatFloat(Mean(adjusted)))

	minSpeciesSize := max(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawnAmounts(adjusted, previousSizes, popSize, minSpeciesSize)

	newPopulation := make(map[int]*Genome, popSize)
	newAncestors := make(map[int][]int, popSize)
	speciesSet.Species = make(map[int]*Species, len(remaining))
	for i, sp := range remaining {
		spawn := max(spawnAmounts[i], r.Config.Elitism)

		oldMembers := make([]*Genome, 0, len(sp.Members))
		for _, gid := range sortedKeys(sp.Members) {
			oldMembers = append(oldMembers, sp.Members[gid])
		}
		sort.SliceStable(oldMembers, func(a, b int) bool { return oldMembers[a].Fitness > oldMembers[b].Fitness })

		// The species survives with no members; speciation refills it next generation.
		sp.Members = make(map[int]*Genome)
		speciesSet.Species[sp.Key] = sp

		for j := 0; j < r.Config.Elitism && j < len(oldMembers) && spawn > 0; j++ {
			elite := oldMembers[j]
			newPopulation[elite.Key] = elite
			newAncestors[elite.Key] = r.Ancestors[elite.Key]
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		cutoff = min(max(cutoff, 2), len(oldMembers))
		parents := oldMembers[:cutoff]

		for ; spawn > 0; spawn-- {
			p1 := parents[rand.Intn(len(parents))]
			p2 := parents[rand.Intn(len(parents))]
			childKey := r.nextKey()
			child := NewGenome(childKey, &config.Genome)
			child.ConfigureCrossover(p1, p2)
			child.Mutate()
			newPopulation[childKey] = child
			newAncestors[childKey] = []int{p1.Key, p2.Key}
		}
	}
	r.Ancestors = newAncestors
	return newPopulation
}

// computeSpawnAmounts moves each species halfway from its previous size towards its
// fitness-proportional share, then normalizes the total to popSize.
func computeSpawnAmounts(adjustedFitnesses []float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	afSum := Sum(adjustedFitnesses)
	spawn := make([]int, len(adjustedFitnesses))
	for i, af := range adjustedFitnesses {
		s := float64(minSpeciesSize)
		if afSum > 0 {
			s = math.Max(s, af/afSum*float64(popSize))
		}
		ps := previousSizes[i]
		d := (s - float64(ps)) * 0.5
		c := int(math.RoundToEven(d))
		n := ps
		switch {
		case math.Abs(float64(c)) > 0:
			n += c
		case d > 0:
			n++
		case d < 0:
			n--
		}
		spawn[i] = n
	}

	total := 0
	for _, n := range spawn {
		total += n
	}
	norm := float64(popSize) / math.Max(1, float64(total))
	for i, n := range spawn {
		spawn[i] = max(minSpeciesSize, int(math.RoundToEven(float64(n)*norm)))
	}
	return spawn
}
