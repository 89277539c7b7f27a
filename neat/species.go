package neat

import (
	"fmt"
	"math"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int
	Created         int // generation the species appeared in
	LastImproved    int // last generation its fitness improved
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64 // species fitness as computed by the stagnation function
	AdjustedFitness float64 // fitness after sharing, in [0, 1]
	FitnessHistory  []float64
}

// NewSpecies creates a new species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:          key,
		Created:      generation,
		LastImproved: generation,
		Members:      make(map[int]*Genome),
	}
}

// Update adjusts the species' representative and members.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// --------------------------- GenomeDistanceCache ---------------------------

type genomePair struct{ a, b int }

// GenomeDistanceCache memoizes genome distances for one speciation pass.
type GenomeDistanceCache struct {
	distances map[genomePair]float64
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates an empty distance cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{distances: make(map[genomePair]float64)}
}

// Distance returns the (symmetric) distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	key := genomePair{genome1.Key, genome2.Key}
	if key.a > key.b {
		key.a, key.b = key.b, key.a
	}
	if d, ok := dc.distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2)
	dc.distances[key] = d
	return d
}

// Values returns every distance computed so far.
func (dc *GenomeDistanceCache) Values() []float64 {
	out := make([]float64, 0, len(dc.distances))
	for _, d := range dc.distances {
		out = append(out, d)
	}
	return out
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         int // next species key
	Config          *SpeciesSetConfig

	reporters *ReporterSet
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(config *SpeciesSetConfig, reporters *ReporterSet) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
		reporters:       reporters,
	}
}

// Speciate partitions the population into species. Each existing species first claims the
// genome closest to its old representative; the remaining genomes join the nearest species
// within the compatibility threshold or found a new one.
func (ss *SpeciesSet) Speciate(config *Config, population map[int]*Genome, generation int) error {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return nil
	}
	threshold := ss.Config.CompatibilityThreshold
	distances := NewGenomeDistanceCache()

	unspeciated := make(map[int]*Genome, len(population))
	for k, g := range population {
		unspeciated[k] = g
	}
	newRepresentatives := make(map[int]*Genome)
	newMembers := make(map[int][]int)

	for _, sid := range sortedKeys(ss.Species) {
		s := ss.Species[sid]
		if len(unspeciated) == 0 {
			break
		}
		if s.Representative == nil {
			return fmt.Errorf("species %d has no representative", sid)
		}
		var best *Genome
		bestDist := math.Inf(1)
		for _, gid := range sortedKeys(unspeciated) {
			g := unspeciated[gid]
			if d := distances.Distance(s.Representative, g); d < bestDist {
				best, bestDist = g, d
			}
		}
		newRepresentatives[sid] = best
		newMembers[sid] = []int{best.Key}
		delete(unspeciated, best.Key)
	}

	for _, gid := range sortedKeys(unspeciated) {
		g := unspeciated[gid]
		bestSpecies := -1
		minDist := math.Inf(1)
		for _, sid := range sortedKeys(newRepresentatives) {
			d := distances.Distance(newRepresentatives[sid], g)
			if d < threshold && d < minDist {
				minDist, bestSpecies = d, sid
			}
		}
		if bestSpecies != -1 {
			newMembers[bestSpecies] = append(newMembers[bestSpecies], gid)
			continue
		}
		sid := ss.Indexer
		ss.Indexer++
		newRepresentatives[sid] = g
		newMembers[sid] = []int{gid}
	}

	species := make(map[int]*Species, len(newRepresentatives))
	genomeToSpecies := make(map[int]int, len(population))
	for sid, rep := range newRepresentatives {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
		}
		members := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			members[gid] = population[gid]
			genomeToSpecies[gid] = sid
		}
		s.Update(rep, members)
		species[sid] = s
	}
	ss.Species = species
	ss.GenomeToSpecies = genomeToSpecies

	if vals := distances.Values(); len(vals) > 0 {
		ss.reporters.Info(fmt.Sprintf("Mean genetic distance %.3f, standard deviation %.3f", Mean(vals), Stdev(vals)))
	}
	return nil
}

// GetSpeciesID returns the species ID for a given genome ID.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	return sid, ok
}

// GetSpecies returns the species a genome belongs to.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, ok := ss.GenomeToSpecies[genomeID]
	if !ok {
		return nil, false
	}
	s, ok := ss.Species[sid]
	return s, ok
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
