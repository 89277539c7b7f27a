package neat

import (
	"math"
	"sort"
)

// StatisticsReporter keeps per-generation fitness and speciation data for later analysis
// and plotting. It stores copies of the best genome of each generation.
type StatisticsReporter struct {
	BaseReporter

	MostFitGenomes  []*Genome
	GenerationStats []map[int]map[int]float64 // generation -> species id -> genome key -> fitness
}

// NewStatisticsReporter returns an empty statistics reporter.
func NewStatisticsReporter() *StatisticsReporter {
	return &StatisticsReporter{}
}

func (sr *StatisticsReporter) PostEvaluate(_ *Config, _ map[int]*Genome, species *SpeciesSet, best *Genome) {
	if best != nil {
		sr.MostFitGenomes = append(sr.MostFitGenomes, best.Clone())
	}

	speciesStats := make(map[int]map[int]float64, len(species.Species))
	for sid, s := range species.Species {
		members := make(map[int]float64, len(s.Members))
		for gid, g := range s.Members {
			members[gid] = g.Fitness
		}
		speciesStats[sid] = members
	}
	sr.GenerationStats = append(sr.GenerationStats, speciesStats)
}

// FitnessStat applies fn to the fitness values of every genome, once per generation.
func (sr *StatisticsReporter) FitnessStat(fn func([]float64) float64) []float64 {
	out := make([]float64, 0, len(sr.GenerationStats))
	for _, stats := range sr.GenerationStats {
		var scores []float64
		for _, members := range stats {
			for _, f := range members {
				scores = append(scores, f)
			}
		}
		out = append(out, fn(scores))
	}
	return out
}

// FitnessMean returns the mean fitness per generation.
func (sr *StatisticsReporter) FitnessMean() []float64 {
	return sr.FitnessStat(Mean)
}

// FitnessStdev returns the standard deviation of fitness per generation.
func (sr *StatisticsReporter) FitnessStdev() []float64 {
	return sr.FitnessStat(Stdev)
}

// FitnessMedian returns the median fitness per generation.
func (sr *StatisticsReporter) FitnessMedian() []float64 {
	return sr.FitnessStat(Median)
}

// BestFitness returns the fitness of the best genome of every generation.
func (sr *StatisticsReporter) BestFitness() []float64 {
	out := make([]float64, len(sr.MostFitGenomes))
	for i, g := range sr.MostFitGenomes {
		out[i] = g.Fitness
	}
	return out
}

// BestGenomes returns up to n distinct genomes, most fit first.
func (sr *StatisticsReporter) BestGenomes(n int) []*Genome {
	unique := make(map[int]*Genome, len(sr.MostFitGenomes))
	for _, g := range sr.MostFitGenomes {
		unique[g.Key] = g
	}
	out := make([]*Genome, 0, len(unique))
	for _, k := range sortedKeys(unique) {
		out = append(out, unique[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fitness > out[j].Fitness })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// BestGenome returns the most fit genome seen, or nil before the first evaluation.
func (sr *StatisticsReporter) BestGenome() *Genome {
	best := sr.BestGenomes(1)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}

// SpeciesIDs returns every species id that ever existed, in ascending order.
func (sr *StatisticsReporter) SpeciesIDs() []int {
	seen := make(map[int]struct{})
	for _, stats := range sr.GenerationStats {
		for sid := range stats {
			seen[sid] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// SpeciesSizes returns, per generation, the size of every species in SpeciesIDs order.
// Species absent in a generation have size 0.
func (sr *StatisticsReporter) SpeciesSizes() [][]int {
	ids := sr.SpeciesIDs()
	out := make([][]int, len(sr.GenerationStats))
	for gen, stats := range sr.GenerationStats {
		row := make([]int, len(ids))
		for i, sid := range ids {
			row[i] = len(stats[sid])
		}
		out[gen] = row
	}
	return out
}

// SpeciesFitness returns, per generation, the mean fitness of every species in SpeciesIDs
// order. Absent species are reported as NaN.
func (sr *StatisticsReporter) SpeciesFitness() [][]float64 {
	ids := sr.SpeciesIDs()
	out := make([][]float64, len(sr.GenerationStats))
	for gen, stats := range sr.GenerationStats {
		row := make([]float64, len(ids))
		for i, sid := range ids {
			members, ok := stats[sid]
			if !ok || len(members) == 0 {
				row[i] = math.NaN()
				continue
			}
			vals := make([]float64, 0, len(members))
			for _, f := range members {
				vals = append(vals, f)
			}
			row[i] = Mean(vals)
		}
		out[gen] = row
	}
	return out
}
