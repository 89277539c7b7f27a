package neat

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Reporter observes the evolutionary loop. Population calls the hooks in this order each
// generation: StartGeneration, PostEvaluate, then either FoundSolution or PostReproduction
// (CompleteExtinction when nothing survives), and finally EndGeneration.
type Reporter interface {
	StartGeneration(generation int)
	PostEvaluate(config *Config, population map[int]*Genome, species *SpeciesSet, best *Genome)
	PostReproduction(config *Config, population map[int]*Genome, species *SpeciesSet)
	EndGeneration(config *Config, population map[int]*Genome, species *SpeciesSet)
	CompleteExtinction()
	FoundSolution(config *Config, generation int, best *Genome)
	SpeciesStagnant(sid int, species *Species)
	Info(msg string)
}

// BaseReporter implements every Reporter hook as a no-op. Embed it to override a subset.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int)                                         {}
func (BaseReporter) PostEvaluate(*Config, map[int]*Genome, *SpeciesSet, *Genome) {}
func (BaseReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet)      {}
func (BaseReporter) EndGeneration(*Config, map[int]*Genome, *SpeciesSet)         {}
func (BaseReporter) CompleteExtinction()                                         {}
func (BaseReporter) FoundSolution(*Config, int, *Genome)                         {}
func (BaseReporter) SpeciesStagnant(int, *Species)                               {}
func (BaseReporter) Info(string)                                                 {}

// ReporterSet fans every hook out to its reporters. A nil set is valid and silent.
type ReporterSet struct {
	reporters []Reporter
}

// Add registers a reporter.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// Remove unregisters a reporter.
func (rs *ReporterSet) Remove(r Reporter) {
	for i, x := range rs.reporters {
		if x == r {
			rs.reporters = append(rs.reporters[:i], rs.reporters[i+1:]...)
			return
		}
	}
}

func (rs *ReporterSet) each(fn func(Reporter)) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		fn(r)
	}
}

func (rs *ReporterSet) StartGeneration(gen int) {
	rs.each(func(r Reporter) { r.StartGeneration(gen) })
}

func (rs *ReporterSet) PostEvaluate(config *Config, population map[int]*Genome, species *SpeciesSet, best *Genome) {
	rs.each(func(r Reporter) { r.PostEvaluate(config, population, species, best) })
}

func (rs *ReporterSet) PostReproduction(config *Config, population map[int]*Genome, species *SpeciesSet) {
	rs.each(func(r Reporter) { r.PostReproduction(config, population, species) })
}

func (rs *ReporterSet) EndGeneration(config *Config, population map[int]*Genome, species *SpeciesSet) {
	rs.each(func(r Reporter) { r.EndGeneration(config, population, species) })
}

func (rs *ReporterSet) CompleteExtinction() {
	rs.each(func(r Reporter) { r.CompleteExtinction() })
}

func (rs *ReporterSet) FoundSolution(config *Config, generation int, best *Genome) {
	rs.each(func(r Reporter) { r.FoundSolution(config, generation, best) })
}

func (rs *ReporterSet) SpeciesStagnant(sid int, species *Species) {
	rs.each(func(r Reporter) { r.SpeciesStagnant(sid, species) })
}

func (rs *ReporterSet) Info(msg string) {
	rs.each(func(r Reporter) { r.Info(msg) })
}

// LogReporter writes progress to a structured logger.
type LogReporter struct {
	Logger        *slog.Logger
	SpeciesDetail bool

	generation      int
	generationStart time.Time
	generationTimes []time.Duration
	extinctions     int
}

// NewLogReporter returns a LogReporter; a nil logger means slog.Default().
func NewLogReporter(logger *slog.Logger, speciesDetail bool) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{Logger: logger, SpeciesDetail: speciesDetail}
}

func (lr *LogReporter) StartGeneration(generation int) {
	lr.generation = generation
	lr.generationStart = time.Now()
	lr.Logger.Info("running generation", "generation", generation)
}

func (lr *LogReporter) PostEvaluate(_ *Config, population map[int]*Genome, species *SpeciesSet, best *Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	attrs := []any{
		"generation", lr.generation,
		"mean_fitness", Mean(fitnesses),
		"stdev", Stdev(fitnesses),
	}
	if best != nil {
		nodes, conns := best.Size()
		attrs = append(attrs, "best_fitness", best.Fitness, "best_key", best.Key, "best_nodes", nodes, "best_connections", conns)
		if sid, ok := species.GetSpeciesID(best.Key); ok {
			attrs = append(attrs, "best_species", sid)
		}
	}
	lr.Logger.Info("population evaluated", attrs...)
}

func (lr *LogReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet) {}

func (lr *LogReporter) EndGeneration(_ *Config, population map[int]*Genome, species *SpeciesSet) {
	lr.Logger.Info("generation complete",
		"generation", lr.generation,
		"members", len(population),
		"species", len(species.Species),
		"extinctions", lr.extinctions)

	if lr.SpeciesDetail {
		sids := make([]int, 0, len(species.Species))
		for sid := range species.Species {
			sids = append(sids, sid)
		}
		sort.Ints(sids)
		for _, sid := range sids {
			s := species.Species[sid]
			lr.Logger.Debug("species",
				"id", sid,
				"age", lr.generation-s.Created,
				"size", len(s.Members),
				"fitness", s.Fitness,
				"adjusted_fitness", s.AdjustedFitness,
				"stagnation", lr.generation-s.LastImproved)
		}
	}

	elapsed := time.Since(lr.generationStart)
	lr.generationTimes = append(lr.generationTimes, elapsed)
	if len(lr.generationTimes) > 10 {
		lr.generationTimes = lr.generationTimes[1:]
	}
	var total time.Duration
	for _, d := range lr.generationTimes {
		total += d
	}
	lr.Logger.Info("generation time",
		"elapsed", elapsed.Round(time.Millisecond),
		"average", (total / time.Duration(len(lr.generationTimes))).Round(time.Millisecond))
}

func (lr *LogReporter) CompleteExtinction() {
	lr.extinctions++
	lr.Logger.Warn("all species extinct")
}

func (lr *LogReporter) FoundSolution(_ *Config, generation int, best *Genome) {
	nodes, conns := best.Size()
	lr.Logger.Info("best individual meets fitness threshold",
		"generation", generation, "nodes", nodes, "connections", conns)
}

func (lr *LogReporter) SpeciesStagnant(sid int, species *Species) {
	lr.Logger.Info(fmt.Sprintf("species %d with %d members is stagnated: removing it", sid, len(species.Members)))
}

func (lr *LogReporter) Info(msg string) {
	lr.Logger.Debug(msg)
}
