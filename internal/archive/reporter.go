package archive

import (
	"context"

	"github.com/google/uuid"

	"github.com/baldhumanity/nnest/neat"
)

// Reporter is a neat.Reporter that writes one generation row per evaluation.
type Reporter struct {
	neat.BaseReporter

	archive     *Archive
	ctx         context.Context
	runID       uuid.UUID
	generation  int
	evaluations int
	err         error
}

// Reporter returns a reporter recording into run. Writes use ctx.
func (a *Archive) Reporter(ctx context.Context, run Run) *Reporter {
	return &Reporter{archive: a, ctx: ctx, runID: run.ID}
}

func (r *Reporter) StartGeneration(generation int) {
	r.generation = generation
}

func (r *Reporter) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, species *neat.SpeciesSet, best *neat.Genome) {
	if r.err != nil {
		return
	}
	r.evaluations += len(population)
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	rec := Generation{
		Generation:  r.generation,
		Mean:        neat.Mean(fitnesses),
		Stdev:       neat.Stdev(fitnesses),
		Species:     len(species.Species),
		Evaluations: r.evaluations,
	}
	if best != nil {
		rec.Best = best.Fitness
	}
	r.err = r.archive.RecordGeneration(r.ctx, r.runID, rec)
}

// Err returns the first write error; the reporter stops writing after it.
func (r *Reporter) Err() error {
	return r.err
}
