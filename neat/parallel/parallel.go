// Package parallel evaluates genome fitness on a bounded pool of goroutines.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/baldhumanity/nnest/neat"
)

// GenomeFunc computes the fitness of a single genome. It is called concurrently and must not
// modify the genome.
type GenomeFunc func(ctx context.Context, g *neat.Genome) (float64, error)

// Evaluator runs a GenomeFunc over a population with at most NumWorkers calls in flight.
type Evaluator struct {
	NumWorkers int
	fn         GenomeFunc
}

// NewEvaluator returns an evaluator with numWorkers workers; numWorkers <= 0 means one per CPU.
func NewEvaluator(numWorkers int, fn GenomeFunc) *Evaluator {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Evaluator{NumWorkers: numWorkers, fn: fn}
}

// Evaluate sets the fitness of every genome. It has the neat.FitnessFunc signature. The first
// error cancels the remaining work and is returned; in that case no fitness is written.
func (e *Evaluator) Evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	keys := make([]int, 0, len(genomes))
	for k := range genomes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	results := make([]float64, len(keys))
	p := pool.New().
		WithMaxGoroutines(e.NumWorkers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i, k := range keys {
		i := i
		g := genomes[k]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := e.fn(ctx, g)
			if err != nil {
				return fmt.Errorf("genome %d: %w", g.Key, err)
			}
			results[i] = f
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for i, k := range keys {
		genomes[k].Fitness = results[i]
	}
	return nil
}
