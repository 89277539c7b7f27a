package neat

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrCompleteExtinction is returned by Run when every species died out and
// reset_on_extinction is off.
var ErrCompleteExtinction = errors.New("neat: complete extinction")

// FitnessFunc is the type for the function provided by the user to evaluate genome fitness.
// It must set the Fitness field of every genome in the map before returning.
type FitnessFunc func(ctx context.Context, genomes map[int]*Genome) error

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome // current generation, genome key -> genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Reporters    *ReporterSet
	Generation   int     // generation about to run
	BestGenome   *Genome // best genome found so far

	// TotalEvaluations counts fitness evaluations over the lifetime of the population.
	TotalEvaluations int
}

// NewPopulation creates the initial generation described by config and speciates it.
func NewPopulation(config *Config) (*Population, error) {
	reporters := &ReporterSet{}
	stagnation, err := NewStagnation(&config.Stagnation, reporters)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}
	reproduction := NewReproduction(&config.Reproduction, stagnation, reporters)

	p := &Population{
		Config:       config,
		Population:   reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize),
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet, reporters),
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Reporters:    reporters,
	}
	if err := p.SpeciesSet.Speciate(config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("failed to speciate initial population: %w", err)
	}
	return p, nil
}

// AddReporter registers a reporter for the generation hooks.
func (p *Population) AddReporter(r Reporter) {
	p.Reporters.Add(r)
}

// RemoveReporter unregisters a reporter.
func (p *Population) RemoveReporter(r Reporter) {
	p.Reporters.Remove(r)
}

// Run evolves the population for at most n generations (n <= 0 means until the fitness
// threshold is met) and returns the best genome seen. A cancelled ctx stops the run between
// generations, or during evaluation if the fitness function honours it.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc, n int) (*Genome, error) {
	criterion, err := p.fitnessCriterion()
	if err != nil {
		return nil, err
	}
	if p.Config.Neat.NoFitnessTermination && n <= 0 {
		return nil, errors.New("cannot have no generational limit with no fitness termination")
	}

	for k := 0; n <= 0 || k < n; k++ {
		if err := ctx.Err(); err != nil {
			return p.BestGenome, err
		}
		p.Reporters.StartGeneration(p.Generation)

		if err := fitnessFunc(ctx, p.Population); err != nil {
			return p.BestGenome, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
		}
		p.TotalEvaluations += len(p.Population)

		best := p.findBestGenome()
		p.Reporters.PostEvaluate(p.Config, p.Population, p.SpeciesSet, best)
		if best != nil && (p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness) {
			p.BestGenome = best.Clone()
		}

		if !p.Config.Neat.NoFitnessTermination {
			fitnesses := make([]float64, 0, len(p.Population))
			for _, g := range p.Population {
				fitnesses = append(fitnesses, g.Fitness)
			}
			if criterion(fitnesses) >= p.Config.Neat.FitnessThreshold {
				p.Reporters.FoundSolution(p.Config, p.Generation, best)
				return p.BestGenome, nil
			}
		}

		p.Population = p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Config.Neat.PopSize, p.Generation)
		p.Reporters.PostReproduction(p.Config, p.Population, p.SpeciesSet)

		if len(p.SpeciesSet.Species) == 0 {
			p.Reporters.CompleteExtinction()
			if !p.Config.Neat.ResetOnExtinction {
				return p.BestGenome, ErrCompleteExtinction
			}
			p.Population = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize)
		}

		if err := p.SpeciesSet.Speciate(p.Config, p.Population, p.Generation); err != nil {
			return p.BestGenome, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
		}

		p.Generation++
		p.Reporters.EndGeneration(p.Config, p.Population, p.SpeciesSet)
	}

	if p.Config.Neat.NoFitnessTermination {
		p.Reporters.FoundSolution(p.Config, p.Generation, p.BestGenome)
	}
	return p.BestGenome, nil
}

func (p *Population) fitnessCriterion() (func([]float64) float64, error) {
	switch p.Config.Neat.FitnessCriterion {
	case "max":
		return MaxFloat, nil
	case "min":
		return MinFloat, nil
	case "mean":
		return Mean, nil
	default:
		return nil, fmt.Errorf("unexpected fitness_criterion: %q", p.Config.Neat.FitnessCriterion)
	}
}

// findBestGenome finds the genome with the highest fitness in the current population.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, key := range sortedKeys(p.Population) {
		g := p.Population[key]
		if best == nil || g.Fitness > maxFitness {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
