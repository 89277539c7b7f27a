package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baldhumanity/nnest/neat"
)

// Metrics is a neat.Reporter that publishes evolution progress on its own registry.
type Metrics struct {
	neat.BaseReporter

	registry *prometheus.Registry

	generations        prometheus.Counter
	evaluations        prometheus.Counter
	extinctions        prometheus.Counter
	stagnantSpecies    prometheus.Counter
	bestFitness        prometheus.Gauge
	meanFitness        prometheus.Gauge
	species            prometheus.Gauge
	generationDuration prometheus.Histogram

	start time.Time
}

// NewMetrics creates the collectors and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nnest",
			Name:      "generations_total",
			Help:      "Completed generations.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nnest",
			Name:      "evaluations_total",
			Help:      "Genome fitness evaluations.",
		}),
		extinctions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nnest",
			Name:      "extinctions_total",
			Help:      "Complete extinctions of the population.",
		}),
		stagnantSpecies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nnest",
			Name:      "stagnant_species_total",
			Help:      "Species removed for stagnation.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nnest",
			Name:      "best_fitness",
			Help:      "Fitness of the best genome of the last evaluated generation.",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nnest",
			Name:      "mean_fitness",
			Help:      "Mean fitness of the last evaluated generation.",
		}),
		species: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nnest",
			Name:      "species",
			Help:      "Number of species after the last speciation.",
		}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nnest",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of one generation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.generations,
		m.evaluations,
		m.extinctions,
		m.stagnantSpecies,
		m.bestFitness,
		m.meanFitness,
		m.species,
		m.generationDuration,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartGeneration(int) {
	m.start = time.Now()
}

func (m *Metrics) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, _ *neat.SpeciesSet, best *neat.Genome) {
	m.evaluations.Add(float64(len(population)))
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	m.meanFitness.Set(neat.Mean(fitnesses))
	if best != nil {
		m.bestFitness.Set(best.Fitness)
	}
}

func (m *Metrics) EndGeneration(_ *neat.Config, _ map[int]*neat.Genome, species *neat.SpeciesSet) {
	m.generations.Inc()
	m.species.Set(float64(len(species.Species)))
	if !m.start.IsZero() {
		m.generationDuration.Observe(time.Since(m.start).Seconds())
	}
}

func (m *Metrics) CompleteExtinction() {
	m.extinctions.Inc()
}

func (m *Metrics) SpeciesStagnant(int, *neat.Species) {
	m.stagnantSpecies.Inc()
}
