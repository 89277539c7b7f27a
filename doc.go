// Package nnest evolves feed-forward neural-network controllers for a simulated planar drone
// with NEAT (NeuroEvolution of Augmenting Topologies).
//
// The NEAT implementation in package neat follows the paper by Kenneth O. Stanley and Risto
// Miikkulainen and the semantics of neat-python (https://github.com/CodeReclaimers/neat-python),
// including its INI configuration format. Supporting packages:
//
//   - neat/nn: feed-forward phenotypes built from genomes
//   - neat/parallel: bounded worker-pool fitness evaluation
//   - neat/visualize: fitness and speciation plots, Graphviz network sources
//   - drone: the planar quadrotor simulator used as the control task
//   - internal/archive: SQLite run archive
//   - internal/telemetry: structured logging and Prometheus metrics
//
// The experiment itself lives in examples/drone.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//	pop.AddReporter(neat.NewLogReporter(slog.Default(), false))
//	stats := neat.NewStatisticsReporter()
//	pop.AddReporter(stats)
//
//	evaluator := parallel.NewEvaluator(4, evalGenome)
//	winner, err := pop.Run(ctx, evaluator.Evaluate, 100)
//	if err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
package nnest
