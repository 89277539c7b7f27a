package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// speciesSaveData is a Species with members stored by key, so they decode as the same
// genomes held by the population.
type speciesSaveData struct {
	Key             int
	Created         int
	LastImproved    int
	Representative  *Genome
	MemberKeys      []int
	Fitness         float64
	AdjustedFitness float64
	FitnessHistory  []float64
}

// populationSaveData holds only the parts of Population needed for resuming. The config is
// not stored; it is reloaded from the original file.
type populationSaveData struct {
	Generation       int
	Population       map[int]*Genome
	Species          []speciesSaveData
	SpeciesIndexer   int
	NextGenomeKey    int
	Ancestors        map[int][]int
	NodeKeyIndex     int
	BestGenome       *Genome
	TotalEvaluations int
}

// withoutConfig returns a shallow copy of g that gob can encode without repeating the
// genome config for every genome.
func withoutConfig(g *Genome) *Genome {
	if g == nil {
		return nil
	}
	c := *g
	c.Config = nil
	return &c
}

// SaveCheckpoint writes the state of the population to a gzip-compressed gob file.
// Resuming from it runs Generation next.
func (p *Population) SaveCheckpoint(filePath string) error {
	data := populationSaveData{
		Generation:       p.Generation,
		Population:       make(map[int]*Genome, len(p.Population)),
		SpeciesIndexer:   p.SpeciesSet.Indexer,
		NextGenomeKey:    p.Reproduction.NextGenomeKey,
		Ancestors:        p.Reproduction.Ancestors,
		NodeKeyIndex:     p.Config.Genome.NodeKeyIndex,
		BestGenome:       withoutConfig(p.BestGenome),
		TotalEvaluations: p.TotalEvaluations,
	}
	for k, g := range p.Population {
		data.Population[k] = withoutConfig(g)
	}
	for _, sid := range sortedKeys(p.SpeciesSet.Species) {
		s := p.SpeciesSet.Species[sid]
		data.Species = append(data.Species, speciesSaveData{
			Key:             s.Key,
			Created:         s.Created,
			LastImproved:    s.LastImproved,
			Representative:  withoutConfig(s.Representative),
			MemberKeys:      sortedKeys(s.Members),
			Fitness:         s.Fitness,
			AdjustedFitness: s.AdjustedFitness,
			FitnessHistory:  s.FitnessHistory,
		})
	}

	if err := writeGob(filePath, data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint loads a Population state from a checkpoint file.
// It requires the original configuration file path to reconstruct the Config object.
func LoadCheckpoint(checkpointPath string, configPath string) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}
	return RestoreCheckpoint(checkpointPath, config)
}

// RestoreCheckpoint loads a Population state from a checkpoint file using an already loaded
// config. The config's node key counter is advanced to the saved value.
func RestoreCheckpoint(checkpointPath string, config *Config) (*Population, error) {
	var data populationSaveData
	if err := readGob(checkpointPath, &data); err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	reporters := &ReporterSet{}
	stagnation, err := NewStagnation(&config.Stagnation, reporters)
	if err != nil {
		return nil, fmt.Errorf("failed to re-initialize stagnation from loaded config: %w", err)
	}
	reproduction := NewReproduction(&config.Reproduction, stagnation, reporters)
	reproduction.NextGenomeKey = data.NextGenomeKey
	if data.Ancestors != nil {
		reproduction.Ancestors = data.Ancestors
	}
	config.Genome.NodeKeyIndex = max(config.Genome.NodeKeyIndex, data.NodeKeyIndex)

	relink := func(g *Genome) *Genome {
		if g != nil {
			g.Config = &config.Genome
			if g.Nodes == nil {
				g.Nodes = make(map[int]*NodeGene)
			}
			if g.Connections == nil {
				g.Connections = make(map[ConnectionKey]*ConnectionGene)
			}
		}
		return g
	}
	population := make(map[int]*Genome, len(data.Population))
	for k, g := range data.Population {
		population[k] = relink(g)
	}

	speciesSet := NewSpeciesSet(&config.SpeciesSet, reporters)
	speciesSet.Indexer = data.SpeciesIndexer
	for _, sd := range data.Species {
		s := NewSpecies(sd.Key, sd.Created)
		s.LastImproved = sd.LastImproved
		s.Fitness = sd.Fitness
		s.AdjustedFitness = sd.AdjustedFitness
		s.FitnessHistory = sd.FitnessHistory
		s.Representative = relink(sd.Representative)
		for _, gid := range sd.MemberKeys {
			g, ok := population[gid]
			if !ok {
				return nil, fmt.Errorf("checkpoint species %d references unknown genome %d", sd.Key, gid)
			}
			s.Members[gid] = g
			speciesSet.GenomeToSpecies[gid] = sd.Key
		}
		speciesSet.Species[sd.Key] = s
	}

	return &Population{
		Config:           config,
		Population:       population,
		SpeciesSet:       speciesSet,
		Reproduction:     reproduction,
		Stagnation:       stagnation,
		Reporters:        reporters,
		Generation:       data.Generation,
		BestGenome:       relink(data.BestGenome),
		TotalEvaluations: data.TotalEvaluations,
	}, nil
}

// Checkpointer is a reporter that saves the population every GenerationInterval generations.
// Files are named Prefix followed by the number of the generation just completed.
type Checkpointer struct {
	BaseReporter

	Population         *Population
	GenerationInterval int
	Prefix             string

	lastCheckpoint int
	lastErr        error
}

// NewCheckpointer creates a checkpointer for p. It does not register itself; pass it to
// p.AddReporter.
func NewCheckpointer(p *Population, generationInterval int, prefix string) *Checkpointer {
	if prefix == "" {
		prefix = "neat-checkpoint-"
	}
	return &Checkpointer{
		Population:         p,
		GenerationInterval: generationInterval,
		Prefix:             prefix,
		lastCheckpoint:     p.Generation - 1,
	}
}

func (c *Checkpointer) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) {
	completed := c.Population.Generation - 1
	if c.GenerationInterval <= 0 || completed-c.lastCheckpoint < c.GenerationInterval {
		return
	}
	path := fmt.Sprintf("%s%d.gz", c.Prefix, completed)
	if err := c.Population.SaveCheckpoint(path); err != nil {
		c.lastErr = err
		c.Population.Reporters.Info(fmt.Sprintf("Checkpoint %s failed: %v", path, err))
		return
	}
	c.lastCheckpoint = completed
	c.Population.Reporters.Info("Saving checkpoint to " + path)
}

// Err returns the last error encountered while writing a checkpoint.
func (c *Checkpointer) Err() error {
	return c.lastErr
}

// SaveGenome writes a single genome to a gzip-compressed gob file.
func SaveGenome(filePath string, g *Genome) error {
	if err := writeGob(filePath, withoutConfig(g)); err != nil {
		return fmt.Errorf("failed to save genome %d: %w", g.Key, err)
	}
	return nil
}

// LoadGenome reads a genome written by SaveGenome and attaches it to config.
func LoadGenome(filePath string, config *GenomeConfig) (*Genome, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open genome file '%s': %w", filePath, err)
	}
	defer file.Close()
	g, err := DecodeGenome(file, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load genome: %w", err)
	}
	return g, nil
}

func writeGob(filePath string, v any) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", filePath, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return encodeGob(file, v)
}

func encodeGob(w io.Writer, v any) error {
	gzWriter := gzip.NewWriter(w)
	if err := gob.NewEncoder(gzWriter).Encode(v); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode: %w", err)
	}
	return gzWriter.Close()
}

func readGob(filePath string, v any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", filePath, err)
	}
	defer file.Close()
	return decodeGob(file, v)
}

func decodeGob(r io.Reader, v any) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()
	if err := gob.NewDecoder(gzReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

// EncodeGenome writes g to w in the SaveGenome format.
func EncodeGenome(w io.Writer, g *Genome) error {
	return encodeGob(w, withoutConfig(g))
}

// DecodeGenome reads a genome in the SaveGenome format from r and attaches it to config.
func DecodeGenome(r io.Reader, config *GenomeConfig) (*Genome, error) {
	var g Genome
	if err := decodeGob(r, &g); err != nil {
		return nil, err
	}
	g.Config = config
	if g.Nodes == nil {
		g.Nodes = make(map[int]*NodeGene)
	}
	if g.Connections == nil {
		g.Connections = make(map[ConnectionKey]*ConnectionGene)
	}
	return &g, nil
}
