package neat

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Genome represents an individual organism in the population.
// It consists of NodeGenes and ConnectionGenes.
type Genome struct {
	Key         int                               // unique within a run
	Nodes       map[int]*NodeGene                 // output and hidden nodes; inputs are implicit
	Connections map[ConnectionKey]*ConnectionGene // keyed by (in, out)
	Fitness     float64
	Config      *GenomeConfig
}

// NewGenome creates an empty Genome. Call ConfigureNew or ConfigureCrossover to populate it.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      config,
	}
}

// ConfigureNew creates output and hidden nodes and the initial connections named by
// initial_connection.
func (g *Genome) ConfigureNew() {
	for _, nodeKey := range g.Config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}
	for i := 0; i < g.Config.NumHidden; i++ {
		nodeKey := g.Config.GetNewNodeKey()
		if _, exists := g.Nodes[nodeKey]; exists {
			panic(fmt.Sprintf("neat: duplicate node key %d", nodeKey))
		}
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}

	hidden := g.Config.NumHidden > 0
	switch g.Config.InitialConnection {
	case "unconnected":
	case "fs_neat_nohidden", "fs_neat":
		g.connectFSNeat(false)
	case "fs_neat_hidden":
		g.connectFSNeat(true)
	case "full_nodirect", "full":
		g.addConnections(g.fullConnections(!hidden))
	case "full_direct":
		g.addConnections(g.fullConnections(true))
	case "partial_nodirect", "partial":
		g.addConnections(g.partialConnections(!hidden))
	case "partial_direct":
		g.addConnections(g.partialConnections(true))
	default:
		panic(fmt.Sprintf("neat: invalid initial_connection %q", g.Config.InitialConnection))
	}
}

// connectFSNeat connects one randomly chosen input to every output, and to every hidden node
// when withHidden is set.
func (g *Genome) connectFSNeat(withHidden bool) {
	in := g.Config.InputKeys[rand.Intn(len(g.Config.InputKeys))]
	for _, out := range g.sortedNodeKeys() {
		if !withHidden && !g.Config.IsOutput(out) {
			continue
		}
		g.addConnection(ConnectionKey{InNodeID: in, OutNodeID: out})
	}
}

// fullConnections lists input->hidden and hidden->output connections, plus input->output when
// direct is set. Recurrent genomes also get self-connections.
func (g *Genome) fullConnections(direct bool) []ConnectionKey {
	var hiddenKeys, outputKeys []int
	for _, k := range g.sortedNodeKeys() {
		if g.Config.IsOutput(k) {
			outputKeys = append(outputKeys, k)
		} else {
			hiddenKeys = append(hiddenKeys, k)
		}
	}

	var conns []ConnectionKey
	if len(hiddenKeys) > 0 {
		for _, in := range g.Config.InputKeys {
			for _, h := range hiddenKeys {
				conns = append(conns, ConnectionKey{in, h})
			}
		}
		for _, h := range hiddenKeys {
			for _, out := range outputKeys {
				conns = append(conns, ConnectionKey{h, out})
			}
		}
	}
	if direct || len(hiddenKeys) == 0 {
		for _, in := range g.Config.InputKeys {
			for _, out := range outputKeys {
				conns = append(conns, ConnectionKey{in, out})
			}
		}
	}
	if !g.Config.FeedForward {
		for _, k := range g.sortedNodeKeys() {
			conns = append(conns, ConnectionKey{k, k})
		}
	}
	return conns
}

// partialConnections keeps a random ConnectionFraction of the full connection set.
func (g *Genome) partialConnections(direct bool) []ConnectionKey {
	all := g.fullConnections(direct)
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	n := int(math.RoundToEven(g.Config.ConnectionFraction * float64(len(all))))
	return all[:n]
}

func (g *Genome) addConnections(keys []ConnectionKey) {
	for _, k := range keys {
		g.addConnection(k)
	}
}

func (g *Genome) addConnection(key ConnectionKey) *ConnectionGene {
	cg := NewConnectionGene(key, g.Config)
	g.Connections[key] = cg
	return cg
}

// ConfigureCrossover fills g from two parents. Matching genes mix attributes; disjoint and
// excess genes come from the fitter parent only.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}
	g.Config = parent1.Config

	for key, cg1 := range parent1.Connections {
		if cg2, ok := parent2.Connections[key]; ok {
			g.Connections[key] = cg1.Crossover(cg2)
		} else {
			g.Connections[key] = cg1.Copy()
		}
	}
	for key, ng1 := range parent1.Nodes {
		if ng2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = ng1.Crossover(ng2)
		} else {
			g.Nodes[key] = ng1.Copy()
		}
	}
}

// Mutate applies structural mutations and then attribute mutations.
func (g *Genome) Mutate() {
	c := g.Config
	if c.SingleStructuralMutation {
		div := math.Max(1, c.NodeAddProb+c.NodeDeleteProb+c.ConnAddProb+c.ConnDeleteProb)
		r := rand.Float64()
		switch {
		case r < c.NodeAddProb/div:
			g.mutateAddNode()
		case r < (c.NodeAddProb+c.NodeDeleteProb)/div:
			g.mutateDeleteNode()
		case r < (c.NodeAddProb+c.NodeDeleteProb+c.ConnAddProb)/div:
			g.mutateAddConnection()
		case r < (c.NodeAddProb+c.NodeDeleteProb+c.ConnAddProb+c.ConnDeleteProb)/div:
			g.mutateDeleteConnection()
		}
	} else {
		if rand.Float64() < c.NodeAddProb {
			g.mutateAddNode()
		}
		if rand.Float64() < c.NodeDeleteProb {
			g.mutateDeleteNode()
		}
		if rand.Float64() < c.ConnAddProb {
			g.mutateAddConnection()
		}
		if rand.Float64() < c.ConnDeleteProb {
			g.mutateDeleteConnection()
		}
	}

	for _, cg := range g.Connections {
		cg.Mutate(c)
		cg.Enabled = cg.mutateEnabled(c)
	}
	for _, ng := range g.Nodes {
		ng.Mutate(c)
	}
}

// mutateAddNode splits a random connection. The incoming half gets weight 1 and the outgoing
// half inherits the old weight, so the network's behaviour barely changes.
func (g *Genome) mutateAddNode() {
	if len(g.Connections) == 0 {
		if g.Config.structureSurer() {
			g.mutateAddConnection()
		}
		return
	}
	keys := g.sortedConnectionKeys()
	split := g.Connections[keys[rand.Intn(len(keys))]]
	split.Enabled = false

	newKey := g.Config.GetNewNodeKey()
	g.Nodes[newKey] = NewNodeGene(newKey, g.Config)

	in := g.addConnection(ConnectionKey{split.Key.InNodeID, newKey})
	in.Weight, in.Enabled = 1.0, true
	out := g.addConnection(ConnectionKey{newKey, split.Key.OutNodeID})
	out.Weight, out.Enabled = split.Weight, true
}

// mutateAddConnection tries one random (in, out) pair. Outputs never feed outputs, and
// feed-forward genomes reject pairs that would close a cycle.
func (g *Genome) mutateAddConnection() {
	outputs := g.sortedNodeKeys()
	if len(outputs) == 0 {
		return
	}
	inputs := append(append([]int{}, outputs...), g.Config.InputKeys...)
	out := outputs[rand.Intn(len(outputs))]
	in := inputs[rand.Intn(len(inputs))]
	key := ConnectionKey{in, out}

	if existing, ok := g.Connections[key]; ok {
		if g.Config.structureSurer() {
			existing.Enabled = true
		}
		return
	}
	if g.Config.IsOutput(in) && g.Config.IsOutput(out) {
		return
	}
	if g.Config.FeedForward && CreatesCycle(g.sortedConnectionKeys(), key) {
		return
	}
	g.addConnection(key)
}

// mutateDeleteNode removes a random hidden node together with its connections.
func (g *Genome) mutateDeleteNode() int {
	var candidates []int
	for _, k := range g.sortedNodeKeys() {
		if !g.Config.IsOutput(k) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	del := candidates[rand.Intn(len(candidates))]
	for key := range g.Connections {
		if key.InNodeID == del || key.OutNodeID == del {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, del)
	return del
}

func (g *Genome) mutateDeleteConnection() {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.sortedConnectionKeys()
	delete(g.Connections, keys[rand.Intn(len(keys))])
}

// Distance is the compatibility distance used for speciation: attribute differences of
// homologous genes plus a penalty for disjoint genes, normalized by the larger genome.
func (g *Genome) Distance(other *Genome) float64 {
	c := g.Config

	nodeDistance := 0.0
	if len(g.Nodes) > 0 || len(other.Nodes) > 0 {
		disjoint := 0
		for k := range other.Nodes {
			if _, ok := g.Nodes[k]; !ok {
				disjoint++
			}
		}
		for k, n1 := range g.Nodes {
			if n2, ok := other.Nodes[k]; ok {
				nodeDistance += n1.Distance(n2, c)
			} else {
				disjoint++
			}
		}
		maxNodes := max(len(g.Nodes), len(other.Nodes))
		nodeDistance = (nodeDistance + c.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxNodes)
	}

	connDistance := 0.0
	if len(g.Connections) > 0 || len(other.Connections) > 0 {
		disjoint := 0
		for k := range other.Connections {
			if _, ok := g.Connections[k]; !ok {
				disjoint++
			}
		}
		for k, c1 := range g.Connections {
			if c2, ok := other.Connections[k]; ok {
				connDistance += c1.Distance(c2, c)
			} else {
				disjoint++
			}
		}
		maxConns := max(len(g.Connections), len(other.Connections))
		connDistance = (connDistance + c.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxConns)
	}

	return nodeDistance + connDistance
}

// Size returns the number of nodes and enabled connections.
func (g *Genome) Size() (nodes, enabled int) {
	for _, cg := range g.Connections {
		if cg.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// Clone returns a deep copy sharing only the config.
func (g *Genome) Clone() *Genome {
	c := NewGenome(g.Key, g.Config)
	c.Fitness = g.Fitness
	for k, ng := range g.Nodes {
		c.Nodes[k] = ng.Copy()
	}
	for k, cg := range g.Connections {
		c.Connections[k] = cg.Copy()
	}
	return c
}

func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %d\nFitness: %g\nNodes:", g.Key, g.Fitness)
	for _, k := range g.sortedNodeKeys() {
		fmt.Fprintf(&b, "\n\t%d %s", k, g.Nodes[k])
	}
	b.WriteString("\nConnections:")
	for _, k := range g.sortedConnectionKeys() {
		fmt.Fprintf(&b, "\n\t%s", g.Connections[k])
	}
	return b.String()
}

func (g *Genome) sortedNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (g *Genome) sortedConnectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	sortConnectionKeys(keys)
	return keys
}

func sortConnectionKeys(keys []ConnectionKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].InNodeID != keys[j].InNodeID {
			return keys[i].InNodeID < keys[j].InNodeID
		}
		return keys[i].OutNodeID < keys[j].OutNodeID
	})
}
