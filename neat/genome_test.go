package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/topo"
)

func newTestGenome(t *testing.T, cfg *Config, key int) *Genome {
	t.Helper()
	g := NewGenome(key, &cfg.Genome)
	g.ConfigureNew()
	return g
}

func TestConfigureNewInitialConnections(t *testing.T) {
	tests := []struct {
		name        string
		inputs      int
		outputs     int
		hidden      string
		connection  string
		nodes       int
		connections int
	}{
		{"unconnected", 2, 1, "0", "unconnected", 1, 0},
		{"full direct", 2, 1, "0", "full_direct", 1, 2},
		{"full without hidden is direct", 3, 2, "0", "full_nodirect", 2, 6},
		{"full nodirect with hidden", 2, 1, "2", "full_nodirect", 3, 6},
		{"full direct with hidden", 2, 1, "2", "full_direct", 3, 8},
		{"fs neat", 3, 2, "0", "fs_neat_nohidden", 2, 2},
		{"fs neat hidden", 3, 2, "1", "fs_neat_hidden", 3, 3},
		{"partial", 4, 2, "0", "partial_direct 0.5", 2, 4},
		{"partial none", 4, 2, "0", "partial_direct 0.0", 2, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadTestConfig(t, tc.inputs, tc.outputs, map[string]string{
				"num_hidden":         tc.hidden,
				"initial_connection": tc.connection,
			})
			g := newTestGenome(t, cfg, 1)
			assert.Len(t, g.Nodes, tc.nodes)
			assert.Len(t, g.Connections, tc.connections)
			for key := range g.Connections {
				assert.False(t, cfg.Genome.IsOutput(key.InNodeID) && cfg.Genome.IsOutput(key.OutNodeID), "output feeds output: %s", key)
				assert.False(t, cfg.Genome.IsInput(key.OutNodeID), "connection into input: %s", key)
			}
		})
	}
}

func TestConfigureNewRecurrentSelfConnections(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"feed_forward": "False"})
	g := newTestGenome(t, cfg, 1)
	assert.Contains(t, g.Connections, ConnectionKey{0, 0})
	assert.Len(t, g.Connections, 3)
}

func TestGenomeDistance(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	g1 := newTestGenome(t, cfg, 1)
	g2 := newTestGenome(t, cfg, 2)

	assert.Zero(t, g1.Distance(g1))
	assert.Zero(t, g1.Distance(g1.Clone()))
	assert.InDelta(t, g1.Distance(g2), g2.Distance(g1), 1e-12)

	// One extra hidden node and two extra connections.
	g3 := g1.Clone()
	g3.mutateAddNode()
	d := g1.Distance(g3)
	assert.Greater(t, d, 0.0)
}

func TestGenomeDistanceExact(t *testing.T) {
	cfg := loadTestConfig(t, 1, 1, map[string]string{
		"compatibility_disjoint_coefficient": "1.0",
		"compatibility_weight_coefficient":   "0.5",
	})
	g1 := NewGenome(1, &cfg.Genome)
	g1.Nodes[0] = &NodeGene{Key: 0, Bias: 1, Response: 1, Activation: "sigmoid", Aggregation: "sum"}
	g1.Connections[ConnectionKey{-1, 0}] = &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 2, Enabled: true}

	g2 := NewGenome(2, &cfg.Genome)
	g2.Nodes[0] = &NodeGene{Key: 0, Bias: 0, Response: 1, Activation: "tanh", Aggregation: "sum"}
	g2.Nodes[1] = &NodeGene{Key: 1, Bias: 0, Response: 1, Activation: "sigmoid", Aggregation: "sum"}
	g2.Connections[ConnectionKey{-1, 0}] = &ConnectionGene{Key: ConnectionKey{-1, 0}, Weight: 1, Enabled: false}

	// nodes: (|1-0| + 1 activation) * 0.5 = 1, plus one disjoint, over two nodes = 1.
	// connections: (|2-1| + 1 enabled) * 0.5 = 1, over one connection = 1.
	assert.InDelta(t, 2.0, g1.Distance(g2), 1e-12)
}

func TestMutateAddNode(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	g := newTestGenome(t, cfg, 1)
	nextKey := cfg.Genome.NodeKeyIndex

	g.mutateAddNode()

	require.Len(t, g.Nodes, 2)
	require.Contains(t, g.Nodes, nextKey)
	require.Len(t, g.Connections, 4)
	disabled := 0
	for _, cg := range g.Connections {
		if !cg.Enabled {
			disabled++
		}
	}
	assert.Equal(t, 1, disabled)
	in := ConnectionKey{}
	for key := range g.Connections {
		if key.OutNodeID == nextKey {
			in = key
		}
	}
	assert.Equal(t, 1.0, g.Connections[in].Weight)
}

func TestMutateDeleteNode(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{"num_hidden": "1", "initial_connection": "full_nodirect"})
	g := newTestGenome(t, cfg, 1)
	require.Len(t, g.Nodes, 2)

	deleted := g.mutateDeleteNode()
	assert.Equal(t, 1, deleted)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Connections)

	// Output nodes are never deleted.
	assert.Equal(t, -1, g.mutateDeleteNode())
	assert.Contains(t, g.Nodes, 0)
}

func TestMutateDeleteConnection(t *testing.T) {
	cfg := loadTestConfig(t, 3, 1, nil)
	g := newTestGenome(t, cfg, 1)
	g.mutateDeleteConnection()
	assert.Len(t, g.Connections, 2)
}

func TestCreatesCycle(t *testing.T) {
	conns := []ConnectionKey{{1, 2}, {2, 3}}
	assert.True(t, CreatesCycle(conns, ConnectionKey{3, 1}))
	assert.True(t, CreatesCycle(conns, ConnectionKey{2, 2}))
	assert.False(t, CreatesCycle(conns, ConnectionKey{1, 3}))
	assert.False(t, CreatesCycle(conns, ConnectionKey{-1, 3}))
	assert.False(t, CreatesCycle(nil, ConnectionKey{1, 2}))
}

func TestMutateKeepsFeedForwardAcyclic(t *testing.T) {
	cfg := loadTestConfig(t, 3, 2, map[string]string{
		"node_add_prob":    "0.5",
		"conn_add_prob":    "0.9",
		"node_delete_prob": "0.05",
		"conn_delete_prob": "0.05",
	})
	g := newTestGenome(t, cfg, 1)
	for i := 0; i < 300; i++ {
		g.Mutate()
		for key := range g.Connections {
			require.NotEqual(t, key.InNodeID, key.OutNodeID)
			require.False(t, cfg.Genome.IsInput(key.OutNodeID))
		}
		_, err := topo.Sort(ConnectionGraph(g.sortedConnectionKeys()))
		require.NoError(t, err, "cycle after %d mutations", i+1)
	}
	for _, k := range cfg.Genome.OutputKeys {
		assert.Contains(t, g.Nodes, k)
	}
}

func TestMutateRespectsBounds(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, map[string]string{
		"weight_max_value":    "1",
		"weight_min_value":    "-1",
		"weight_mutate_power": "5",
		"weight_mutate_rate":  "1.0",
	})
	g := newTestGenome(t, cfg, 1)
	for i := 0; i < 50; i++ {
		g.Mutate()
	}
	for _, cg := range g.Connections {
		assert.GreaterOrEqual(t, cg.Weight, -1.0)
		assert.LessOrEqual(t, cg.Weight, 1.0)
	}
}

func TestConfigureCrossover(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	fit := newTestGenome(t, cfg, 1)
	fit.Fitness = 10
	weak := fit.Clone()
	weak.Key = 2
	weak.Fitness = 1
	weak.mutateAddNode()
	fit.mutateDeleteConnection()

	child := NewGenome(3, &cfg.Genome)
	child.ConfigureCrossover(weak, fit)

	assert.Equal(t, len(fit.Nodes), len(child.Nodes))
	assert.Equal(t, len(fit.Connections), len(child.Connections))
	for key := range child.Connections {
		assert.Contains(t, fit.Connections, key)
	}
	// The child owns its genes.
	for key, cg := range child.Connections {
		assert.NotSame(t, fit.Connections[key], cg)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	g := newTestGenome(t, cfg, 1)
	c := g.Clone()
	require.Equal(t, g.Nodes, c.Nodes)

	c.Nodes[0].Bias += 1
	for _, cg := range c.Connections {
		cg.Weight += 1
	}
	assert.NotEqual(t, g.Nodes[0].Bias, c.Nodes[0].Bias)
	for key, cg := range g.Connections {
		assert.NotEqual(t, cg.Weight, c.Connections[key].Weight)
	}
}

func TestGenomeSizeAndString(t *testing.T) {
	cfg := loadTestConfig(t, 2, 1, nil)
	g := newTestGenome(t, cfg, 7)
	nodes, enabled := g.Size()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 2, enabled)
	assert.Contains(t, g.String(), "Key: 7")
	assert.Contains(t, g.String(), "-1->0")
}
