package nn

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/baldhumanity/nnest/neat"
)

// ErrCycle is returned when the enabled connections of a genome contain a cycle.
var ErrCycle = errors.New("nn: network is not feed-forward")

// neuralNode is a node prepared for activation: functions resolved, incoming edges indexed
// into the value buffer.
type neuralNode struct {
	Key         int
	Bias        float64
	Response    float64
	Activation  neat.ActivationType
	Aggregation neat.AggregationType
	Inputs      []link
	slot        int
}

type link struct {
	slot   int
	weight float64
}

// FeedForwardNetwork is a phenotype that can be activated. It contains only the nodes that
// contribute to an output.
type FeedForwardNetwork struct {
	InputKeys     []int
	OutputKeys    []int
	NodeEvalOrder []int // keys of the non-input nodes in activation order

	nodes       []neuralNode // in NodeEvalOrder
	outputSlots []int        // -1 for an output that is never evaluated
	values      []float64
}

// RequiredForOutput returns the nodes whose value is needed to compute the outputs. Input
// nodes are never included; outputs always are.
func RequiredForOutput(inputs, outputs []int, conns []neat.ConnectionKey) map[int]bool {
	isInput := make(map[int]bool, len(inputs))
	for _, k := range inputs {
		isInput[k] = true
	}
	g := neat.ConnectionGraph(conns)

	required := make(map[int]bool, len(outputs))
	queue := make([]int, 0, len(outputs))
	for _, k := range outputs {
		required[k] = true
		queue = append(queue, k)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if g.Node(int64(n)) == nil {
			continue
		}
		preds := g.To(int64(n))
		for preds.Next() {
			a := int(preds.Node().ID())
			if isInput[a] || required[a] {
				continue
			}
			required[a] = true
			queue = append(queue, a)
		}
	}
	return required
}

// CreateFeedForwardNetwork builds a runnable feed-forward network from a genome. Disabled
// connections and nodes that cannot reach an output are dropped. A node is evaluated only once
// every source of its enabled connections is; nodes without such a path from the inputs,
// including outputs, read 0.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	cfg := g.Config
	var conns []neat.ConnectionKey
	for key, cg := range g.Connections {
		if !cg.Enabled {
			continue
		}
		if key.InNodeID == key.OutNodeID {
			return nil, fmt.Errorf("%w: self-connection on node %d", ErrCycle, key.InNodeID)
		}
		conns = append(conns, key)
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].InNodeID != conns[j].InNodeID {
			return conns[i].InNodeID < conns[j].InNodeID
		}
		return conns[i].OutNodeID < conns[j].OutNodeID
	})

	required := RequiredForOutput(cfg.InputKeys, cfg.OutputKeys, conns)

	dg := simple.NewDirectedGraph()
	for _, k := range cfg.InputKeys {
		dg.AddNode(simple.Node(k))
	}
	for k := range required {
		dg.AddNode(simple.Node(k))
	}
	var used []neat.ConnectionKey
	for _, c := range conns {
		if !required[c.OutNodeID] {
			continue
		}
		if dg.Node(int64(c.InNodeID)) == nil {
			// Only a source outside InputKeys with a negative key ends up here.
			return nil, fmt.Errorf("connection %s starts at unknown node %d", c, c.InNodeID)
		}
		dg.SetEdge(dg.NewEdge(simple.Node(c.InNodeID), simple.Node(c.OutNodeID)))
		used = append(used, c)
	}

	order, err := topo.SortStabilized(dg, byID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	net := &FeedForwardNetwork{
		InputKeys:   cfg.InputKeys,
		OutputKeys:  cfg.OutputKeys,
		outputSlots: make([]int, len(cfg.OutputKeys)),
		values:      make([]float64, len(cfg.InputKeys)),
	}
	slots := make(map[int]int, len(order))
	for i, k := range cfg.InputKeys {
		slots[k] = i
	}
	incoming := make(map[int][]neat.ConnectionKey)
	for _, c := range used {
		incoming[c.OutNodeID] = append(incoming[c.OutNodeID], c)
	}

	for _, n := range order {
		key := int(n.ID())
		if cfg.IsInput(key) {
			continue
		}
		if !fed(incoming[key], slots) {
			// No path from the inputs: the node is never evaluated and reads 0.
			continue
		}
		ng, ok := g.Nodes[key]
		if !ok {
			return nil, fmt.Errorf("genome %d has no gene for required node %d", g.Key, key)
		}
		act, err := neat.GetActivation(ng.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", key, err)
		}
		agg, err := neat.GetAggregation(ng.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", key, err)
		}
		node := neuralNode{
			Key:         key,
			Bias:        ng.Bias,
			Response:    ng.Response,
			Activation:  act,
			Aggregation: agg,
			slot:        len(net.values),
		}
		for _, c := range incoming[key] {
			node.Inputs = append(node.Inputs, link{slot: slots[c.InNodeID], weight: g.Connections[c].Weight})
		}
		slots[key] = node.slot
		net.values = append(net.values, 0)
		net.nodes = append(net.nodes, node)
		net.NodeEvalOrder = append(net.NodeEvalOrder, key)
	}

	for i, k := range cfg.OutputKeys {
		if s, ok := slots[k]; ok {
			net.outputSlots[i] = s
		} else {
			net.outputSlots[i] = -1
		}
	}
	return net, nil
}

// fed reports whether a node has incoming connections and all of their sources already have
// a value. Order is topological, so slots holds every evaluated predecessor.
func fed(in []neat.ConnectionKey, slots map[int]int) bool {
	if len(in) == 0 {
		return false
	}
	for _, c := range in {
		if _, ok := slots[c.InNodeID]; !ok {
			return false
		}
	}
	return true
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// Activate computes the network's output for the given inputs. Every node computes
// act(bias + response * agg(w_i * x_i)). A network is not safe for concurrent use.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}
	copy(net.values, inputs)

	var buf []float64
	for i := range net.nodes {
		node := &net.nodes[i]
		buf = buf[:0]
		for _, in := range node.Inputs {
			buf = append(buf, net.values[in.slot]*in.weight)
		}
		s := node.Aggregation(buf)
		net.values[node.slot] = node.Activation(node.Bias + node.Response*s)
	}

	outputs := make([]float64, len(net.outputSlots))
	for i, s := range net.outputSlots {
		if s >= 0 {
			outputs[i] = net.values[s]
		}
	}
	return outputs, nil
}
