package visualize

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/baldhumanity/nnest/neat"
	"github.com/baldhumanity/nnest/neat/nn"
)

// DrawOptions controls DrawNet.
type DrawOptions struct {
	// ShowDisabled draws disabled connections dotted; otherwise they are omitted.
	ShowDisabled bool
	// PruneUnused omits hidden nodes that cannot reach an output.
	PruneUnused bool
	// NodeNames overrides node labels by key.
	NodeNames map[int]string
}

// DefaultDrawOptions shows every node and connection.
var DefaultDrawOptions = DrawOptions{ShowDisabled: true}

type dotNode struct {
	id    int64
	name  string
	attrs []encoding.Attribute
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return n.name }
func (n dotNode) Attributes() []encoding.Attribute { return n.attrs }

type dotEdge struct {
	from, to graph.Node
	attrs    []encoding.Attribute
}

func (e dotEdge) From() graph.Node                 { return e.from }
func (e dotEdge) To() graph.Node                   { return e.to }
func (e dotEdge) ReversedEdge() graph.Edge         { return dotEdge{from: e.to, to: e.from, attrs: e.attrs} }
func (e dotEdge) Attributes() []encoding.Attribute { return e.attrs }

type attrs []encoding.Attribute

func (a attrs) Attributes() []encoding.Attribute { return a }

// netGraph adds the default node attributes to the graph.
type netGraph struct {
	*simple.DirectedGraph
}

func (netGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return attrs{{Key: "rankdir", Value: "LR"}},
		attrs{
			{Key: "shape", Value: "circle"},
			{Key: "fontsize", Value: "9"},
			{Key: "height", Value: "0.2"},
			{Key: "width", Value: "0.2"},
		},
		attrs{}
}

// NetGraph builds the graph DrawNet renders.
func NetGraph(g *neat.Genome, opts DrawOptions) graph.Directed {
	cfg := g.Config
	name := func(k int) string {
		if n, ok := opts.NodeNames[k]; ok {
			return n
		}
		return strconv.Itoa(k)
	}

	dg := netGraph{simple.NewDirectedGraph()}
	for _, k := range cfg.InputKeys {
		dg.AddNode(dotNode{id: int64(k), name: name(k), attrs: []encoding.Attribute{
			{Key: "style", Value: "filled"},
			{Key: "shape", Value: "box"},
			{Key: "fillcolor", Value: "lightgray"},
		}})
	}
	for _, k := range cfg.OutputKeys {
		dg.AddNode(dotNode{id: int64(k), name: name(k), attrs: []encoding.Attribute{
			{Key: "style", Value: "filled"},
			{Key: "fillcolor", Value: "lightblue"},
		}})
	}

	var shown []*neat.ConnectionGene
	var keys []neat.ConnectionKey
	for _, cg := range g.Connections {
		if cg.Enabled || opts.ShowDisabled {
			shown = append(shown, cg)
			keys = append(keys, cg.Key)
		}
	}

	var hidden []int
	if opts.PruneUnused {
		for k := range nn.RequiredForOutput(cfg.InputKeys, cfg.OutputKeys, keys) {
			if !cfg.IsOutput(k) {
				hidden = append(hidden, k)
			}
		}
	} else {
		for k := range g.Nodes {
			if !cfg.IsOutput(k) {
				hidden = append(hidden, k)
			}
		}
	}
	for _, k := range hidden {
		dg.AddNode(dotNode{id: int64(k), name: name(k), attrs: []encoding.Attribute{
			{Key: "style", Value: "filled"},
			{Key: "fillcolor", Value: "white"},
		}})
	}

	for _, cg := range shown {
		from, to := dg.Node(int64(cg.Key.InNodeID)), dg.Node(int64(cg.Key.OutNodeID))
		if from == nil || to == nil || from.ID() == to.ID() {
			continue
		}
		style := "solid"
		if !cg.Enabled {
			style = "dotted"
		}
		edgeColor := "red"
		if cg.Weight > 0 {
			edgeColor = "green"
		}
		dg.SetEdge(dotEdge{from: from, to: to, attrs: []encoding.Attribute{
			{Key: "style", Value: style},
			{Key: "color", Value: edgeColor},
			{Key: "penwidth", Value: strconv.FormatFloat(0.1+math.Abs(cg.Weight/5.0), 'f', 3, 64)},
		}})
	}
	return dg
}

// DrawNet writes the network of g as Graphviz DOT source to path. Inputs are gray boxes,
// outputs blue circles; positive weights are green and negative red, with pen width
// proportional to magnitude. Self-connections are not drawn.
func DrawNet(g *neat.Genome, path string, opts DrawOptions) error {
	b, err := dot.Marshal(NetGraph(g, opts), fmt.Sprintf("genome_%d", g.Key), "", "\t")
	if err != nil {
		return fmt.Errorf("marshal genome %d: %w", g.Key, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
