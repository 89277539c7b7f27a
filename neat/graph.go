package neat

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ConnectionGraph builds a directed graph whose nodes are genome node keys and whose edges are
// the given connections. Self-connections are skipped; simple graphs cannot hold them.
func ConnectionGraph(conns []ConnectionKey) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, c := range conns {
		if c.InNodeID == c.OutNodeID {
			ensureNode(g, int64(c.InNodeID))
			continue
		}
		g.SetEdge(g.NewEdge(ensureNode(g, int64(c.InNodeID)), ensureNode(g, int64(c.OutNodeID))))
	}
	return g
}

func ensureNode(g *simple.DirectedGraph, id int64) graph.Node {
	if n := g.Node(id); n != nil {
		return n
	}
	n := simple.Node(id)
	g.AddNode(n)
	return n
}

// CreatesCycle reports whether adding test to conns would create a cycle.
func CreatesCycle(conns []ConnectionKey, test ConnectionKey) bool {
	if test.InNodeID == test.OutNodeID {
		return true
	}
	g := ConnectionGraph(conns)
	if g.Node(int64(test.OutNodeID)) == nil || g.Node(int64(test.InNodeID)) == nil {
		return false
	}
	return topo.PathExistsIn(g, simple.Node(test.OutNodeID), simple.Node(test.InNodeID))
}
