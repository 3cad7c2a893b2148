package component

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

// NodeKind distinguishes module vertices from component vertices.
type NodeKind string

const (
	NodeModule    NodeKind = "module"
	NodeComponent NodeKind = "component"
)

// Node is a vertex of the component graph.
type Node struct {
	ID        string
	Kind      NodeKind
	Component *Component // nil for module nodes
}

func moduleID(name string) string { return "module:" + name }

// NewGraph builds a directed graph with one vertex per module and per
// component and an edge from each module to its components.
func NewGraph(components []Component) (graph.Graph[string, *Node], error) {
	g := graph.New(func(n *Node) string { return n.ID }, graph.Directed(), graph.Acyclic())

	for i := range components {
		c := &components[i]
		mod := &Node{ID: moduleID(c.Module), Kind: NodeModule}
		if err := g.AddVertex(mod); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add module %s: %w", c.Module, err)
		}
		if err := g.AddVertex(&Node{ID: c.ID, Kind: NodeComponent, Component: c}); err != nil {
			return nil, fmt.Errorf("failed to add component %s: %w", c.ID, err)
		}
		if err := g.AddEdge(mod.ID, c.ID); err != nil {
			return nil, fmt.Errorf("failed to link component %s: %w", c.ID, err)
		}
	}
	return g, nil
}

// ModuleSummary counts the components of one module per kind.
type ModuleSummary struct {
	Module string         `json:"module" yaml:"module"`
	Total  int            `json:"total" yaml:"total"`
	Counts map[string]int `json:"counts" yaml:"counts"`
}

// Summarize walks the module vertices of g and counts their components.
// Summaries are sorted by module name.
func Summarize(g graph.Graph[string, *Node]) ([]ModuleSummary, error) {
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read component graph: %w", err)
	}

	summaries := []ModuleSummary{}
	for id, edges := range adjacency {
		mod, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		if mod.Kind != NodeModule {
			continue
		}
		s := ModuleSummary{Module: id[len("module:"):], Counts: map[string]int{}}
		for target := range edges {
			n, err := g.Vertex(target)
			if err != nil {
				return nil, err
			}
			s.Counts[n.Component.Kind()]++
			s.Total++
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Module < summaries[j].Module
	})
	return summaries, nil
}
