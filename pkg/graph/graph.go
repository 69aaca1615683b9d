package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// Node is a single workflow step: it reads a subset of the state and
// returns a derived state, or an error.
type Node func(ctx context.Context, s State) (State, error)

// Predicate guards a conditional edge.
type Predicate func(s State) bool

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(s State) bool { return !p(s) }
}

// And combines predicates conjunctively.
func And(ps ...Predicate) Predicate {
	return func(s State) bool {
		for _, p := range ps {
			if !p(s) {
				return false
			}
		}
		return true
	}
}

type edge struct {
	to   string
	pred Predicate

	// retry edges may re-enter a visited node, bounded by maxRetries
	// tracked under counterKey in state.
	retry      bool
	counterKey string
	maxRetries int
}

// Graph is a directed state graph over named nodes. Build it with AddNode,
// AddEdge, and the entry/exit setters, then run it with Execute. A graph is
// immutable during execution and safe to share across concurrent runs.
type Graph struct {
	name      string
	nodes     map[string]Node
	edges     map[string][]edge
	entry     string
	exit      string
	errorNode string
	logger    *slog.Logger
}

// New creates an empty graph.
func New(name string, logger *slog.Logger) *Graph {
	return &Graph{
		name:   name,
		nodes:  make(map[string]Node),
		edges:  make(map[string][]edge),
		logger: logger.With("graph", name),
	}
}

// AddNode registers a named node.
func (g *Graph) AddNode(name string, node Node) error {
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	g.nodes[name] = node
	return nil
}

// AddEdge wires from → to. A nil predicate is unconditional. Outgoing edges
// are evaluated in insertion order; the first match is followed.
func (g *Graph) AddEdge(from, to string, pred Predicate) error {
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	g.edges[from] = append(g.edges[from], edge{to: to, pred: pred})
	return nil
}

// AddRetryEdge wires a bounded re-entry edge from → to. The edge matches at
// most maxRetries times per run, tracked by a counter carried in state under
// counterKey, which prevents infinite loops.
func (g *Graph) AddRetryEdge(from, to string, pred Predicate, counterKey string, maxRetries int) error {
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	if maxRetries < 1 {
		return fmt.Errorf("max retries must be positive")
	}
	g.edges[from] = append(g.edges[from], edge{
		to:         to,
		pred:       pred,
		retry:      true,
		counterKey: counterKey,
		maxRetries: maxRetries,
	})
	return nil
}

// SetEntryPoint designates the node where traversal begins.
func (g *Graph) SetEntryPoint(name string) error {
	if _, exists := g.nodes[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	g.entry = name
	return nil
}

// SetExitPoint designates an explicit finish node. Any node with no
// outgoing edges is also terminal.
func (g *Graph) SetExitPoint(name string) error {
	if _, exists := g.nodes[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	g.exit = name
	return nil
}

// SetErrorNode designates the node that handles node failures. When unset,
// a failing node aborts the run and the partial state is returned with the
// failure.
func (g *Graph) SetErrorNode(name string) error {
	if _, exists := g.nodes[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	g.errorNode = name
	return nil
}

func (g *Graph) checkEndpoints(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}
	return nil
}

// Execute traverses the graph from the entry node, threading the state
// through each visited node until a terminal node completes or a failure
// aborts the run. The traversal is strictly sequential; the context is
// checked between node transitions. On error the last valid state is
// returned alongside it for diagnosis.
func (g *Graph) Execute(ctx context.Context, s State) (State, error) {
	if g.entry == "" {
		return s, ErrNoEntryPoint
	}

	visited := make(map[string]bool)
	current := g.entry

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		visited[current] = true

		g.logger.DebugContext(ctx, "executing node", "node", current, "run_id", s.RunID())

		next, err := g.nodes[current](ctx, s)
		if err != nil {
			if g.errorNode != "" && current != g.errorNode {
				s = s.Set(KeyNodeError, err.Error())
				s = s.Set(KeyFailedNode, current)
				current = g.errorNode
				continue
			}
			return s, fmt.Errorf("node %s: %w", current, err)
		}
		s = next

		if current == g.exit {
			return s, nil
		}

		outgoing := g.edges[current]
		if len(outgoing) == 0 {
			return s, nil
		}

		target, ok, updated := g.route(outgoing, s, visited)
		if !ok {
			return s, fmt.Errorf("%w: from %s", ErrNoRoute, current)
		}
		s = updated
		current = target
	}
}

// route finds the first matching outgoing edge. Retry edges consume their
// bounded counter and reset the visit history so the do-over portion of the
// graph can run again; non-retry edges into an already-visited node are never
// followed, closing off accidental cycles.
func (g *Graph) route(outgoing []edge, s State, visited map[string]bool) (string, bool, State) {
	for _, e := range outgoing {
		if e.pred != nil && !e.pred(s) {
			continue
		}

		if e.retry {
			n := s.GetInt(e.counterKey)
			if n >= e.maxRetries {
				continue
			}
			clear(visited)
			return e.to, true, s.Set(e.counterKey, n+1)
		}

		if visited[e.to] {
			continue
		}
		return e.to, true, s
	}
	return "", false, s
}
