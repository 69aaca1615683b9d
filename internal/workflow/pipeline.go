package workflow

import (
	"context"
	"log/slog"

	"github.com/docenthq/docent/pkg/graph"
)

// maxRevisions bounds review → write retry loops within one run.
const maxRevisions = 2

// BuildContentPipeline wires the content creation workflow over opaque
// agent processors: research → write → review → finalize. Review is reached
// only when writing produced a draft; a rejected draft routes back to write
// through a bounded retry edge, then the pipeline finalizes with whatever
// draft stands.
//
// The processors are external collaborators satisfying the node contract;
// their internal reasoning is out of scope here.
func BuildContentPipeline(research, write, review graph.Node, logger *slog.Logger) (*graph.Graph, error) {
	g := graph.New("content-pipeline", logger)

	if err := g.AddNode("research", research); err != nil {
		return nil, err
	}
	if err := g.AddNode("write", write); err != nil {
		return nil, err
	}
	if err := g.AddNode("review", review); err != nil {
		return nil, err
	}
	if err := g.AddNode("finalize", finalizeContentNode()); err != nil {
		return nil, err
	}

	if err := g.AddEdge("research", "write", nil); err != nil {
		return nil, err
	}

	// Review only when writing actually produced a draft; a silent write
	// failure finalizes with partial output instead.
	if err := g.AddEdge("write", "review", hasDraft); err != nil {
		return nil, err
	}
	if err := g.AddEdge("write", "finalize", graph.Not(hasDraft)); err != nil {
		return nil, err
	}

	if err := g.AddRetryEdge("review", "write", graph.Not(approved), KeyRevisions, maxRevisions); err != nil {
		return nil, err
	}
	if err := g.AddEdge("review", "finalize", nil); err != nil {
		return nil, err
	}

	if err := g.SetEntryPoint("research"); err != nil {
		return nil, err
	}
	if err := g.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return g, nil
}

func hasDraft(s graph.State) bool {
	return s.GetString(KeyDraft) != ""
}

func approved(s graph.State) bool {
	v, ok := s.Get(KeyApproved)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func finalizeContentNode() graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		s = s.Set(KeyFinal, s.GetString(KeyDraft))
		s = s.Set(KeyStatus, StatusCompleted)
		return s.AppendMessage("content pipeline complete"), nil
	}
}
