package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docenthq/docent/internal/intelligence"
	"github.com/docenthq/docent/pkg/graph"
)

// BuildDocumentGraph wires the document intelligence workflow:
// validate → extract → finalize, with failures routed to an error handler
// node that records the failure and terminates cleanly.
func BuildDocumentGraph(sys intelligence.System, logger *slog.Logger) (*graph.Graph, error) {
	g := graph.New("document-intelligence", logger)

	if err := g.AddNode("validate", validateNode()); err != nil {
		return nil, err
	}
	if err := g.AddNode("extract", extractNode(sys)); err != nil {
		return nil, err
	}
	if err := g.AddNode("finalize", finalizeDocumentNode()); err != nil {
		return nil, err
	}
	if err := g.AddNode("handle_error", errorNode(logger)); err != nil {
		return nil, err
	}

	if err := g.AddEdge("validate", "extract", nil); err != nil {
		return nil, err
	}
	if err := g.AddEdge("extract", "finalize", nil); err != nil {
		return nil, err
	}

	if err := g.SetEntryPoint("validate"); err != nil {
		return nil, err
	}
	if err := g.SetExitPoint("finalize"); err != nil {
		return nil, err
	}
	if err := g.SetErrorNode("handle_error"); err != nil {
		return nil, err
	}

	return g, nil
}

func validateNode() graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		path := s.GetString(KeyDocumentPath)
		if path == "" {
			return s, fmt.Errorf("no document path provided")
		}
		if _, err := os.Stat(path); err != nil {
			return s, fmt.Errorf("document not accessible: %w", err)
		}

		s = s.Set(KeyStatus, StatusValidated)
		return s.AppendMessage("document validated: " + path), nil
	}
}

func extractNode(sys intelligence.System) graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		path := s.GetString(KeyDocumentPath)

		result, err := sys.Process(ctx, path)
		if err != nil {
			return s, fmt.Errorf("process document: %w", err)
		}

		s = s.Set(KeyResult, result)
		s = s.Set(KeyDocumentType, result.DocumentType)
		return s.AppendMessage(fmt.Sprintf(
			"document classified as %s, %d fields extracted",
			result.DocumentType, len(result.Fields),
		)), nil
	}
}

func finalizeDocumentNode() graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		s = s.Set(KeyStatus, StatusCompleted)
		return s.AppendMessage("document processing complete"), nil
	}
}

func errorNode(logger *slog.Logger) graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		cause := s.GetString(graph.KeyNodeError)
		failed := s.GetString(graph.KeyFailedNode)

		logger.ErrorContext(ctx, "workflow node failed", "node", failed, "error", cause)

		s = s.Set(KeyStatus, StatusFailed)
		return s.AppendMessage(fmt.Sprintf("error in %s: %s", failed, cause)), nil
	}
}
