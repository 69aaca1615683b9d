package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/docenthq/docent/internal/intelligence"
	"github.com/docenthq/docent/internal/workflow"
	"github.com/docenthq/docent/pkg/extraction"
	"github.com/docenthq/docent/pkg/fallback"
	"github.com/docenthq/docent/pkg/graph"
	"github.com/docenthq/docent/pkg/provider"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSystem scripts Process outcomes for the document workflow.
type fakeSystem struct {
	result *extraction.Result
	err    error
	calls  int
}

func (f *fakeSystem) Process(ctx context.Context, path string) (*extraction.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeSystem) ProcessMany(ctx context.Context, paths []string) map[string]intelligence.Outcome {
	outcomes := make(map[string]intelligence.Outcome, len(paths))
	for _, p := range paths {
		r, err := f.Process(ctx, p)
		outcomes[p] = intelligence.Outcome{Result: r, Err: err}
	}
	return outcomes
}

func (f *fakeSystem) Benchmark(ctx context.Context, prompt string) []fallback.BenchmarkResult {
	return nil
}

func (f *fakeSystem) Providers() []provider.Descriptor { return nil }

func tempDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.txt")
	if err := os.WriteFile(path, []byte("invoice body"), 0644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestDocumentGraph(t *testing.T) {
	t.Run("happy path completes with result", func(t *testing.T) {
		sys := &fakeSystem{result: &extraction.Result{
			DocumentID:   uuid.New(),
			DocumentType: "invoice",
			Confidence:   0.9,
			Fields: map[string]extraction.FieldValue{
				"total": {Value: 42.0, UnitIndex: 0},
			},
		}}

		g, err := workflow.BuildDocumentGraph(sys, discard())
		if err != nil {
			t.Fatalf("BuildDocumentGraph: %v", err)
		}

		initial := graph.NewState(map[string]any{
			workflow.KeyDocumentPath: tempDocument(t),
		})
		final, err := g.Execute(context.Background(), initial)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if got := final.GetString(workflow.KeyStatus); got != workflow.StatusCompleted {
			t.Errorf("status = %q, want completed", got)
		}
		if got := final.GetString(workflow.KeyDocumentType); got != "invoice" {
			t.Errorf("document type = %q, want invoice", got)
		}
		if _, ok := final.Get(workflow.KeyResult); !ok {
			t.Error("result missing from final state")
		}
		if sys.calls != 1 {
			t.Errorf("Process called %d times, want 1", sys.calls)
		}
	})

	t.Run("missing path routes to error handler", func(t *testing.T) {
		sys := &fakeSystem{}
		g, err := workflow.BuildDocumentGraph(sys, discard())
		if err != nil {
			t.Fatalf("BuildDocumentGraph: %v", err)
		}

		final, err := g.Execute(context.Background(), graph.NewState(nil))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if got := final.GetString(workflow.KeyStatus); got != workflow.StatusFailed {
			t.Errorf("status = %q, want failed", got)
		}
		if got := final.GetString(graph.KeyFailedNode); got != "validate" {
			t.Errorf("failed node = %q, want validate", got)
		}
		if sys.calls != 0 {
			t.Error("extraction ran for an invalid document")
		}
	})

	t.Run("processing failure recorded, run terminates cleanly", func(t *testing.T) {
		sys := &fakeSystem{err: errors.New("all providers exhausted")}
		g, err := workflow.BuildDocumentGraph(sys, discard())
		if err != nil {
			t.Fatalf("BuildDocumentGraph: %v", err)
		}

		initial := graph.NewState(map[string]any{
			workflow.KeyDocumentPath: tempDocument(t),
		})
		final, err := g.Execute(context.Background(), initial)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if got := final.GetString(workflow.KeyStatus); got != workflow.StatusFailed {
			t.Errorf("status = %q, want failed", got)
		}
		if got := final.GetString(graph.KeyFailedNode); got != "extract" {
			t.Errorf("failed node = %q, want extract", got)
		}
	})
}

// scriptedWriter produces a draft; the review verdict comes from approveAt.
func scriptedWriter() graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		drafts := s.GetInt("drafts") + 1
		s = s.Set("drafts", drafts)
		return s.Set(workflow.KeyDraft, "draft content"), nil
	}
}

// scriptedReviewer approves once the revision counter reaches approveAt;
// approveAt < 0 never approves.
func scriptedReviewer(approveAt int) graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		approved := approveAt >= 0 && s.GetInt(workflow.KeyRevisions) >= approveAt
		return s.Set(workflow.KeyApproved, approved), nil
	}
}

func researcher() graph.Node {
	return func(ctx context.Context, s graph.State) (graph.State, error) {
		return s.Set(workflow.KeyResearch, "findings"), nil
	}
}

func TestContentPipeline(t *testing.T) {
	t.Run("approved draft finalizes", func(t *testing.T) {
		g, err := workflow.BuildContentPipeline(researcher(), scriptedWriter(), scriptedReviewer(0), discard())
		if err != nil {
			t.Fatalf("BuildContentPipeline: %v", err)
		}

		final, err := g.Execute(context.Background(), graph.NewState(map[string]any{
			workflow.KeyTask: "write about provider failover",
		}))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		if got := final.GetString(workflow.KeyStatus); got != workflow.StatusCompleted {
			t.Errorf("status = %q, want completed", got)
		}
		if got := final.GetString(workflow.KeyFinal); got != "draft content" {
			t.Errorf("final content = %q", got)
		}
		if got := final.GetInt("drafts"); got != 1 {
			t.Errorf("drafts = %d, want 1", got)
		}
	})

	t.Run("rejection loops back to write, bounded", func(t *testing.T) {
		g, err := workflow.BuildContentPipeline(researcher(), scriptedWriter(), scriptedReviewer(-1), discard())
		if err != nil {
			t.Fatalf("BuildContentPipeline: %v", err)
		}

		final, err := g.Execute(context.Background(), graph.NewState(nil))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}

		// Initial draft plus the bounded revisions, then finalize with the
		// standing draft despite rejection.
		if got := final.GetInt("drafts"); got != 3 {
			t.Errorf("drafts = %d, want 3", got)
		}
		if got := final.GetInt(workflow.KeyRevisions); got != 2 {
			t.Errorf("revisions = %d, want 2", got)
		}
		if got := final.GetString(workflow.KeyStatus); got != workflow.StatusCompleted {
			t.Errorf("status = %q, want completed", got)
		}
	})

	t.Run("single revision satisfies reviewer", func(t *testing.T) {
		g, err := workflow.BuildContentPipeline(researcher(), scriptedWriter(), scriptedReviewer(1), discard())
		if err != nil {
			t.Fatalf("BuildContentPipeline: %v", err)
		}

		final, err := g.Execute(context.Background(), graph.NewState(nil))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got := final.GetInt("drafts"); got != 2 {
			t.Errorf("drafts = %d, want 2", got)
		}
		v, _ := final.Get(workflow.KeyApproved)
		if approved, _ := v.(bool); !approved {
			t.Error("expected approval after one revision")
		}
	})

	t.Run("writer without draft skips review", func(t *testing.T) {
		silentWriter := func(ctx context.Context, s graph.State) (graph.State, error) {
			return s, nil // no draft produced
		}
		reviewed := false
		spyReviewer := func(ctx context.Context, s graph.State) (graph.State, error) {
			reviewed = true
			return s, nil
		}

		g, err := workflow.BuildContentPipeline(researcher(), silentWriter, spyReviewer, discard())
		if err != nil {
			t.Fatalf("BuildContentPipeline: %v", err)
		}

		final, err := g.Execute(context.Background(), graph.NewState(nil))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if reviewed {
			t.Error("review ran without a draft")
		}
		if got := final.GetString(workflow.KeyFinal); got != "" {
			t.Errorf("final content = %q, want empty", got)
		}
	})
}
