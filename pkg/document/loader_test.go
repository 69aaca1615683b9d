package document_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/docenthq/docent/pkg/document"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	loader := document.NewFileLoader(discard())
	ctx := context.Background()

	t.Run("text file by extension", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "notes.md", []byte("# heading\n\nbody text"))

		doc, err := loader.Load(ctx, path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if doc.Format != document.FormatText {
			t.Errorf("format = %q, want text", doc.Format)
		}
		if doc.Text() != "# heading\n\nbody text" {
			t.Errorf("content = %q", doc.Text())
		}
		if doc.PageCount() != 0 {
			t.Errorf("pages = %d, want 0 for text", doc.PageCount())
		}
		if doc.ID == uuid.Nil {
			t.Error("document not assigned an ID")
		}
	})

	t.Run("image by magic bytes overrides extension", func(t *testing.T) {
		// PNG header on a .txt path: content sniffing wins.
		png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("fakepixels")...)
		path := writeFile(t, t.TempDir(), "scan.txt", png)

		doc, err := loader.Load(ctx, path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if doc.Format != document.FormatImage {
			t.Errorf("format = %q, want image", doc.Format)
		}
	})

	t.Run("jpeg by magic bytes", func(t *testing.T) {
		jpg := append([]byte("\xff\xd8\xff\xe0"), []byte("fake")...)
		path := writeFile(t, t.TempDir(), "photo.bin", jpg)

		doc, err := loader.Load(ctx, path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if doc.Format != document.FormatImage {
			t.Errorf("format = %q, want image", doc.Format)
		}
	})

	t.Run("image by extension", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "diagram.bmp", []byte("BMdata"))

		doc, err := loader.Load(ctx, path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if doc.Format != document.FormatImage {
			t.Errorf("format = %q, want image", doc.Format)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "data.xlsx", []byte("PK\x03\x04"))

		_, err := loader.Load(ctx, path)
		if !errors.Is(err, document.ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "absent.txt"))
		if !errors.Is(err, document.ErrLoad) {
			t.Errorf("error = %v, want ErrLoad", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		path := writeFile(t, t.TempDir(), "doc.txt", []byte("content"))
		_, err := loader.Load(cancelled, path)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("malformed PDF reports load failure", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "broken.pdf", []byte("%PDF-1.7 truncated garbage"))

		_, err := loader.Load(ctx, path)
		if !errors.Is(err, document.ErrLoad) {
			t.Errorf("error = %v, want ErrLoad", err)
		}
	})
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
	}

	for _, tt := range tests {
		if got := document.EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
