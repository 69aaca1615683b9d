package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Loader ingests a source file into a Document with a detected format.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

// FileLoader reads documents from the local filesystem, sniffing the format
// from magic bytes with the file extension as a tiebreaker.
type FileLoader struct {
	logger *slog.Logger
}

// NewFileLoader creates a filesystem loader.
func NewFileLoader(logger *slog.Logger) *FileLoader {
	return &FileLoader{logger: logger.With("system", "loader")}
}

// Load reads and classifies the file at path. PDF documents are additionally
// sliced into standalone per-page documents so splitters can respect exact
// page boundaries. Returns ErrUnsupportedFormat for unrecognized content and
// ErrLoad for filesystem or parse failures.
func (l *FileLoader) Load(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	format, err := detectFormat(path, content)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:      uuid.New(),
		Path:    path,
		Format:  format,
		Content: content,
	}

	if format == FormatPDF {
		pages, err := splitPDFPages(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
		doc.Pages = pages
	}

	l.logger.InfoContext(
		ctx, "document loaded",
		"document_id", doc.ID,
		"path", path,
		"format", format,
		"size", len(content),
		"pages", doc.PageCount(),
	)

	return doc, nil
}

func detectFormat(path string, content []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF")):
		return FormatPDF, nil
	case bytes.HasPrefix(content, []byte("\x89PNG")),
		bytes.HasPrefix(content, []byte("\xff\xd8\xff")):
		return FormatImage, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		return FormatText, nil
	case imageExtensions[ext]:
		return FormatImage, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}
