package document

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// splitPDFPages slices a PDF into standalone single-page PDFs, preserving
// source page order.
func splitPDFPages(content []byte) ([][]byte, error) {
	conf := model.NewDefaultConfiguration()

	count, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	pages := make([][]byte, 0, count)
	for n := 1; n <= count; n++ {
		var buf bytes.Buffer
		selected := []string{strconv.Itoa(n)}

		if err := api.Trim(bytes.NewReader(content), &buf, selected, conf); err != nil {
			return nil, fmt.Errorf("extract page %d: %w", n, err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
