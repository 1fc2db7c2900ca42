// Package pdfdoc provides page-aware PDF handling for the pipeline: page
// counting to decide whether a document is chunked, and page-range splitting
// into independently extractable chunk documents.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Chunk is one independently extractable page group. Index is 0-based and
// defines deterministic merge order; pages are 1-based.
type Chunk struct {
	Index     int
	FirstPage int
	LastPage  int
	Pages     string // pdfcpu page selection, e.g. "3-4"
	Data      []byte
}

// Splitter is the document-splitting capability the orchestrator depends on;
// tests substitute a fake to avoid real PDF fixtures.
type Splitter interface {
	PageCount(doc []byte) (int, error)
	Split(doc []byte, pagesPerChunk int) ([]Chunk, error)
}

// PDFSplitter implements Splitter with pdfcpu.
type PDFSplitter struct{}

// PageCount parses and validates the document and returns its page count.
func (PDFSplitter) PageCount(doc []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

// Split cuts the document into page-range chunks of at most pagesPerChunk
// pages, each a standalone PDF.
func (PDFSplitter) Split(doc []byte, pagesPerChunk int) ([]Chunk, error) {
	s := PDFSplitter{}
	total, err := s.PageCount(doc)
	if err != nil {
		return nil, err
	}
	chunks := PageRanges(total, pagesPerChunk)
	conf := model.NewDefaultConfiguration()
	for i := range chunks {
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(doc), &buf, []string{chunks[i].Pages}, conf); err != nil {
			return nil, fmt.Errorf("split pages %s: %w", chunks[i].Pages, err)
		}
		chunks[i].Data = buf.Bytes()
	}
	return chunks, nil
}

// PageRanges computes the chunk boundaries for a document of totalPages.
// Pure so the chunk plan is testable without a PDF.
func PageRanges(totalPages, pagesPerChunk int) []Chunk {
	if totalPages <= 0 {
		return nil
	}
	if pagesPerChunk <= 0 {
		pagesPerChunk = 1
	}
	var out []Chunk
	for first := 1; first <= totalPages; first += pagesPerChunk {
		last := first + pagesPerChunk - 1
		if last > totalPages {
			last = totalPages
		}
		pages := fmt.Sprintf("%d-%d", first, last)
		if first == last {
			pages = fmt.Sprintf("%d", first)
		}
		out = append(out, Chunk{
			Index:     len(out),
			FirstPage: first,
			LastPage:  last,
			Pages:     pages,
		})
	}
	return out
}
