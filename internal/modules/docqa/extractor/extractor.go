package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

const (
	SourcePDFText = "pdf_text"
	SourceOCR     = "ocr"
)

// Result holds one entry per page; Pages[0] is page 1.
type Result struct {
	Pages      []string
	Source     string
	EmptyPages int
}

type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// OCR recognizes page text for PDFs without a text layer.
type OCR interface {
	OCRPages(ctx context.Context, data []byte) ([]string, error)
}

type PDFExtractor struct {
	log *logger.Logger
	ocr OCR
}

// New returns a text-layer extractor. ocr may be nil.
func New(log *logger.Logger, ocr OCR) *PDFExtractor {
	return &PDFExtractor{log: log.With("service", "PDFExtractor"), ocr: ocr}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	if !isPDF(data) {
		return Result{}, documents.ExtractionError("extract", "not_pdf", errors.New("input does not start with a %PDF- header"))
	}
	pages, err := readPages(data)
	if err != nil {
		return Result{}, err
	}
	res := Result{Pages: pages, Source: SourcePDFText, EmptyPages: countEmpty(pages)}

	if e.ocr != nil && len(pages) > 0 && res.EmptyPages == len(pages) {
		e.log.Info("PDF has no text layer; running OCR", "pages", len(pages))
		ocrPages, err := e.ocr.OCRPages(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, documents.ExtractionError("ocr", "canceled", ctx.Err())
			}
			e.log.Warn("OCR fallback failed; keeping empty text layer", "error", err)
			return res, nil
		}
		return Result{Pages: ocrPages, Source: SourceOCR, EmptyPages: countEmpty(ocrPages)}, nil
	}
	return res, nil
}

// readPages never lets a parser panic escape; malformed documents become extraction errors.
func readPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = documents.ExtractionError("extract", "parser_panic", fmt.Errorf("pdf parser: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, documents.ExtractionError("extract", "malformed", fmt.Errorf("pdf reader: %w", err))
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, documents.ExtractionError("extract", "no_pages", errors.New("pdf has no pages"))
	}
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, documents.ExtractionError("extract", "page_text", fmt.Errorf("pdf page %d: %w", i, err))
		}
		pages = append(pages, collapseWhitespace(text))
	}
	return pages, nil
}

func isPDF(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(b, "\x00\t\r\n "), []byte("%PDF-"))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

func countEmpty(pages []string) int {
	n := 0
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			n++
		}
	}
	return n
}
