package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/docqa-backend/internal/platform/ctxutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type OCRConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// DocumentOCR runs a Document AI OCR processor over raw PDF bytes.
type DocumentOCR struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
	timeout   time.Duration
}

func NewDocumentOCR(ctx context.Context, log *logger.Logger, cfg OCRConfig) (*DocumentOCR, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "us"
	}
	name := processorName(cfg.ProjectID, location, cfg.ProcessorID)
	if name == "" {
		return nil, fmt.Errorf("documentai: project and processor id are required")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctxutil.Default(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	slog := log.With("service", "gcp.DocumentOCR")
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", name)
	return &DocumentOCR{log: slog, client: c, processor: name, timeout: timeout}, nil
}

func (d *DocumentOCR) OCRPages(ctx context.Context, data []byte) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), d.timeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: data, MimeType: "application/pdf"},
		},
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
			return nil, fmt.Errorf("documentai rejected document: %s", st.Message())
		}
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, nil
	}
	return pagesFromDocument(resp.Document), nil
}

func (d *DocumentOCR) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// pagesFromDocument joins paragraph text per page, ordered by page number.
func pagesFromDocument(doc *documentaipb.Document) []string {
	if doc == nil {
		return nil
	}
	type page struct {
		num  int
		text string
	}
	pages := make([]page, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		if p == nil {
			continue
		}
		num := int(p.PageNumber)
		if num <= 0 {
			num = i + 1
		}
		parts := make([]string, 0, len(p.Paragraphs))
		for _, para := range p.Paragraphs {
			if para == nil || para.Layout == nil {
				continue
			}
			if t := strings.TrimSpace(textFromAnchor(doc.Text, para.Layout.TextAnchor)); t != "" {
				parts = append(parts, t)
			}
		}
		pages = append(pages, page{num: num, text: strings.Join(strings.Fields(strings.Join(parts, " ")), " ")})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.text)
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID string) string {
	project = strings.TrimSpace(project)
	processorID = strings.TrimSpace(processorID)
	if project == "" || location == "" || processorID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
}
