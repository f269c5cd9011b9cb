package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
)

// Sections are the sub-resources of an extraction, vetrecord://{id}/{section}.
var Sections = []struct {
	Name        string
	Description string
}{
	{"faqs", "FAQ panel answers with date and source"},
	{"patient", "Patient details"},
	{"vaccines", "Vaccines administered"},
	{"surgeries", "Surgical procedures"},
	{"medications", "Medications prescribed"},
	{"bloodwork", "Bloodwork panels and findings"},
	{"timeline", "Every categorized date, newest first"},
}

// RecordResourceHandler serves stored extractions as MCP resources.
type RecordResourceHandler struct {
	svc *extraction.Service
}

func NewRecordResourceHandler(svc *extraction.Service) *RecordResourceHandler {
	return &RecordResourceHandler{svc: svc}
}

// ReadResource reads vetrecord://{id} or vetrecord://{id}/{section}.
func (h *RecordResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	path, ok := strings.CutPrefix(uri, storage.ResourceScheme+"://")
	if !ok {
		return nil, fmt.Errorf("invalid URI scheme, expected %s://", storage.ResourceScheme)
	}
	id, section, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(section, "/") {
		return nil, fmt.Errorf("invalid URI %q", uri)
	}

	result, err := h.svc.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	var content any
	switch section {
	case "":
		content = map[string]any{
			"summary":             result.Summarize(),
			"documents":           result.Documents,
			"patient":             result.Patient,
			"available_resources": storage.CalculateResourcePaths(id, result),
		}
	case "faqs":
		content = result.FAQs
	case "patient":
		content = result.Patient
	case "vaccines":
		content = map[string]any{"vaccine_count": len(result.Vaccines), "vaccines": result.Vaccines}
	case "surgeries":
		content = map[string]any{"surgery_count": len(result.Surgeries), "surgeries": result.Surgeries}
	case "medications":
		content = map[string]any{"medication_count": len(result.Medications), "medications": result.Medications}
	case "bloodwork":
		content = map[string]any{"bloodwork_count": len(result.Bloodwork), "bloodwork": result.Bloodwork}
	case "timeline":
		dates, err := h.svc.Timeline(ctx, id, "")
		if err != nil {
			return nil, err
		}
		content = map[string]any{"date_count": len(dates), "dates": dates}
	default:
		return nil, fmt.Errorf("unknown resource type: %s", section)
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
