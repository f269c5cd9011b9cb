package tools

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

type RecordListQuery struct{}

type RecordListItem struct {
	ExtractionID  string   `json:"extraction_id"`
	Labels        []string `json:"labels"`
	PatientName   string   `json:"patient_name,omitempty"`
	DocumentCount int      `json:"document_count"`
	DateCount     int      `json:"date_count"`
	CreatedAt     string   `json:"created_at"`
}

type RecordListResponse struct {
	Extractions []RecordListItem `json:"extractions"`
	Count       int              `json:"count"`
}

func RecordListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RecordListQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "record-list",
		Description: "List stored record extractions, newest first.",
		InputSchema: inputschema,
	}
}

func RecordListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RecordListQuery, svc *extraction.Service, log logger.Logger) (*mcp.CallToolResult, *RecordListResponse, error) {
	log.Info("record-list tool called")

	summaries, err := svc.List(ctx)
	if err != nil {
		log.Error("record-list tool failed: %v", err)
		return nil, nil, err
	}

	resp := &RecordListResponse{Extractions: make([]RecordListItem, 0, len(summaries)), Count: len(summaries)}
	for _, s := range summaries {
		resp.Extractions = append(resp.Extractions, RecordListItem{
			ExtractionID:  s.ID,
			Labels:        s.Labels,
			PatientName:   s.PatientName,
			DocumentCount: s.DocumentCount,
			DateCount:     s.DateCount,
			CreatedAt:     s.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, resp, nil
}
