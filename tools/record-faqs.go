package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/models"
)

type RecordFAQsQuery struct {
	ExtractionID     string                   `json:"extraction_id,omitempty" jsonschema:"ID returned by record-extract"`
	CategorizedDates []models.CategorizedDate `json:"categorized_dates,omitempty" jsonschema:"dates to derive the panel from when no extraction_id is given"`
}

// FAQAnswer pairs a question with its answer, in panel order.
type FAQAnswer struct {
	Key      string  `json:"key"`
	Question string  `json:"question"`
	Date     *string `json:"date"`
	Source   *string `json:"source"`
}

type RecordFAQsResponse struct {
	FAQs     models.FAQs `json:"faqs"`
	Answers  []FAQAnswer `json:"answers"`
	Answered int         `json:"answered"`
}

func RecordFAQsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RecordFAQsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "record-faqs",
		Description: "Answer the veterinary FAQ panel (most recent date and source per question) for a stored extraction, or for a list of categorized dates. No model is called.",
		InputSchema: inputschema,
	}
}

func RecordFAQsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RecordFAQsQuery, svc *extraction.Service, log logger.Logger) (*mcp.CallToolResult, *RecordFAQsResponse, error) {
	log.Info("record-faqs tool called")

	var faqs models.FAQs
	switch {
	case query.ExtractionID != "":
		result, err := svc.Get(ctx, query.ExtractionID)
		if err != nil {
			log.Error("record-faqs tool failed: %v", err)
			return nil, nil, err
		}
		faqs = result.FAQs
	case query.CategorizedDates != nil:
		faqs = extraction.DeriveFAQs(query.CategorizedDates)
	default:
		return nil, nil, errors.New("extraction_id or categorized_dates is required")
	}

	resp := &RecordFAQsResponse{FAQs: faqs}
	for _, rule := range faq.Rules() {
		entry, _ := faq.Lookup(faqs, rule.Key)
		resp.Answers = append(resp.Answers, FAQAnswer{
			Key:      rule.Key,
			Question: rule.Question,
			Date:     entry.Date,
			Source:   entry.Source,
		})
		if entry.Date != nil {
			resp.Answered++
		}
	}
	return nil, resp, nil
}
