package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/operations"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

type RecordExtractQuery struct {
	ZoteroID string `json:"zotero_id,omitempty" jsonschema:"Zotero attachment key of a PDF record"`
	URL      string `json:"url,omitempty" jsonschema:"URL of a PDF record"`
	RawData  []byte `json:"raw_data,omitempty" jsonschema:"PDF bytes, base64 encoded"`
	Label    string `json:"label,omitempty" jsonschema:"display label used as the source of every extracted date"`
}

type RecordExtractResponse struct {
	ExtractionID    string      `json:"extraction_id"`
	Labels          []string    `json:"labels"`
	PatientName     string      `json:"patient_name,omitempty"`
	Cached          bool        `json:"cached"`
	VaccineCount    int         `json:"vaccine_count"`
	SurgeryCount    int         `json:"surgery_count"`
	MedicationCount int         `json:"medication_count"`
	BloodworkCount  int         `json:"bloodwork_count"`
	DateCount       int         `json:"date_count"`
	FAQs            models.FAQs `json:"faqs"`
	ResourcePaths   []string    `json:"resource_paths"`
}

func RecordExtractTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RecordExtractQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "record-extract",
		Description: "Extract vaccines, surgeries, medications, bloodwork and dated clinical events from a veterinary PDF record, and answer the fixed FAQ panel (last rabies vaccine, spay/neuter, last dental cleaning, ...). Provide exactly one of zotero_id, url or raw_data. Results are cached by file content.",
		InputSchema: inputschema,
	}
}

func RecordExtractToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RecordExtractQuery, svc *extraction.Service, zcfg documents.ZoteroConfig, log logger.Logger) (*mcp.CallToolResult, *RecordExtractResponse, error) {
	log.Info("record-extract tool called")

	result, err := operations.ExtractSources(ctx, svc, zcfg, []operations.Source{{
		ZoteroID: query.ZoteroID,
		URL:      query.URL,
		RawData:  query.RawData,
		Label:    query.Label,
	}}, log)
	if err != nil {
		log.Error("record-extract tool failed: %v", err)
		return nil, nil, err
	}

	cached := len(result.Documents) > 0
	for _, d := range result.Documents {
		cached = cached && d.Cached
	}

	return nil, &RecordExtractResponse{
		ExtractionID:    result.ID,
		Labels:          result.Labels(),
		PatientName:     result.Patient.Name,
		Cached:          cached,
		VaccineCount:    len(result.Vaccines),
		SurgeryCount:    len(result.Surgeries),
		MedicationCount: len(result.Medications),
		BloodworkCount:  len(result.Bloodwork),
		DateCount:       len(result.CategorizedDates),
		FAQs:            result.FAQs,
		ResourcePaths:   storage.CalculateResourcePaths(result.ID, result),
	}, nil
}
