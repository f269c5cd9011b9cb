package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/documents/documentstest"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) Run(ctx context.Context, req llm.Request) (*llm.Result, error) {
	c.calls++
	return &llm.Result{
		Model: "test:model",
		Extraction: models.RecordExtraction{
			Patient:   models.Patient{Name: "Mittens", Species: "cat"},
			Vaccines:  []models.Vaccine{{Name: "FVRCP", DateAdministered: "2023-08-09"}},
			Surgeries: []models.Surgery{{Procedure: "Spay", Date: "2019-04-01"}},
			CategorizedDates: []models.CategorizedDate{
				{Date: "2023-08-09", Category: models.CategoryVaccine, SpecificType: "FVRCP booster"},
				{Date: "2019-04-01", Category: models.CategorySurgery, SpecificType: "Ovariohysterectomy"},
			},
		},
	}, nil
}

func newService(ex extraction.Extractor) *extraction.Service {
	return extraction.NewService(storage.NewMemoryStore(), ex, extraction.Options{}, logger.NewNoOpLogger())
}

func TestToolDefinitions(t *testing.T) {
	for _, tool := range []struct {
		name string
		get  func() string
	}{
		{"record-extract", func() string { return RecordExtractTool().Name }},
		{"record-faqs", func() string { return RecordFAQsTool().Name }},
		{"record-list", func() string { return RecordListTool().Name }},
		{"record-sources", func() string { return RecordSourcesTool().Name }},
	} {
		if got := tool.get(); got != tool.name {
			t.Errorf("tool name = %q, want %q", got, tool.name)
		}
	}
	if RecordExtractTool().InputSchema == nil {
		t.Error("record-extract has no input schema")
	}
}

func TestRecordExtractToolHandler(t *testing.T) {
	ex := &countingExtractor{}
	svc := newService(ex)
	log := logger.NewNoOpLogger()
	query := RecordExtractQuery{RawData: documentstest.PDF("FVRCP booster 08/09/2023"), Label: "mittens.pdf"}

	_, resp, err := RecordExtractToolHandler(context.Background(), nil, query, svc, documents.ZoteroConfig{}, log)
	if err != nil {
		t.Fatalf("RecordExtractToolHandler failed: %v", err)
	}
	if !strings.HasPrefix(resp.ExtractionID, "rec_") {
		t.Errorf("unexpected id %q", resp.ExtractionID)
	}
	if resp.PatientName != "Mittens" || resp.VaccineCount != 1 || resp.SurgeryCount != 1 || resp.DateCount != 2 {
		t.Errorf("unexpected counts: %+v", resp)
	}
	if resp.Cached {
		t.Error("first extraction should not be cached")
	}
	if resp.FAQs.LastFVRCPVaccine.Date == nil || *resp.FAQs.LastFVRCPVaccine.Date != "2023-08-09" {
		t.Errorf("unexpected FVRCP answer: %+v", resp.FAQs.LastFVRCPVaccine)
	}
	if *resp.FAQs.SpayNeuter.Source != "mittens.pdf" {
		t.Errorf("expected source mittens.pdf, got %q", *resp.FAQs.SpayNeuter.Source)
	}
	want := []string{
		"vetrecord://" + resp.ExtractionID,
		"vetrecord://" + resp.ExtractionID + "/faqs",
		"vetrecord://" + resp.ExtractionID + "/patient",
		"vetrecord://" + resp.ExtractionID + "/vaccines",
		"vetrecord://" + resp.ExtractionID + "/surgeries",
		"vetrecord://" + resp.ExtractionID + "/timeline",
	}
	if strings.Join(resp.ResourcePaths, " ") != strings.Join(want, " ") {
		t.Errorf("resource paths = %v, want %v", resp.ResourcePaths, want)
	}

	_, again, err := RecordExtractToolHandler(context.Background(), nil, query, svc, documents.ZoteroConfig{}, log)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !again.Cached || ex.calls != 1 {
		t.Errorf("expected cached result without a second model call (calls=%d)", ex.calls)
	}
}

func TestRecordExtractToolHandler_NoSource(t *testing.T) {
	_, _, err := RecordExtractToolHandler(context.Background(), nil, RecordExtractQuery{}, newService(&countingExtractor{}), documents.ZoteroConfig{}, logger.NewNoOpLogger())
	if err == nil {
		t.Fatal("expected error without a source")
	}
}

func TestRecordFAQsToolHandler(t *testing.T) {
	svc := newService(&countingExtractor{})
	log := logger.NewNoOpLogger()

	_, extracted, err := RecordExtractToolHandler(context.Background(), nil, RecordExtractQuery{RawData: documentstest.PDF("Spay 2019")}, svc, documents.ZoteroConfig{}, log)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	_, resp, err := RecordFAQsToolHandler(context.Background(), nil, RecordFAQsQuery{ExtractionID: extracted.ExtractionID}, svc, log)
	if err != nil {
		t.Fatalf("RecordFAQsToolHandler failed: %v", err)
	}
	if resp.Answered != 3 {
		// FVRCP, spay/neuter and last surgery
		t.Errorf("expected 3 answered questions, got %d", resp.Answered)
	}
	if len(resp.Answers) != len(faq.Rules()) {
		t.Errorf("expected %d answers, got %d", len(faq.Rules()), len(resp.Answers))
	}

	_, resp, err = RecordFAQsToolHandler(context.Background(), nil, RecordFAQsQuery{CategorizedDates: []models.CategorizedDate{
		{Date: "2024-02-02", Category: models.CategoryBloodwork, SpecificType: "Total T4", Source: "lab.pdf"},
	}}, svc, log)
	if err != nil {
		t.Fatalf("RecordFAQsToolHandler failed: %v", err)
	}
	if resp.FAQs.LastThyroidTest.Date == nil || resp.FAQs.LastBloodwork.Date == nil {
		t.Errorf("expected thyroid and bloodwork answers, got %+v", resp.FAQs)
	}

	if _, _, err := RecordFAQsToolHandler(context.Background(), nil, RecordFAQsQuery{}, svc, log); err == nil {
		t.Error("expected error without input")
	}
	if _, _, err := RecordFAQsToolHandler(context.Background(), nil, RecordFAQsQuery{ExtractionID: "rec_missing"}, svc, log); err == nil {
		t.Error("expected error for unknown extraction")
	}
}

func TestRecordListToolHandler(t *testing.T) {
	svc := newService(&countingExtractor{})
	log := logger.NewNoOpLogger()

	_, resp, err := RecordListToolHandler(context.Background(), nil, RecordListQuery{}, svc, log)
	if err != nil {
		t.Fatalf("RecordListToolHandler failed: %v", err)
	}
	if resp.Count != 0 || resp.Extractions == nil {
		t.Errorf("expected empty non-nil list, got %+v", resp)
	}

	if _, _, err := RecordExtractToolHandler(context.Background(), nil, RecordExtractQuery{RawData: documentstest.PDF("visit")}, svc, documents.ZoteroConfig{}, log); err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	_, resp, err = RecordListToolHandler(context.Background(), nil, RecordListQuery{}, svc, log)
	if err != nil {
		t.Fatalf("RecordListToolHandler failed: %v", err)
	}
	if resp.Count != 1 || resp.Extractions[0].PatientName != "Mittens" || resp.Extractions[0].CreatedAt == "" {
		t.Errorf("unexpected list: %+v", resp)
	}
}

func TestRecordSourcesToolHandler_RequiresCredentials(t *testing.T) {
	_, _, err := RecordSourcesToolHandler(context.Background(), nil, RecordSourcesQuery{}, documents.ZoteroConfig{}, logger.NewNoOpLogger())
	if err == nil {
		t.Fatal("expected error without zotero credentials")
	}
}
