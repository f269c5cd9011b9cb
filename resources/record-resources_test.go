package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/documents/documentstest"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

type fixedExtractor struct{}

func (fixedExtractor) Run(ctx context.Context, req llm.Request) (*llm.Result, error) {
	return &llm.Result{
		Model: "fixed:model",
		Extraction: models.RecordExtraction{
			Patient:   models.Patient{Name: "Rex", Breed: "Beagle"},
			Vaccines:  []models.Vaccine{{Name: "Rabies", DateAdministered: "2022-01-10"}},
			Bloodwork: []models.Bloodwork{{Panel: "Chem 10", Date: "2023-05-05"}},
			CategorizedDates: []models.CategorizedDate{
				{Date: "2022-01-10", Category: models.CategoryVaccine, SpecificType: "Rabies"},
				{Date: "2023-05-05", Category: models.CategoryBloodwork, SpecificType: "Chem 10"},
			},
		},
	}, nil
}

func setup(t *testing.T) (*RecordResourceHandler, string) {
	t.Helper()
	svc := extraction.NewService(storage.NewMemoryStore(), fixedExtractor{}, extraction.Options{}, logger.NewNoOpLogger())
	result, err := svc.Extract(context.Background(), []models.DocumentData{
		documents.NewDocument(documentstest.PDF("Rabies 2022"), "rex.pdf"),
	})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	return NewRecordResourceHandler(svc), result.ID
}

func readJSON(t *testing.T, h *RecordResourceHandler, uri string) map[string]any {
	t.Helper()
	res, err := h.ReadResource(context.Background(), uri)
	if err != nil {
		t.Fatalf("ReadResource(%s) failed: %v", uri, err)
	}
	if len(res.Contents) != 1 || res.Contents[0].URI != uri || res.Contents[0].MIMEType != "application/json" {
		t.Fatalf("unexpected contents: %+v", res.Contents)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return out
}

func TestReadResource_Summary(t *testing.T) {
	h, id := setup(t)
	out := readJSON(t, h, "vetrecord://"+id)
	paths, ok := out["available_resources"].([]any)
	if !ok || len(paths) != 6 {
		t.Errorf("expected 6 resource paths, got %v", out["available_resources"])
	}
	summary := out["summary"].(map[string]any)
	if summary["patient_name"] != "Rex" {
		t.Errorf("unexpected summary %v", summary)
	}
}

func TestReadResource_Sections(t *testing.T) {
	h, id := setup(t)

	faqs := readJSON(t, h, "vetrecord://"+id+"/faqs")
	rabies := faqs["last_rabies_vaccine"].(map[string]any)
	if rabies["date"] != "2022-01-10" || rabies["source"] != "rex.pdf" {
		t.Errorf("unexpected rabies answer %v", rabies)
	}

	patient := readJSON(t, h, "vetrecord://"+id+"/patient")
	if patient["breed"] != "Beagle" {
		t.Errorf("unexpected patient %v", patient)
	}

	vaccines := readJSON(t, h, "vetrecord://"+id+"/vaccines")
	if vaccines["vaccine_count"] != float64(1) {
		t.Errorf("unexpected vaccines %v", vaccines)
	}

	timeline := readJSON(t, h, "vetrecord://"+id+"/timeline")
	dates := timeline["dates"].([]any)
	if len(dates) != 2 || dates[0].(map[string]any)["date"] != "2023-05-05" {
		t.Errorf("expected newest first, got %v", dates)
	}
}

func TestReadResource_Errors(t *testing.T) {
	h, id := setup(t)
	for _, uri := range []string{
		"pdf://" + id,
		"vetrecord://",
		"vetrecord://" + id + "/unknown",
		"vetrecord://" + id + "/faqs/extra",
		"vetrecord://rec_missing",
	} {
		if _, err := h.ReadResource(context.Background(), uri); err == nil {
			t.Errorf("expected error for %s", uri)
		}
	}
	_, err := h.ReadResource(context.Background(), "vetrecord://rec_missing/faqs")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}
