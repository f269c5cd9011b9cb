package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/documents/documentstest"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// fakeExtractor answers by document label.
type fakeExtractor struct {
	mu       sync.Mutex
	byLabel  map[string]models.RecordExtraction
	err      error
	requests []llm.Request
}

func (f *fakeExtractor) Run(ctx context.Context, req llm.Request) (*llm.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ext, ok := f.byLabel[req.Label]
	if !ok {
		return nil, fmt.Errorf("no canned answer for %s", req.Label)
	}
	return &llm.Result{Extraction: ext, Model: "fake:model"}, nil
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func pdfDoc(label, text string) models.DocumentData {
	return documents.NewDocument(documentstest.PDF(text), label)
}

func newTestService(t *testing.T, ex Extractor, opts Options) (*Service, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = 2
	}
	svc := NewService(store, ex, opts, logger.NewNoOpLogger())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func rexRecord() models.RecordExtraction {
	return models.RecordExtraction{
		Patient:  models.Patient{Name: "Rex", Species: "dog"},
		Vaccines: []models.Vaccine{{Name: "Rabies", DateAdministered: "2023-03-15"}},
		CategorizedDates: []models.CategorizedDate{
			{Date: "2023-03-15", Category: models.CategoryVaccine, SpecificType: "Rabies 3yr"},
			{Date: "2020-02-02", Category: models.CategorySurgery, SpecificType: "Neuter", Source: "clinic-a.pdf"},
		},
	}
}

func TestExtract_SingleDocument(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"rex.pdf": rexRecord()}}
	svc, store := newTestService(t, ex, Options{MaxTextChars: 5000})
	doc := pdfDoc("rex.pdf", "Rabies vaccine 03/15/2023")

	result, err := svc.Extract(context.Background(), []models.DocumentData{doc})
	require.NoError(t, err)

	docID := storage.DocumentID(documents.ContentHash(doc.Data))
	assert.Equal(t, docID, result.ID)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "rex.pdf", result.Documents[0].Label)
	assert.Equal(t, 1, result.Documents[0].Pages)
	assert.Equal(t, "fake:model", result.Documents[0].Model)
	assert.False(t, result.Documents[0].Cached)

	// empty sources are labelled, explicit ones are kept
	assert.Equal(t, "rex.pdf", result.CategorizedDates[0].Source)
	assert.Equal(t, "clinic-a.pdf", result.CategorizedDates[1].Source)
	assert.Equal(t, "rex.pdf", result.Vaccines[0].Source)

	require.NotNil(t, result.FAQs.LastRabiesVaccine.Date)
	assert.Equal(t, "2023-03-15", *result.FAQs.LastRabiesVaccine.Date)
	assert.Equal(t, "rex.pdf", *result.FAQs.LastRabiesVaccine.Source)
	assert.Equal(t, "2020-02-02", *result.FAQs.SpayNeuter.Date)

	require.Len(t, ex.requests, 1)
	req := ex.requests[0]
	assert.Equal(t, llm.InputText, req.InputMode)
	assert.Equal(t, llm.SchemaStrict, req.SchemaMode)
	assert.Contains(t, req.Text, "Rabies")

	stored, err := store.GetExtraction(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, result.FAQs, stored.FAQs)
}

func TestExtract_UsesCache(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"rex.pdf": rexRecord()}}
	svc, _ := newTestService(t, ex, Options{})
	doc := pdfDoc("rex.pdf", "Rabies vaccine")

	_, err := svc.Extract(context.Background(), []models.DocumentData{doc})
	require.NoError(t, err)
	again, err := svc.Extract(context.Background(), []models.DocumentData{doc})
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls())
	assert.True(t, again.Documents[0].Cached)
}

func TestExtract_CacheHitTakesNewLabel(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"a.pdf": rexRecord()}}
	svc, store := newTestService(t, ex, Options{})
	data := documentstest.PDF("Rabies vaccine 03/15/2023")

	first, err := svc.Extract(context.Background(), []models.DocumentData{documents.NewDocument(data, "a.pdf")})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", *first.FAQs.LastRabiesVaccine.Source)

	again, err := svc.Extract(context.Background(), []models.DocumentData{documents.NewDocument(data, "b.pdf")})
	require.NoError(t, err)
	assert.Equal(t, 1, ex.calls())
	assert.Equal(t, first.ID, again.ID)

	require.Len(t, again.Documents, 1)
	assert.Equal(t, "b.pdf", again.Documents[0].Label)
	assert.True(t, again.Documents[0].Cached)
	assert.Equal(t, "b.pdf", again.Vaccines[0].Source)
	assert.Equal(t, "b.pdf", again.CategorizedDates[0].Source)
	// a source the model named itself is not an upload label
	assert.Equal(t, "clinic-a.pdf", again.CategorizedDates[1].Source)
	require.NotNil(t, again.FAQs.LastRabiesVaccine.Source)
	assert.Equal(t, "b.pdf", *again.FAQs.LastRabiesVaccine.Source)

	stored, err := store.GetExtraction(context.Background(), again.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", stored.Documents[0].Label)
	assert.False(t, stored.Documents[0].Cached)
}

func TestExtract_MergesInUploadOrder(t *testing.T) {
	second := models.RecordExtraction{
		Patient: models.Patient{Name: "Rex", Breed: "Beagle"},
		CategorizedDates: []models.CategorizedDate{
			{Date: "2024-01-20", Category: models.CategoryVaccine, SpecificType: "Rabies 1yr"},
			{Date: "2024-01-20", Category: models.CategoryExam, SpecificType: "Annual wellness"},
		},
	}
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{
		"2023.pdf": rexRecord(),
		"2024.pdf": second,
	}}
	svc, store := newTestService(t, ex, Options{})
	docs := []models.DocumentData{pdfDoc("2023.pdf", "old clinic"), pdfDoc("2024.pdf", "new clinic")}

	result, err := svc.Extract(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023.pdf", "2024.pdf"}, result.Labels())
	id0 := storage.DocumentID(documents.ContentHash(docs[0].Data))
	id1 := storage.DocumentID(documents.ContentHash(docs[1].Data))
	assert.Equal(t, storage.CombinedID([]string{id0, id1}), result.ID)

	assert.Equal(t, models.Patient{Name: "Rex", Species: "dog", Breed: "Beagle"}, result.Patient)
	require.Len(t, result.CategorizedDates, 4)
	assert.Equal(t, "2023.pdf", result.CategorizedDates[0].Source)
	assert.Equal(t, "2024.pdf", result.CategorizedDates[2].Source)

	assert.Equal(t, "2024-01-20", *result.FAQs.LastRabiesVaccine.Date)
	assert.Equal(t, "2024.pdf", *result.FAQs.LastRabiesVaccine.Source)
	assert.Equal(t, "2024-01-20", *result.FAQs.LastWellnessExam.Date)

	list, err := store.ListExtractions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestExtract_InvalidInput(t *testing.T) {
	ex := &fakeExtractor{}
	svc, _ := newTestService(t, ex, Options{})

	_, err := svc.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = svc.Extract(context.Background(), []models.DocumentData{
		documents.NewDocument([]byte("just some text"), "notes.txt"),
	})
	assert.ErrorIs(t, err, documents.ErrNotPDF)
	assert.Contains(t, err.Error(), "notes.txt")

	_, err = svc.Extract(context.Background(), []models.DocumentData{pdfDoc("scan.pdf", "")})
	assert.ErrorIs(t, err, documents.ErrNoText)

	assert.Zero(t, ex.calls())
}

func TestExtract_FileModeSkipsText(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"scan.pdf": rexRecord()}}
	svc, _ := newTestService(t, ex, Options{InputMode: llm.InputFile, SchemaMode: llm.SchemaLenient})

	_, err := svc.Extract(context.Background(), []models.DocumentData{pdfDoc("scan.pdf", "")})
	require.NoError(t, err)
	require.Len(t, ex.requests, 1)
	assert.Empty(t, ex.requests[0].Text)
	assert.NotEmpty(t, ex.requests[0].PDF)
	assert.Equal(t, llm.SchemaLenient, ex.requests[0].SchemaMode)
}

func TestExtract_ModelFailure(t *testing.T) {
	ex := &fakeExtractor{err: fmt.Errorf("%w: every model timed out", llm.ErrAllModelsFailed)}
	svc, store := newTestService(t, ex, Options{})

	_, err := svc.Extract(context.Background(), []models.DocumentData{pdfDoc("rex.pdf", "Rabies")})
	assert.ErrorIs(t, err, llm.ErrAllModelsFailed)

	list, err := store.ListExtractions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTimeline(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"rex.pdf": rexRecord()}}
	svc, _ := newTestService(t, ex, Options{})
	result, err := svc.Extract(context.Background(), []models.DocumentData{pdfDoc("rex.pdf", "Rabies")})
	require.NoError(t, err)

	all, err := svc.Timeline(context.Background(), result.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2023-03-15", all[0].Date)

	surgeries, err := svc.Timeline(context.Background(), result.ID, models.CategorySurgery)
	require.NoError(t, err)
	require.Len(t, surgeries, 1)
	assert.Equal(t, "Neuter", surgeries[0].SpecificType)

	_, err = svc.Timeline(context.Background(), result.ID, "grooming")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.Timeline(context.Background(), "missing", "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTimeline_StableForEqualDates(t *testing.T) {
	dates := []models.CategorizedDate{
		{Date: "2022-01-01", Category: models.CategoryVaccine, SpecificType: "first"},
		{Date: "2023-01-01", Category: models.CategoryExam, SpecificType: "exam"},
		{Date: "2022-01-01", Category: models.CategoryVaccine, SpecificType: "second"},
	}
	got := Timeline(dates, "")
	assert.Equal(t, []string{"exam", "first", "second"},
		[]string{got[0].SpecificType, got[1].SpecificType, got[2].SpecificType})
	assert.Equal(t, "first", dates[0].SpecificType)
}

func TestGetListDelete(t *testing.T) {
	ex := &fakeExtractor{byLabel: map[string]models.RecordExtraction{"rex.pdf": rexRecord()}}
	svc, _ := newTestService(t, ex, Options{})
	ctx := context.Background()

	result, err := svc.Extract(ctx, []models.DocumentData{pdfDoc("rex.pdf", "Rabies")})
	require.NoError(t, err)

	got, err := svc.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Patient.Name)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, result.ID))
	_, err = svc.Get(ctx, result.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestDeriveFAQs(t *testing.T) {
	faqs := DeriveFAQs([]models.CategorizedDate{
		{Date: "2021-07-07", Category: models.CategoryDental, SpecificType: "Dental prophy", Source: "a.pdf"},
	})
	require.NotNil(t, faqs.LastDentalCleaning.Date)
	assert.Equal(t, "2021-07-07", *faqs.LastDentalCleaning.Date)
	assert.Nil(t, faqs.LastDentalExtraction.Date)
}
