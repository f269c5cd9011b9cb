// Package extraction runs uploaded records through the model chain and keeps the results.
package extraction

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/metrics"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

var (
	ErrNoDocuments     = errors.New("no documents provided")
	ErrInvalidCategory = errors.New("invalid category")
)

// Extractor is the model side of an extraction. *llm.Chain implements it.
type Extractor interface {
	Run(ctx context.Context, req llm.Request) (*llm.Result, error)
}

type Options struct {
	InputMode    llm.InputMode
	SchemaMode   llm.SchemaMode
	MaxTextChars int
	MaxWorkers   int
}

type Service struct {
	store     storage.Store
	extractor Extractor
	opts      Options
	log       logger.Logger
	now       func() time.Time
}

func NewService(store storage.Store, extractor Extractor, opts Options, log logger.Logger) *Service {
	if opts.InputMode == "" {
		opts.InputMode = llm.InputText
	}
	if opts.SchemaMode == "" {
		opts.SchemaMode = llm.SchemaStrict
	}
	return &Service{
		store:     store,
		extractor: extractor,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// prepared is a validated document ready for the model.
type prepared struct {
	doc  models.DocumentData
	info models.DocumentInfo
}

// Extract validates every document, extracts them in parallel and merges the results
// in input order. Per-document results are cached by content hash.
func (s *Service) Extract(ctx context.Context, docs []models.DocumentData) (*models.ExtractionResult, error) {
	result, err := s.extract(ctx, docs)
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrAllModelsFailed):
		status = "model_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	default:
		status = "invalid_input"
	}
	metrics.Extractions.WithLabelValues(status).Inc()
	return result, err
}

func (s *Service) extract(ctx context.Context, docs []models.DocumentData) (*models.ExtractionResult, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	items := make([]prepared, 0, len(docs))
	for _, doc := range docs {
		p, err := prepare(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Label, err)
		}
		items = append(items, p)
	}

	s.log.Info("Extracting %d documents", len(items))
	perDoc, err := llm.ParallelProcess(ctx, items, s.opts.MaxWorkers, s.log, s.extractOne)
	if err != nil {
		return nil, err
	}

	if len(perDoc) == 1 {
		return perDoc[0], nil
	}

	merged := Merge(perDoc, s.now())
	if err := s.store.SaveExtraction(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to save extraction: %w", err)
	}
	s.log.Info("Merged %d documents into %s with %d categorized dates", len(perDoc), merged.ID, len(merged.CategorizedDates))
	return merged, nil
}

func prepare(doc models.DocumentData) (prepared, error) {
	if doc.Type == "" {
		doc.Type = documents.DetectDocumentType(doc.Data)
	}
	if len(doc.Data) == 0 {
		return prepared{}, documents.ErrEmptyDocument
	}
	if doc.Type != "pdf" {
		return prepared{}, documents.ErrNotPDF
	}
	pdf, err := documents.Inspect(doc.Data)
	if err != nil {
		return prepared{}, err
	}
	sha := documents.ContentHash(doc.Data)
	return prepared{
		doc: doc,
		info: models.DocumentInfo{
			DocumentID: storage.DocumentID(sha),
			Label:      doc.Label,
			SHA256:     sha,
			Pages:      pdf.Pages,
			Bytes:      pdf.Bytes,
		},
	}, nil
}

func (s *Service) extractOne(ctx context.Context, _ int, p prepared) (*models.ExtractionResult, error) {
	log := s.log.With("document_id", p.info.DocumentID, "label", p.info.Label)

	cached, err := s.store.GetExtraction(ctx, p.info.DocumentID)
	switch {
	case err == nil:
		log.Info("Using cached extraction")
		metrics.DocumentsProcessed.WithLabelValues("true").Inc()
		if relabel(cached, p.info.Label) {
			if err := s.store.SaveExtraction(ctx, cached); err != nil {
				log.Warn("Failed to save relabelled extraction: %v", err)
			}
		}
		for i := range cached.Documents {
			cached.Documents[i].Cached = true
		}
		return cached, nil
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn("Cache lookup failed: %v", err)
	}
	metrics.DocumentsProcessed.WithLabelValues("false").Inc()

	req := llm.Request{
		Label:      p.info.Label,
		PDF:        p.doc.Data,
		Pages:      p.info.Pages,
		InputMode:  s.opts.InputMode,
		SchemaMode: s.opts.SchemaMode,
	}
	if req.InputMode == llm.InputText {
		text, err := documents.ExtractText(p.doc.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.info.Label, err)
		}
		req.Text = text.Truncate(s.opts.MaxTextChars)
		log.Debug("Extracted %d characters of text from %d pages", len(req.Text), text.PageCount)
	}

	res, err := s.extractor.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.info.Label, err)
	}

	ext := res.Extraction
	fillSources(&ext, p.info.Label)

	info := p.info
	info.Model = res.Model
	result := &models.ExtractionResult{
		ID:               info.DocumentID,
		Documents:        []models.DocumentInfo{info},
		Patient:          ext.Patient,
		Vaccines:         ext.Vaccines,
		Surgeries:        ext.Surgeries,
		Medications:      ext.Medications,
		Bloodwork:        ext.Bloodwork,
		CategorizedDates: ext.CategorizedDates,
		FAQs:             faq.Derive(ext.CategorizedDates),
		CreatedAt:        s.now(),
	}
	if err := s.store.SaveExtraction(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save extraction: %w", err)
	}
	log.Info("Extracted with %s", res.Model)
	return result, nil
}

// Get returns a stored extraction.
func (s *Service) Get(ctx context.Context, id string) (*models.ExtractionResult, error) {
	return s.store.GetExtraction(ctx, id)
}

// List returns summaries of stored extractions, newest first.
func (s *Service) List(ctx context.Context) ([]models.ExtractionSummary, error) {
	return s.store.ListExtractions(ctx)
}

// Delete removes a stored extraction.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteExtraction(ctx, id)
}

// Timeline returns the categorized dates of an extraction newest first,
// optionally limited to one category.
func (s *Service) Timeline(ctx context.Context, id string, category models.Category) ([]models.CategorizedDate, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if ts, ok := s.store.(storage.TimelineStore); ok {
		return ts.Timeline(ctx, id, category)
	}
	result, err := s.store.GetExtraction(ctx, id)
	if err != nil {
		return nil, err
	}
	return Timeline(result.CategorizedDates, category), nil
}

// Timeline filters dates by category and sorts them newest first. Equal dates keep
// their original order.
func Timeline(dates []models.CategorizedDate, category models.Category) []models.CategorizedDate {
	out := make([]models.CategorizedDate, 0, len(dates))
	for _, d := range dates {
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b models.CategorizedDate) int {
		return cmp.Compare(b.Date, a.Date)
	})
	return out
}

// DeriveFAQs answers the FAQ panel for an arbitrary list of dates.
func DeriveFAQs(dates []models.CategorizedDate) models.FAQs {
	return faq.Derive(dates)
}
