package extraction

import (
	"time"

	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// Merge combines per-document results in order. Patient fields come from the first
// document that has them. FAQs are derived over the merged dates.
func Merge(results []*models.ExtractionResult, now time.Time) *models.ExtractionResult {
	merged := &models.ExtractionResult{
		Documents:        []models.DocumentInfo{},
		Vaccines:         []models.Vaccine{},
		Surgeries:        []models.Surgery{},
		Medications:      []models.Medication{},
		Bloodwork:        []models.Bloodwork{},
		CategorizedDates: []models.CategorizedDate{},
		CreatedAt:        now,
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
		merged.Documents = append(merged.Documents, r.Documents...)
		mergePatient(&merged.Patient, r.Patient)
		merged.Vaccines = append(merged.Vaccines, r.Vaccines...)
		merged.Surgeries = append(merged.Surgeries, r.Surgeries...)
		merged.Medications = append(merged.Medications, r.Medications...)
		merged.Bloodwork = append(merged.Bloodwork, r.Bloodwork...)
		merged.CategorizedDates = append(merged.CategorizedDates, r.CategorizedDates...)
	}
	merged.ID = storage.CombinedID(ids)
	merged.FAQs = faq.Derive(merged.CategorizedDates)
	return merged
}

func mergePatient(dst *models.Patient, src models.Patient) {
	first := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	first(&dst.Name, src.Name)
	first(&dst.Species, src.Species)
	first(&dst.Breed, src.Breed)
	first(&dst.Sex, src.Sex)
	first(&dst.DateOfBirth, src.DateOfBirth)
	first(&dst.Microchip, src.Microchip)
}

// fillSources labels every item the model left without a source.
func fillSources(ext *models.RecordExtraction, label string) {
	eachSource(ext, func(s *string) {
		if *s == "" {
			*s = label
		}
	})
}

// relabel moves a cached single-document result onto the label of the current upload.
// Sources filled from the old label follow it and the FAQs are derived again.
// It reports whether anything changed.
func relabel(result *models.ExtractionResult, label string) bool {
	if len(result.Documents) != 1 || result.Documents[0].Label == label {
		return false
	}
	old := result.Documents[0].Label
	result.Documents[0].Label = label

	ext := models.RecordExtraction{
		Vaccines:         result.Vaccines,
		Surgeries:        result.Surgeries,
		Medications:      result.Medications,
		Bloodwork:        result.Bloodwork,
		CategorizedDates: result.CategorizedDates,
	}
	eachSource(&ext, func(s *string) {
		if *s == old {
			*s = label
		}
	})
	result.FAQs = faq.Derive(result.CategorizedDates)
	return true
}

func eachSource(ext *models.RecordExtraction, visit func(*string)) {
	for i := range ext.Vaccines {
		visit(&ext.Vaccines[i].Source)
	}
	for i := range ext.Surgeries {
		visit(&ext.Surgeries[i].Source)
	}
	for i := range ext.Medications {
		visit(&ext.Medications[i].Source)
	}
	for i := range ext.Bloodwork {
		visit(&ext.Bloodwork[i].Source)
	}
	for i := range ext.CategorizedDates {
		visit(&ext.CategorizedDates[i].Source)
	}
}
