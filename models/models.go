package models

import "time"

// Category is one of the fixed tags the model assigns to a dated clinical event.
type Category string

const (
	CategoryVaccine            Category = "vaccine"
	CategorySurgery            Category = "surgery"
	CategoryDental             Category = "dental"
	CategoryMedication         Category = "medication"
	CategoryBloodwork          Category = "bloodwork"
	CategoryDiagnostic         Category = "diagnostic"
	CategoryExam               Category = "exam"
	CategoryParasitePrevention Category = "parasite_prevention"
	CategoryOther              Category = "other"
)

// Categories lists every valid Category in display order.
var Categories = []Category{
	CategoryVaccine,
	CategorySurgery,
	CategoryDental,
	CategoryMedication,
	CategoryBloodwork,
	CategoryDiagnostic,
	CategoryExam,
	CategoryParasitePrevention,
	CategoryOther,
}

// Valid reports whether c is one of the fixed tags.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CategorizedDate is a single dated event pulled out of a record.
type CategorizedDate struct {
	Date         string   `json:"date"`
	Category     Category `json:"category"`
	SpecificType string   `json:"specific_type"`
	Source       string   `json:"source"`
	Notes        string   `json:"notes,omitempty"`
}

// FAQEntry answers one FAQ question. Both fields are null when no event matched.
type FAQEntry struct {
	Date   *string `json:"date"`
	Source *string `json:"source"`
}

// FAQs is the fixed question panel derived from categorized dates.
type FAQs struct {
	LastRabiesVaccine          FAQEntry `json:"last_rabies_vaccine"`
	LastDHPPVaccine            FAQEntry `json:"last_dhpp_vaccine"`
	LastBordetellaVaccine      FAQEntry `json:"last_bordetella_vaccine"`
	LastLeptospirosisVaccine   FAQEntry `json:"last_leptospirosis_vaccine"`
	LastLymeVaccine            FAQEntry `json:"last_lyme_vaccine"`
	LastCanineInfluenzaVaccine FAQEntry `json:"last_canine_influenza_vaccine"`
	LastFVRCPVaccine           FAQEntry `json:"last_fvrcp_vaccine"`
	LastFeLVVaccine            FAQEntry `json:"last_felv_vaccine"`
	SpayNeuter                 FAQEntry `json:"spay_neuter"`
	LastSurgery                FAQEntry `json:"last_surgery"`
	LastDentalCleaning         FAQEntry `json:"last_dental_cleaning"`
	LastDentalExtraction       FAQEntry `json:"last_dental_extraction"`
	LastWellnessExam           FAQEntry `json:"last_wellness_exam"`
	LastBloodwork              FAQEntry `json:"last_bloodwork"`
	LastCBC                    FAQEntry `json:"last_cbc"`
	LastChemistryPanel         FAQEntry `json:"last_chemistry_panel"`
	LastThyroidTest            FAQEntry `json:"last_thyroid_test"`
	LastHeartwormTest          FAQEntry `json:"last_heartworm_test"`
	LastFecalTest              FAQEntry `json:"last_fecal_test"`
	LastUrinalysis             FAQEntry `json:"last_urinalysis"`
	LastHeartwormPrevention    FAQEntry `json:"last_heartworm_prevention"`
	LastFleaTickPrevention     FAQEntry `json:"last_flea_tick_prevention"`
}

type Patient struct {
	Name        string `json:"name,omitempty"`
	Species     string `json:"species,omitempty"`
	Breed       string `json:"breed,omitempty"`
	Sex         string `json:"sex,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Microchip   string `json:"microchip,omitempty"`
}

type Vaccine struct {
	Name             string `json:"name"`
	DateAdministered string `json:"date_administered,omitempty"`
	NextDue          string `json:"next_due,omitempty"`
	Source           string `json:"source,omitempty"`
}

type Surgery struct {
	Procedure string `json:"procedure"`
	Date      string `json:"date,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Source    string `json:"source,omitempty"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Source    string `json:"source,omitempty"`
}

type Bloodwork struct {
	Panel    string `json:"panel"`
	Date     string `json:"date,omitempty"`
	Findings string `json:"findings,omitempty"`
	Abnormal bool   `json:"abnormal,omitempty"`
	Source   string `json:"source,omitempty"`
}

// RecordExtraction is the structured output returned by the model for one document.
type RecordExtraction struct {
	Patient          Patient           `json:"patient"`
	Vaccines         []Vaccine         `json:"vaccines"`
	Surgeries        []Surgery         `json:"surgeries"`
	Medications      []Medication      `json:"medications"`
	Bloodwork        []Bloodwork       `json:"bloodwork"`
	CategorizedDates []CategorizedDate `json:"categorized_dates"`
}

// DocumentInfo describes one uploaded document within an extraction.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Label      string `json:"label"`
	SHA256     string `json:"sha256"`
	Pages      int    `json:"pages"`
	Bytes      int    `json:"bytes"`
	Model      string `json:"model,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}

// ExtractionResult is the merged result for one or more documents.
type ExtractionResult struct {
	ID               string            `json:"id"`
	Documents        []DocumentInfo    `json:"documents"`
	Patient          Patient           `json:"patient"`
	Vaccines         []Vaccine         `json:"vaccines"`
	Surgeries        []Surgery         `json:"surgeries"`
	Medications      []Medication      `json:"medications"`
	Bloodwork        []Bloodwork       `json:"bloodwork"`
	CategorizedDates []CategorizedDate `json:"categorized_dates"`
	FAQs             FAQs              `json:"faqs"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Labels returns the document labels in upload order.
func (r *ExtractionResult) Labels() []string {
	labels := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		labels = append(labels, d.Label)
	}
	return labels
}

// ExtractionSummary is the list view of a stored extraction.
type ExtractionSummary struct {
	ID            string    `json:"id"`
	Labels        []string  `json:"labels"`
	PatientName   string    `json:"patient_name,omitempty"`
	DocumentCount int       `json:"document_count"`
	DateCount     int       `json:"date_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summarize builds the list view of r.
func (r *ExtractionResult) Summarize() ExtractionSummary {
	return ExtractionSummary{
		ID:            r.ID,
		Labels:        r.Labels(),
		PatientName:   r.Patient.Name,
		DocumentCount: len(r.Documents),
		DateCount:     len(r.CategorizedDates),
		CreatedAt:     r.CreatedAt,
	}
}

// DocumentData holds raw document bytes with the detected type and a display label.
type DocumentData struct {
	Data  []byte
	Type  string
	Label string
}

// SourceInfo contains information about where a document came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
}
