// Package faq turns a flat list of categorized dates into the fixed FAQ panel.
package faq

import "github.com/Epistemic-Technology/vetrecords/models"

// Rule maps one FAQ question onto the categorized dates that can answer it.
// An empty Needles list matches every date in the listed categories.
type Rule struct {
	Key        string            `json:"key"`
	Question   string            `json:"question"`
	Categories []models.Category `json:"categories"`
	Needles    []string          `json:"needles,omitempty"`

	field func(*models.FAQs) *models.FAQEntry
}

var (
	vaccine    = []models.Category{models.CategoryVaccine}
	surgery    = []models.Category{models.CategorySurgery}
	dental     = []models.Category{models.CategoryDental}
	exam       = []models.Category{models.CategoryExam}
	bloodwork  = []models.Category{models.CategoryBloodwork}
	diagnostic = []models.Category{models.CategoryDiagnostic}
	prevention = []models.Category{models.CategoryParasitePrevention, models.CategoryMedication}
)

var rules = []Rule{
	{
		Key: "last_rabies_vaccine", Question: "When was the last rabies vaccine?",
		Categories: vaccine, Needles: []string{"rabies"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastRabiesVaccine },
	},
	{
		Key: "last_dhpp_vaccine", Question: "When was the last DHPP / distemper-parvo vaccine?",
		Categories: vaccine, Needles: []string{"dhpp", "da2pp", "dapp", "dhlpp", "distemper", "parvo"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastDHPPVaccine },
	},
	{
		Key: "last_bordetella_vaccine", Question: "When was the last bordetella (kennel cough) vaccine?",
		Categories: vaccine, Needles: []string{"bordetella", "kennel cough"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastBordetellaVaccine },
	},
	{
		Key: "last_leptospirosis_vaccine", Question: "When was the last leptospirosis vaccine?",
		Categories: vaccine, Needles: []string{"lepto"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastLeptospirosisVaccine },
	},
	{
		Key: "last_lyme_vaccine", Question: "When was the last Lyme vaccine?",
		Categories: vaccine, Needles: []string{"lyme"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastLymeVaccine },
	},
	{
		Key: "last_canine_influenza_vaccine", Question: "When was the last canine influenza vaccine?",
		Categories: vaccine, Needles: []string{"influenza", "civ", "h3n2", "h3n8"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastCanineInfluenzaVaccine },
	},
	{
		Key: "last_fvrcp_vaccine", Question: "When was the last FVRCP vaccine?",
		Categories: vaccine, Needles: []string{"fvrcp", "rhinotracheitis", "panleukopenia", "calici"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastFVRCPVaccine },
	},
	{
		Key: "last_felv_vaccine", Question: "When was the last FeLV vaccine?",
		Categories: vaccine, Needles: []string{"felv", "feline leukemia"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastFeLVVaccine },
	},
	{
		Key: "spay_neuter", Question: "When was the pet spayed or neutered?",
		Categories: surgery, Needles: []string{"spay", "neuter", "castrat", "ovariohysterectomy", "orchiectomy"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.SpayNeuter },
	},
	{
		Key: "last_surgery", Question: "When was the last surgery?",
		Categories: surgery,
		field:      func(f *models.FAQs) *models.FAQEntry { return &f.LastSurgery },
	},
	{
		Key: "last_dental_cleaning", Question: "When was the last dental cleaning?",
		Categories: dental, Needles: []string{"cleaning", "prophy", "scaling", "cohat"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastDentalCleaning },
	},
	{
		Key: "last_dental_extraction", Question: "When was the last tooth extraction?",
		Categories: dental, Needles: []string{"extraction"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastDentalExtraction },
	},
	{
		Key: "last_wellness_exam", Question: "When was the last wellness exam?",
		Categories: exam, Needles: []string{"wellness", "annual", "physical", "checkup", "check-up", "routine"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastWellnessExam },
	},
	{
		Key: "last_bloodwork", Question: "When was the last bloodwork?",
		Categories: bloodwork,
		field:      func(f *models.FAQs) *models.FAQEntry { return &f.LastBloodwork },
	},
	{
		Key: "last_cbc", Question: "When was the last CBC?",
		Categories: bloodwork, Needles: []string{"cbc", "complete blood count", "hematology"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastCBC },
	},
	{
		Key: "last_chemistry_panel", Question: "When was the last chemistry panel?",
		Categories: bloodwork, Needles: []string{"chem", "chemistry", "biochem"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastChemistryPanel },
	},
	{
		Key: "last_thyroid_test", Question: "When was the last thyroid (T4) test?",
		Categories: bloodwork, Needles: []string{"thyroid", "t4"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastThyroidTest },
	},
	{
		Key: "last_heartworm_test", Question: "When was the last heartworm test?",
		Categories: []models.Category{models.CategoryBloodwork, models.CategoryDiagnostic},
		Needles:    []string{"heartworm", "4dx", "snap"},
		field:      func(f *models.FAQs) *models.FAQEntry { return &f.LastHeartwormTest },
	},
	{
		Key: "last_fecal_test", Question: "When was the last fecal test?",
		Categories: diagnostic, Needles: []string{"fecal", "stool", "ova", "giardia"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastFecalTest },
	},
	{
		Key: "last_urinalysis", Question: "When was the last urinalysis?",
		Categories: diagnostic, Needles: []string{"urinalysis", "urine"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastUrinalysis },
	},
	{
		Key: "last_heartworm_prevention", Question: "When was heartworm prevention last given?",
		Categories: prevention, Needles: []string{"heartworm", "heartgard", "interceptor", "proheart", "trio", "revolution"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastHeartwormPrevention },
	},
	{
		Key: "last_flea_tick_prevention", Question: "When was flea/tick prevention last given?",
		Categories: prevention, Needles: []string{"flea", "tick", "nexgard", "bravecto", "simparica", "frontline", "credelio", "seresto"},
		field: func(f *models.FAQs) *models.FAQEntry { return &f.LastFleaTickPrevention },
	},
}

// Rules returns a copy of the taxonomy in panel order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Keys returns the FAQ keys in panel order.
func Keys() []string {
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = r.Key
	}
	return keys
}

// Lookup returns the entry for key.
func Lookup(faqs models.FAQs, key string) (models.FAQEntry, bool) {
	for _, r := range rules {
		if r.Key == key {
			return *r.field(&faqs), true
		}
	}
	return models.FAQEntry{}, false
}
