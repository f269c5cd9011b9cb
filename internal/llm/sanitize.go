package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Epistemic-Technology/vetrecords/models"
)

var (
	reISODate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	reSpaces   = regexp.MustCompile(`[\s\-/]+`)
	dateFields = map[string][]string{
		"patient":     {"date_of_birth"},
		"vaccines":    {"date_administered", "next_due"},
		"surgeries":   {"date"},
		"medications": {"start_date", "end_date"},
		"bloodwork":   {"date"},
	}
	nameFields = map[string]string{
		"vaccines":    "name",
		"surgeries":   "procedure",
		"medications": "name",
		"bloodwork":   "panel",
	}
	listKeys = []string{"vaccines", "surgeries", "medications", "bloodwork", "categorized_dates"}

	// Repairs are reported in this order.
	sectionOrder = []string{"patient", "vaccines", "surgeries", "medications", "bloodwork"}
)

// errNotObject is returned when the model output parses but is not a JSON object.
var errNotObject = errors.New("model output is not a JSON object")

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"2006/1/2",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
}

var categorySynonyms = map[string]models.Category{
	"vaccines":             models.CategoryVaccine,
	"vaccination":          models.CategoryVaccine,
	"vaccinations":         models.CategoryVaccine,
	"immunization":         models.CategoryVaccine,
	"surgical":             models.CategorySurgery,
	"surgeries":            models.CategorySurgery,
	"procedure":            models.CategorySurgery,
	"dentistry":            models.CategoryDental,
	"dental_cleaning":      models.CategoryDental,
	"medications":          models.CategoryMedication,
	"prescription":         models.CategoryMedication,
	"rx":                   models.CategoryMedication,
	"blood_work":           models.CategoryBloodwork,
	"blood_test":           models.CategoryBloodwork,
	"lab":                  models.CategoryBloodwork,
	"labs":                 models.CategoryBloodwork,
	"diagnostics":          models.CategoryDiagnostic,
	"imaging":              models.CategoryDiagnostic,
	"radiograph":           models.CategoryDiagnostic,
	"test":                 models.CategoryDiagnostic,
	"examination":          models.CategoryExam,
	"visit":                models.CategoryExam,
	"wellness":             models.CategoryExam,
	"parasite":             models.CategoryParasitePrevention,
	"prevention":           models.CategoryParasitePrevention,
	"preventative":         models.CategoryParasitePrevention,
	"preventive":           models.CategoryParasitePrevention,
	"flea_tick":            models.CategoryParasitePrevention,
	"heartworm_prevention": models.CategoryParasitePrevention,
}

// StripCodeFences removes a surrounding markdown code fence, which some models add
// even when asked for bare JSON.
func StripCodeFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = bytes.TrimPrefix(s, []byte("```"))
	}
	s = bytes.TrimSpace(s)
	s = bytes.TrimSuffix(s, []byte("```"))
	return bytes.TrimSpace(s)
}

// NormalizeDate converts the date formats commonly found in records to YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if reISODate.MatchString(s) {
		return s[:10], true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// NormalizeCategory maps free text onto one of the fixed tags. Unknown values become other.
func NormalizeCategory(s string) models.Category {
	key := reSpaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	if c := models.Category(key); c.Valid() {
		return c
	}
	if c, ok := categorySynonyms[key]; ok {
		return c
	}
	return models.CategoryOther
}

// SanitizeExtraction repairs lenient model output so that it validates and decodes:
// nulls are dropped, categories are mapped onto the fixed tags, dates are rewritten
// as YYYY-MM-DD and categorized dates without a usable date are removed.
// It returns the cleaned document and a description of every repair.
func SanitizeExtraction(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(StripCodeFences(raw), &m); err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, errNotObject
	}
	var repairs []string
	note := func(format string, args ...any) {
		repairs = append(repairs, fmt.Sprintf(format, args...))
	}

	dropNulls(m)

	for _, key := range listKeys {
		switch v := m[key].(type) {
		case []any:
			objs := make([]any, 0, len(v))
			for i, item := range v {
				if _, ok := item.(map[string]any); !ok {
					note("%s[%d]: dropped non-object entry", key, i)
					continue
				}
				objs = append(objs, item)
			}
			m[key] = objs
		case nil:
			m[key] = []any{}
		default:
			note("%s: expected array, got %T", key, v)
			m[key] = []any{}
		}
	}
	if _, ok := m["patient"].(map[string]any); !ok {
		if _, present := m["patient"]; present {
			note("patient: expected object")
		}
		m["patient"] = map[string]any{}
	}

	for _, key := range sectionOrder {
		fields, ok := dateFields[key]
		if !ok {
			continue
		}
		var objs []map[string]any
		if key == "patient" {
			objs = []map[string]any{m["patient"].(map[string]any)}
		} else {
			for _, item := range m[key].([]any) {
				objs = append(objs, item.(map[string]any))
			}
		}
		for i, obj := range objs {
			for _, f := range fields {
				s, ok := obj[f].(string)
				if !ok {
					continue
				}
				if norm, ok := NormalizeDate(s); ok {
					if norm != s {
						obj[f] = norm
						note("%s[%d].%s: %q -> %s", key, i, f, s, norm)
					}
				} else {
					delete(obj, f)
					note("%s[%d].%s: dropped unparseable date %q", key, i, f, s)
				}
			}
		}
	}

	for _, key := range sectionOrder {
		field, ok := nameFields[key]
		if !ok {
			continue
		}
		for i, item := range m[key].([]any) {
			obj := item.(map[string]any)
			if _, ok := obj[field].(string); !ok {
				obj[field] = ""
				note("%s[%d].%s: missing, set to empty", key, i, field)
			}
		}
	}

	kept := make([]any, 0)
	for i, item := range m["categorized_dates"].([]any) {
		obj := item.(map[string]any)
		date, _ := obj["date"].(string)
		norm, ok := NormalizeDate(date)
		if !ok {
			note("categorized_dates[%d]: dropped entry with date %q", i, date)
			continue
		}
		if norm != date {
			note("categorized_dates[%d].date: %q -> %s", i, date, norm)
		}
		obj["date"] = norm

		rawCat, _ := obj["category"].(string)
		cat := NormalizeCategory(rawCat)
		if string(cat) != rawCat {
			note("categorized_dates[%d].category: %q -> %s", i, rawCat, cat)
		}
		obj["category"] = string(cat)

		if _, ok := obj["specific_type"].(string); !ok {
			obj["specific_type"] = ""
		}
		kept = append(kept, obj)
	}
	m["categorized_dates"] = kept

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, repairs, nil
}

func dropNulls(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				continue
			}
			dropNulls(child)
		}
	case []any:
		for _, child := range t {
			dropNulls(child)
		}
	}
}

// DecodeExtraction unmarshals validated model output. Missing lists decode as empty slices.
func DecodeExtraction(raw []byte) (models.RecordExtraction, error) {
	var out models.RecordExtraction
	if err := json.Unmarshal(StripCodeFences(raw), &out); err != nil {
		return models.RecordExtraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	if out.Vaccines == nil {
		out.Vaccines = []models.Vaccine{}
	}
	if out.Surgeries == nil {
		out.Surgeries = []models.Surgery{}
	}
	if out.Medications == nil {
		out.Medications = []models.Medication{}
	}
	if out.Bloodwork == nil {
		out.Bloodwork = []models.Bloodwork{}
	}
	if out.CategorizedDates == nil {
		out.CategorizedDates = []models.CategorizedDate{}
	}
	for i := range out.CategorizedDates {
		d := &out.CategorizedDates[i]
		d.Date = strings.TrimSpace(d.Date)
		d.SpecificType = strings.TrimSpace(d.SpecificType)
		d.Source = strings.TrimSpace(d.Source)
	}
	return out, nil
}
