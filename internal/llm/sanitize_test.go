package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/vetrecords/models"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-03-15", "2023-03-15", true},
		{"2023-03-15T09:30:00Z", "2023-03-15", true},
		{"03/15/2023", "2023-03-15", true},
		{"3/5/2023", "2023-03-05", true},
		{"2023/03/15", "2023-03-15", true},
		{"Mar 15, 2023", "2023-03-15", true},
		{"March 15, 2023", "2023-03-15", true},
		{"15 Mar 2023", "2023-03-15", true},
		{" 15 March 2023 ", "2023-03-15", true},
		{"15-Mar-2023", "2023-03-15", true},
		{"sometime in spring", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]models.Category{
		"vaccine":             models.CategoryVaccine,
		"Vaccination":         models.CategoryVaccine,
		" SURGERY ":           models.CategorySurgery,
		"Parasite Prevention": models.CategoryParasitePrevention,
		"parasite-prevention": models.CategoryParasitePrevention,
		"flea/tick":           models.CategoryParasitePrevention,
		"Blood Work":          models.CategoryBloodwork,
		"labs":                models.CategoryBloodwork,
		"Imaging":             models.CategoryDiagnostic,
		"grooming":            models.CategoryOther,
		"":                    models.CategoryOther,
	}
	for in, want := range tests {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		"```json\n{\"a\":1}\n```",
		"```\n{\"a\":1}\n```\n",
		"  \n```json\n{\"a\":1}```  ",
	}
	for _, in := range inputs {
		assert.Equal(t, `{"a":1}`, string(StripCodeFences([]byte(in))), in)
	}
}

func TestSanitizeExtraction(t *testing.T) {
	raw := "```json\n" + `{
  "patient": {"name": "Mittens", "date_of_birth": "06/01/2015", "microchip": null},
  "vaccines": [{"name": "FVRCP", "date_administered": "Jan 5, 2023", "next_due": "TBD"}, null],
  "surgeries": null,
  "medications": [{"dosage": "5mg"}],
  "categorized_dates": [
    {"date": "01/05/2023", "category": "Vaccination", "specific_type": "FVRCP", "source": null},
    {"date": "n/a", "category": "exam", "specific_type": "Recheck"},
    {"date": "2022-11-02", "category": "Dentistry"},
    "garbage"
  ]
}` + "\n```"

	cleaned, repairs, err := SanitizeExtraction([]byte(raw))
	require.NoError(t, err)
	assert.NotEmpty(t, repairs)
	require.NoError(t, ValidateJSONAgainstSchema(BuildRecordSchema(SchemaLenient), cleaned))

	var m map[string]any
	require.NoError(t, json.Unmarshal(cleaned, &m))
	patient := m["patient"].(map[string]any)
	assert.Equal(t, "2015-06-01", patient["date_of_birth"])
	assert.NotContains(t, patient, "microchip")

	vaccines := m["vaccines"].([]any)
	require.Len(t, vaccines, 1)
	v := vaccines[0].(map[string]any)
	assert.Equal(t, "2023-01-05", v["date_administered"])
	assert.NotContains(t, v, "next_due")

	assert.Equal(t, []any{}, m["surgeries"])
	assert.Equal(t, []any{}, m["bloodwork"])
	assert.Equal(t, "", m["medications"].([]any)[0].(map[string]any)["name"])

	ext, err := DecodeExtraction(cleaned)
	require.NoError(t, err)
	require.Len(t, ext.CategorizedDates, 2)
	assert.Equal(t, models.CategorizedDate{Date: "2023-01-05", Category: models.CategoryVaccine, SpecificType: "FVRCP"}, ext.CategorizedDates[0])
	assert.Equal(t, models.CategoryDental, ext.CategorizedDates[1].Category)
	assert.Equal(t, "", ext.CategorizedDates[1].SpecificType)
}

func TestSanitizeExtraction_InvalidJSON(t *testing.T) {
	_, _, err := SanitizeExtraction([]byte("the record mentions a rabies shot"))
	assert.Error(t, err)
}

func TestDecodeExtraction_EmptyLists(t *testing.T) {
	ext, err := DecodeExtraction([]byte(`{"categorized_dates": null}`))
	require.NoError(t, err)
	assert.NotNil(t, ext.Vaccines)
	assert.NotNil(t, ext.Surgeries)
	assert.NotNil(t, ext.Medications)
	assert.NotNil(t, ext.Bloodwork)
	assert.NotNil(t, ext.CategorizedDates)
}

func TestSanitizeExtraction_NonObjectTopLevel(t *testing.T) {
	inputs := []string{
		"null",
		"```json\nnull\n```",
		"[]",
		`"x"`,
		"42",
		"true",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, _, err := SanitizeExtraction([]byte(in))
				assert.Error(t, err)
			})
			for _, mode := range []SchemaMode{SchemaLenient, SchemaStrict} {
				assert.NotPanics(t, func() {
					_, err := accept([]byte(in), mode, BuildRecordSchema(mode))
					assert.Error(t, err, "mode %s", mode)
				})
			}
		})
	}
}

func TestSanitizeExtraction_RepairOrderIsStable(t *testing.T) {
	raw := []byte(`{
  "patient": {"date_of_birth": "06/01/2015"},
  "vaccines": [{"name": "Rabies", "date_administered": "Jan 5, 2023"}],
  "surgeries": [{"date": "2020/02/03"}],
  "medications": [{"start_date": "3/4/2022"}],
  "bloodwork": [{"panel": "CBC", "date": "soon"}],
  "categorized_dates": []
}`)

	_, first, err := SanitizeExtraction(raw)
	require.NoError(t, err)
	require.Len(t, first, 7)
	assert.Contains(t, first[0], "patient[0].date_of_birth")
	assert.Contains(t, first[1], "vaccines[0].date_administered")
	assert.Contains(t, first[2], "surgeries[0].date")
	assert.Contains(t, first[3], "medications[0].start_date")
	assert.Contains(t, first[4], "bloodwork[0].date")
	assert.Contains(t, first[5], "surgeries[0].procedure")
	assert.Contains(t, first[6], "medications[0].name")

	for range 20 {
		_, again, err := SanitizeExtraction(raw)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
