package llm

import (
	"maps"
	"slices"

	"github.com/Epistemic-Technology/vetrecords/models"
)

// BuildRecordSchema returns the response schema as a generic map. The same map is
// sent to the provider as a structured output constraint and used locally to validate.
//
// Strict mode follows the structured-output rules of the providers: every property is
// required, optional values are nullable and additional properties are rejected.
// Lenient mode only requires categorized_dates and leaves category free text so that
// SanitizeExtraction can map it onto the fixed tags.
func BuildRecordSchema(mode SchemaMode) map[string]any {
	strict := mode != SchemaLenient

	object := func(props map[string]any, required ...string) map[string]any {
		o := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if strict {
			o["required"] = slices.Sorted(maps.Keys(props))
			o["additionalProperties"] = false
		} else if len(required) > 0 {
			o["required"] = required
		}
		return o
	}
	list := func(item map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": item}
	}

	category := map[string]any{"type": "string"}
	if strict {
		enum := make([]string, 0, len(models.Categories))
		for _, c := range models.Categories {
			enum = append(enum, string(c))
		}
		category["enum"] = enum
	}

	props := map[string]any{
		"patient": object(map[string]any{
			"name":          nullable("string"),
			"species":       nullable("string"),
			"breed":         nullable("string"),
			"sex":           nullable("string"),
			"date_of_birth": nullable("string"),
			"microchip":     nullable("string"),
		}),
		"vaccines": list(object(map[string]any{
			"name":              map[string]any{"type": "string"},
			"date_administered": nullable("string"),
			"next_due":          nullable("string"),
			"source":            nullable("string"),
		}, "name")),
		"surgeries": list(object(map[string]any{
			"procedure": map[string]any{"type": "string"},
			"date":      nullable("string"),
			"notes":     nullable("string"),
			"source":    nullable("string"),
		}, "procedure")),
		"medications": list(object(map[string]any{
			"name":       map[string]any{"type": "string"},
			"dosage":     nullable("string"),
			"start_date": nullable("string"),
			"end_date":   nullable("string"),
			"source":     nullable("string"),
		}, "name")),
		"bloodwork": list(object(map[string]any{
			"panel":    map[string]any{"type": "string"},
			"date":     nullable("string"),
			"findings": nullable("string"),
			"abnormal": nullable("boolean"),
			"source":   nullable("string"),
		}, "panel")),
		"categorized_dates": list(object(map[string]any{
			"date":          map[string]any{"type": "string"},
			"category":      category,
			"specific_type": map[string]any{"type": "string"},
			"source":        nullable("string"),
			"notes":         nullable("string"),
		}, "date", "category")),
	}

	return object(props, "categorized_dates")
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}
