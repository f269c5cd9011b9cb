package storage

import (
	"fmt"

	"github.com/Epistemic-Technology/vetrecords/models"
)

// ResourceScheme is the URI scheme of extraction resources.
const ResourceScheme = "vetrecord"

// CalculateResourcePaths lists the resource URIs available for an extraction.
// Section URIs for empty lists are left out.
func CalculateResourcePaths(id string, result *models.ExtractionResult) []string {
	paths := []string{
		fmt.Sprintf("%s://%s", ResourceScheme, id),
		fmt.Sprintf("%s://%s/faqs", ResourceScheme, id),
		fmt.Sprintf("%s://%s/patient", ResourceScheme, id),
	}

	sections := []struct {
		name string
		n    int
	}{
		{"vaccines", len(result.Vaccines)},
		{"surgeries", len(result.Surgeries)},
		{"medications", len(result.Medications)},
		{"bloodwork", len(result.Bloodwork)},
		{"timeline", len(result.CategorizedDates)},
	}
	for _, s := range sections {
		if s.n > 0 {
			paths = append(paths, fmt.Sprintf("%s://%s/%s", ResourceScheme, id, s.name))
		}
	}
	return paths
}
