package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

func loadSamplePDFs(t *testing.T) []string {
	files, err := filepath.Glob(filepath.Join("..", "..", "samples", "*.pdf"))
	if err != nil {
		t.Fatalf("Failed to list sample PDFs: %v", err)
	}
	if len(files) == 0 {
		t.Skip("No sample PDFs found in samples directory")
	}
	return files
}

func integrationProviders(t *testing.T) []Attempt {
	var attempts []Attempt
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		attempts = append(attempts, Attempt{NewOpenAIProvider(key, ""), "gpt-5-mini"})
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		p, err := NewGeminiProvider(context.Background(), key)
		if err != nil {
			t.Fatalf("Failed to create gemini provider: %v", err)
		}
		attempts = append(attempts, Attempt{p, "gemini-2.5-flash"})
	}
	if len(attempts) == 0 {
		t.Skip("OPENAI_API_KEY and GEMINI_API_KEY not set, skipping integration test")
	}
	return attempts
}

func TestProviders_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	attempts := integrationProviders(t)
	files := loadSamplePDFs(t)

	for _, attempt := range attempts {
		for _, filePath := range files {
			t.Run(attempt.String()+"/"+filepath.Base(filePath), func(t *testing.T) {
				data, err := os.ReadFile(filePath)
				if err != nil {
					t.Fatalf("Failed to read PDF file %s: %v", filePath, err)
				}
				text, err := documents.ExtractText(data)
				if err != nil {
					t.Skipf("No text layer: %v", err)
				}

				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
				defer cancel()

				chain := NewChain(logger.NewNoOpLogger(), 0, attempt)
				res, err := chain.Run(ctx, Request{
					Label:      filepath.Base(filePath),
					Text:       text.Truncate(120000),
					InputMode:  InputText,
					SchemaMode: SchemaStrict,
				})
				if err != nil {
					t.Fatalf("Extraction failed: %v", err)
				}
				t.Logf("Extracted %d categorized dates, %d vaccines", len(res.Extraction.CategorizedDates), len(res.Extraction.Vaccines))
			})
		}
	}
}
