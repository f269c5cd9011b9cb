// Package operations holds the source-loading steps shared by the MCP tools and the CLI.
package operations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// Source names one record to extract. Exactly one of ZoteroID, URL, Path or RawData is set.
// Label overrides the label derived from the source.
type Source struct {
	ZoteroID string
	URL      string
	Path     string
	RawData  []byte
	Label    string
}

var ErrAmbiguousSource = errors.New("exactly one of zotero_id, url, path or raw_data must be set")

func (s Source) count() int {
	n := 0
	for _, set := range []bool{s.ZoteroID != "", s.URL != "", s.Path != "", len(s.RawData) > 0} {
		if set {
			n++
		}
	}
	return n
}

// LoadDocument fetches the bytes behind src.
func LoadDocument(ctx context.Context, src Source, zcfg documents.ZoteroConfig) (models.DocumentData, error) {
	switch src.count() {
	case 0:
		return models.DocumentData{}, documents.ErrNoSource
	case 1:
	default:
		return models.DocumentData{}, ErrAmbiguousSource
	}

	var doc models.DocumentData
	switch {
	case len(src.RawData) > 0:
		doc = documents.NewDocument(src.RawData, src.Label)
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return models.DocumentData{}, fmt.Errorf("failed to read %s: %w", src.Path, err)
		}
		doc = documents.NewDocument(data, filepath.Base(src.Path))
	default:
		var err error
		doc, err = documents.GetData(ctx, models.SourceInfo{ZoteroID: src.ZoteroID, URL: src.URL}, zcfg)
		if err != nil {
			return models.DocumentData{}, err
		}
	}

	if label := strings.TrimSpace(src.Label); label != "" {
		doc.Label = label
	}
	return doc, nil
}

// ExtractSources loads every source and extracts them as one merged result.
func ExtractSources(ctx context.Context, svc *extraction.Service, zcfg documents.ZoteroConfig, sources []Source, log logger.Logger) (*models.ExtractionResult, error) {
	if len(sources) == 0 {
		return nil, extraction.ErrNoDocuments
	}
	docs := make([]models.DocumentData, 0, len(sources))
	for i, src := range sources {
		doc, err := LoadDocument(ctx, src, zcfg)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		log.Debug("Loaded %s (%d bytes)", doc.Label, len(doc.Data))
		docs = append(docs, doc)
	}
	return svc.Extract(ctx, docs)
}
