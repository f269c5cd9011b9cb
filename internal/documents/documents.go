package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/vetrecords/models"
)

var (
	ErrNotPDF        = errors.New("document is not a PDF")
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoText        = errors.New("no extractable text in PDF")
	ErrNoSource      = errors.New("no data provided")
	ErrTooLarge      = errors.New("document exceeds size limit")
)

// DefaultMaxFetchBytes caps fetched documents when no limit is configured.
const DefaultMaxFetchBytes int64 = 20 << 20

// DetectDocumentType determines the type of document from the raw data
// by checking magic bytes/headers
func DetectDocumentType(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}

	// PDF: starts with %PDF, sometimes after a few bytes of junk
	if bytes.HasPrefix(data, []byte("%PDF")) || bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return "pdf"
	}

	trimmed := bytes.TrimSpace(data)
	lower := bytes.ToLower(trimmed[:min(len(trimmed), 64)])
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return "html"
	}

	if len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B &&
		(data[2] == 0x03 || data[2] == 0x05 || data[2] == 0x07) {
		return "zip"
	}

	if isLikelyText(data) {
		return "txt"
	}

	return "unknown"
}

// isLikelyText checks if the data is likely plain text (no binary content)
func isLikelyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sample := data[:min(len(data), 512)]
	if bytes.Contains(sample, []byte{0}) {
		return false
	}

	printable := 0
	for _, b := range sample {
		if (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}

	return float64(printable)/float64(len(sample)) > 0.9
}

// ContentHash returns the hex sha256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewDocument wraps raw bytes, detecting the type and defaulting the label.
func NewDocument(data []byte, label string) models.DocumentData {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "document-" + ContentHash(data)[:8]
	}
	return models.DocumentData{
		Data:  data,
		Type:  DetectDocumentType(data),
		Label: label,
	}
}

// ZoteroConfig holds the credentials used to fetch attachments.
type ZoteroConfig struct {
	APIKey    string
	LibraryID string
	// MaxBytes caps every fetched document, URL or Zotero. Zero means DefaultMaxFetchBytes.
	MaxBytes int64
}

func (c ZoteroConfig) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return DefaultMaxFetchBytes
}

// GetData retrieves document data from a source and detects its type
func GetData(ctx context.Context, sourceInfo models.SourceInfo, zcfg ZoteroConfig) (models.DocumentData, error) {
	var data []byte
	var err error
	var label string

	switch {
	case sourceInfo.ZoteroID != "":
		data, err = GetFromZotero(ctx, sourceInfo.ZoteroID, zcfg.APIKey, zcfg.LibraryID)
		if err != nil {
			return models.DocumentData{}, err
		}
		if int64(len(data)) > zcfg.maxBytes() {
			return models.DocumentData{}, fmt.Errorf("zotero attachment %s: %w (limit %d bytes)", sourceInfo.ZoteroID, ErrTooLarge, zcfg.maxBytes())
		}
		label = "zotero-" + sourceInfo.ZoteroID
	case sourceInfo.URL != "":
		data, err = GetFromURL(ctx, sourceInfo.URL, zcfg.maxBytes())
		if err != nil {
			return models.DocumentData{}, err
		}
		label = path.Base(sourceInfo.URL)
	default:
		return models.DocumentData{}, ErrNoSource
	}

	if len(data) == 0 {
		return models.DocumentData{}, ErrEmptyDocument
	}

	return NewDocument(data, label), nil
}

// GetFromURL fetches document data from a URL. Bodies over maxBytes fail with ErrTooLarge.
func GetFromURL(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", url, ErrTooLarge, maxBytes)
	}
	return data, nil
}

// GetFromZotero fetches an attachment file from a Zotero library
func GetFromZotero(ctx context.Context, zoteroID string, apiKey string, libraryID string) ([]byte, error) {
	if apiKey == "" || libraryID == "" {
		return nil, errors.New("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID are required for zotero sources")
	}
	client := zotero.NewClient(libraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(apiKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zotero attachment %s: %w", zoteroID, err)
	}
	return data, nil
}
