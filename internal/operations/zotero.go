package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

// ZoteroSearchParams narrows a search for record attachments.
type ZoteroSearchParams struct {
	Query      string   // quick search over title, creator and year
	Tags       []string // e.g. the pet's name
	Collection string   // collection key, optional
	Limit      int      // default 25
}

// RecordItem is a Zotero item that carries at least one PDF attachment.
type RecordItem struct {
	Key         string           `json:"key"`
	Title       string           `json:"title"`
	Creators    []string         `json:"creators,omitempty"`
	Date        string           `json:"date,omitempty"`
	Attachments []AttachmentInfo `json:"attachments"`
}

// AttachmentInfo is a PDF attached to a Zotero item. Key is the zotero_id for record-extract.
type AttachmentInfo struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	LinkMode    string `json:"link_mode"`
}

// FindRecordAttachments searches the library and returns only items with PDF attachments.
// Linked files live on the owner's disk and cannot be fetched, so they are skipped.
func FindRecordAttachments(ctx context.Context, zcfg documents.ZoteroConfig, params ZoteroSearchParams, log logger.Logger) ([]RecordItem, error) {
	if zcfg.APIKey == "" || zcfg.LibraryID == "" {
		return nil, fmt.Errorf("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID are required to search zotero")
	}
	client := zotero.NewClient(zcfg.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(zcfg.APIKey))

	queryParams := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: []string{"-attachment"},
		Limit:    params.Limit,
		Sort:     "dateModified",
	}
	if queryParams.Limit <= 0 {
		queryParams.Limit = 25
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, queryParams)
	} else {
		items, err = client.Items(ctx, queryParams)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search zotero library: %w", err)
	}
	log.Info("Found %d zotero items", len(items))

	results := make([]RecordItem, 0, len(items))
	for _, item := range items {
		if item.Data.ItemType == "attachment" {
			continue
		}
		rec := RecordItem{
			Key:   item.Key,
			Title: item.Data.Title,
			Date:  item.Data.DateAdded,
		}
		for _, c := range item.Data.Creators {
			if name := creatorName(c.Name, c.FirstName, c.LastName); name != "" {
				rec.Creators = append(rec.Creators, name)
			}
		}

		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Warn("Failed to list attachments of %s: %v", item.Key, err)
			continue
		}
		for _, child := range children {
			if child.Data.ItemType != "attachment" {
				continue
			}
			a := AttachmentInfo{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ContentType: child.Data.ContentType,
				LinkMode:    child.Data.LinkMode,
			}
			if isFetchablePDF(a) {
				rec.Attachments = append(rec.Attachments, a)
			}
		}
		if len(rec.Attachments) > 0 {
			results = append(results, rec)
		}
	}
	log.Info("Returning %d items with PDF attachments", len(results))
	return results, nil
}

func creatorName(name, first, last string) string {
	if name != "" {
		return name
	}
	return strings.TrimSpace(first + " " + last)
}

func isFetchablePDF(a AttachmentInfo) bool {
	if strings.HasPrefix(a.LinkMode, "linked_") {
		return false
	}
	return a.ContentType == "application/pdf" || strings.HasSuffix(strings.ToLower(a.Filename), ".pdf")
}
