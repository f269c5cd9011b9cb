package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/operations"
)

type RecordSourcesQuery struct {
	Query      string   `json:"query,omitempty" jsonschema:"quick search over title, creator and year"`
	Tags       []string `json:"tags,omitempty" jsonschema:"only items carrying all of these tags, e.g. the pet's name"`
	Collection string   `json:"collection,omitempty" jsonschema:"collection key to search in"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum items to search, default 25"`
}

type RecordSourcesResponse struct {
	Items []operations.RecordItem `json:"items"`
	Count int                     `json:"count"`
}

func RecordSourcesTool() *mcp.Tool {
	inputschema, err := jsonschema.For[RecordSourcesQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "record-sources",
		Description: "Search a Zotero library for veterinary records stored as PDF attachments. Pass an attachment key as zotero_id to record-extract.",
		InputSchema: inputschema,
	}
}

func RecordSourcesToolHandler(ctx context.Context, req *mcp.CallToolRequest, query RecordSourcesQuery, zcfg documents.ZoteroConfig, log logger.Logger) (*mcp.CallToolResult, *RecordSourcesResponse, error) {
	log.Info("record-sources tool called")

	items, err := operations.FindRecordAttachments(ctx, zcfg, operations.ZoteroSearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
	}, log)
	if err != nil {
		log.Error("record-sources tool failed: %v", err)
		return nil, nil, err
	}
	return nil, &RecordSourcesResponse{Items: items, Count: len(items)}, nil
}
