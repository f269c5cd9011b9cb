package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
	"github.com/Epistemic-Technology/vetrecords/resources"
	"github.com/Epistemic-Technology/vetrecords/tools"
)

// Version is reported to MCP clients.
var Version = "v0.1.0"

func CreateServer(svc *extraction.Service, zcfg documents.ZoteroConfig, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "vetrecords", Version: Version}, nil)

	mcp.AddTool(server, tools.RecordExtractTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RecordExtractQuery) (*mcp.CallToolResult, *tools.RecordExtractResponse, error) {
		return tools.RecordExtractToolHandler(ctx, req, query, svc, zcfg, log)
	})

	mcp.AddTool(server, tools.RecordFAQsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RecordFAQsQuery) (*mcp.CallToolResult, *tools.RecordFAQsResponse, error) {
		return tools.RecordFAQsToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.RecordListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RecordListQuery) (*mcp.CallToolResult, *tools.RecordListResponse, error) {
		return tools.RecordListToolHandler(ctx, req, query, svc, log)
	})

	// zotero search is only useful with a library configured
	if zcfg.APIKey != "" && zcfg.LibraryID != "" {
		mcp.AddTool(server, tools.RecordSourcesTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.RecordSourcesQuery) (*mcp.CallToolResult, *tools.RecordSourcesResponse, error) {
			return tools.RecordSourcesToolHandler(ctx, req, query, zcfg, log)
		})
	}

	handler := resources.NewRecordResourceHandler(svc)
	read := func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return handler.ReadResource(ctx, req.Params.URI)
	}

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: storage.ResourceScheme + "://{extractionId}",
		Name:        "vet-record",
		Description: "Extraction summary with documents, patient and available resources",
		MIMEType:    "application/json",
	}, read)

	for _, s := range resources.Sections {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: fmt.Sprintf("%s://{extractionId}/%s", storage.ResourceScheme, s.Name),
			Name:        "vet-record-" + s.Name,
			Description: s.Description,
			MIMEType:    "application/json",
		}, read)
	}

	return server
}
