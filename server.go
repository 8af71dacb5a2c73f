package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gamma-omg/rag-qa/docstore"
	"github.com/gamma-omg/rag-qa/qa"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type answerer interface {
	Answer(ctx context.Context, query string) (qa.Result, qa.Metrics, error)
}

type docRetriever interface {
	Retrieve(ctx context.Context, query string) ([]docstore.RetrievedChunk, error)
}

type textIngester interface {
	IngestText(ctx context.Context, text, source, title, section string) (int, error)
}

func NewRagServer(pipeline answerer, retriever docRetriever, ingester textIngester) *server.MCPServer {
	srv := server.NewMCPServer("RAG QA", "1.0.0", server.WithToolCapabilities(false))

	ask := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the ingested documents, with citations back to the source chunks"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Free-text question"),
		))
	srv.AddTool(ask, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(q) == "" {
			return mcp.NewToolResultError("question is empty"), nil
		}

		res, metrics, err := pipeline.Answer(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			qa.Result
			Metrics qa.Metrics `json:"metrics"`
		}{
			Result:  res,
			Metrics: metrics,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(raw)), nil
	})

	search := mcp.NewTool("search",
		mcp.WithDescription("Search the ingested documents and return the raw matching chunks"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))
	srv.AddTool(search, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := retriever.Retrieve(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range res {
			raw, err := json.Marshal(r)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	ingest := mcp.NewTool("ingest",
		mcp.WithDescription("Ingest raw text into the document store"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text to ingest"),
		),
		mcp.WithString("source", mcp.Description("Source identifier, defaults to 'upload'")),
		mcp.WithString("title", mcp.Description("Document title, defaults to the source")),
		mcp.WithString("section", mcp.Description("Section identifier, defaults to 'main'")),
	)
	srv.AddTool(ingest, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		count, err := ingester.IngestText(ctx,
			text,
			request.GetString("source", ""),
			request.GetString("title", ""),
			request.GetString("section", ""),
		)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			Count int `json:"count"`
		}{Count: count})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(raw)), nil
	})

	return srv
}
