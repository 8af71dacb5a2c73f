package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/gamma-omg/rag-qa/chunker"
	"github.com/gamma-omg/rag-qa/docstore"
	"github.com/gamma-omg/rag-qa/qa"
	"github.com/gamma-omg/rag-qa/readers"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			envOr(cfg.OpenAI.ApiKey, "OPENAI_API_KEY"),
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(envOr(cfg.Gemini.ApiKey, "GEMINI_API_KEY")),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errors.New("invalid embeddings provider configuration")
}

func initDocStore(cfg *Config, reset bool) (*docstore.ChromaStore, error) {
	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := docstore.NewChromaStore(ctx, docstore.ChromaStoreConfig{
		BaseURL:       cfg.ChromaAddr,
		Collection:    cfg.Collection,
		EmbeddingFunc: ef,
		Results:       cfg.Results,
		RequestSize:   cfg.RequestSize,
		Reset:         reset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Chroma doc store: %w", err)
	}

	return store, nil
}

func main() {
	reset := flag.Bool("reset", false, "Reinitialize the database from scratch if set")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the MCP server")
	flag.Parse()

	// keys may live in an env file next to the binary
	_ = godotenv.Load()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	store, err := initDocStore(cfg, *reset)
	if err != nil {
		log.Fatal(err)
	}

	counter, err := chunker.NewTiktokenCounter(cfg.Chunking.Encoding)
	if err != nil {
		log.Fatal(err)
	}

	chk := chunker.NewSentenceChunker(counter,
		cfg.Chunking.MinTokens,
		cfg.Chunking.MaxTokens,
		cfg.Chunking.OverlapRatio)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DocRoot != "" {
		reg := &DocRegistry{
			log:              logger,
			root:             cfg.DocRoot,
			mergeEventsDelay: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
			store:            store,
			chunker:          chk,
		}
		reg.RegisterReader(&readers.TextReader{}, &readers.DocReader{})

		go func() {
			if err := reg.Sync(ctx); err != nil {
				log.Fatal(err)
			}

			if err := reg.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
		}()
	}

	reranker := qa.NewCohereReranker(qa.CohereRerankerConfig{
		Log:    logger,
		APIKey: envOr(cfg.Rerank.ApiKey, "COHERE_API_KEY"),
		Model:  cfg.Rerank.Model,
		TopN:   cfg.Rerank.TopN,
	})

	generator := qa.NewChatClient(qa.ChatClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      envOr(cfg.LLM.ApiKey, "GROQ_API_KEY"),
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})

	pipeline := qa.NewPipeline(logger, store, reranker, qa.NewSynthesizer(generator))
	ingester := &TextIngester{log: logger, store: store, chunker: chk}

	srv := NewRagServer(pipeline, store, ingester)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
