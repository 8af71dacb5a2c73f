package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile       string `yaml:"log"`
	DocRoot       string `yaml:"doc_root"`
	MergeEventsMs int    `yaml:"write_debounce_ms"`
	ChromaAddr    string `yaml:"chroma_addr"`
	Collection    string `yaml:"collection"`
	RequestSize   int    `yaml:"request_size"`
	Results       int    `yaml:"results"`
	ServerAddr    string `yaml:"server_addr"`

	Chunking struct {
		MinTokens    int     `yaml:"min_tokens"`
		MaxTokens    int     `yaml:"max_tokens"`
		OverlapRatio float64 `yaml:"overlap_ratio"`
		Encoding     string  `yaml:"encoding"`
	} `yaml:"chunking"`

	OpenAI *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"open_ai"`
	Gemini *struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
	} `yaml:"gemini"`

	Rerank struct {
		Model  string `yaml:"model"`
		ApiKey string `yaml:"api_key"`
		TopN   int    `yaml:"top_n"`
	} `yaml:"rerank"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		ApiKey      string  `yaml:"api_key"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

// envOr prefers the configured value, falling back to the named env variable.
func envOr(value, envKey string) string {
	if value != "" {
		return value
	}

	return os.Getenv(envKey)
}
