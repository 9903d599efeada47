package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is constructed once at process start and passed into each
// component. Every field has a default; a yaml file and environment
// variables (in that order) may override it.
type Config struct {
	LogFile       string   `yaml:"log"`
	OllamaURL     string   `yaml:"ollama_url"`
	ChromaURL     string   `yaml:"chroma_url"`
	Collection    string   `yaml:"collection"`
	EmbedModel    string   `yaml:"embed_model"`
	GenerateModel string   `yaml:"generation_model"`
	ChunkSize     int      `yaml:"chunk_size"`
	ChunkOverlap  int      `yaml:"chunk_overlap"`
	DocsRoot      string   `yaml:"docs_root"`
	WikiGlob      string   `yaml:"wiki_dump_glob"`
	MaxWikiPages  int      `yaml:"max_wiki_pages"`
	ServerAddr    string   `yaml:"server_addr"`
	CORSOrigins   []string `yaml:"cors_origins"`
	MergeEventsMs int      `yaml:"write_debounce_ms"`
}

func defaultConfig() *Config {
	return &Config{
		OllamaURL:     "http://localhost:11434",
		ChromaURL:     "http://localhost:8000",
		Collection:    "docs_text",
		EmbedModel:    "nomic-embed-text",
		GenerateModel: "llama3.1:8b-instruct",
		ChunkSize:     800,
		ChunkOverlap:  120,
		DocsRoot:      "data/user_docs",
		WikiGlob:      "data/wikipedia/*pages-articles-multistream*.xml*",
		MaxWikiPages:  0,
		ServerAddr:    ":8080",
		CORSOrigins: []string{
			"http://localhost",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		},
		MergeEventsMs: 500,
	}
}

// readConfig builds the effective configuration: defaults, then the
// yaml file at cfgPath if it exists, then environment overrides.
func readConfig(cfgPath string) (*Config, error) {
	cfg := defaultConfig()

	cfgFile, err := os.Open(cfgPath)
	if err == nil {
		defer cfgFile.Close()
		dec := yaml.NewDecoder(cfgFile)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.OllamaURL, "OLLAMA_URL")
	envString(&c.ChromaURL, "CHROMA_URL")
	envString(&c.Collection, "COLLECTION_NAME")
	envString(&c.EmbedModel, "TEXT_EMBED_MODEL")
	envString(&c.GenerateModel, "GENERATION_MODEL")
	envString(&c.DocsRoot, "USER_DOCS_DIR")
	envString(&c.WikiGlob, "WIKI_DUMP_GLOB")
	envString(&c.ServerAddr, "SERVER_ADDR")
	envInt(&c.ChunkSize, "CHUNK_SIZE")
	envInt(&c.ChunkOverlap, "CHUNK_OVERLAP")
	envInt(&c.MaxWikiPages, "MAX_WIKI_PAGES")
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size): got %d with chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxWikiPages < 0 {
		return errors.New("max_wiki_pages must not be negative")
	}

	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
