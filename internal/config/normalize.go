package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeFirecrawl()
	c.normalizeVideoGen()
	c.normalizeEmbedding()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("ADLOOM_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("ADLOOM_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeFirecrawl() {
	c.Firecrawl.APIKey = strings.TrimSpace(c.Firecrawl.APIKey)
	if c.Firecrawl.APIKey == "" {
		if value, ok := os.LookupEnv("FIRECRAWL_API_KEY"); ok {
			c.Firecrawl.APIKey = strings.TrimSpace(value)
		}
	}
	c.Firecrawl.BaseURL = strings.TrimSpace(c.Firecrawl.BaseURL)
	if c.Firecrawl.BaseURL == "" {
		c.Firecrawl.BaseURL = defaultFirecrawlBaseURL
	}
	if c.Firecrawl.TimeoutSeconds <= 0 {
		c.Firecrawl.TimeoutSeconds = defaultFirecrawlTimeoutSeconds
	}
	if c.Firecrawl.MaxResults <= 0 {
		c.Firecrawl.MaxResults = defaultFirecrawlMaxResults
	}
}

func (c *Config) normalizeVideoGen() {
	c.VideoGen.APIKey = strings.TrimSpace(c.VideoGen.APIKey)
	if c.VideoGen.APIKey == "" {
		if value, ok := os.LookupEnv("KIE_API_KEY"); ok {
			c.VideoGen.APIKey = strings.TrimSpace(value)
		}
	}
	c.VideoGen.BaseURL = strings.TrimSpace(c.VideoGen.BaseURL)
	if c.VideoGen.BaseURL == "" {
		c.VideoGen.BaseURL = defaultVideoGenBaseURL
	}
	c.VideoGen.Model = strings.TrimSpace(c.VideoGen.Model)
	if c.VideoGen.Model == "" {
		c.VideoGen.Model = defaultVideoGenModel
	}
	if c.VideoGen.PollIntervalSeconds <= 0 {
		c.VideoGen.PollIntervalSeconds = defaultVideoGenPollSeconds
	}
	if c.VideoGen.TimeoutSeconds <= 0 {
		c.VideoGen.TimeoutSeconds = defaultVideoGenTimeoutSeconds
	}
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.APIKey = strings.TrimSpace(c.Embedding.APIKey)
	if c.Embedding.APIKey == "" {
		// Embedding rides on the LLM credential when not set separately.
		c.Embedding.APIKey = c.LLM.APIKey
	}
	c.Embedding.BaseURL = strings.TrimSpace(c.Embedding.BaseURL)
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = defaultEmbeddingBaseURL
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MemoryLimit <= 0 {
		c.Workflow.MemoryLimit = defaultMemoryLimit
	}
	if c.Workflow.StreamBuffer <= 0 {
		c.Workflow.StreamBuffer = defaultStreamBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
