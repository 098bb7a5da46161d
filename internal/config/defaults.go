package config

const (
	defaultDataDir                 = "~/.local/share/adloom"
	defaultLogDir                  = "~/.local/share/adloom/logs"
	defaultAPIBind                 = "127.0.0.1:7842"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLLMBaseURL              = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel                = "gpt-4o-mini"
	defaultLLMTimeoutSeconds       = 60
	defaultFirecrawlBaseURL        = "https://api.firecrawl.dev/v1"
	defaultFirecrawlTimeoutSeconds = 30
	defaultFirecrawlMaxResults     = 5
	defaultVideoGenBaseURL         = "https://api.kie.ai/api/v1"
	defaultVideoGenModel           = "sora-2"
	defaultVideoGenPollSeconds     = 5
	defaultVideoGenTimeoutSeconds  = 600
	defaultEmbeddingBaseURL        = "https://api.openai.com/v1/embeddings"
	defaultEmbeddingModel          = "text-embedding-3-small"
	defaultNotifyRequestTimeout    = 10
	defaultMemoryLimit             = 5
	defaultStreamBuffer            = 512
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Firecrawl: Firecrawl{
			BaseURL:        defaultFirecrawlBaseURL,
			TimeoutSeconds: defaultFirecrawlTimeoutSeconds,
			MaxResults:     defaultFirecrawlMaxResults,
		},
		VideoGen: VideoGen{
			BaseURL:             defaultVideoGenBaseURL,
			Model:               defaultVideoGenModel,
			PollIntervalSeconds: defaultVideoGenPollSeconds,
			TimeoutSeconds:      defaultVideoGenTimeoutSeconds,
		},
		Embedding: Embedding{
			BaseURL: defaultEmbeddingBaseURL,
			Model:   defaultEmbeddingModel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completion:     true,
			Approval:       true,
			Errors:         true,
		},
		Workflow: Workflow{
			MemoryLimit:  defaultMemoryLimit,
			StreamBuffer: defaultStreamBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
