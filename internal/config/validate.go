package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateVendors(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MemoryLimit <= 0 {
		return errors.New("workflow.memory_limit must be positive")
	}
	if c.Workflow.StreamBuffer <= 0 {
		return errors.New("workflow.stream_buffer must be positive")
	}
	return nil
}

func (c *Config) validateVendors() error {
	// Vendor credentials are optional: steps fall back to simulated payloads
	// when a client is not configured. Endpoints must still be well formed.
	for name, value := range map[string]string{
		"llm.base_url":       c.LLM.BaseURL,
		"firecrawl.base_url": c.Firecrawl.BaseURL,
		"videogen.base_url":  c.VideoGen.BaseURL,
		"embedding.base_url": c.Embedding.BaseURL,
	} {
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%s must be an http(s) URL", name)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.VideoGen.TimeoutSeconds <= c.VideoGen.PollIntervalSeconds {
		return errors.New("videogen.timeout_seconds must be greater than videogen.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
