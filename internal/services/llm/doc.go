// Package llm wraps an OpenAI-compatible chat completion API with retry,
// JSON payload sanitization, and SSE token streaming for the conversational
// agent path.
package llm
