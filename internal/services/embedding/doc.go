// Package embedding provides a client for the text embedding endpoint used
// when persisting brand memories.
package embedding
