// Package domain holds the core types and sentinel errors shared across the
// query pipeline.
package domain

import "errors"

var (
	// ErrEmptyQuery signals a query that is empty after normalization.
	ErrEmptyQuery = errors.New("empty query")
	// ErrIndexNotReady signals a retrieval attempt before any successful index build.
	ErrIndexNotReady = errors.New("index not built yet")
	// ErrStoreUnavailable signals a structured-store lookup failure or timeout.
	ErrStoreUnavailable = errors.New("class store unavailable")
	// ErrGeneratorUnavailable signals an answer-generator failure or timeout.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidVocabulary signals a malformed vocabulary or gazetteer definition.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)
