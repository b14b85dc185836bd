package nl2sql

import (
	"context"
	"fmt"
)

// GeneratedQuery is the model output for one request. ExtractedSQL is
// derived from RawModelText by ExtractSQL.
type GeneratedQuery struct {
	RawModelText string `json:"raw_model_text"`
	ExtractedSQL string `json:"sql"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
}

type Generator interface {
	Generate(ctx context.Context, userText, schemaContext string) (GeneratedQuery, error)
}

// UpstreamError reports that the language model call could not complete or
// returned a body that could not be used. StatusCode is zero for transport
// failures.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("language model request failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("language model request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
