// Package schemactx assembles the schema description text handed to the
// language model. Fragments come from a Source; unreadable fragments are
// logged and skipped so a broken file only degrades the prompt.
package schemactx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/askdb/askdb/internal/observability"
)

const separator = "\n\n"

// Source enumerates schema fragments by name, in a stable order.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

type Store struct {
	source Source
	logger *slog.Logger
}

func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Store{source: source, logger: logger}
}

// LoadContext never fails: listing or per-fragment errors are logged as
// warnings and the survivors are joined with a blank line.
func (s *Store) LoadContext(ctx context.Context) string {
	logger := observability.LoggerWithTrace(ctx, s.logger)
	if s.source == nil {
		logger.WarnContext(ctx, "schema context source not configured")
		return ""
	}

	names, err := s.source.List(ctx)
	if err != nil {
		logger.WarnContext(ctx, "schema context listing failed", slog.Any("error", err))
		return ""
	}

	fragments := make([]string, 0, len(names))
	for _, name := range names {
		body, err := s.readFragment(ctx, name)
		if err != nil {
			observability.IncrementSchemaFragmentSkipped()
			logger.WarnContext(ctx, "schema fragment skipped",
				slog.String("fragment", name),
				slog.Any("error", err),
			)
			continue
		}
		if body == "" {
			logger.DebugContext(ctx, "schema fragment empty", slog.String("fragment", name))
			continue
		}
		logger.DebugContext(ctx, "schema fragment loaded", slog.String("fragment", name))
		fragments = append(fragments, body)
	}

	logger.InfoContext(ctx, "schema context loaded",
		slog.Int("fragments", len(fragments)),
		slog.Int("skipped", len(names)-len(fragments)),
	)
	return strings.Join(fragments, separator)
}

func (s *Store) readFragment(ctx context.Context, name string) (string, error) {
	raw, err := s.source.Read(ctx, name)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("fragment %q is not valid UTF-8", name)
	}
	return strings.TrimSpace(string(raw)), nil
}
