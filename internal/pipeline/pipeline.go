// Package pipeline turns one natural-language request into rows: load the
// schema context, generate SQL, validate it, execute it. Validation is the
// only path to the executor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/sqlguard"
)

var ErrEmptyRequest = errors.New("query text is required")

// ValidationError is returned when generated SQL is refused. Reason is the
// client-facing text; Detail is the validator's finding.
type ValidationError struct {
	Reason string
	Detail string
	SQL    string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" || e.Detail == e.Reason {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

type ContextLoader interface {
	LoadContext(ctx context.Context) string
}

// Service is shared by every request. Handle only reads its fields; nil
// Validate, Logger and Clock fall back to defaults per call.
type Service struct {
	Schema    ContextLoader
	Generator nl2sql.Generator
	Executor  query.Executor
	Validate  func(sql string) sqlguard.Verdict
	Logger    *slog.Logger
	Clock     func() time.Time
}

func NewService(schema ContextLoader, generator nl2sql.Generator, executor query.Executor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Service{
		Schema:    schema,
		Generator: generator,
		Executor:  executor,
		Validate:  sqlguard.Validate,
		Logger:    logger,
		Clock:     time.Now,
	}
}

func (s *Service) Handle(ctx context.Context, userText string) (query.ResultSet, error) {
	logger := observability.LoggerWithTrace(ctx, s.Logger)

	result, err := s.handle(ctx, logger, userText)
	category := Categorize(err)
	observability.ObserveQueryOutcome(string(category))
	if err != nil && category != CategoryValidation {
		logger.WarnContext(ctx, "query request failed",
			slog.String("category", string(category)),
			slog.Any("error", err),
		)
	}
	return result, err
}

func (s *Service) handle(ctx context.Context, logger *slog.Logger, userText string) (query.ResultSet, error) {
	if strings.TrimSpace(userText) == "" {
		return query.ResultSet{}, ErrEmptyRequest
	}
	if s.Generator == nil || s.Executor == nil {
		return query.ResultSet{}, errors.New("pipeline is not configured")
	}
	logger.InfoContext(ctx, "query request received", slog.Int("text_length", len(userText)))

	now := s.Clock
	if now == nil {
		now = time.Now
	}
	validate := s.Validate
	if validate == nil {
		validate = sqlguard.Validate
	}

	started := now()
	schemaContext := ""
	if s.Schema != nil {
		schemaContext = s.Schema.LoadContext(ctx)
	}
	observability.ObserveStage("context", now().Sub(started))

	started = now()
	generated, err := s.Generator.Generate(ctx, userText, schemaContext)
	observability.ObserveStage("generate", now().Sub(started))
	if err != nil {
		return query.ResultSet{}, fmt.Errorf("generate sql: %w", err)
	}
	logger.InfoContext(ctx, "query generated",
		slog.String("provider", generated.Provider),
		slog.String("model", generated.Model),
		slog.String("sql", generated.ExtractedSQL),
	)

	verdict := validate(generated.ExtractedSQL)
	if !verdict.Accepted {
		logger.WarnContext(ctx, "query rejected",
			slog.String("reason", verdict.Reason),
			slog.String("sql", generated.ExtractedSQL),
		)
		return query.ResultSet{}, &ValidationError{
			Reason: sqlguard.ReasonNotReadOnly,
			Detail: verdict.Reason,
			SQL:    generated.ExtractedSQL,
		}
	}

	started = now()
	result, err := s.Executor.Execute(ctx, generated.ExtractedSQL)
	elapsed := now().Sub(started)
	observability.ObserveStage("execute", elapsed)
	if err != nil {
		return query.ResultSet{}, fmt.Errorf("execute sql: %w", err)
	}
	observability.ObserveResultRows(len(result.Rows))
	logger.InfoContext(ctx, "query executed",
		slog.Int("rows", len(result.Rows)),
		slog.Int("columns", len(result.Columns)),
		slog.Duration("duration", elapsed),
	)
	return result, nil
}
