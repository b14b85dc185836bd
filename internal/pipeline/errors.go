package pipeline

import (
	"context"
	"errors"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/query/sqlpool"
)

type Category string

const (
	CategoryNone          Category = "ok"
	CategoryBadRequest    Category = "bad_request"
	CategoryValidation    Category = "validation"
	CategoryUpstream      Category = "upstream"
	CategoryExecution     Category = "execution"
	CategoryPoolExhausted Category = "pool_exhausted"
	CategoryCanceled      Category = "canceled"
	CategoryInternal      Category = "internal"
)

// Categorize maps an error returned by Service.Handle onto the failure
// class the HTTP layer reports.
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var validationErr *ValidationError
	var upstreamErr *nl2sql.UpstreamError
	var execErr *sqlpool.QueryExecutionError
	switch {
	case errors.Is(err, ErrEmptyRequest):
		return CategoryBadRequest
	case errors.As(err, &validationErr):
		return CategoryValidation
	case errors.Is(err, sqlpool.ErrPoolExhausted):
		return CategoryPoolExhausted
	case errors.Is(err, context.Canceled):
		return CategoryCanceled
	case errors.As(err, &upstreamErr):
		return CategoryUpstream
	case errors.As(err, &execErr):
		return CategoryExecution
	default:
		return CategoryInternal
	}
}

func (c Category) Retryable() bool {
	switch c {
	case CategoryUpstream, CategoryPoolExhausted:
		return true
	default:
		return false
	}
}
