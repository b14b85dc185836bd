package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query/sqlpool"
)

type queryRequest struct {
	Query string `json:"query"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	result, err := deps.Pipeline.Handle(r.Context(), request.Query)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Records())
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	category := pipeline.Categorize(err)
	retryable := category.Retryable()

	switch category {
	case pipeline.CategoryBadRequest:
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", retryable, nil)
	case pipeline.CategoryValidation:
		var validationErr *pipeline.ValidationError
		errors.As(err, &validationErr)
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", validationErr.Reason, retryable, map[string]any{
			"details": validationErr.Detail,
			"sql":     validationErr.SQL,
		})
	case pipeline.CategoryUpstream:
		details := map[string]any{"details": err.Error()}
		var upstreamErr *nl2sql.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode > 0 {
			details["upstream_status"] = upstreamErr.StatusCode
		}
		writeError(r.Context(), w, http.StatusBadGateway, "UPSTREAM_FAILED", "language model request failed", retryable, details)
	case pipeline.CategoryExecution:
		var execErr *sqlpool.QueryExecutionError
		errors.As(err, &execErr)
		details := map[string]any{"details": execErr.Message(), "sql": execErr.SQL}
		if execErr.Code != "" {
			details["sqlstate"] = execErr.Code
		}
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", retryable, details)
	case pipeline.CategoryPoolExhausted:
		writeError(r.Context(), w, http.StatusServiceUnavailable, "POOL_EXHAUSTED", "no database connection available", retryable, nil)
	case pipeline.CategoryCanceled:
		writeError(r.Context(), w, http.StatusRequestTimeout, "REQUEST_CANCELED", "request was canceled", retryable, nil)
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "internal error", retryable, nil)
	}
}
