// Package askdbctl implements the askdbctl command tree: ask a question in
// plain language and print the rows, or probe service health.
package askdbctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultTimeout = 60 * time.Second
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after the command line was
// accepted. They exit with 1; everything else is a usage error.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

// Run executes one command and returns the process exit code: 0 on success,
// 1 when the request failed, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCmd(defaults)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			_, _ = fmt.Fprintln(stderr, reqErr.Error())
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "error: %v\n\n", err)
		_, _ = fmt.Fprint(stderr, root.UsageString())
		return 2
	}
	return 0
}

type rootOptions struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func (o *rootOptions) client() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return &http.Client{Timeout: o.timeout}
}

func (o *rootOptions) endpoint(path string) string {
	return strings.TrimRight(o.baseURL, "/") + path
}

func newRootCmd(defaults Options) *cobra.Command {
	opts := &rootOptions{httpClient: defaults.HTTPClient}

	root := &cobra.Command{
		Use:           "askdbctl",
		Short:         "Query a database in plain language through the askdb API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return errors.New("a command is required")
		},
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, defaultBaseURL), "askdb API base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", durationOr(defaults.Timeout, defaultTimeout), "HTTP timeout (e.g. 30s)")

	root.AddCommand(newAskCmd(opts))
	root.AddCommand(newProbeCmd(opts, "health", "Check that the API process is up", "/api/health"))
	root.AddCommand(newProbeCmd(opts, "ready", "Check that the API can reach its database", "/api/ready"))
	return root
}

func newProbeCmd(opts *rootOptions, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, body, err := doRequest(cmd.Context(), opts.client(), http.MethodGet, opts.endpoint(path), nil)
			if err != nil {
				return &requestError{err: fmt.Errorf("request failed: %w", err)}
			}
			if code >= 400 {
				return &requestError{err: describeHTTPError(code, body)}
			}
			if pretty, ok := prettyJSON(body); ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), pretty)
				return nil
			}
			if len(body) > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			}
			return nil
		},
	}
}

func doRequest(ctx context.Context, client *http.Client, method, url string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

type apiError struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context"`
	TraceID   string         `json:"trace_id"`
}

func describeHTTPError(code int, body []byte) error {
	var decoded apiError
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.ErrorCode == "" {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))
	}
	msg := fmt.Sprintf("http %d %s: %s", code, decoded.ErrorCode, decoded.Message)
	if details, ok := decoded.Context["details"].(string); ok && details != "" && details != decoded.Message {
		msg += " (" + details + ")"
	}
	if decoded.Retryable {
		msg += " [retryable]"
	}
	return errors.New(msg)
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
