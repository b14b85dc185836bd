package askdbctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

type askOptions struct {
	output string
	json   bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the resulting rows",
		Example: `  # Print rows as a table
  askdbctl ask "how many employees are in each department"

  # Print the raw JSON rows
  askdbctl ask --json "list all employees"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}
			output := opts.output
			if opts.json {
				output = "json"
			}
			switch output {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unsupported output %q (table, json, yaml)", output)
			}

			code, body, err := doRequest(cmd.Context(), root.client(), http.MethodPost, root.endpoint("/api/query"), map[string]string{"query": question})
			if err != nil {
				return &requestError{err: fmt.Errorf("request failed: %w", err)}
			}
			if code >= 400 {
				return &requestError{err: describeHTTPError(code, body)}
			}
			if err := renderRows(cmd.OutOrStdout(), body, output); err != nil {
				return &requestError{err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Shorthand for --output json")
	return cmd
}

func renderRows(w io.Writer, body []byte, output string) error {
	switch output {
	case "json":
		pretty, ok := prettyJSON(body)
		if !ok {
			return fmt.Errorf("response is not valid JSON")
		}
		_, _ = fmt.Fprintln(w, pretty)
		return nil
	case "yaml":
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode rows: %w", err)
		}
		encoded, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("encode rows as yaml: %w", err)
		}
		_, _ = w.Write(encoded)
		return nil
	}

	columns, rows, err := decodeRows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "No rows.")
		return nil
	}
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, columns)
	data = append(data, rows...)
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, _ = fmt.Fprintln(w, table)
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// decodeRows flattens the API's array of row objects into a header and
// string cells. Columns appear in the order keys are first seen.
func decodeRows(body []byte) ([]string, [][]string, error) {
	var objects []json.RawMessage
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, nil, fmt.Errorf("decode rows: %w", err)
	}

	columns := []string{}
	seen := map[string]bool{}
	records := make([]map[string]string, 0, len(objects))
	for _, raw := range objects {
		record, keys, err := decodeObject(raw)
		if err != nil {
			return nil, nil, err
		}
		for _, key := range keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
		records = append(records, record)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = record[column]
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func decodeObject(raw json.RawMessage) (map[string]string, []string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	token, err := decoder.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("decode row: expected object, got %v", token)
	}

	record := map[string]string{}
	keys := []string{}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode row: %w", err)
		}
		key, _ := keyToken.(string)
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("decode row value %q: %w", key, err)
		}
		if _, exists := record[key]; !exists {
			keys = append(keys, key)
		}
		record[key] = formatCell(value)
	}
	return record, keys, nil
}

func formatCell(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return "NULL"
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	return string(trimmed)
}
