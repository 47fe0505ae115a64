package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kanboard/kanboard-go/internal/history"
)

const defaultHistoryLimit = 20

// Result output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		return formatTable, nil
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q, use table, json or yaml", format)
	}
}

// extractOutputFlag removes -o <format>, --output <format> and
// --output=<format> from args.
func extractOutputFlag(args []string) (format string, rest []string, err error) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return "", nil, errors.Errorf("%s requires a format", arg)
			}
			format = args[i+1]
			i++
		case strings.HasPrefix(arg, "--output="):
			format = strings.TrimPrefix(arg, "--output=")
		default:
			rest = append(rest, arg)
		}
	}
	return format, rest, nil
}

// printResult writes result in the given format. The table format renders
// lists of objects and objects as tables and falls back to JSON for
// anything else.
func printResult(w io.Writer, result any, format string) error {
	switch format {
	case formatJSON:
		return printJSON(w, result)
	case formatYAML:
		return printYAML(w, result)
	}

	switch v := result.(type) {
	case []any:
		if rows, ok := objectRows(v); ok {
			printObjects(w, rows)
			return nil
		}
	case map[string]any:
		printObject(w, v)
		return nil
	}
	return printJSON(w, result)
}

func printJSON(w io.Writer, result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printYAML(w io.Writer, result any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	return enc.Close()
}

func objectRows(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

func printObjects(w io.Writer, rows []map[string]any) {
	columns := columnNames(rows)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := make(table.Row, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	t.AppendHeader(header)
	t.AppendSeparator()

	for _, row := range rows {
		cells := make(table.Row, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, cellValue(row[col]))
		}
		t.AppendRow(cells)
	}
	t.Render()
}

func printObject(w io.Writer, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendSeparator()
	for _, key := range keys {
		t.AppendRow(table.Row{key, cellValue(obj[key])})
	}
	t.Render()
}

// columnNames is the sorted union of row keys, with "id" first.
func columnNames(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	if i := slices.Index(columns, "id"); i > 0 {
		columns = append([]string{"id"}, slices.Delete(columns, i, i+1)...)
	}
	return columns
}

func cellValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func printHistory(w io.Writer, records []history.CallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No calls recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Time", "Method", "Async", "Status", "Duration", "Error"})
	t.AppendSeparator()

	for _, rec := range records {
		t.AppendRow(table.Row{
			shortID(rec.ID),
			rec.CreatedAt.Local().Format(time.RFC3339),
			rec.Method,
			rec.Async,
			rec.Status,
			(time.Duration(rec.DurationMs) * time.Millisecond).String(),
			rec.Error,
		})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
