package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/kanboard/kanboard-go/pkg/kanboard"
)

// parseParams turns key=value arguments into named parameters. Values that
// are valid JSON are sent as such (project_id=1, tags=["a","b"]), anything
// else as a string.
func parseParams(args []string) (kanboard.Params, error) {
	params := kanboard.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid parameter %q, expected key=value", arg)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(raw string) any {
	if raw != "" && json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}
