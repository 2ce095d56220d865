package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Module roles stored in run_modules.role.
const (
	roleDefined = "defined"
	roleUsed    = "used"
)

// marshalRoots converts the search roots to JSON TEXT.
// HTML escaping is disabled so paths are stored as written.
func marshalRoots(roots []string) (string, error) {
	if roots == nil {
		roots = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(roots); err != nil {
		return "", fmt.Errorf("marshal roots: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalRoots parses JSON TEXT to a list of roots.
func unmarshalRoots(data string) ([]string, error) {
	roots := []string{}
	if data == "" || data == "[]" {
		return roots, nil
	}
	if err := json.Unmarshal([]byte(data), &roots); err != nil {
		return nil, fmt.Errorf("unmarshal roots: %w", err)
	}
	return roots, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
