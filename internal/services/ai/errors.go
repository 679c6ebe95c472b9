package ai

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrClassification indicates the Classification Oracle was unreachable
// or returned something unusable. The Ingestion Pipeline recovers by
// storing the raw text as a degraded note; it is never fatal.
var ErrClassification = errors.New("classification failed")

// ErrNoChoicesInResponse is returned when the API response has no choices
var ErrNoChoicesInResponse = errors.New("no choices in response")

// extractJSONObject pulls the outermost JSON object out of raw oracle
// output. Models occasionally wrap JSON in prose or code fences despite
// the response-format request.
func extractJSONObject(raw string) (string, error) {
	if len(raw) > 0 && raw[0] == '{' {
		return raw, nil
	}
	start := bytes.Index([]byte(raw), []byte("{"))
	end := bytes.LastIndex([]byte(raw), []byte("}"))
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in oracle response")
	}
	return raw[start : end+1], nil
}
