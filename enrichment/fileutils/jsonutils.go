package fileutils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotObject is returned when model output decodes but is not a JSON object.
var ErrNotObject = errors.New("model output is not a JSON object")

// DecodeModelJSON unmarshals a JSON object from a model response. It tries the whole text first,
// then the span from the first '{' to the last '}' for replies wrapped in prose or code fences.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	// Fast path: valid JSON as-is.
	if err := unmarshalObject([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := unmarshalObject([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

func unmarshalObject(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return ErrNotObject
	}
	return json.Unmarshal(b, v)
}
