package recognition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Accepted keys for the required fields, in order of preference. The NDC-specific
// spellings are accepted defensively alongside the short ones.
var (
	nameKeys = []string{"name", "itemName", "item_name", "brandName"}
	codeKeys = []string{"code", "ndc", "productNdc", "product_ndc"}
)

// ParseResult decodes a recognition response body and validates the required fields
func ParseResult(body []byte) (*Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, parseError(errors.New("empty response body"))
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, parseError(fmt.Errorf("decoding response: %w", err))
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != io.EOF {
		return nil, parseError(errors.New("unexpected data after JSON object"))
	}
	if raw == nil {
		return nil, parseError(errors.New("response is not a JSON object"))
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := scalarString(value); ok {
			fields[key] = s
		}
	}

	name, nameKey := firstField(fields, nameKeys)
	if name == "" {
		return nil, &Error{Kind: KindParse, Field: "name", Err: errors.New("missing name")}
	}
	code, codeKey := firstField(fields, codeKeys)
	if code == "" {
		return nil, &Error{Kind: KindParse, Field: "code", Err: errors.New("missing code")}
	}

	delete(fields, nameKey)
	delete(fields, codeKey)
	if len(fields) == 0 {
		fields = nil
	}

	return &Result{
		Name:   name,
		Code:   code,
		Fields: fields,
	}, nil
}

// firstField returns the first non-blank value among keys, and the key it came from
func firstField(fields map[string]string, keys []string) (string, string) {
	for _, key := range keys {
		if v := strings.TrimSpace(fields[key]); v != "" {
			return v, key
		}
	}
	return "", ""
}

// scalarString renders JSON strings, numbers and booleans. Objects, arrays and null are skipped.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// extractJSONObject pulls the JSON object out of a model reply, which may be wrapped in
// markdown code fences or surrounded by prose
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", parseError(errors.New("no JSON object found in response"))
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", parseError(errors.New("invalid JSON object in response"))
	}

	return text[startIdx : endIdx+1], nil
}
