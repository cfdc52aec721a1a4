package main

import (
	"bytes"
	"encoding/json"

	"go-ocr-relay/document"
)

// decodeUpstreamBody decodes an OCR response keeping numbers verbatim. It
// returns nil for bodies that are not JSON.
func decodeUpstreamBody(body []byte) any {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil
	}
	return v
}

// forwardedFailure merges an upstream error body under success=false. Bodies
// that are not JSON objects are carried under "error".
func forwardedFailure(body []byte) map[string]any {
	decoded := decodeUpstreamBody(body)

	out := map[string]any{}
	if obj := document.AsObject(decoded); obj != nil {
		for k, v := range obj {
			out[k] = v
		}
	} else if decoded != nil {
		out["error"] = decoded
	} else if len(body) > 0 {
		out["error"] = string(body)
	}
	out["success"] = false
	return out
}
