package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AsObject returns v as a JSON object, or nil when it is anything else
func AsObject(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return nil
}

// StringValue renders a decoded JSON scalar as a string. Absent and null
// values report ok=false so the caller can apply its own default.
func StringValue(v any) (s string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}
