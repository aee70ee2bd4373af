package tools

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// summaryValueRunes bounds each top-level string value in an input summary.
const summaryValueRunes = 60

// SummarizeInput renders raw tool input as compact one-line JSON for display,
// shortening long top-level string values. Invalid JSON is returned trimmed.
func SummarizeInput(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	if !gjson.ValidBytes(raw) {
		return strings.TrimSpace(string(raw))
	}
	out := raw
	doc := gjson.ParseBytes(raw)
	if doc.IsObject() {
		doc.ForEach(func(key, value gjson.Result) bool {
			if value.Type != gjson.String || utf8.RuneCountInString(value.Str) <= summaryValueRunes {
				return true
			}
			short := string([]rune(value.Str)[:summaryValueRunes]) + "…"
			if b, err := sjson.SetBytes(out, gjsonKey(key.String()), short); err == nil {
				out = b
			}
			return true
		})
	}
	return string(pretty.Ugly(out))
}
