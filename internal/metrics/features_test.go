package metrics_test

import (
	"testing"
	"time"

	"github.com/petasbytes/code-agent/internal/metrics"
)

func TestCountFeatures_Table(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want metrics.Features
	}{
		{"Empty", "", metrics.Features{}},
		{"ASCII", "hello world", metrics.Features{Bytes: 11, Runes: 11, Words: 2, Lines: 1}},
		{"Multibyte", "héllö 世界", metrics.Features{Bytes: 14, Runes: 8, Words: 2, Lines: 1}},
		{"Multiline_NoTrailing", "a\nb\ncd", metrics.Features{Bytes: 6, Runes: 6, Words: 3, Lines: 3}},
		{"Multiline_Trailing", "a\nb\n", metrics.Features{Bytes: 4, Runes: 4, Words: 2, Lines: 3}},
		{"Tabs_Spaces", "  foo\tbar   baz  ", metrics.Features{Bytes: 17, Runes: 17, Words: 3, Lines: 1}},
		{"NBSP", "foo bar", metrics.Features{Bytes: 8, Runes: 7, Words: 2, Lines: 1}},
		{"OnlyWhitespace", " \t\n", metrics.Features{Bytes: 3, Runes: 3, Words: 0, Lines: 2}},
		{"CRLF", "a\r\nb\r\nc", metrics.Features{Bytes: 7, Runes: 7, Words: 3, Lines: 3}},
		{"ZeroWidthSpace_NoSplit", "foo​bar", metrics.Features{Bytes: 9, Runes: 7, Words: 1, Lines: 1}},
		{"Emoji_Astral", "\U0001F44D\U0001F44D", metrics.Features{Bytes: 8, Runes: 2, Words: 1, Lines: 1}},
		{"Combining_Marks", "é", metrics.Features{Bytes: 3, Runes: 2, Words: 1, Lines: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := metrics.CountFeatures(tc.in); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestTurnStats_Accumulates(t *testing.T) {
	s := metrics.StartTurn()
	s.AddRemote(120 * time.Millisecond)
	s.AddRemote(30 * time.Millisecond)
	s.AddTool(10, 100, false)
	s.AddTool(5, 20, true)

	f := s.Fields()
	checks := map[string]int64{
		"rounds":         2,
		"tool_calls":     2,
		"tool_errors":    1,
		"tool_in_bytes":  15,
		"tool_out_bytes": 120,
		"remote_ms":      150,
	}
	for k, want := range checks {
		var got int64
		switch v := f[k].(type) {
		case int:
			got = int64(v)
		case int64:
			got = v
		default:
			t.Fatalf("%s: unexpected type %T", k, f[k])
		}
		if got != want {
			t.Fatalf("%s: got %d want %d", k, got, want)
		}
	}
	if _, ok := f["elapsed_ms"]; !ok {
		t.Fatal("elapsed_ms missing")
	}
}
