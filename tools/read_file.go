package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/petasbytes/code-agent/internal/fsops"
)

type ReadFileInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Relative path of a file in the working directory."`
	Offset   int    `json:"offset,omitempty" jsonschema_description:"Line offset (0-based) to start reading from."`
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return from offset (default 200)."`
}

const (
	defaultReadFileLimit = 200
	truncationSentinel   = "-- truncated; use offset/limit to fetch more --\n"
	maxLineRunes         = 2000   // per-line clamp
	overallRuneCap       = 12_000 // overall cap after join
)

var ReadFileDefinition = ToolDefinition{
	Name:        "read_file",
	Description: "Read the contents of a given relative file path. Use this when you want to see what's inside a file. Do not use this with directory names.",
	InputSchema: ReadFileInputSchema,
	Function:    ReadFile,
}

var ReadFileInputSchema = GenerateSchema[ReadFileInput]()

// clampRunes cuts s to at most n runes and reports whether it did.
func clampRunes(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// ReadFile returns a page of lines from a sandboxed file.
//   - offset: 0-based starting line (negatives clamped to 0)
//   - limit: number of lines to return (<= 0 means 200)
//
// Over-long lines and pages are clamped; any cut appends a trailing sentinel.
func ReadFile(_ context.Context, input json.RawMessage) Result {
	var in ReadFileInput
	if err := decodeInput(input, &in); err != nil {
		return Error(err)
	}
	if in.FilePath == "" {
		return Errorf("file_path must not be empty")
	}

	content, err := fsops.ReadFile(in.FilePath)
	if err != nil {
		return Error(err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadFileLimit
	}
	offset := max(in.Offset, 0)

	lines := strings.Split(content, "\n")
	offset = min(offset, len(lines))
	end := min(offset+limit, len(lines))

	truncated := end < len(lines)
	for i := offset; i < end; i++ {
		if clamped, did := clampRunes(lines[i], maxLineRunes); did {
			lines[i] = clamped
			truncated = true
		}
	}

	out := strings.Join(lines[offset:end], "\n")
	if clamped, did := clampRunes(out, overallRuneCap); did {
		out = clamped
		truncated = true
	}

	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncationSentinel
	}
	return Text(out)
}
